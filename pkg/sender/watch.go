package sender

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// LoadFunc reads the image file at path and returns the blob to send
type LoadFunc func(path string) ([]byte, error)

// WatchDebounce is how long Watch waits after the last change before reloading
var WatchDebounce = 100 * time.Millisecond

// Watch reloads path with load and pushes it through s whenever the file is
// written or recreated. The directory is watched so editors that replace the
// file are seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, load LoadFunc, s *Sender) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	name := filepath.Base(path)
	s.logger.Info("Sender %s: watching %s", s.config.ID, path)

	var (
		mu       sync.Mutex
		debounce *time.Timer
	)
	reload := func() {
		blob, err := load(path)
		if err != nil {
			s.logger.Warn("Sender %s: reload %s: %v", s.config.ID, path, err)
			return
		}
		s.SetImage(blob)
		if err := s.Push(ctx); err != nil {
			s.logger.Warn("Sender %s: push after reload failed: %v", s.config.ID, err)
		}
	}
	defer func() {
		mu.Lock()
		if debounce != nil {
			debounce.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			mu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(WatchDebounce, reload)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Sender %s: watcher error: %v", s.config.ID, err)
		}
	}
}
