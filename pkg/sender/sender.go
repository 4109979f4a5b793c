// Package sender streams an image blob to a viewer as offset-tagged chunks.
package sender

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"avaneesh/imgstream-go/pkg/appmsg"
	"avaneesh/imgstream-go/pkg/channel"
	"avaneesh/imgstream-go/pkg/internal/logger"
	"avaneesh/imgstream-go/pkg/transfer"
)

var (
	ErrNoImage = errors.New("no image set")
)

// Sender is the companion side of a transfer
type Sender struct {
	config  Config
	channel *channel.Channel
	logger  logger.Logger
	stats   *Statistics

	mu   sync.RWMutex
	blob []byte

	// One push at a time so fragments of two transfers never interleave
	pushMu sync.Mutex

	started  bool
	requests chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a sender and attaches it to ch
func New(config Config, ch *channel.Channel, log logger.Logger) (*Sender, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sender config: %w", err)
	}
	if ch == nil {
		return nil, errors.New("channel is required")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Sender{
		config:   config,
		channel:  ch,
		logger:   log,
		stats:    &Statistics{},
		requests: make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := ch.AddEndpoint(s); err != nil {
		cancel()
		return nil, err
	}

	s.logger.Info("Sender %s created: chunk=%d", config.ID, config.MaxChunkSize)
	return s, nil
}

// ID implements channel.Endpoint
func (s *Sender) ID() string {
	return s.config.ID
}

// Type implements channel.Endpoint
func (s *Sender) Type() channel.EndpointType {
	return channel.EndpointTypeSender
}

// OnMessage implements channel.Endpoint. Requests are coalesced and served
// by the request loop so the channel read loop never blocks on a push.
func (s *Sender) OnMessage(msg *appmsg.Dictionary) error {
	if !appmsg.IsRequest(msg) {
		if text, ok := msg.Message(); ok {
			s.logger.Debug("Sender %s: viewer says %q", s.config.ID, text)
		}
		return nil
	}

	s.stats.IncrementRequests()
	s.logger.Info("Sender %s: image requested", s.config.ID)

	if !s.config.SendOnRequest {
		return nil
	}
	select {
	case s.requests <- struct{}{}:
	default:
	}
	return nil
}

// SetImage replaces the blob sent by the next push
func (s *Sender) SetImage(blob []byte) {
	b := make([]byte, len(blob))
	copy(b, blob)

	s.mu.Lock()
	s.blob = b
	s.mu.Unlock()

	s.logger.Debug("Sender %s: image set, %d bytes", s.config.ID, len(b))
}

// Image returns the current blob
func (s *Sender) Image() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blob
}

// Start runs the request loop and, if configured, the periodic push
func (s *Sender) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.requestLoop()
	}()

	if s.config.Interval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.intervalLoop()
		}()
	}
}

// Shutdown stops the sender and detaches it from its channel
func (s *Sender) Shutdown() error {
	s.logger.Info("Sender %s shutting down", s.config.ID)
	s.cancel()
	s.wg.Wait()
	s.channel.RemoveEndpoint(s.config.ID)
	return nil
}

// Push streams the current image now
func (s *Sender) Push(ctx context.Context) error {
	blob := s.Image()
	if blob == nil {
		return ErrNoImage
	}

	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	if err := s.push(ctx, blob); err != nil {
		s.stats.IncrementFailures()
		return err
	}
	s.stats.IncrementPushes()
	return nil
}

// push sends the status text and every fragment of blob. Caller holds pushMu.
func (s *Sender) push(ctx context.Context, blob []byte) error {
	if s.config.StatusText != "" {
		if err := s.channel.Send(appmsg.NewStatus(s.config.StatusText)); err != nil {
			return fmt.Errorf("send status: %w", err)
		}
	}

	fragments := transfer.Split(blob, s.config.MaxChunkSize)
	s.logger.Info("Sender %s: pushing %d bytes in %d fragments", s.config.ID, len(blob), len(fragments))

	for i, f := range fragments {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := appmsg.NewChunk(f.Offset, f.Data)
		if err != nil {
			return err
		}
		if err := s.channel.Send(msg); err != nil {
			return fmt.Errorf("send fragment %d at offset %d: %w", i, f.Offset, err)
		}
		s.stats.IncrementFragments(len(f.Data))

		if s.config.ChunkDelay > 0 && i < len(fragments)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.config.ChunkDelay):
			}
		}
	}
	return nil
}

// Stats returns sender statistics
func (s *Sender) Stats() *Statistics {
	return s.stats
}

// requestLoop serves coalesced image requests
func (s *Sender) requestLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.requests:
			if err := s.Push(s.ctx); err != nil {
				s.logger.Warn("Sender %s: push on request failed: %v", s.config.ID, err)
			}
		}
	}
}

// intervalLoop re-sends the image every Interval
func (s *Sender) intervalLoop() {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.Push(s.ctx); err != nil && !errors.Is(err, ErrNoImage) {
				s.logger.Warn("Sender %s: periodic push failed: %v", s.config.ID, err)
			}
		}
	}
}
