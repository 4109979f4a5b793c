package sender

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"avaneesh/imgstream-go/pkg/appmsg"
	"avaneesh/imgstream-go/pkg/bitmap"
	"avaneesh/imgstream-go/pkg/channel"
	"avaneesh/imgstream-go/pkg/display"
	"avaneesh/imgstream-go/pkg/transfer"
	"avaneesh/imgstream-go/pkg/viewer"
)

const waitTimeout = 2 * time.Second

type recordingEndpoint struct {
	got chan *appmsg.Dictionary
}

func (r *recordingEndpoint) OnMessage(msg *appmsg.Dictionary) error {
	r.got <- msg
	return nil
}

func (r *recordingEndpoint) ID() string                 { return "recorder" }
func (r *recordingEndpoint) Type() channel.EndpointType { return channel.EndpointTypeViewer }

func (r *recordingEndpoint) next(t *testing.T) *appmsg.Dictionary {
	t.Helper()
	select {
	case msg := <-r.got:
		return msg
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for message")
		return nil
	}
}

// openPair returns a sender channel and a far-end channel with a recorder
func openPair(t *testing.T) (*channel.Channel, *channel.Channel, *recordingEndpoint) {
	t.Helper()
	left, right := channel.NewPipe(16)
	near := channel.New("sender-ch", left, nil)
	far := channel.New("far-ch", right, nil)

	rec := &recordingEndpoint{got: make(chan *appmsg.Dictionary, 16)}
	if err := far.AddEndpoint(rec); err != nil {
		t.Fatalf("AddEndpoint() error = %v", err)
	}
	for _, ch := range []*channel.Channel{near, far} {
		if err := ch.Open(); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
	}
	t.Cleanup(func() {
		near.Close()
		far.Close()
	})
	return near, far, rec
}

func testBlob(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 144, 168))
	for i := range img.Pix {
		if i%3 == 0 {
			img.Pix[i] = 0xFF
		}
	}
	img.SetGray(0, 0, color.Gray{Y: 0xFF})
	blob, err := bitmap.Encode(img, 144, 168)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return blob
}

func TestSender_PushSendsStatusThenFragments(t *testing.T) {
	near, _, rec := openPair(t)

	config := DefaultConfig()
	config.StatusText = "sending"
	s, err := New(config, near, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Shutdown()

	blob := make([]byte, 3372)
	s.SetImage(blob)
	if err := s.Push(context.Background()); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	if text, ok := rec.next(t).Message(); !ok || text != "sending" {
		t.Errorf("first message = %q, %v, want status %q", text, ok, "sending")
	}

	wants := []struct {
		offset int64
		length int
	}{
		{0, 1500},
		{1500, 1500},
		{3000, 372},
	}
	for _, want := range wants {
		offset, data, present, err := rec.next(t).Chunk()
		if err != nil || !present {
			t.Fatalf("Chunk() present=%v err=%v", present, err)
		}
		if offset != want.offset || len(data) != want.length {
			t.Errorf("chunk = (%d, %d bytes), want (%d, %d bytes)", offset, len(data), want.offset, want.length)
		}
	}

	stats := s.Stats()
	if stats.GetPushes() != 1 || stats.GetFragments() != 3 || stats.GetBytes() != 3372 {
		t.Errorf("stats = pushes %d, fragments %d, bytes %d", stats.GetPushes(), stats.GetFragments(), stats.GetBytes())
	}
}

func TestSender_PushExactMultipleAddsTerminator(t *testing.T) {
	near, _, rec := openPair(t)

	s, err := New(DefaultConfig(), near, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Shutdown()

	s.SetImage(make([]byte, 3000))
	if err := s.Push(context.Background()); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	var lengths []int
	for i := 0; i < 3; i++ {
		_, data, _, _ := rec.next(t).Chunk()
		lengths = append(lengths, len(data))
	}
	if lengths[0] != 1500 || lengths[1] != 1500 || lengths[2] != 0 {
		t.Errorf("fragment lengths = %v, want [1500 1500 0]", lengths)
	}
}

func TestSender_PushWithoutImage(t *testing.T) {
	near, _, _ := openPair(t)

	s, err := New(DefaultConfig(), near, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Shutdown()

	if err := s.Push(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Errorf("Push() error = %v, want ErrNoImage", err)
	}
}

func TestSender_RequestTriggersPush(t *testing.T) {
	near, far, rec := openPair(t)

	s, err := New(DefaultConfig(), near, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Shutdown()
	s.SetImage(make([]byte, 10))
	s.Start()

	if err := far.Send(appmsg.NewRequest()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	offset, data, present, err := rec.next(t).Chunk()
	if err != nil || !present || offset != 0 || len(data) != 10 {
		t.Errorf("Chunk() = (%d, %d bytes, %v, %v)", offset, len(data), present, err)
	}
	if s.Stats().GetRequests() != 1 {
		t.Errorf("Requests = %d, want 1", s.Stats().GetRequests())
	}
}

func TestSender_ViewerEndToEnd(t *testing.T) {
	left, right := channel.NewPipe(16)
	senderCh := channel.New("sender-ch", left, nil)
	viewerCh := channel.New("viewer-ch", right, nil)

	s, err := New(DefaultConfig(), senderCh, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	blob := testBlob(t)
	s.SetImage(blob)

	presenter := display.NewMemory()
	v, err := viewer.New(viewer.DefaultConfig(), presenter, nil, nil, viewerCh, nil)
	if err != nil {
		t.Fatalf("viewer.New() error = %v", err)
	}

	for _, ch := range []*channel.Channel{senderCh, viewerCh} {
		if err := ch.Open(); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
	}
	defer func() {
		v.Shutdown()
		s.Shutdown()
		senderCh.Close()
		viewerCh.Close()
	}()

	s.Start()
	if err := v.Enable(); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}

	deadline := time.Now().Add(waitTimeout)
	for presenter.ImageCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for image")
		}
		time.Sleep(5 * time.Millisecond)
	}

	got, err := bitmap.Encode(v.Image(), 144, 168)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(got) != string(blob) {
		t.Errorf("displayed image differs from sent blob")
	}
	if v.State() != transfer.StateIdle {
		t.Errorf("State = %v, want Idle", v.State())
	}
}

func TestWatch_PushesOnWrite(t *testing.T) {
	near, _, rec := openPair(t)

	s, err := New(DefaultConfig(), near, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Shutdown()

	path := filepath.Join(t.TempDir(), "image.bin")
	if err := os.WriteFile(path, []byte{1}, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, os.ReadFile, s)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before writing
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte{1, 2, 3, 4}, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, data, present, err := rec.next(t).Chunk()
	if err != nil || !present || len(data) != 4 {
		t.Errorf("Chunk() = (%d bytes, %v, %v), want 4 bytes", len(data), present, err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"empty ID", func(c *Config) { c.ID = "" }, true},
		{"zero chunk", func(c *Config) { c.MaxChunkSize = 0 }, true},
		{"negative interval", func(c *Config) { c.Interval = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
