package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"avaneesh/imgstream-go/pkg/appmsg"
	"avaneesh/imgstream-go/pkg/bitmap"
	"avaneesh/imgstream-go/pkg/channel"
	"avaneesh/imgstream-go/pkg/display"
	"avaneesh/imgstream-go/pkg/internal/logger"
	"avaneesh/imgstream-go/pkg/transfer"
)

var (
	ErrViewerDisabled = errors.New("viewer is disabled")
	ErrInvalidOffset  = errors.New("chunk offset is negative")
	ErrStalled        = errors.New("transfer stalled")
	ErrImageTooLarge  = errors.New("image larger than screen")
)

// Viewer receives a streamed image over a channel and shows it on a presenter
type Viewer struct {
	config    Config
	presenter display.Presenter
	decoder   Decoder
	callbacks Callbacks
	logger    logger.Logger

	session *session

	// Owned by the dispatch goroutine
	receiver *transfer.Receiver

	// Mirrors for readers outside the dispatch goroutine
	state   atomic.Int32
	mu      sync.RWMutex
	status  string
	current image.Image

	enabled bool
	stateMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	inbox  chan event
}

// event is one unit of work for the dispatch goroutine
type event struct {
	msg       *appmsg.Dictionary
	connected bool
}

// New creates a viewer and attaches it to ch.
// A nil presenter records into a display.Memory; a nil decoder uses bitmap.Decoder.
func New(config Config, presenter display.Presenter, decoder Decoder, callbacks Callbacks, ch *channel.Channel, log logger.Logger) (*Viewer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid viewer config: %w", err)
	}
	if ch == nil {
		return nil, errors.New("channel is required")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if presenter == nil {
		presenter = display.NewMemory()
	}
	if decoder == nil {
		decoder = bitmap.Decoder{}
	}
	if callbacks == nil {
		callbacks = NoOpCallbacks{}
	}
	if config.InboxSize <= 0 {
		config.InboxSize = DefaultConfig().InboxSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	v := &Viewer{
		config:    config,
		presenter: presenter,
		decoder:   decoder,
		callbacks: callbacks,
		logger:    log,
		receiver:  transfer.NewReceiver(config.Transfer),
		ctx:       ctx,
		cancel:    cancel,
		inbox:     make(chan event, config.InboxSize),
	}

	v.session = &session{
		id:      config.ID,
		channel: ch,
		viewer:  v,
	}

	if err := ch.AddEndpoint(v.session); err != nil {
		cancel()
		return nil, err
	}
	ch.SetConnectionStateListener(v.session)

	v.logger.Info("Viewer %s created: chunk=%d, capacity=%d",
		config.ID, config.Transfer.MaxChunkSize, config.Transfer.BufferCapacity)
	return v, nil
}

// Enable starts the dispatch goroutine and requests the image
func (v *Viewer) Enable() error {
	v.stateMu.Lock()
	if v.enabled {
		v.stateMu.Unlock()
		return nil
	}
	v.enabled = true
	v.stateMu.Unlock()

	v.logger.Info("Viewer %s enabled", v.config.ID)

	if v.config.InitialStatus != "" {
		v.setStatus(v.config.InitialStatus)
	}

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		v.dispatch()
	}()

	if v.config.RequestOnStart {
		if err := v.session.request(); err != nil {
			v.logger.Warn("Viewer %s: startup request failed: %v", v.config.ID, err)
			return err
		}
	}
	return nil
}

// Disable stops accepting messages. The dispatch goroutine keeps running
// until Shutdown.
func (v *Viewer) Disable() error {
	v.stateMu.Lock()
	v.enabled = false
	v.stateMu.Unlock()

	v.logger.Info("Viewer %s disabled", v.config.ID)
	return nil
}

// Shutdown stops the viewer and detaches it from its channel
func (v *Viewer) Shutdown() error {
	v.logger.Info("Viewer %s shutting down", v.config.ID)

	v.Disable()
	v.cancel()
	v.wg.Wait()
	v.session.channel.RemoveEndpoint(v.config.ID)

	v.logger.Info("Viewer %s shutdown complete", v.config.ID)
	return nil
}

// Request asks the sender for the image again
func (v *Viewer) Request() error {
	if !v.isEnabled() {
		return ErrViewerDisabled
	}
	return v.session.request()
}

// ID returns the viewer ID
func (v *Viewer) ID() string {
	return v.config.ID
}

// State returns the transfer state
func (v *Viewer) State() transfer.State {
	return transfer.State(v.state.Load())
}

// Status returns the current status text
func (v *Viewer) Status() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status
}

// Image returns the image currently shown, nil before the first transfer
func (v *Viewer) Image() image.Image {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Stats returns transfer statistics, nil when disabled in the config
func (v *Viewer) Stats() *transfer.Statistics {
	return v.receiver.Stats()
}

// isEnabled returns true if the viewer is enabled
func (v *Viewer) isEnabled() bool {
	v.stateMu.RLock()
	defer v.stateMu.RUnlock()
	return v.enabled
}

// enqueue hands an event to the dispatch goroutine
func (v *Viewer) enqueue(ev event) error {
	if !v.isEnabled() {
		return ErrViewerDisabled
	}
	select {
	case v.inbox <- ev:
		return nil
	case <-v.ctx.Done():
		return v.ctx.Err()
	}
}

// setStatus updates the status text and notifies the presenter
func (v *Viewer) setStatus(text string) {
	v.mu.Lock()
	v.status = text
	v.mu.Unlock()

	if err := v.presenter.ShowStatus(text); err != nil {
		v.logger.Warn("Viewer %s: show status: %v", v.config.ID, err)
	}
	v.callbacks.OnStatus(text)
}

// syncState publishes the receiver state for State()
func (v *Viewer) syncState() {
	v.state.Store(int32(v.receiver.State()))
}
