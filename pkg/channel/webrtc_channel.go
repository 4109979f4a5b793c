package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
)

// WebRTCChannel implements PhysicalChannel over a WebRTC data channel
// Each data channel message carries exactly one message.
type WebRTCChannel struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	dcLock sync.RWMutex
	rx     chan []byte
	opened chan struct{}
	once   sync.Once

	// Connection state listener
	stateListener     ConnectionStateListener
	stateListenerLock sync.RWMutex

	// Statistics
	stats struct {
		bytesSent     atomic.Uint64
		bytesReceived atomic.Uint64
		writeErrors   atomic.Uint64
		readErrors    atomic.Uint64
		connects      atomic.Uint64
		disconnects   atomic.Uint64
	}

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// WebRTCChannelConfig configures a WebRTC channel
type WebRTCChannelConfig struct {
	Offerer        bool          // true = create the data channel and the offer
	Label          string        // Data channel label
	ICEServers     []string      // STUN/TURN URLs
	Signaler       Signaler      // Carries the offer and answer
	ConnectTimeout time.Duration // Time allowed for signaling and data channel open
	ReceiveQueue   int           // Messages buffered before the data channel blocks
}

// DefaultICEServers is used when no ICE server is configured
var DefaultICEServers = []string{"stun:stun.l.google.com:19302"}

// NewWebRTCChannel negotiates a peer connection and waits for the data
// channel to open
func NewWebRTCChannel(ctx context.Context, config WebRTCChannelConfig) (*WebRTCChannel, error) {
	if config.Signaler == nil {
		return nil, fmt.Errorf("signaler is required")
	}

	// Set defaults
	if config.Label == "" {
		config.Label = "imgstream"
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 2 * time.Minute
	}
	if config.ReceiveQueue == 0 {
		config.ReceiveQueue = 64
	}

	var iceServers []webrtc.ICEServer
	if len(config.ICEServers) > 0 {
		iceServers = []webrtc.ICEServer{{URLs: config.ICEServers}}
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	chCtx, cancel := context.WithCancel(context.Background())
	wc := &WebRTCChannel{
		pc:     pc,
		rx:     make(chan []byte, config.ReceiveQueue),
		opened: make(chan struct{}),
		ctx:    chCtx,
		cancel: cancel,
	}

	pc.OnConnectionStateChange(wc.onConnectionStateChange)

	connectCtx, connectCancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer connectCancel()

	if config.Offerer {
		err = wc.offer(connectCtx, config)
	} else {
		err = wc.answer(connectCtx, config)
	}
	if err == nil {
		err = wc.waitOpen(connectCtx)
	}
	if err != nil {
		wc.Close()
		return nil, err
	}

	return wc, nil
}

// offer creates the data channel and drives the offering side of signaling
func (wc *WebRTCChannel) offer(ctx context.Context, config WebRTCChannelConfig) error {
	ordered := true
	dc, err := wc.pc.CreateDataChannel(config.Label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return fmt.Errorf("failed to create data channel: %w", err)
	}
	wc.attach(dc)

	offer, err := wc.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	if err := wc.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}
	if err := wc.sendLocal(ctx, config.Signaler); err != nil {
		return err
	}

	remote, err := wc.receiveRemote(ctx, config.Signaler)
	if err != nil {
		return err
	}
	if err := wc.pc.SetRemoteDescription(remote); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}
	return nil
}

// answer waits for the offer and drives the answering side of signaling
func (wc *WebRTCChannel) answer(ctx context.Context, config WebRTCChannelConfig) error {
	wc.pc.OnDataChannel(wc.attach)

	remote, err := wc.receiveRemote(ctx, config.Signaler)
	if err != nil {
		return err
	}
	if err := wc.pc.SetRemoteDescription(remote); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := wc.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("failed to create answer: %w", err)
	}
	if err := wc.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}
	return wc.sendLocal(ctx, config.Signaler)
}

// sendLocal waits for ICE gathering and sends the complete local description
func (wc *WebRTCChannel) sendLocal(ctx context.Context, signaler Signaler) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("ICE gathering: %w", ctx.Err())
	case <-webrtc.GatheringCompletePromise(wc.pc):
	}

	encoded, err := EncodeSessionDescription(*wc.pc.LocalDescription())
	if err != nil {
		return err
	}
	if err := signaler.SendDescription(ctx, encoded); err != nil {
		return fmt.Errorf("send description: %w", err)
	}
	return nil
}

func (wc *WebRTCChannel) receiveRemote(ctx context.Context, signaler Signaler) (webrtc.SessionDescription, error) {
	encoded, err := signaler.ReceiveDescription(ctx)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("receive description: %w", err)
	}
	return DecodeSessionDescription(encoded)
}

// attach wires the data channel callbacks
func (wc *WebRTCChannel) attach(dc *webrtc.DataChannel) {
	wc.dcLock.Lock()
	if wc.dc != nil {
		wc.dcLock.Unlock()
		// Only the first data channel carries messages
		dc.Close()
		return
	}
	wc.dc = dc
	wc.dcLock.Unlock()

	dc.OnOpen(func() {
		wc.once.Do(func() { close(wc.opened) })
		wc.stats.connects.Add(1)
		wc.notifyConnectionEstablished()
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		data := make([]byte, len(msg.Data))
		copy(data, msg.Data)
		wc.stats.bytesReceived.Add(uint64(len(data)))

		select {
		case wc.rx <- data:
		case <-wc.ctx.Done():
		}
	})

	dc.OnClose(func() {
		if !wc.closed.Load() {
			wc.stats.disconnects.Add(1)
			wc.notifyConnectionLost()
		}
	})
}

// waitOpen blocks until the data channel is open
func (wc *WebRTCChannel) waitOpen(ctx context.Context) error {
	select {
	case <-wc.opened:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("data channel did not open: %w", ctx.Err())
	}
}

func (wc *WebRTCChannel) onConnectionStateChange(state webrtc.PeerConnectionState) {
	switch state {
	case webrtc.PeerConnectionStateFailed:
		wc.stats.readErrors.Add(1)
		if !wc.closed.Load() {
			wc.notifyConnectionLost()
		}
	case webrtc.PeerConnectionStateClosed:
		wc.cancel()
	}
}

// Read implements PhysicalChannel.Read
func (wc *WebRTCChannel) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-wc.rx:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-wc.ctx.Done():
		return nil, fmt.Errorf("channel closed")
	}
}

// Write implements PhysicalChannel.Write
func (wc *WebRTCChannel) Write(ctx context.Context, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wc.ctx.Done():
		return fmt.Errorf("channel closed")
	default:
	}

	wc.dcLock.RLock()
	dc := wc.dc
	wc.dcLock.RUnlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		wc.stats.writeErrors.Add(1)
		return errors.New("data channel not open")
	}

	if err := dc.Send(data); err != nil {
		wc.stats.writeErrors.Add(1)
		return err
	}

	wc.stats.bytesSent.Add(uint64(len(data)))
	return nil
}

// Close implements PhysicalChannel.Close
func (wc *WebRTCChannel) Close() error {
	if !wc.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	wc.cancel()
	return wc.pc.Close()
}

// Statistics implements PhysicalChannel.Statistics
func (wc *WebRTCChannel) Statistics() TransportStats {
	return TransportStats{
		BytesSent:     wc.stats.bytesSent.Load(),
		BytesReceived: wc.stats.bytesReceived.Load(),
		WriteErrors:   wc.stats.writeErrors.Load(),
		ReadErrors:    wc.stats.readErrors.Load(),
		Connects:      wc.stats.connects.Load(),
		Disconnects:   wc.stats.disconnects.Load(),
	}
}

// SetConnectionStateListener sets a listener for connection state changes
func (wc *WebRTCChannel) SetConnectionStateListener(listener ConnectionStateListener) {
	wc.stateListenerLock.Lock()
	defer wc.stateListenerLock.Unlock()
	wc.stateListener = listener
}

// notifyConnectionEstablished notifies the listener that the data channel opened
func (wc *WebRTCChannel) notifyConnectionEstablished() {
	wc.stateListenerLock.RLock()
	listener := wc.stateListener
	wc.stateListenerLock.RUnlock()

	if listener != nil {
		listener.OnConnectionEstablished()
	}
}

// notifyConnectionLost notifies the listener that the peer went away
func (wc *WebRTCChannel) notifyConnectionLost() {
	wc.stateListenerLock.RLock()
	listener := wc.stateListener
	wc.stateListenerLock.RUnlock()

	if listener != nil {
		listener.OnConnectionLost()
	}
}
