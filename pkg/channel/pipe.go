package channel

import (
	"context"
	"sync"
	"sync/atomic"
)

// PipeChannel is one end of an in-memory connected pair.
// Each Write is delivered to the peer as exactly one Read.
type PipeChannel struct {
	rx   chan []byte
	peer *PipeChannel

	// Connection state listener
	stateListener     ConnectionStateListener
	stateListenerLock sync.RWMutex

	// Statistics
	stats struct {
		bytesSent     atomic.Uint64
		bytesReceived atomic.Uint64
		writeErrors   atomic.Uint64
	}

	// Lifecycle
	done      chan struct{}
	closeOnce sync.Once
}

// NewPipe creates a connected pair of in-memory channels.
// depth is the number of messages each direction buffers before Write blocks.
func NewPipe(depth int) (*PipeChannel, *PipeChannel) {
	if depth <= 0 {
		depth = 64
	}

	a := &PipeChannel{rx: make(chan []byte, depth), done: make(chan struct{})}
	b := &PipeChannel{rx: make(chan []byte, depth), done: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

// Read implements PhysicalChannel.Read
func (p *PipeChannel) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-p.rx:
		p.stats.bytesReceived.Add(uint64(len(data)))
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrChannelClosed
	}
}

// Write implements PhysicalChannel.Write
func (p *PipeChannel) Write(ctx context.Context, data []byte) error {
	msg := make([]byte, len(data))
	copy(msg, data)

	select {
	case <-p.done:
		p.stats.writeErrors.Add(1)
		return ErrChannelClosed
	case <-p.peer.done:
		p.stats.writeErrors.Add(1)
		return ErrChannelClosed
	default:
	}

	select {
	case p.peer.rx <- msg:
		p.stats.bytesSent.Add(uint64(len(data)))
		return nil
	case <-ctx.Done():
		p.stats.writeErrors.Add(1)
		return ctx.Err()
	case <-p.done:
		p.stats.writeErrors.Add(1)
		return ErrChannelClosed
	case <-p.peer.done:
		p.stats.writeErrors.Add(1)
		return ErrChannelClosed
	}
}

// Close implements PhysicalChannel.Close
func (p *PipeChannel) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)

		p.peer.stateListenerLock.RLock()
		listener := p.peer.stateListener
		p.peer.stateListenerLock.RUnlock()
		if listener != nil {
			listener.OnConnectionLost()
		}
	})
	return nil
}

// Statistics implements PhysicalChannel.Statistics
func (p *PipeChannel) Statistics() TransportStats {
	return TransportStats{
		BytesSent:     p.stats.bytesSent.Load(),
		BytesReceived: p.stats.bytesReceived.Load(),
		WriteErrors:   p.stats.writeErrors.Load(),
		Connects:      1,
	}
}

// SetConnectionStateListener sets a listener for connection state changes.
// The pipe is connected from creation; only loss is reported.
func (p *PipeChannel) SetConnectionStateListener(listener ConnectionStateListener) {
	p.stateListenerLock.Lock()
	defer p.stateListenerLock.Unlock()
	p.stateListener = listener
}
