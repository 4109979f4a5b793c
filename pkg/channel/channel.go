package channel

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"avaneesh/imgstream-go/pkg/appmsg"
	"avaneesh/imgstream-go/pkg/internal/logger"
)

var (
	ErrChannelClosed = errors.New("channel is closed")
	ErrChannelOpen   = errors.New("channel is already open")
)

// Channel parses messages from a physical channel and delivers them to the
// attached endpoints
type Channel struct {
	id              string
	physicalChannel PhysicalChannel
	router          *Router
	stats           *Statistics
	logger          logger.Logger

	// State
	state   ChannelState
	stateMu sync.RWMutex

	// Concurrency
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Write queue for serializing writes
	writeQueue chan *writeRequest
}

// writeRequest represents a write request
type writeRequest struct {
	data []byte
	resp chan error
}

// New creates a new channel
func New(id string, physical PhysicalChannel, log logger.Logger) *Channel {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Channel{
		id:              id,
		physicalChannel: physical,
		router:          NewRouter(),
		stats:           NewStatistics(),
		logger:          log,
		state:           ChannelStateClosed,
		ctx:             ctx,
		cancel:          cancel,
		writeQueue:      make(chan *writeRequest, 100),
	}
}

// ID returns the channel ID
func (c *Channel) ID() string {
	return c.id
}

// Open opens the channel and starts processing
func (c *Channel) Open() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.state == ChannelStateOpen {
		return ErrChannelOpen
	}
	if c.ctx.Err() != nil {
		return ErrChannelClosed
	}

	c.state = ChannelStateOpen
	c.logger.Info("Channel %s opening", c.id)

	// Start read loop
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.readLoop()
	}()

	// Start write loop
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.writeLoop()
	}()

	c.logger.Info("Channel %s opened", c.id)
	return nil
}

// Close closes the channel
func (c *Channel) Close() error {
	c.stateMu.Lock()
	if c.state == ChannelStateClosed {
		c.stateMu.Unlock()
		return nil
	}
	c.state = ChannelStateClosed
	c.stateMu.Unlock()

	c.logger.Info("Channel %s closing", c.id)

	// Cancel context to stop goroutines
	c.cancel()

	// Close physical channel
	if err := c.physicalChannel.Close(); err != nil {
		c.logger.Error("Error closing physical channel: %v", err)
	}

	// Wait for goroutines to finish
	c.wg.Wait()

	c.logger.Info("Channel %s closed", c.id)
	return nil
}

// readLoop continuously reads from physical channel
func (c *Channel) readLoop() {
	c.logger.Debug("Channel %s read loop started", c.id)
	defer c.logger.Debug("Channel %s read loop stopped", c.id)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		// Read from physical channel
		data, err := c.physicalChannel.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				// Context cancelled, normal shutdown
				return
			}
			c.logger.Error("Channel %s read error: %v", c.id, err)
			c.stats.ReadError()
			continue
		}

		if logger.FrameDebug() {
			c.logger.Debug("Channel %s RX %d bytes\n%s", c.id, len(data), hex.Dump(data))
		}

		// Parse message
		msg, err := appmsg.Parse(data)
		if err != nil {
			c.logger.Warn("Channel %s dropped bad message (%d bytes): %v", c.id, len(data), err)
			c.stats.BadMessage()
			continue
		}

		c.stats.MessageRx()
		c.logger.Debug("Channel %s received %s", c.id, msg)

		// Deliver to endpoints
		if err := c.router.Route(msg); err != nil {
			c.stats.RoutingError()
			c.logger.Warn("Channel %s routing error: %v", c.id, err)
		}
	}
}

// writeLoop processes write requests
func (c *Channel) writeLoop() {
	c.logger.Debug("Channel %s write loop started", c.id)
	defer c.logger.Debug("Channel %s write loop stopped", c.id)

	for {
		select {
		case <-c.ctx.Done():
			// Drain remaining requests with error
			for {
				select {
				case req := <-c.writeQueue:
					req.resp <- ErrChannelClosed
				default:
					return
				}
			}

		case req := <-c.writeQueue:
			if logger.FrameDebug() {
				c.logger.Debug("Channel %s TX %d bytes\n%s", c.id, len(req.data), hex.Dump(req.data))
			}

			// Write to physical channel
			err := c.physicalChannel.Write(c.ctx, req.data)
			if err != nil {
				c.logger.Error("Channel %s write error: %v", c.id, err)
			} else {
				c.stats.MessageTx()
			}
			req.resp <- err
		}
	}
}

// Write writes raw message bytes to the channel
func (c *Channel) Write(data []byte) error {
	c.stateMu.RLock()
	if c.state != ChannelStateOpen {
		c.stateMu.RUnlock()
		return ErrChannelClosed
	}
	c.stateMu.RUnlock()

	req := &writeRequest{
		data: data,
		resp: make(chan error, 1),
	}

	select {
	case c.writeQueue <- req:
		return <-req.resp
	case <-c.ctx.Done():
		return ErrChannelClosed
	}
}

// Send serializes msg and writes it to the channel
func (c *Channel) Send(msg *appmsg.Dictionary) error {
	data, err := msg.Serialize()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	c.logger.Debug("Channel %s sending %s", c.id, msg)
	return c.Write(data)
}

// AddEndpoint attaches an endpoint to the channel
func (c *Channel) AddEndpoint(endpoint Endpoint) error {
	if err := c.router.AddEndpoint(endpoint); err != nil {
		return err
	}

	c.stats.SetActiveEndpoints(uint64(c.router.GetEndpointCount()))
	c.logger.Info("Channel %s: Added %s endpoint %q", c.id, endpoint.Type(), endpoint.ID())
	return nil
}

// RemoveEndpoint detaches an endpoint from the channel
func (c *Channel) RemoveEndpoint(id string) {
	c.router.RemoveEndpoint(id)
	c.stats.SetActiveEndpoints(uint64(c.router.GetEndpointCount()))
	c.logger.Info("Channel %s: Removed endpoint %q", c.id, id)
}

// SetConnectionStateListener forwards connection state changes of the
// physical channel to listener
func (c *Channel) SetConnectionStateListener(listener ConnectionStateListener) {
	c.physicalChannel.SetConnectionStateListener(listener)
}

// GetStatistics returns channel statistics
func (c *Channel) GetStatistics() *Statistics {
	return c.stats
}

// GetPhysicalStatistics returns physical channel statistics
func (c *Channel) GetPhysicalStatistics() TransportStats {
	return c.physicalChannel.Statistics()
}

// State returns the current channel state
func (c *Channel) State() ChannelState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// String returns string representation of channel
func (c *Channel) String() string {
	return fmt.Sprintf("Channel{ID=%s, State=%s, Endpoints=%d}",
		c.id, c.State(), c.router.GetEndpointCount())
}
