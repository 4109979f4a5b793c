package imgstream

import (
	"avaneesh/imgstream-go/pkg/channel"
	"avaneesh/imgstream-go/pkg/display"
	"avaneesh/imgstream-go/pkg/sender"
	"avaneesh/imgstream-go/pkg/viewer"
)

// Channel is the public interface for a managed channel
type Channel interface {
	// ID returns the channel ID
	ID() string

	// AddViewer attaches a viewer that shows received images on presenter.
	// The viewer is not enabled; call Enable to request the image.
	AddViewer(config viewer.Config, presenter display.Presenter, callbacks viewer.Callbacks) (*viewer.Viewer, error)

	// AddSender attaches a sender that answers image requests
	AddSender(config sender.Config) (*sender.Sender, error)

	// Shutdown closes the channel
	Shutdown() error

	// Statistics returns channel statistics
	Statistics() ChannelStatistics
}

// ChannelStatistics provides channel-level statistics
type ChannelStatistics struct {
	MessagesTx      uint64 // Messages written
	MessagesRx      uint64 // Messages parsed and routed
	BadMessages     uint64 // Messages dropped as malformed
	ReadErrors      uint64 // Physical read errors
	RoutingErrors   uint64 // Messages no endpoint accepted
	ActiveEndpoints uint64 // Attached viewers and senders
	PhysicalBytesTx uint64 // Physical bytes transmitted
	PhysicalBytesRx uint64 // Physical bytes received
	Connects        uint64 // Connections made
	Disconnects     uint64 // Connections lost
}

// channelImpl implements the Channel interface
type channelImpl struct {
	channel *channel.Channel
	manager *Manager
}

// ID returns the channel ID
func (c *channelImpl) ID() string {
	return c.channel.ID()
}

// AddViewer attaches a viewer using the bitmap decoder
func (c *channelImpl) AddViewer(config viewer.Config, presenter display.Presenter, callbacks viewer.Callbacks) (*viewer.Viewer, error) {
	return viewer.New(config, presenter, nil, callbacks, c.channel, c.manager.logger)
}

// AddSender attaches a sender
func (c *channelImpl) AddSender(config sender.Config) (*sender.Sender, error) {
	return sender.New(config, c.channel, c.manager.logger)
}

// Shutdown closes the channel
func (c *channelImpl) Shutdown() error {
	return c.manager.RemoveChannel(c.channel.ID())
}

// Statistics returns channel statistics
func (c *channelImpl) Statistics() ChannelStatistics {
	stats := c.channel.GetStatistics()
	physStats := c.channel.GetPhysicalStatistics()

	return ChannelStatistics{
		MessagesTx:      stats.GetMessagesTx(),
		MessagesRx:      stats.GetMessagesRx(),
		BadMessages:     stats.GetBadMessages(),
		ReadErrors:      stats.GetReadErrors(),
		RoutingErrors:   stats.GetRoutingErrors(),
		ActiveEndpoints: stats.GetActiveEndpoints(),
		PhysicalBytesTx: physStats.BytesSent,
		PhysicalBytesRx: physStats.BytesReceived,
		Connects:        physStats.Connects,
		Disconnects:     physStats.Disconnects,
	}
}
