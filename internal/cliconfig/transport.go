package cliconfig

import (
	"context"
	"fmt"
	"io"

	"avaneesh/imgstream-go/pkg/channel"
)

// OpenPhysical opens the physical channel selected by cfg.
// WebRTC exchanges its session descriptions as base64 lines on signalIn and
// signalOut; the other transports ignore them.
func OpenPhysical(ctx context.Context, cfg Config, signalIn io.Reader, signalOut io.Writer) (channel.PhysicalChannel, error) {
	switch cfg.Transport {
	case "udp":
		return channel.NewUDPChannel(channel.UDPChannelConfig{
			Address:  cfg.Address,
			IsServer: cfg.Listen,
		})
	case "tcp":
		return channel.NewTCPChannel(channel.TCPChannelConfig{
			Address:        cfg.Address,
			IsServer:       cfg.Listen,
			ReconnectDelay: cfg.ReconnectDelay,
		})
	case "quic":
		return channel.NewQUICChannel(channel.QUICChannelConfig{
			Address:        cfg.Address,
			IsServer:       cfg.Listen,
			ReconnectDelay: cfg.ReconnectDelay,
		})
	case "webrtc":
		return channel.NewWebRTCChannel(ctx, channel.WebRTCChannelConfig{
			Offerer:    cfg.Offer,
			ICEServers: cfg.ICEServers,
			Signaler:   channel.NewLineSignaler(signalIn, signalOut),
		})
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
