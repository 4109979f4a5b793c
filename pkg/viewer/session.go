package viewer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"avaneesh/imgstream-go/pkg/appmsg"
	"avaneesh/imgstream-go/pkg/channel"
	"avaneesh/imgstream-go/pkg/transfer"
)

// session connects the viewer to a channel
type session struct {
	id      string
	channel *channel.Channel
	viewer  *Viewer
}

// ID returns the endpoint ID
func (s *session) ID() string {
	return s.id
}

// Type returns the endpoint type
func (s *session) Type() channel.EndpointType {
	return channel.EndpointTypeViewer
}

// OnMessage is called by the channel read loop for every parsed message
func (s *session) OnMessage(msg *appmsg.Dictionary) error {
	return s.viewer.enqueue(event{msg: msg})
}

// OnConnectionEstablished asks for the image on every new connection
func (s *session) OnConnectionEstablished() {
	s.viewer.logger.Info("Viewer %s: connection established", s.id)
	if !s.viewer.config.RequestOnConnect {
		return
	}
	if err := s.viewer.enqueue(event{connected: true}); err != nil {
		s.viewer.logger.Debug("Viewer %s: connect event dropped: %v", s.id, err)
	}
}

// OnConnectionLost logs the loss. An in-progress transfer is left to the
// stall timer.
func (s *session) OnConnectionLost() {
	s.viewer.logger.Warn("Viewer %s: connection lost", s.id)
}

// request sends the one-byte image request
func (s *session) request() error {
	s.viewer.logger.Debug("Viewer %s: requesting image", s.id)
	return s.channel.Send(appmsg.NewRequest())
}

// dispatch processes inbox events one at a time and owns the stall timer
func (v *Viewer) dispatch() {
	stall := time.NewTimer(time.Hour)
	stall.Stop()
	defer stall.Stop()

	for {
		select {
		case <-v.ctx.Done():
			return

		case ev := <-v.inbox:
			if ev.connected {
				if err := v.session.request(); err != nil {
					v.logger.Warn("Viewer %s: request failed: %v", v.config.ID, err)
				}
				continue
			}

			accepted := v.handleMessage(ev.msg)

			if v.config.StallTimeout <= 0 {
				continue
			}
			if v.receiver.InProgress() {
				if accepted {
					stall.Reset(v.config.StallTimeout)
				}
			} else {
				stall.Stop()
			}

		case <-stall.C:
			if v.receiver.InProgress() {
				v.handleStall()
			}
		}
	}
}

// handleMessage applies the chunk and status parts of msg.
// It returns true if a fragment was accepted.
func (v *Viewer) handleMessage(msg *appmsg.Dictionary) bool {
	accepted := v.handleChunk(msg)

	if text, ok := msg.Message(); ok {
		v.logger.Debug("Viewer %s: status %q", v.config.ID, text)
		v.setStatus(text)
	}

	if appmsg.IsRequest(msg) {
		v.logger.Debug("Viewer %s: ignoring image request", v.config.ID)
	}
	return accepted
}

// handleChunk feeds an IMAGE+INDEX pair to the receiver
func (v *Viewer) handleChunk(msg *appmsg.Dictionary) bool {
	offset, data, present, err := msg.Chunk()
	if !present {
		return false
	}
	if err != nil {
		v.logger.Warn("Viewer %s: malformed chunk: %v", v.config.ID, err)
		return false
	}
	if offset < 0 || offset > math.MaxUint32 {
		v.transferError(fmt.Errorf("offset %d: %w", offset, ErrInvalidOffset))
		return false
	}

	completion, err := v.receiver.Receive(transfer.Fragment{
		Offset: uint32(offset),
		Data:   data,
	})
	v.syncState()
	if err != nil {
		v.transferError(err)
		return false
	}

	v.logger.Debug("Viewer %s: fragment offset=%d len=%d", v.config.ID, offset, len(data))

	if completion != nil {
		v.complete(completion)
	}
	return true
}

// complete decodes a finished transfer and shows it
func (v *Viewer) complete(c *transfer.Completion) {
	v.logger.Info("Viewer %s: transfer complete, %d bytes in %d fragments",
		v.config.ID, len(c.Image), c.Fragments)

	img, err := v.decoder.Decode(c.Image)
	if err == nil {
		size := img.Bounds().Size()
		if (v.config.MaxImageWidth > 0 && size.X > v.config.MaxImageWidth) ||
			(v.config.MaxImageHeight > 0 && size.Y > v.config.MaxImageHeight) {
			err = fmt.Errorf("%dx%d, max %dx%d: %w", size.X, size.Y,
				v.config.MaxImageWidth, v.config.MaxImageHeight, ErrImageTooLarge)
		}
	}
	if err != nil {
		if stats := v.receiver.Stats(); stats != nil {
			stats.IncrementDecodeFailures()
		}
		v.transferError(fmt.Errorf("decode: %w", err))
		return
	}

	if err := v.presenter.ShowImage(img); err != nil {
		v.logger.Error("Viewer %s: show image: %v", v.config.ID, err)
		v.transferError(fmt.Errorf("show image: %w", err))
		return
	}

	v.mu.Lock()
	v.current = img
	v.mu.Unlock()

	v.setStatus("")
	v.callbacks.OnImage(img, c)
}

// handleStall abandons the in-progress transfer and asks again
func (v *Viewer) handleStall() {
	v.logger.Warn("Viewer %s: no fragment for %v, abandoning transfer", v.config.ID, v.config.StallTimeout)

	v.receiver.Reset()
	v.syncState()
	if stats := v.receiver.Stats(); stats != nil {
		stats.IncrementStalls()
	}

	v.setStatus("transfer stalled, retrying")
	v.callbacks.OnTransferError(ErrStalled)

	if err := v.session.request(); err != nil {
		v.logger.Warn("Viewer %s: retry request failed: %v", v.config.ID, err)
	}
}

// transferError logs err and surfaces it through the status text
func (v *Viewer) transferError(err error) {
	v.logger.Warn("Viewer %s: %v", v.config.ID, err)
	v.setStatus(statusText(err))
	v.callbacks.OnTransferError(err)
}

// statusText is the short form of err shown on screen
func statusText(err error) string {
	switch {
	case errors.Is(err, transfer.ErrBufferOverflow):
		return "transfer error: image too large"
	case errors.Is(err, transfer.ErrFragmentTooLarge):
		return "transfer error: chunk too large"
	case errors.Is(err, ErrInvalidOffset):
		return "transfer error: bad offset"
	case errors.Is(err, ErrImageTooLarge):
		return "image does not fit screen"
	default:
		return "could not display image"
	}
}
