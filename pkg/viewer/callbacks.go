package viewer

import (
	"image"

	"avaneesh/imgstream-go/pkg/transfer"
)

// Callbacks receives viewer events. All methods are called from the
// viewer's dispatch goroutine and must not block for long.
type Callbacks interface {
	// OnImage is called after a completed transfer decoded and was shown.
	// c.Image aliases the reassembly buffer and is only valid during the call.
	OnImage(img image.Image, c *transfer.Completion)

	// OnStatus is called whenever the status text changes
	OnStatus(text string)

	// OnTransferError is called for rejected fragments, decode failures and
	// stalled transfers
	OnTransferError(err error)
}

// Decoder turns a completed transfer into an image
type Decoder interface {
	Decode(blob []byte) (image.Image, error)
}

// NoOpCallbacks ignores every event
type NoOpCallbacks struct{}

// OnImage does nothing
func (NoOpCallbacks) OnImage(img image.Image, c *transfer.Completion) {}

// OnStatus does nothing
func (NoOpCallbacks) OnStatus(text string) {}

// OnTransferError does nothing
func (NoOpCallbacks) OnTransferError(err error) {}
