package channel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Stream transports carry each message behind a 2-byte big-endian length
const (
	FrameHeaderSize = 2
	MaxFrameSize    = 0xFFFF
)

var (
	ErrFrameTooLarge = errors.New("message exceeds max frame size")
)

// WriteFrame writes data as one length-prefixed frame with a single Write
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxFrameSize {
		return fmt.Errorf("%d bytes: %w", len(data), ErrFrameTooLarge)
	}

	frame := make([]byte, FrameHeaderSize+len(data))
	binary.BigEndian.PutUint16(frame, uint16(len(data)))
	copy(frame[FrameHeaderSize:], data)

	_, err := w.Write(frame)
	return err
}

// ReadFrame reads one length-prefixed frame.
// A zero-length frame is returned as an empty, non-nil slice.
// Errors before the first header byte are returned unchanged so callers can
// treat an idle timeout as benign; a frame cut short always yields
// io.ErrUnexpectedEOF since the stream is out of sync afterwards.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [FrameHeaderSize]byte
	if n, err := io.ReadFull(r, header[:]); err != nil {
		if n > 0 {
			return nil, fmt.Errorf("frame header: %v: %w", err, io.ErrUnexpectedEOF)
		}
		return nil, err
	}

	length := int(binary.BigEndian.Uint16(header[:]))
	data := make([]byte, length)
	if n, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("frame body after %d of %d bytes: %v: %w", n, length, err, io.ErrUnexpectedEOF)
	}
	return data, nil
}
