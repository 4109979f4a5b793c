package appmsg

import (
	"fmt"
	"math"
)

// RequestValue is the payload of the startup image request
const RequestValue = 1

// NewRequest builds the message the viewer sends on startup asking the
// companion for an image.
func NewRequest() *Dictionary {
	return NewDictionary().PutInt(KeyImage, RequestValue, 1)
}

// IsRequest reports whether d is an image request, i.e. carries an
// integer IMAGE tuple instead of chunk bytes.
func IsRequest(d *Dictionary) bool {
	t, ok := d.Find(KeyImage)
	return ok && t.IsInteger()
}

// NewChunk builds a message carrying one image chunk at offset
func NewChunk(offset uint32, data []byte) (*Dictionary, error) {
	if offset > math.MaxInt32 {
		return nil, fmt.Errorf("chunk offset %d exceeds int32", offset)
	}
	return NewDictionary().
		PutInt(KeyIndex, int32(offset), 4).
		PutBytes(KeyImage, data), nil
}

// NewStatus builds a message carrying status text
func NewStatus(text string) *Dictionary {
	return NewDictionary().PutCString(KeyMessage, text)
}

// Chunk extracts the chunk carried by d.
// present is false when d carries neither IMAGE bytes nor INDEX.
// An IMAGE byte array without INDEX, or the reverse, yields ErrKeyNotFound.
func (d *Dictionary) Chunk() (offset int64, data []byte, present bool, err error) {
	image, hasImage := d.Find(KeyImage)
	index, hasIndex := d.Find(KeyIndex)

	if hasImage && image.Type != TypeByteArray {
		// integer IMAGE is a request, not a chunk
		hasImage = false
	}
	if !hasImage && !hasIndex {
		return 0, nil, false, nil
	}
	if !hasImage {
		return 0, nil, true, fmt.Errorf("INDEX without IMAGE: %w", ErrKeyNotFound)
	}
	if !hasIndex {
		return 0, nil, true, fmt.Errorf("IMAGE without INDEX: %w", ErrKeyNotFound)
	}

	offset, err = index.Int()
	if err != nil {
		return 0, nil, true, fmt.Errorf("INDEX: %w", err)
	}
	return offset, image.Value, true, nil
}

// Message returns the status text carried by d
func (d *Dictionary) Message() (string, bool) {
	t, ok := d.Find(KeyMessage)
	if !ok {
		return "", false
	}
	if t.Type == TypeCString || t.Type == TypeByteArray {
		return t.CString(), true
	}
	return "", false
}
