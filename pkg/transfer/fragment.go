package transfer

// Fragment is one chunk of an image transfer
type Fragment struct {
	Offset uint32 // Absolute byte position in the reassembly buffer
	Data   []byte
}

// Len returns the fragment payload length
func (f Fragment) Len() int {
	return len(f.Data)
}

// IsFinal reports whether f terminates a transfer.
// Every fragment but the last carries exactly maxChunk bytes.
func IsFinal(f Fragment, maxChunk int) bool {
	return len(f.Data) < maxChunk
}

// Split cuts blob into consecutive fragments of maxChunk bytes.
// When len(blob) is a multiple of maxChunk, including an empty blob, an
// empty fragment is appended so the receiver still sees a short one.
func Split(blob []byte, maxChunk int) []Fragment {
	if maxChunk <= 0 {
		return nil
	}

	fragments := make([]Fragment, 0, len(blob)/maxChunk+1)
	offset := 0
	for len(blob)-offset >= maxChunk {
		fragments = append(fragments, Fragment{
			Offset: uint32(offset),
			Data:   blob[offset : offset+maxChunk],
		})
		offset += maxChunk
	}

	// Remainder, possibly empty
	fragments = append(fragments, Fragment{
		Offset: uint32(offset),
		Data:   blob[offset:],
	})

	return fragments
}
