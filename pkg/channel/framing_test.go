package channel

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFraming_RoundTrip(t *testing.T) {
	messages := [][]byte{
		{0x01, 0x02, 0x03},
		{},
		bytes.Repeat([]byte{0xAB}, 1520),
		bytes.Repeat([]byte{0x01}, MaxFrameSize),
	}

	var stream bytes.Buffer
	for _, m := range messages {
		if err := WriteFrame(&stream, m); err != nil {
			t.Fatalf("WriteFrame(%d bytes) error = %v", len(m), err)
		}
	}

	for i, want := range messages {
		got, err := ReadFrame(&stream)
		if err != nil {
			t.Fatalf("ReadFrame(%d) error = %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("ReadFrame(%d) = %d bytes, want %d", i, len(got), len(want))
		}
	}

	if _, err := ReadFrame(&stream); err != io.EOF {
		t.Errorf("ReadFrame(empty stream) error = %v, want io.EOF", err)
	}
}

func TestFraming_Header(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte{0xAA, 0xBB, 0xCC}); err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x03, 0xAA, 0xBB, 0xCC}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("frame = % X, want % X", buf.Bytes(), want)
	}
}

func TestFraming_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, MaxFrameSize+1))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("WriteFrame() error = %v, want %v", err, ErrFrameTooLarge)
	}
	if buf.Len() != 0 {
		t.Errorf("WriteFrame() wrote %d bytes on error", buf.Len())
	}
}

func TestFraming_Truncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"partial header", []byte{0x00}},
		{"partial body", []byte{0x00, 0x04, 0x01, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tt.data))
			if !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Errorf("ReadFrame() error = %v, want %v", err, io.ErrUnexpectedEOF)
			}
		})
	}
}
