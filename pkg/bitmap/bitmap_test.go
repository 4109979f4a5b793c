package bitmap

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"testing"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// header builds a blob header
func header(rowSize int, flags uint16, x, y, w, h int) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(b[0:], uint16(rowSize))
	binary.LittleEndian.PutUint16(b[2:], flags)
	binary.LittleEndian.PutUint16(b[4:], uint16(int16(x)))
	binary.LittleEndian.PutUint16(b[6:], uint16(int16(y)))
	binary.LittleEndian.PutUint16(b[8:], uint16(int16(w)))
	binary.LittleEndian.PutUint16(b[10:], uint16(int16(h)))
	return b
}

func TestDecode_Pixels(t *testing.T) {
	// 10x2 image, 4-byte rows
	blob := header(4, 0, 0, 0, 10, 2)
	blob = append(blob,
		0x01, 0x02, 0x00, 0x00, // row 0: x=0 and x=9 white
		0x80, 0x00, 0x00, 0x00, // row 1: x=7 white
	)

	bm, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := bm.Image.Bounds(); got != image.Rect(0, 0, 10, 2) {
		t.Fatalf("Bounds() = %v, want %v", got, image.Rect(0, 0, 10, 2))
	}

	white := map[image.Point]bool{{0, 0}: true, {9, 0}: true, {7, 1}: true}
	for y := 0; y < 2; y++ {
		for x := 0; x < 10; x++ {
			want := image1bit.Bit(white[image.Pt(x, y)])
			if got := bm.Image.BitAt(x, y); got != want {
				t.Errorf("BitAt(%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestDecode_OffsetBounds(t *testing.T) {
	// 4x1 region starting at (8, 1) inside 4-byte rows
	blob := header(4, 0, 8, 1, 4, 1)
	blob = append(blob,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x05, 0x00, 0x00, // x=8 and x=10 white
	)

	bm, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []image1bit.Bit{image1bit.On, image1bit.Off, image1bit.On, image1bit.Off}
	for x, w := range want {
		if got := bm.Image.BitAt(x, 0); got != w {
			t.Errorf("BitAt(%d, 0) = %v, want %v", x, got, w)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		blob    []byte
		wantErr error
	}{
		{"empty", nil, ErrShortHeader},
		{"short header", make([]byte, 11), ErrShortHeader},
		{"unsupported format", header(4, 2<<1, 0, 0, 8, 1), ErrUnsupportedFormat},
		{"zero width", header(4, 0, 0, 0, 0, 1), ErrBadGeometry},
		{"negative height", header(4, 0, 0, 0, 8, -1), ErrBadGeometry},
		{"negative origin", header(4, 0, -1, 0, 8, 1), ErrBadGeometry},
		{"row too small", header(1, 0, 0, 0, 9, 1), ErrBadGeometry},
		{"truncated pixels", append(header(4, 0, 0, 0, 8, 2), 0, 0, 0, 0), ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.blob)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Decode() error = %v, does not wrap ErrDecode", err)
			}
		})
	}
}

func TestDecode_IgnoresHeapFlag(t *testing.T) {
	// bit 0 marks heap allocation on the device and does not affect format
	blob := append(header(4, 0x0001, 0, 0, 1, 1), 0x01, 0, 0, 0)
	if _, err := Decode(blob); err != nil {
		t.Errorf("Decode() error = %v", err)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 144, 168))
	for y := 0; y < 168; y++ {
		for x := 0; x < 144; x++ {
			if (x/8+y/8)%2 == 0 {
				src.SetGray(x, y, color.Gray{Y: 0xFF})
			}
		}
	}

	blob, err := Encode(src, 144, 168)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(blob) != BlobSize(144, 168) {
		t.Fatalf("len(blob) = %d, want %d", len(blob), BlobSize(144, 168))
	}
	if len(blob) != 20*168+12 {
		t.Errorf("len(blob) = %d, want %d", len(blob), 20*168+12)
	}

	bm, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	for y := 0; y < 168; y++ {
		for x := 0; x < 144; x++ {
			want := image1bit.Bit((x/8+y/8)%2 == 0)
			if got := bm.Image.BitAt(x, y); got != want {
				t.Fatalf("BitAt(%d, %d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestEncode_ScalesDown(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"fits", 100, 100, 100, 100},
		{"wide", 288, 100, 144, 50},
		{"tall", 100, 336, 50, 168},
		{"square large", 500, 500, 144, 144},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := Encode(image.NewGray(image.Rect(0, 0, tt.w, tt.h)), 144, 168)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			hdr, err := ParseHeader(blob)
			if err != nil {
				t.Fatalf("ParseHeader() error = %v", err)
			}
			if hdr.Bounds.Dx() != tt.wantW || hdr.Bounds.Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", hdr.Bounds.Dx(), hdr.Bounds.Dy(), tt.wantW, tt.wantH)
			}
			if hdr.RowSize != RowSize(tt.wantW) {
				t.Errorf("RowSize = %d, want %d", hdr.RowSize, RowSize(tt.wantW))
			}
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	if _, err := Encode(image.NewGray(image.Rect(0, 0, 0, 0)), 144, 168); err == nil {
		t.Errorf("Encode(empty) error = nil, want error")
	}
	if _, err := Encode(image.NewGray(image.Rect(0, 0, 1, 1)), 0, 168); err == nil {
		t.Errorf("Encode(maxW 0) error = nil, want error")
	}
}

func TestRowSize(t *testing.T) {
	tests := []struct{ width, want int }{
		{1, 4}, {32, 4}, {33, 8}, {144, 20},
	}
	for _, tt := range tests {
		if got := RowSize(tt.width); got != tt.want {
			t.Errorf("RowSize(%d) = %d, want %d", tt.width, got, tt.want)
		}
	}
}
