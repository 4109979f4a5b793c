// Package bitmap converts between the on-wire 1-bit bitmap blob and
// image.Image values.
//
// A blob is a 12-byte little-endian header followed by pixel rows:
//
//	row_size_bytes u16
//	info_flags     u16  format in bits 1-3, 0 is 1-bit
//	bounds         x, y, w, h int16
//
// Pixels are packed least significant bit first; a set bit is white.
package bitmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// HeaderSize is the size of the blob header
const HeaderSize = 12

// Format is the pixel format stored in info_flags
type Format uint8

const (
	Format1Bit Format = 0
)

const (
	formatShift = 1
	formatMask  = 0x7
)

var (
	ErrDecode            = errors.New("bitmap decode failed")
	ErrShortHeader       = fmt.Errorf("%w: short header", ErrDecode)
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported format", ErrDecode)
	ErrBadGeometry       = fmt.Errorf("%w: bad geometry", ErrDecode)
	ErrTruncated         = fmt.Errorf("%w: pixel data truncated", ErrDecode)
)

// Header is the parsed blob header
type Header struct {
	RowSize   int
	InfoFlags uint16
	Bounds    image.Rectangle
}

// Format returns the pixel format encoded in the info flags
func (h Header) Format() Format {
	return Format((h.InfoFlags >> formatShift) & formatMask)
}

// ParseHeader parses the fixed blob header
func ParseHeader(blob []byte) (Header, error) {
	if len(blob) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(blob))
	}

	x := int(int16(binary.LittleEndian.Uint16(blob[4:])))
	y := int(int16(binary.LittleEndian.Uint16(blob[6:])))
	w := int(int16(binary.LittleEndian.Uint16(blob[8:])))
	h := int(int16(binary.LittleEndian.Uint16(blob[10:])))

	return Header{
		RowSize:   int(binary.LittleEndian.Uint16(blob[0:])),
		InfoFlags: binary.LittleEndian.Uint16(blob[2:]),
		Bounds:    image.Rect(x, y, x+w, y+h),
	}, nil
}

// Bitmap is a decoded blob
type Bitmap struct {
	Header Header

	// Image holds the pixels inside Header.Bounds, translated to the origin.
	Image *image1bit.VerticalLSB
}

// Decode parses blob and copies its pixels into an owned image.
// The blob is not retained.
func Decode(blob []byte) (*Bitmap, error) {
	hdr, err := ParseHeader(blob)
	if err != nil {
		return nil, err
	}

	if f := hdr.Format(); f != Format1Bit {
		return nil, fmt.Errorf("%w %d", ErrUnsupportedFormat, f)
	}

	b := hdr.Bounds
	if b.Min.X < 0 || b.Min.Y < 0 || b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: bounds %v", ErrBadGeometry, b)
	}
	if hdr.RowSize*8 < b.Max.X {
		return nil, fmt.Errorf("%w: row size %d too small for width %d", ErrBadGeometry, hdr.RowSize, b.Max.X)
	}

	pixels := blob[HeaderSize:]
	if need := hdr.RowSize * b.Max.Y; len(pixels) < need {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrTruncated, len(pixels), need)
	}

	img := image1bit.NewVerticalLSB(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := pixels[y*hdr.RowSize:]
		for x := b.Min.X; x < b.Max.X; x++ {
			if row[x>>3]&(1<<(x&7)) != 0 {
				img.SetBit(x-b.Min.X, y-b.Min.Y, image1bit.On)
			}
		}
	}

	return &Bitmap{Header: hdr, Image: img}, nil
}

// RowSize returns the 4-byte aligned stride for a 1-bit row of width pixels
func RowSize(width int) int {
	return (width + 31) / 32 * 4
}

// BlobSize returns the blob size for a width x height 1-bit image
func BlobSize(width, height int) int {
	return HeaderSize + RowSize(width)*height
}

// Decoder adapts Decode to the viewer's decoder interface
type Decoder struct{}

// Decode decodes blob into an image.Image
func (Decoder) Decode(blob []byte) (image.Image, error) {
	bm, err := Decode(blob)
	if err != nil {
		return nil, err
	}
	return bm.Image, nil
}
