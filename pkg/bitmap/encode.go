package bitmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// Threshold is the luminance at or above which a pixel is white
const Threshold = 0x80

// Encode converts img into a 1-bit blob no larger than maxW x maxH.
// Larger images are scaled down keeping their aspect ratio.
func Encode(img image.Image, maxW, maxH int) ([]byte, error) {
	if maxW <= 0 || maxH <= 0 || maxW > 0x7FFF || maxH > 0x7FFF {
		return nil, fmt.Errorf("invalid target size %dx%d", maxW, maxH)
	}
	src := img.Bounds()
	if src.Empty() {
		return nil, errors.New("empty image")
	}

	w, h := fit(src.Dx(), src.Dy(), maxW, maxH)

	gray := image.NewGray(image.Rect(0, 0, w, h))
	if w == src.Dx() && h == src.Dy() {
		xdraw.Copy(gray, image.Point{}, img, src, xdraw.Src, nil)
	} else {
		xdraw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, src, xdraw.Src, nil)
	}

	rowSize := RowSize(w)
	if rowSize > 0xFFFF {
		return nil, fmt.Errorf("row size %d too large", rowSize)
	}

	blob := make([]byte, HeaderSize+rowSize*h)
	binary.LittleEndian.PutUint16(blob[0:], uint16(rowSize))
	binary.LittleEndian.PutUint16(blob[2:], uint16(Format1Bit)<<formatShift)
	// origin stays at 0,0
	binary.LittleEndian.PutUint16(blob[8:], uint16(w))
	binary.LittleEndian.PutUint16(blob[10:], uint16(h))

	pixels := blob[HeaderSize:]
	for y := 0; y < h; y++ {
		row := pixels[y*rowSize:]
		for x := 0; x < w; x++ {
			if gray.GrayAt(x, y).Y >= Threshold {
				row[x>>3] |= 1 << (x & 7)
			}
		}
	}

	return blob, nil
}

// fit scales w x h down to fit maxW x maxH, never up
func fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	// compare w/maxW against h/maxH without floats
	if w*maxH >= h*maxW {
		nh := h * maxW / w
		if nh < 1 {
			nh = 1
		}
		return maxW, nh
	}
	nw := w * maxH / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxH
}

// White reports whether c would be encoded as a set bit
func White(c color.Color) bool {
	return color.GrayModel.Convert(c).(color.Gray).Y >= Threshold
}
