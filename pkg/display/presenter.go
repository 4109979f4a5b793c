// Package display provides the presenters that put a decoded image and the
// status line in front of the user.
package display

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Presenter shows the current image and status text.
// Implementations must be safe to call from the viewer's dispatch goroutine
// while their own refresh loop runs.
type Presenter interface {
	// ShowImage replaces the displayed image
	ShowImage(img image.Image) error

	// ShowStatus replaces the status text. An empty string clears it.
	ShowStatus(text string) error

	// Close releases the output device
	Close() error
}

// StatusHeight is the height of the status strip drawn by Compose
var StatusHeight = basicfont.Face7x13.Height + 2

// Compose draws img at the top-left of dst and the status text in a strip
// along the bottom edge. A nil img leaves the background black.
func Compose(dst draw.Image, img image.Image, status string) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.Black, image.Point{}, draw.Src)

	if img != nil {
		draw.Draw(dst, b, img, img.Bounds().Min, draw.Src)
	}

	if status == "" {
		return
	}

	strip := image.Rect(b.Min.X, b.Max.Y-StatusHeight, b.Max.X, b.Max.Y)
	draw.Draw(dst, strip, image.Black, image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(strip.Min.X+1, strip.Max.Y-basicfont.Face7x13.Descent-1),
	}
	d.DrawString(status)
}
