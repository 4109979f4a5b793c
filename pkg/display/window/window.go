//go:build !tinygo

// Package window presents the viewer in a desktop window for host runs.
package window

import (
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"avaneesh/imgstream-go/pkg/display"
)

// Config holds configuration for the desktop window
type Config struct {
	Title string

	// Width and Height of the emulated screen in pixels
	Width  int
	Height int

	// Scale multiplies the window size on the desktop
	Scale int
}

// DefaultConfig returns a 144x168 screen shown at 3x
func DefaultConfig() Config {
	return Config{
		Title:  "imgview",
		Width:  144,
		Height: 168,
		Scale:  3,
	}
}

// Window is a display.Presenter backed by an ebiten game loop.
// ShowImage and ShowStatus may be called from any goroutine; Run must be
// called from the main goroutine.
type Window struct {
	config Config

	mu     sync.Mutex
	frame  *image.RGBA
	image  image.Image
	status string
	dirty  bool
	closed bool

	screen *ebiten.Image
}

// New creates a window presenter. Nothing is shown until Run.
func New(config Config) *Window {
	if config.Width <= 0 || config.Height <= 0 {
		def := DefaultConfig()
		config.Width, config.Height = def.Width, def.Height
	}
	if config.Scale <= 0 {
		config.Scale = 1
	}

	w := &Window{
		config: config,
		frame:  image.NewRGBA(image.Rect(0, 0, config.Width, config.Height)),
		dirty:  true,
	}
	display.Compose(w.frame, nil, "")
	return w
}

// Run opens the window and blocks until it is closed by the user or Close
func (w *Window) Run() error {
	ebiten.SetWindowTitle(w.config.Title)
	ebiten.SetWindowSize(w.config.Width*w.config.Scale, w.config.Height*w.config.Scale)
	ebiten.SetTPS(30)
	return ebiten.RunGame(w)
}

// ShowImage implements display.Presenter
func (w *Window) ShowImage(img image.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return display.ErrClosed
	}
	w.image = img
	w.compose()
	return nil
}

// ShowStatus implements display.Presenter
func (w *Window) ShowStatus(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return display.ErrClosed
	}
	w.status = text
	w.compose()
	return nil
}

// Close ends the game loop on its next tick
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// compose redraws the frame. Caller holds mu.
func (w *Window) compose() {
	display.Compose(w.frame, w.image, w.status)
	w.dirty = true
}

// Update implements ebiten.Game
func (w *Window) Update() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game
func (w *Window) Draw(screen *ebiten.Image) {
	w.mu.Lock()
	if w.screen == nil {
		w.screen = ebiten.NewImage(w.config.Width, w.config.Height)
	}
	if w.dirty {
		w.screen.WritePixels(w.frame.Pix)
		w.dirty = false
	}
	w.mu.Unlock()

	screen.DrawImage(w.screen, nil)
}

// Layout implements ebiten.Game
func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return w.config.Width, w.config.Height
}
