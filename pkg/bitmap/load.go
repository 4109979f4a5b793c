package bitmap

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Image formats accepted by LoadFile
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// RawExtension marks files that already hold a blob
const RawExtension = ".pbi"

// LoadFile reads path and returns a blob fitting maxW x maxH.
// Files ending in RawExtension are validated and returned as is; anything
// else is decoded as an image and converted with Encode.
func LoadFile(path string, maxW, maxH int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), RawExtension) {
		return loadRaw(f)
	}
	return Load(f, maxW, maxH)
}

// Load decodes any registered image format from r and encodes it
func Load(r io.Reader, maxW, maxH int) ([]byte, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	blob, err := Encode(img, maxW, maxH)
	if err != nil {
		return nil, fmt.Errorf("encode %s image: %w", format, err)
	}
	return blob, nil
}

func loadRaw(r io.Reader) ([]byte, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if _, err := Decode(blob); err != nil {
		return nil, err
	}
	return blob, nil
}
