// Package tifftest writes small multi-page grayscale TIFF files for tests.
package tifftest

import (
	"bytes"
	"image"
	"image/color"
	"os"

	"github.com/chai2010/tiff"
)

// NewPage builds a 16-bit page whose sample at (row, col) is fn(row, col).
func NewPage(rows, cols int, fn func(row, col int) uint16) *image.Gray16 {
	p := image.NewGray16(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			p.SetGray16(x, y, color.Gray16{Y: fn(y, x)})
		}
	}
	return p
}

// Encode returns an uncompressed multi-page TIFF holding pages in order.
func Encode(pages []*image.Gray16) ([]byte, error) {
	ifds := make([][]image.Image, len(pages))
	for i, p := range pages {
		ifds[i] = []image.Image{p}
	}

	var buf bytes.Buffer
	if err := tiff.EncodeAll(&buf, ifds, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes pages and writes them to path.
func WriteFile(path string, pages []*image.Gray16) error {
	data, err := Encode(pages)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
