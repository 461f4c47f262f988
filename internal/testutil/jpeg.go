// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// JPEGBytes encodes a small gradient image without any EXIF segment.
func JPEGBytes(t testing.TB) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 10), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

// WriteJPEG writes a fresh JPEG fixture to path.
func WriteJPEG(t testing.TB, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, JPEGBytes(t), 0644))
}

// WriteFile writes arbitrary content to path.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// Pixels decodes the JPEG at path and returns its RGBA pixel buffer.
func Pixels(t testing.TB, path string) []byte {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := jpeg.Decode(f)
	require.NoError(t, err)

	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba.Pix
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
