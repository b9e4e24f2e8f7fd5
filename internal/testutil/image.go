package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextImageConfig holds configuration for generating test images.
type TextImageConfig struct {
	Lines      []string
	Width      int
	Height     int
	Background color.Color
	Foreground color.Color
	Rotation   float64 // degrees, counter-clockwise
}

// DefaultTextImageConfig returns a single-line black-on-white image config.
func DefaultTextImageConfig() TextImageConfig {
	return TextImageConfig{
		Lines:      []string{"Sample Text"},
		Width:      320,
		Height:     240,
		Background: color.White,
		Foreground: color.Black,
	}
}

// GenerateTextImage renders the configured lines centered on a solid background.
func GenerateTextImage(config TextImageConfig) *image.NRGBA {
	img := image.NewRGBA(image.Rect(0, 0, config.Width, config.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{config.Background}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{config.Foreground}, Face: face}
	lineHeight := face.Metrics().Height.Ceil()
	startY := (config.Height - len(config.Lines)*lineHeight) / 2
	for i, line := range config.Lines {
		x := (config.Width - font.MeasureString(face, line).Ceil()) / 2
		drawer.Dot = fixed.P(x, startY+(i+1)*lineHeight)
		drawer.DrawString(line)
	}

	if config.Rotation != 0 {
		return imaging.Rotate(img, config.Rotation, config.Background)
	}
	return imaging.Clone(img)
}

// SolidImage returns a width x height image filled with c.
func SolidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// WritePNG encodes img to dir/name and returns the path.
func WritePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path) //nolint:gosec // G304: test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, f.Close())
	}()
	require.NoError(t, png.Encode(f, img), "Failed to encode PNG image")
	return path
}
