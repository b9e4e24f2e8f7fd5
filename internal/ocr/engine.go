// Package ocr wraps the OCR engine used to recognise text in whole images or
// detected regions.
package ocr

import (
	"errors"
	"image"
	"image/draw"

	"github.com/MeKo-Tech/eastocr/internal/mempool"
	"github.com/MeKo-Tech/eastocr/internal/utils"
)

// ErrEngineUnavailable is returned when no OCR backend is compiled in.
var ErrEngineUnavailable = errors.New("ocr engine unavailable (build with -tags tesseract)")

// ErrNotInitialized is returned by Recognize before a successful Init.
var ErrNotInitialized = errors.New("ocr engine not initialized")

// ErrNoImage is returned by Recognize before SetImage.
var ErrNoImage = errors.New("no image set")

// Engine is a non-reentrant OCR engine. Init must succeed before Recognize and
// has to be repeated when the language changes.
type Engine interface {
	Init(dataDir, language string) error
	// SetImage copies an interleaved 8-bit pixel buffer and clears the region.
	SetImage(pix []byte, width, height, channels, stride int) error
	// SetRegion constrains recognition to r.
	SetRegion(r utils.Rect) error
	ClearRegion()
	Recognize() (string, error)
	LoadedLanguages() []string
	AvailableLanguages() ([]string, error)
	Close() error
}

// RGBBuffer converts img to a tightly packed, interleaved RGB buffer taken
// from mempool. Once SetImage has copied it, callers may return it with
// mempool.PutBytes.
func RGBBuffer(img image.Image) (pix []byte, width, height, channels, stride int) {
	b := img.Bounds()
	width, height, channels = b.Dx(), b.Dy(), 3
	stride = width * channels

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	pix = mempool.GetBytes(height * stride)
	for y := range height {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+width*4]
		dst := pix[y*stride : (y+1)*stride]
		for x := range width {
			copy(dst[x*3:x*3+3], src[x*4:x*4+3])
		}
	}
	return pix, width, height, channels, stride
}

// bufferImage wraps an interleaved RGB buffer as an image.
func bufferImage(pix []byte, width, height, channels, stride int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("image has no pixels")
	}
	if channels != 1 && channels != 3 && channels != 4 {
		return nil, errors.New("unsupported channel count")
	}
	if stride < width*channels || len(pix) < (height-1)*stride+width*channels {
		return nil, errors.New("pixel buffer too small")
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		row := pix[y*stride:]
		for x := range width {
			o := img.PixOffset(x, y)
			switch channels {
			case 1:
				v := row[x]
				img.Pix[o], img.Pix[o+1], img.Pix[o+2] = v, v, v
				img.Pix[o+3] = 0xff
			case 3:
				copy(img.Pix[o:o+3], row[x*3:x*3+3])
				img.Pix[o+3] = 0xff
			case 4:
				copy(img.Pix[o:o+4], row[x*4:x*4+4])
			}
		}
	}
	return img, nil
}
