package ocr

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/eastocr/internal/utils"
)

// TesseractOptions tunes the Tesseract backend.
type TesseractOptions struct {
	PageSegMode int    // tesseract --psm value, 0 keeps the library default
	Whitelist   string // allowed characters, empty allows all
}

// frame holds the installed image and the active region.
type frame struct {
	img    *image.NRGBA
	region *utils.Rect
}

func (f *frame) set(pix []byte, width, height, channels, stride int) error {
	img, err := bufferImage(pix, width, height, channels, stride)
	if err != nil {
		return fmt.Errorf("set image: %w", err)
	}
	f.img = img
	f.region = nil
	return nil
}

func (f *frame) setRegion(r utils.Rect) error {
	if f.img == nil {
		return ErrNoImage
	}
	b := f.img.Bounds()
	clipped := r.ClipTo(b.Dx(), b.Dy())
	if clipped.Empty() {
		return fmt.Errorf("region %s outside %dx%d image", r, b.Dx(), b.Dy())
	}
	f.region = &clipped
	return nil
}

// current returns the image limited to the active region.
func (f *frame) current() (image.Image, error) {
	if f.img == nil {
		return nil, ErrNoImage
	}
	if f.region == nil {
		return f.img, nil
	}
	return utils.CropImageRect(f.img, f.region.Image()), nil
}
