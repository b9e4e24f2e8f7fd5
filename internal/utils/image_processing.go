package utils

import (
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/eastocr/internal/mempool"
	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// Tensor layouts understood by BlobFromImage.
const (
	LayoutNCHW = "nchw"
	LayoutNHWC = "nhwc"
)

// BlobOptions controls how an image is turned into a network input blob.
type BlobOptions struct {
	Width  int
	Height int
	// Mean is subtracted per channel after the optional R/B swap, in output channel order.
	Mean   [3]float32
	Scale  float32
	SwapRB bool
	Layout string
}

// ResizeExact resizes img to exactly width x height, ignoring aspect ratio.
func ResizeExact(img image.Image, width, height int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	if width <= 0 || height <= 0 {
		return nil, &ImageProcessingError{
			Operation: "resize",
			Err:       fmt.Errorf("invalid target dimensions: %dx%d", width, height),
		}
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return imaging.Clone(img), nil
	}
	return imaging.Resize(img, width, height, imaging.Linear), nil
}

// BlobFromImage resizes img to the blob size and produces a float32 buffer of
// 3*Width*Height values in the requested layout. Pixel values stay in 0-255
// before mean subtraction and scaling. The buffer comes from mempool; callers
// hand it back with mempool.PutFloat32 once the tensor is consumed.
func BlobFromImage(img image.Image, opts BlobOptions) ([]float32, error) {
	if opts.Layout != LayoutNCHW && opts.Layout != LayoutNHWC {
		return nil, &ImageProcessingError{Operation: "blob", Err: fmt.Errorf("unknown layout %q", opts.Layout)}
	}
	resized, err := ResizeExact(img, opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}

	nrgba := imaging.Clone(resized)
	w, h := opts.Width, opts.Height
	plane := w * h
	data := mempool.GetFloat32(3 * plane)

	for y := range h {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		for x := range w {
			px := [3]float32{float32(row[x*4]), float32(row[x*4+1]), float32(row[x*4+2])}
			if opts.SwapRB {
				px[0], px[2] = px[2], px[0]
			}
			for c := range 3 {
				v := (px[c] - opts.Mean[c]) * scale
				if opts.Layout == LayoutNCHW {
					data[c*plane+y*w+x] = v
				} else {
					data[(y*w+x)*3+c] = v
				}
			}
		}
	}
	return data, nil
}
