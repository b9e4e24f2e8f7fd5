package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/eastocr/internal/onnx"
	"github.com/MeKo-Tech/eastocr/internal/utils"
)

// FeatureStride is the ratio between network input pixels and score map cells.
const FeatureStride = 4

// geometry channels
const (
	geoTop = iota
	geoRight
	geoBottom
	geoLeft
	geoAngle
	geoChannels
)

// ErrInvalidTensorShape is returned when the score and geometry tensors do not
// describe the same grid.
var ErrInvalidTensorShape = errors.New("invalid tensor shape")

// CandidateBox is a decoded rotated rectangle in network input coordinates.
type CandidateBox struct {
	Box        utils.RotatedRect
	Confidence float32
}

func shapeError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTensorShape, fmt.Sprintf(format, args...))
}

// gridSize validates the pair of tensors and returns the grid dimensions.
func gridSize(scores, geometry onnx.Tensor) (int, int, error) {
	sc, sh, sw, err := scores.Dims()
	if err != nil {
		return 0, 0, shapeError("scores: %v", err)
	}
	gc, gh, gw, err := geometry.Dims()
	if err != nil {
		return 0, 0, shapeError("geometry: %v", err)
	}
	if sc != 1 {
		return 0, 0, shapeError("scores have %d channels, want 1", sc)
	}
	if gc != geoChannels {
		return 0, 0, shapeError("geometry has %d channels, want %d", gc, geoChannels)
	}
	if sh != gh || sw != gw {
		return 0, 0, shapeError("scores %dx%d and geometry %dx%d differ", sw, sh, gw, gh)
	}
	return sh, sw, nil
}

// Decode turns EAST score and geometry maps into rotated candidate boxes.
// scores must be [1, 1, H, W] and geometry [1, 5, H, W] (top, right, bottom,
// left, angle in radians). Every cell with score >= scoreThresh yields one
// box, in row-major order.
func Decode(scores, geometry onnx.Tensor, scoreThresh float32) ([]CandidateBox, error) {
	height, width, err := gridSize(scores, geometry)
	if err != nil {
		return nil, err
	}

	plane := height * width
	channel := func(c int) []float32 { return geometry.Data[c*plane : (c+1)*plane] }
	top, right, bottom, left, angles := channel(geoTop), channel(geoRight),
		channel(geoBottom), channel(geoLeft), channel(geoAngle)

	var out []CandidateBox
	for y := range height {
		for x := range width {
			i := y*width + x
			score := scores.Data[i]
			if score < scoreThresh {
				continue
			}
			out = append(out, CandidateBox{
				Box:        decodeCell(x, y, top[i], right[i], bottom[i], left[i], angles[i]),
				Confidence: score,
			})
		}
	}
	return out, nil
}

func decodeCell(x, y int, top, right, bottom, left, angle float32) utils.RotatedRect {
	offsetX := float64(x * FeatureStride)
	offsetY := float64(y * FeatureStride)
	a := float64(angle)
	cosA, sinA := math.Cos(a), math.Sin(a)
	h := float64(top + bottom)
	w := float64(right + left)
	r, b := float64(right), float64(bottom)

	ox := offsetX + cosA*r + sinA*b
	oy := offsetY - sinA*r + cosA*b
	p1 := utils.Point{X: -sinA*h + ox, Y: -cosA*h + oy}
	p3 := utils.Point{X: -cosA*w + ox, Y: sinA*w + oy}

	return utils.RotatedRect{
		Center: utils.Point{X: (p1.X + p3.X) / 2, Y: (p1.Y + p3.Y) / 2},
		Width:  w,
		Height: h,
		Angle:  -a * 180 / math.Pi,
	}
}
