package testutil

import (
	"github.com/MeKo-Tech/eastocr/internal/onnx"
)

// EASTCell describes one score map cell and its geometry.
type EASTCell struct {
	X, Y                     int
	Score                    float32
	Top, Right, Bottom, Left float32
	Angle                    float32 // radians
}

// EASTTensors builds a zeroed [1,1,H,W] score map and [1,5,H,W] geometry map
// and fills in the given cells.
func EASTTensors(height, width int, cells ...EASTCell) (scores, geometry onnx.Tensor) {
	plane := height * width
	scores = onnx.Tensor{
		Data:  make([]float32, plane),
		Shape: []int64{1, 1, int64(height), int64(width)},
	}
	geometry = onnx.Tensor{
		Data:  make([]float32, 5*plane),
		Shape: []int64{1, 5, int64(height), int64(width)},
	}
	for _, c := range cells {
		i := c.Y*width + c.X
		scores.Data[i] = c.Score
		for ch, v := range []float32{c.Top, c.Right, c.Bottom, c.Left, c.Angle} {
			geometry.Data[ch*plane+i] = v
		}
	}
	return scores, geometry
}
