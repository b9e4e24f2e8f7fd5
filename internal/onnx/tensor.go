package onnx

import (
	"errors"
	"fmt"
)

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Data  []float32
	Shape []int64 // e.g., [N, C, H, W]
}

// NewImageTensor builds a single-image tensor. data must be length C*H*W.
// With nhwc set the shape is [1, H, W, C], otherwise [1, C, H, W].
func NewImageTensor(data []float32, c, h, w int, nhwc bool) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	expected := c * h * w
	if len(data) != expected {
		return Tensor{}, fmt.Errorf("unexpected data length: got %d, want %d", len(data), expected)
	}
	shape := []int64{1, int64(c), int64(h), int64(w)}
	if nhwc {
		shape = []int64{1, int64(h), int64(w), int64(c)}
	}
	return Tensor{Data: data, Shape: shape}, nil
}

// ValidateRank4 ensures a shape has four positive dimensions.
func ValidateRank4(shape []int64) error {
	if len(shape) != 4 {
		return fmt.Errorf("shape rank %d != 4", len(shape))
	}
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
	}
	return nil
}

// Verify checks that the data length matches the shape.
func (t Tensor) Verify() error {
	if err := ValidateRank4(t.Shape); err != nil {
		return err
	}
	expected := int(t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3])
	if len(t.Data) != expected {
		return fmt.Errorf("tensor data length %d != expected %d for shape %v", len(t.Data), expected, t.Shape)
	}
	return nil
}

// Dims returns C, H and W of an NCHW tensor with batch size 1.
func (t Tensor) Dims() (c, h, w int, err error) {
	if err := t.Verify(); err != nil {
		return 0, 0, 0, err
	}
	if t.Shape[0] != 1 {
		return 0, 0, 0, fmt.Errorf("batch size %d != 1", t.Shape[0])
	}
	return int(t.Shape[1]), int(t.Shape[2]), int(t.Shape[3]), nil
}

// NHWCToNCHW transposes a [N, H, W, C] tensor into a new [N, C, H, W] tensor.
func NHWCToNCHW(t Tensor) (Tensor, error) {
	if err := t.Verify(); err != nil {
		return Tensor{}, err
	}
	n, h, w, c := int(t.Shape[0]), int(t.Shape[1]), int(t.Shape[2]), int(t.Shape[3])
	out := make([]float32, len(t.Data))
	plane := h * w
	for b := range n {
		src := t.Data[b*plane*c : (b+1)*plane*c]
		dst := out[b*plane*c : (b+1)*plane*c]
		for i := range plane {
			for ch := range c {
				dst[ch*plane+i] = src[i*c+ch]
			}
		}
	}
	return Tensor{Data: out, Shape: []int64{int64(n), int64(c), int64(h), int64(w)}}, nil
}

// TensorStats computes min, max and mean for debug output.
func TensorStats(data []float32) (float32, float32, float32) {
	if len(data) == 0 {
		return 0, 0, 0
	}
	minVal, maxVal := data[0], data[0]
	var sum float64
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
		sum += float64(v)
	}
	return minVal, maxVal, float32(sum / float64(len(data)))
}
