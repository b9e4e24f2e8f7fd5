package detector

import (
	"errors"
	"fmt"
	"image"

	"github.com/MeKo-Tech/eastocr/internal/models"
	"github.com/MeKo-Tech/eastocr/internal/onnx"
	"github.com/MeKo-Tech/eastocr/internal/utils"
)

// Default tensor names of the TensorFlow EAST export.
const (
	DefaultInputName      = "input_images:0"
	DefaultScoreOutput    = "feature_fusion/Conv_7/Sigmoid:0"
	DefaultGeometryOutput = "feature_fusion/concat_3:0"
)

// Config holds configuration for the EAST detector.
type Config struct {
	ModelPath      string
	InputWidth     int        // network input width, multiple of 32
	InputHeight    int        // network input height, multiple of 32
	ScoreThreshold float32    // minimum cell confidence (default: 0.5)
	NMSThreshold   float64    // rotated IoU above which boxes are suppressed (default: 0.4)
	Mean           [3]float32 // subtracted per channel after the optional R/B swap
	SwapRB         bool
	Layout         string // utils.LayoutNHWC or utils.LayoutNCHW

	InputName      string
	ScoreOutput    string
	GeometryOutput string

	NumThreads int // CPU threads, 0 = runtime default
	GPU        onnx.GPUConfig
}

// DefaultConfig returns the configuration of the reference EAST deployment.
func DefaultConfig() Config {
	return Config{
		ModelPath:      models.GetDetectionModelPath(""),
		InputWidth:     320,
		InputHeight:    320,
		ScoreThreshold: 0.5,
		NMSThreshold:   0.4,
		Mean:           [3]float32{123.68, 116.78, 103.94},
		SwapRB:         true,
		Layout:         utils.LayoutNHWC,
		InputName:      DefaultInputName,
		ScoreOutput:    DefaultScoreOutput,
		GeometryOutput: DefaultGeometryOutput,
		GPU:            onnx.DefaultGPUConfig(),
	}
}

// UpdateModelPath resolves ModelPath below modelsDir.
func (c *Config) UpdateModelPath(modelsDir string) {
	c.ModelPath = models.GetDetectionModelPath(modelsDir)
}

// InputSize returns the network input resolution.
func (c Config) InputSize() image.Point {
	return image.Pt(c.InputWidth, c.InputHeight)
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path cannot be empty")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 || c.InputWidth%32 != 0 || c.InputHeight%32 != 0 {
		return fmt.Errorf("input size %dx%d must be positive multiples of 32", c.InputWidth, c.InputHeight)
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("score threshold %.3f out of range [0,1]", c.ScoreThreshold)
	}
	if c.NMSThreshold < 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("NMS threshold %.3f out of range [0,1]", c.NMSThreshold)
	}
	if c.Layout != utils.LayoutNHWC && c.Layout != utils.LayoutNCHW {
		return fmt.Errorf("unknown tensor layout %q", c.Layout)
	}
	if c.NumThreads < 0 {
		return fmt.Errorf("num threads must be >= 0, got %d", c.NumThreads)
	}
	return c.GPU.Validate()
}
