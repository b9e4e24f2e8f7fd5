package detector

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/eastocr/internal/mempool"
	"github.com/MeKo-Tech/eastocr/internal/models"
	"github.com/MeKo-Tech/eastocr/internal/onnx"
	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/yalue/onnxruntime_go"
)

// Engine runs the detection network. Implementations are not reentrant.
type Engine interface {
	// Load prepares the model. Repeated calls are no-ops once loaded.
	Load() error
	// Forward returns the score map [1,1,H,W] and geometry map [1,5,H,W].
	Forward(img image.Image, inputSize image.Point, mean [3]float32) (scores, geometry onnx.Tensor, err error)
	Close() error
}

var errNotLoaded = errors.New("detection model not loaded")

// ONNXEngine runs the EAST model with ONNX Runtime.
type ONNXEngine struct {
	config  Config
	session *onnxruntime_go.DynamicAdvancedSession
	mu      sync.Mutex
}

// NewONNXEngine creates an engine; the model is loaded by Load.
func NewONNXEngine(config Config) *ONNXEngine {
	return &ONNXEngine{config: config}
}

// Load initializes ONNX Runtime and creates the session.
func (e *ONNXEngine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		return nil
	}

	if err := e.config.Validate(); err != nil {
		return err
	}
	if err := models.ValidateModelExists(e.config.ModelPath); err != nil {
		return err
	}

	slog.Debug("Loading EAST model",
		"model_path", e.config.ModelPath,
		"input", e.config.InputSize(),
		"layout", e.config.Layout,
		"gpu_enabled", e.config.GPU.UseGPU)

	if err := onnx.Acquire(e.config.GPU.UseGPU); err != nil {
		return err
	}
	session, err := createSession(e.config)
	if err != nil {
		onnx.Release()
		return err
	}
	e.session = session
	return nil
}

func createSession(config Config) (*onnxruntime_go.DynamicAdvancedSession, error) {
	opts, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("failed to destroy session options", "error", err)
		}
	}()

	if err := onnx.ConfigureSessionForGPU(opts, config.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}
	if config.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(config.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxruntime_go.NewDynamicAdvancedSession(config.ModelPath,
		[]string{config.InputName},
		[]string{config.ScoreOutput, config.GeometryOutput},
		opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return session, nil
}

// Forward runs the network on img resized to inputSize.
func (e *ONNXEngine) Forward(img image.Image, inputSize image.Point, mean [3]float32) (onnx.Tensor, onnx.Tensor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return onnx.Tensor{}, onnx.Tensor{}, errNotLoaded
	}

	nhwc := e.config.Layout == utils.LayoutNHWC
	blob, err := utils.BlobFromImage(img, utils.BlobOptions{
		Width:  inputSize.X,
		Height: inputSize.Y,
		Mean:   mean,
		SwapRB: e.config.SwapRB,
		Layout: e.config.Layout,
	})
	if err != nil {
		return onnx.Tensor{}, onnx.Tensor{}, fmt.Errorf("preprocessing failed: %w", err)
	}
	defer mempool.PutFloat32(blob)

	in, err := onnx.NewImageTensor(blob, 3, inputSize.Y, inputSize.X, nhwc)
	if err != nil {
		return onnx.Tensor{}, onnx.Tensor{}, err
	}
	input, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(in.Shape...), in.Data)
	if err != nil {
		return onnx.Tensor{}, onnx.Tensor{}, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer destroyValue(input)

	outputs := []onnxruntime_go.Value{nil, nil}
	if err := e.session.Run([]onnxruntime_go.Value{input}, outputs); err != nil {
		return onnx.Tensor{}, onnx.Tensor{}, fmt.Errorf("inference failed: %w", err)
	}
	for _, v := range outputs {
		defer destroyValue(v)
	}

	scores, err := copyOutput(outputs[0], nhwc)
	if err != nil {
		return onnx.Tensor{}, onnx.Tensor{}, fmt.Errorf("score output: %w", err)
	}
	geometry, err := copyOutput(outputs[1], nhwc)
	if err != nil {
		return onnx.Tensor{}, onnx.Tensor{}, fmt.Errorf("geometry output: %w", err)
	}
	return scores, geometry, nil
}

// copyOutput copies an ONNX Runtime output into an NCHW onnx.Tensor.
func copyOutput(v onnxruntime_go.Value, nhwc bool) (onnx.Tensor, error) {
	if v == nil {
		return onnx.Tensor{}, errors.New("missing output")
	}
	ft, ok := v.(*onnxruntime_go.Tensor[float32])
	if !ok {
		return onnx.Tensor{}, fmt.Errorf("expected float32 tensor, got %T", v)
	}
	src := ft.GetData()
	t := onnx.Tensor{
		Data:  append([]float32(nil), src...),
		Shape: append([]int64(nil), ft.GetShape()...),
	}
	if nhwc {
		return onnx.NHWCToNCHW(t)
	}
	return t, t.Verify()
}

func destroyValue(v onnxruntime_go.Value) {
	if v == nil {
		return
	}
	if err := v.Destroy(); err != nil {
		slog.Warn("failed to destroy tensor", "error", err)
	}
}

// Close releases the session. The engine can be loaded again afterwards.
func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	onnx.Release()
	return err
}

// Config returns a copy of the engine configuration.
func (e *ONNXEngine) Config() Config {
	return e.config
}
