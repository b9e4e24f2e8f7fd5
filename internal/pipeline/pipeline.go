// Package pipeline drives detection and recognition for one image at a time.
package pipeline

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/MeKo-Tech/eastocr/internal/detector"
	"github.com/MeKo-Tech/eastocr/internal/models"
	"github.com/MeKo-Tech/eastocr/internal/ocr"
)

// OCRConfig configures the OCR engine.
type OCRConfig struct {
	TessdataDir string
	Language    string
	Tesseract   ocr.TesseractOptions
	Text        ocr.TextOptions
}

// Config holds configuration for the pipeline and its components.
type Config struct {
	ModelsDir    string
	Detector     detector.Config
	OCR          OCRConfig
	OverlayColor color.Color
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	modelsDir := models.GetModelsDir("")
	return Config{
		ModelsDir: modelsDir,
		Detector:  detector.DefaultConfig(),
		OCR: OCRConfig{
			TessdataDir: models.GetTessdataDir("", modelsDir),
			Language:    "eng",
			Tesseract:   ocr.TesseractOptions{PageSegMode: 3},
		},
		OverlayColor: detector.DefaultOverlayColor,
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg          Config
	detEngine    detector.Engine
	ocrEngine    ocr.Engine
	tessdataSet  bool
	modelPathSet bool
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	b.modelPathSet = cfg.Detector.ModelPath != ""
	b.tessdataSet = cfg.OCR.TessdataDir != ""
	return b
}

// WithModelsDir sets the models directory and updates derived paths that
// were not set explicitly.
func (b *Builder) WithModelsDir(dir string) *Builder {
	if dir != "" {
		b.cfg.ModelsDir = dir
	}
	if !b.modelPathSet {
		b.cfg.Detector.UpdateModelPath(b.cfg.ModelsDir)
	}
	if !b.tessdataSet {
		b.cfg.OCR.TessdataDir = models.GetTessdataDir("", b.cfg.ModelsDir)
	}
	return b
}

// WithDetectorModelPath overrides the detector model path directly.
func (b *Builder) WithDetectorModelPath(path string) *Builder {
	if path != "" {
		b.cfg.Detector.ModelPath = path
		b.modelPathSet = true
	}
	return b
}

// WithTessdataDir overrides the tessdata directory.
func (b *Builder) WithTessdataDir(dir string) *Builder {
	if dir != "" {
		b.cfg.OCR.TessdataDir = dir
		b.tessdataSet = true
	}
	return b
}

// WithLanguage sets the OCR language ("eng", "eng+deu").
func (b *Builder) WithLanguage(lang string) *Builder {
	if lang != "" {
		b.cfg.OCR.Language = lang
	}
	return b
}

// WithThresholds sets the detection score and NMS thresholds. Non-positive
// values keep the current setting.
func (b *Builder) WithThresholds(score float32, nms float64) *Builder {
	if score > 0 {
		b.cfg.Detector.ScoreThreshold = score
	}
	if nms > 0 {
		b.cfg.Detector.NMSThreshold = nms
	}
	return b
}

// WithInputSize sets the detector input size.
func (b *Builder) WithInputSize(width, height int) *Builder {
	if width > 0 {
		b.cfg.Detector.InputWidth = width
	}
	if height > 0 {
		b.cfg.Detector.InputHeight = height
	}
	return b
}

// WithThreads sets the number of CPU threads for inference.
func (b *Builder) WithThreads(n int) *Builder {
	if n >= 0 {
		b.cfg.Detector.NumThreads = n
	}
	return b
}

// WithGPU enables GPU acceleration for the detector.
func (b *Builder) WithGPU(enabled bool) *Builder {
	b.cfg.Detector.GPU.UseGPU = enabled
	return b
}

// WithGPUDevice sets the CUDA device ID.
func (b *Builder) WithGPUDevice(deviceID int) *Builder {
	b.cfg.Detector.GPU.DeviceID = deviceID
	return b
}

// WithTextOptions sets OCR text post-processing.
func (b *Builder) WithTextOptions(opts ocr.TextOptions) *Builder {
	b.cfg.OCR.Text = opts
	return b
}

// WithTesseractOptions sets page segmentation mode and whitelist.
func (b *Builder) WithTesseractOptions(opts ocr.TesseractOptions) *Builder {
	b.cfg.OCR.Tesseract = opts
	return b
}

// WithOverlayColor sets the colour used for region overlays.
func (b *Builder) WithOverlayColor(c color.Color) *Builder {
	if c != nil {
		b.cfg.OverlayColor = c
	}
	return b
}

// WithDetectorEngine injects the inference engine instead of ONNX Runtime.
func (b *Builder) WithDetectorEngine(e detector.Engine) *Builder {
	b.detEngine = e
	return b
}

// WithOCREngine injects the OCR engine instead of Tesseract.
func (b *Builder) WithOCREngine(e ocr.Engine) *Builder {
	b.ocrEngine = e
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks that the configuration looks sane. Model files are checked
// when inference is first needed.
func (b *Builder) Validate() error {
	if err := b.cfg.Detector.Validate(); err != nil {
		return err
	}
	if len(ocr.ParseLanguages(b.cfg.OCR.Language)) == 0 {
		return errors.New("ocr language is empty")
	}
	if !ocr.ValidNormalizeForm(b.cfg.OCR.Text.NormalizeForm) {
		return fmt.Errorf("unknown normalization form %q", b.cfg.OCR.Text.NormalizeForm)
	}
	return nil
}

// Build creates the pipeline. Neither engine is loaded yet: the detector
// loads on the first region request and the OCR engine on the first
// recognition or SetLanguage call.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	det := b.detEngine
	if det == nil {
		det = detector.NewONNXEngine(b.cfg.Detector)
	}
	eng := b.ocrEngine
	if eng == nil {
		eng = ocr.NewTesseract(b.cfg.OCR.Tesseract)
	}
	if b.cfg.OverlayColor == nil {
		b.cfg.OverlayColor = detector.DefaultOverlayColor
	}
	return &Pipeline{
		cfg:      b.cfg,
		detector: det,
		ocr:      eng,
		language: b.cfg.OCR.Language,
	}, nil
}
