package config

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/eastocr/internal/detector"
	"github.com/MeKo-Tech/eastocr/internal/models"
	"github.com/MeKo-Tech/eastocr/internal/ocr"
	"github.com/MeKo-Tech/eastocr/internal/pipeline"
	"github.com/MeKo-Tech/eastocr/internal/utils"
	"gopkg.in/yaml.v3"
)

var (
	validLogLevels     = []string{"debug", "info", "warn", "error"}
	validFormats       = []string{"text", "json"}
	validLayouts       = []string{utils.LayoutNHWC, utils.LayoutNCHW}
	validMemoryUnits   = []string{"KB", "MB", "GB", "B"}
	memoryUnitMultiple = map[string]float64{"B": 1, "KB": 1 << 10, "MB": 1 << 20, "GB": 1 << 30}
)

// DefaultConfig returns a configuration with the component defaults.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	return Config{
		ModelsDir: models.DefaultModelsDir,
		LogLevel:  "info",
		Detector: DetectorConfig{
			InputWidth:     det.InputWidth,
			InputHeight:    det.InputHeight,
			ScoreThreshold: det.ScoreThreshold,
			NMSThreshold:   det.NMSThreshold,
			Mean:           []float64{roundMean(det.Mean[0]), roundMean(det.Mean[1]), roundMean(det.Mean[2])},
			SwapRB:         det.SwapRB,
			Layout:         det.Layout,
			NumThreads:     det.NumThreads,
		},
		OCR: OCRConfig{
			Language:    "eng",
			PageSegMode: 3,
		},
		Output: OutputConfig{
			Format:       "text",
			OverlayColor: "#00FF00",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
		GPU: GPUConfig{
			MemoryLimit: "auto",
		},
	}
}

// roundMean drops float32 noise so defaults print as written.
func roundMean(v float32) float64 {
	return math.Round(float64(v)*1e4) / 1e4
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}
	if err := validateThreshold(float64(c.Detector.ScoreThreshold), "detector.score_threshold"); err != nil {
		return err
	}
	if err := validateThreshold(c.Detector.NMSThreshold, "detector.nms_threshold"); err != nil {
		return err
	}
	if c.Detector.InputWidth <= 0 || c.Detector.InputWidth%32 != 0 {
		return fmt.Errorf("invalid detector.input_width: %d (must be a positive multiple of 32)", c.Detector.InputWidth)
	}
	if c.Detector.InputHeight <= 0 || c.Detector.InputHeight%32 != 0 {
		return fmt.Errorf("invalid detector.input_height: %d (must be a positive multiple of 32)", c.Detector.InputHeight)
	}
	if len(c.Detector.Mean) != 3 {
		return fmt.Errorf("invalid detector.mean: need 3 values, got %d", len(c.Detector.Mean))
	}
	if !slices.Contains(validLayouts, c.Detector.Layout) {
		return fmt.Errorf("invalid detector.layout: %s (must be one of: %s)", c.Detector.Layout, strings.Join(validLayouts, ", "))
	}
	if c.Detector.NumThreads < 0 {
		return fmt.Errorf("invalid detector.num_threads: %d (must not be negative)", c.Detector.NumThreads)
	}

	if len(ocr.ParseLanguages(c.OCR.Language)) == 0 {
		return fmt.Errorf("invalid ocr.language: %q", c.OCR.Language)
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		return fmt.Errorf("invalid ocr.page_seg_mode: %d (must be between 0 and 13)", c.OCR.PageSegMode)
	}
	if !ocr.ValidNormalizeForm(c.OCR.Normalize) {
		return fmt.Errorf("invalid ocr.normalize: %s (must be one of: NFC, NFKC, NFD, NFKD)", c.OCR.Normalize)
	}

	if _, err := utils.ParseHexColor(c.Output.OverlayColor); err != nil {
		return fmt.Errorf("invalid output.overlay_color: %w", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}

	if c.GPU.Device < 0 {
		return fmt.Errorf("invalid gpu.device: %d", c.GPU.Device)
	}
	if _, err := parseMemoryLimit(c.GPU.MemoryLimit); err != nil {
		return fmt.Errorf("invalid GPU memory limit: %w", err)
	}
	return nil
}

// ToPipelineConfig converts the config to the pipeline configuration. The
// config should be validated first.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	cfg.ModelsDir = models.GetModelsDir(c.ModelsDir)
	cfg.Detector = c.toDetectorConfig(cfg.ModelsDir)

	cfg.OCR.TessdataDir = models.GetTessdataDir(c.OCR.TessdataDir, cfg.ModelsDir)
	cfg.OCR.Language = c.OCR.Language
	cfg.OCR.Tesseract = ocr.TesseractOptions{PageSegMode: c.OCR.PageSegMode, Whitelist: c.OCR.Whitelist}
	cfg.OCR.Text = ocr.TextOptions{NormalizeForm: c.OCR.Normalize}
	if c.OCR.StripInvisible {
		cfg.OCR.Text = ocr.CleanTextOptions(c.OCR.Normalize)
	}

	col, err := utils.ParseHexColor(c.Output.OverlayColor)
	if err != nil {
		return pipeline.Config{}, err
	}
	cfg.OverlayColor = col

	limit, err := parseMemoryLimit(c.GPU.MemoryLimit)
	if err != nil {
		return pipeline.Config{}, err
	}
	cfg.Detector.GPU.GPUMemLimit = limit
	return cfg, nil
}

func (c *Config) toDetectorConfig(modelsDir string) detector.Config {
	cfg := detector.DefaultConfig()
	cfg.UpdateModelPath(modelsDir)
	if c.Detector.ModelPath != "" {
		cfg.ModelPath = c.Detector.ModelPath
	}
	cfg.InputWidth = c.Detector.InputWidth
	cfg.InputHeight = c.Detector.InputHeight
	cfg.ScoreThreshold = c.Detector.ScoreThreshold
	cfg.NMSThreshold = c.Detector.NMSThreshold
	if len(c.Detector.Mean) == 3 {
		cfg.Mean = [3]float32{float32(c.Detector.Mean[0]), float32(c.Detector.Mean[1]), float32(c.Detector.Mean[2])}
	}
	cfg.SwapRB = c.Detector.SwapRB
	cfg.Layout = c.Detector.Layout
	cfg.NumThreads = c.Detector.NumThreads
	cfg.GPU.UseGPU = c.GPU.Enabled
	cfg.GPU.DeviceID = c.GPU.Device
	return cfg
}

// ToYAML renders the configuration as YAML.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// parseMemoryLimit parses a GPU memory limit such as "1GB" or "512MB".
// "auto" and "" mean no limit.
func parseMemoryLimit(limit string) (uint64, error) {
	if limit == "" || limit == "auto" {
		return 0, nil
	}
	upper := strings.ToUpper(strings.TrimSpace(limit))
	for _, unit := range validMemoryUnits {
		numStr, ok := strings.CutSuffix(upper, unit)
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(numStr), 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid number in memory limit: %s", limit)
		}
		return uint64(n * memoryUnitMultiple[unit]), nil
	}
	return 0, fmt.Errorf("memory limit must end with one of: %s", strings.Join(validMemoryUnits, ", "))
}
