//nolint:lll
package config

// Config is the complete eastocr configuration. It is loaded from a
// configuration file, EASTOCR_* environment variables and command-line flags.
type Config struct {
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`
	OCR      OCRConfig      `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	GPU      GPUConfig      `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// DetectorConfig contains EAST detection settings.
type DetectorConfig struct {
	ModelPath      string    `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	InputWidth     int       `mapstructure:"input_width" yaml:"input_width" json:"input_width"`
	InputHeight    int       `mapstructure:"input_height" yaml:"input_height" json:"input_height"`
	ScoreThreshold float32   `mapstructure:"score_threshold" yaml:"score_threshold" json:"score_threshold"`
	NMSThreshold   float64   `mapstructure:"nms_threshold" yaml:"nms_threshold" json:"nms_threshold"`
	Mean           []float64 `mapstructure:"mean" yaml:"mean,flow" json:"mean"`
	SwapRB         bool      `mapstructure:"swap_rb" yaml:"swap_rb" json:"swap_rb"`
	Layout         string    `mapstructure:"layout" yaml:"layout" json:"layout"`
	NumThreads     int       `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// OCRConfig contains Tesseract and text post-processing settings.
type OCRConfig struct {
	TessdataDir    string `mapstructure:"tessdata_dir" yaml:"tessdata_dir" json:"tessdata_dir"`
	Language       string `mapstructure:"language" yaml:"language" json:"language"`
	PageSegMode    int    `mapstructure:"page_seg_mode" yaml:"page_seg_mode" json:"page_seg_mode"`
	Whitelist      string `mapstructure:"whitelist" yaml:"whitelist" json:"whitelist"`
	// Post-processing is off unless Normalize or StripInvisible is set.
	Normalize      string `mapstructure:"normalize" yaml:"normalize" json:"normalize"`
	StripInvisible bool   `mapstructure:"strip_invisible" yaml:"strip_invisible" json:"strip_invisible"`
}

// OutputConfig contains output settings for the CLI.
type OutputConfig struct {
	Format       string `mapstructure:"format" yaml:"format" json:"format"`
	File         string `mapstructure:"file" yaml:"file" json:"file"`
	OverlayFile  string `mapstructure:"overlay_file" yaml:"overlay_file" json:"overlay_file"`
	OverlayColor string `mapstructure:"overlay_color" yaml:"overlay_color" json:"overlay_color"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// GPUConfig contains GPU acceleration settings.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}
