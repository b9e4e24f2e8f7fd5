package cmd

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/eastocr/internal/config"
	"github.com/MeKo-Tech/eastocr/internal/pipeline"
	"github.com/spf13/cobra"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
)

// addDetectorFlags registers the EAST detector flags and returns their
// config keys.
func addDetectorFlags(cmd *cobra.Command) map[string]string {
	f := cmd.Flags()
	f.String("model", "", "EAST model path (default <models-dir>/detection/frozen_east_text_detection.onnx)")
	f.Float32("score-threshold", 0.5, "minimum detection confidence (0..1)")
	f.Float64("nms-threshold", 0.4, "rotated IoU above which overlapping boxes are suppressed (0..1)")
	f.Int("width", 320, "detector input width, multiple of 32")
	f.Int("height", 320, "detector input height, multiple of 32")
	f.Int("threads", 0, "inference CPU threads (0 = runtime default)")
	f.Bool("gpu", false, "run inference with the CUDA execution provider")
	return map[string]string{
		"detector.model_path":      "model",
		"detector.score_threshold": "score-threshold",
		"detector.nms_threshold":   "nms-threshold",
		"detector.input_width":     "width",
		"detector.input_height":    "height",
		"detector.num_threads":     "threads",
		"gpu.enabled":              "gpu",
	}
}

// addOCRFlags registers the Tesseract flags and returns their config keys.
func addOCRFlags(cmd *cobra.Command) map[string]string {
	f := cmd.Flags()
	f.StringP("lang", "l", "eng", "OCR language; join several with '+' (eng+deu)")
	f.String("tessdata", "", "tessdata directory (default $TESSDATA_PREFIX or <models-dir>/tessdata)")
	f.Int("psm", 3, "Tesseract page segmentation mode")
	return map[string]string{
		"ocr.language":      "lang",
		"ocr.tessdata_dir":  "tessdata",
		"ocr.page_seg_mode": "psm",
	}
}

// addOutputFlags registers the result output flags and returns their config
// keys.
func addOutputFlags(cmd *cobra.Command) map[string]string {
	f := cmd.Flags()
	f.StringP("format", "f", outputFormatText, "output format: text or json")
	f.StringP("output", "o", "", "write the result to a file instead of stdout")
	f.String("overlay", "", "save the image with detected regions drawn (.png, .jpg, .bmp)")
	f.String("overlay-color", "#00FF00", "overlay box color (hex)")
	return map[string]string{
		"output.format":        "format",
		"output.file":          "output",
		"output.overlay_file":  "overlay",
		"output.overlay_color": "overlay-color",
	}
}

func mergeKeys(keys ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, k := range keys {
		maps.Copy(out, k)
	}
	return out
}

// checkTextOutput rejects text output files that are not .txt.
func checkTextOutput(out config.OutputConfig) error {
	if out.File == "" || out.Format != outputFormatText {
		return nil
	}
	if !strings.EqualFold(filepath.Ext(out.File), ".txt") {
		return fmt.Errorf("bad format or filename: text output must be a .txt file, got %q", out.File)
	}
	return nil
}

// formatResult renders res in the configured format. Text output always ends
// with a newline.
func formatResult(res *pipeline.Result, format string) (string, error) {
	if format == outputFormatJSON {
		s, err := pipeline.ToJSON(res)
		if err != nil {
			return "", err
		}
		return s + "\n", nil
	}
	return res.Text + "\n", nil
}

// writeOutput writes s to path, or to stdout when path is empty.
func writeOutput(cmd *cobra.Command, path, s string) error {
	if path == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), s)
		return err
	}
	if err := os.WriteFile(path, []byte(s), 0o600); err != nil {
		return fmt.Errorf("can't save output: %w", err)
	}
	return nil
}
