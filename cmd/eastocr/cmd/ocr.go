package cmd

import (
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/spf13/cobra"
)

// ocrCmd represents the ocr command.
var ocrCmd = &cobra.Command{
	Use:   "ocr IMAGE",
	Short: "Recognise text in an image",
	Long: `Recognise text in an image with Tesseract.

Without --detect the whole image is recognised at once. With --detect the EAST
detector finds text regions first; each region is recognised on its own and the
texts are concatenated in detection order.

Supported formats: PNG, JPEG, BMP

Examples:
  eastocr ocr scan.png
  eastocr ocr photo.jpg --detect --lang eng+deu
  eastocr ocr photo.jpg --detect --overlay regions.png --output photo.txt
  eastocr ocr photo.jpg --detect --format json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)
	ocrCmd.Flags().Bool("detect", false, "detect text regions with EAST and recognise each region")
	bindConfigFlags(ocrCmd, mergeKeys(addDetectorFlags(ocrCmd), addOCRFlags(ocrCmd), addOutputFlags(ocrCmd)))
}

func runOCR(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	detect, _ := cmd.Flags().GetBool("detect")

	if err := checkTextOutput(cfg.Output); err != nil {
		return err
	}

	img, meta, err := utils.LoadImage(args[0])
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	slog.Info("Loaded image", "image", meta)

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	res, err := p.Process(cmd.Context(), img, detect)
	if err != nil {
		return fmt.Errorf("OCR failed: %w", err)
	}
	slog.Info("OCR finished",
		"detected", res.Detected,
		"regions", len(res.Regions),
		"candidates", res.Candidates,
		"total_ms", float64(res.Processing.TotalNs)/1e6)

	if cfg.Output.OverlayFile != "" {
		if res.Overlay == nil {
			slog.Warn("No overlay without region detection, use --detect", "overlay", cfg.Output.OverlayFile)
		} else if err := utils.SaveImage(cfg.Output.OverlayFile, res.Overlay); err != nil {
			return fmt.Errorf("can't save overlay: %w", err)
		}
	}

	out, err := formatResult(res, cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, cfg.Output.File, out)
}
