package cmd

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/MeKo-Tech/eastocr/internal/batch"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch PATH...",
	Short: "Recognise text in many images",
	Long: `Run OCR over image files and directories. Directories contribute every
PNG, JPEG and BMP file, descending into subdirectories with --recursive.
Images are processed in order with one pipeline; a failing image is reported
and skipped unless --fail-fast is set.

Examples:
  eastocr batch scans/
  eastocr batch scans/ --recursive --include 'page_*' --format csv -o pages.csv
  eastocr batch a.png b.jpg --detect --overlay-dir overlays/`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	f := batchCmd.Flags()
	f.Bool("detect", false, "detect text regions with EAST and recognise each region")
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.StringSlice("include", nil, "only process files whose name matches one of these globs")
	f.StringSlice("exclude", nil, "skip files whose name matches one of these globs")
	f.String("overlay-dir", "", "save <name>_overlay.png per image in region mode")
	f.Bool("fail-fast", false, "stop at the first failing image")
	f.StringP("format", "f", batch.FormatText, "output format: text, json or csv")
	f.StringP("output", "o", "", "write the results to a file instead of stdout")
	f.String("overlay-color", "#00FF00", "overlay box color (hex)")
	keys := mergeKeys(addDetectorFlags(batchCmd), addOCRFlags(batchCmd))
	keys["output.overlay_color"] = "overlay-color"
	bindConfigFlags(batchCmd, keys)
}

func runBatch(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	format, _ := f.GetString("format")
	if !slices.Contains([]string{batch.FormatText, batch.FormatJSON, batch.FormatCSV}, format) {
		return fmt.Errorf("invalid format: %s (must be one of: text, json, csv)", format)
	}
	output, _ := f.GetString("output")

	var bcfg batch.Config
	bcfg.Detect, _ = f.GetBool("detect")
	bcfg.Recursive, _ = f.GetBool("recursive")
	bcfg.IncludePatterns, _ = f.GetStringSlice("include")
	bcfg.ExcludePatterns, _ = f.GetStringSlice("exclude")
	bcfg.OverlayDir, _ = f.GetString("overlay-dir")
	bcfg.FailFast, _ = f.GetBool("fail-fast")

	p, err := buildPipeline(GetConfig())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	res, err := batch.Process(cmd.Context(), p, args, bcfg)
	if err != nil {
		return err
	}
	slog.Info("Batch finished",
		"images", len(res.Items),
		"failed", res.Failed(),
		"duration", res.Duration)

	out, err := res.Format(format)
	if err != nil {
		return err
	}
	return writeOutput(cmd, output, out)
}
