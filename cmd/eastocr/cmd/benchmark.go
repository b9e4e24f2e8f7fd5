package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/eastocr/internal/benchmark"
	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/spf13/cobra"
)

// benchmarkCmd represents the benchmark command.
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark IMAGE",
	Short: "Time detection and OCR on one image",
	Long: `Run the detector, and with --ocr also whole-image and region OCR, on one
image repeatedly and report min, mean, p95 and max latency per stage. The model
is loaded once before timing starts.

Examples:
  eastocr benchmark street.jpg -n 20
  eastocr benchmark street.jpg --ocr --gpu --format json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runBenchmark,
}

func init() {
	rootCmd.AddCommand(benchmarkCmd)
	f := benchmarkCmd.Flags()
	f.IntP("iterations", "n", 10, "runs per stage")
	f.Bool("ocr", false, "also time whole-image and region OCR")
	f.StringP("format", "f", outputFormatText, "output format: text or json")
	bindConfigFlags(benchmarkCmd, mergeKeys(addDetectorFlags(benchmarkCmd), addOCRFlags(benchmarkCmd)))
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	iterations, _ := cmd.Flags().GetInt("iterations")
	withOCR, _ := cmd.Flags().GetBool("ocr")
	format, _ := cmd.Flags().GetString("format")

	img, meta, err := utils.LoadImage(args[0])
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	slog.Info("Loaded image", "image", meta)

	p, err := buildPipeline(GetConfig())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	suite, err := benchmark.PipelineSuite(cmd.Context(), p, img, withOCR)
	if err != nil {
		return err
	}
	results := suite.RunAll(iterations)

	if format == outputFormatJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		suite.PrintResults(cmd.OutOrStdout())
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("benchmark %s failed: %w", r.Name, r.Error)
		}
	}
	return nil
}
