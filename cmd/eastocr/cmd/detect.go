package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/eastocr/internal/detector"
	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/spf13/cobra"
)

// detectCmd represents the detect command.
var detectCmd = &cobra.Command{
	Use:   "detect IMAGE",
	Short: "Detect text regions without recognising them",
	Long: `Run the EAST detector on an image and print the regions that survive
rotated non-maximum suppression and clipping.

Each region is printed as "index x y width height confidence", or as JSON with
--format json. --overlay saves the image with the regions drawn.

Examples:
  eastocr detect street.jpg
  eastocr detect street.jpg --score-threshold 0.7 --overlay boxes.png
  eastocr detect street.jpg --format json --output regions.json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	bindConfigFlags(detectCmd, mergeKeys(addDetectorFlags(detectCmd), addOutputFlags(detectCmd)))
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

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

	res, err := p.Detect(cmd.Context(), img)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}
	slog.Info("Detection finished",
		"candidates", res.Candidates,
		"survivors", res.Survivors,
		"regions", len(res.Regions),
		"inference", res.InferenceTime,
		"decode", res.DecodeTime)

	if cfg.Output.OverlayFile != "" {
		ov := detector.RenderRegions(img, res.Regions, p.Config().OverlayColor)
		if err := utils.SaveImage(cfg.Output.OverlayFile, ov); err != nil {
			return fmt.Errorf("can't save overlay: %w", err)
		}
	}

	var out string
	if cfg.Output.Format == outputFormatJSON {
		data, err := detector.RegionsToJSON(res.Regions, res.OriginalWidth, res.OriginalHeight)
		if err != nil {
			return err
		}
		out = string(data) + "\n"
	} else {
		var sb strings.Builder
		for _, r := range res.Regions {
			fmt.Fprintf(&sb, "%d %d %d %d %d %.4f\n", r.Index, r.X, r.Y, r.Width, r.Height, r.Confidence)
		}
		out = sb.String()
	}
	return writeOutput(cmd, cfg.Output.File, out)
}
