package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/eastocr/internal/pipeline"
	"github.com/MeKo-Tech/eastocr/internal/utils"
)

func processSingleImage(ctx context.Context, p Processor, path string, cfg Config) (*pipeline.Result, error) {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	res, err := p.Process(ctx, img, cfg.Detect)
	if err != nil {
		return nil, fmt.Errorf("OCR failed for %s: %w", path, err)
	}

	if cfg.OverlayDir != "" && res.Overlay != nil {
		if err := saveOverlay(res, path, cfg.OverlayDir); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// overlayPath returns <dir>/<name>_overlay.png for the input path.
func overlayPath(dir, input string) string {
	base := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+"_overlay.png")
}

func saveOverlay(res *pipeline.Result, input, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("can't create overlay dir: %w", err)
	}
	if err := utils.SaveImage(overlayPath(dir, input), res.Overlay); err != nil {
		return fmt.Errorf("can't save overlay for %s: %w", input, err)
	}
	return nil
}
