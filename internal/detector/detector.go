package detector

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"
)

// ErrForward marks failures of the inference engine during Detect.
var ErrForward = errors.New("detection inference failed")

// DetectionResult holds the regions found in one image.
type DetectionResult struct {
	Regions        []DetectedRegion
	Candidates     int // boxes passing the score threshold
	Survivors      int // boxes left after suppression
	GridWidth      int
	GridHeight     int
	OriginalWidth  int
	OriginalHeight int
	InferenceTime  time.Duration
	DecodeTime     time.Duration
}

// Detect runs engine on img and turns its output into clipped regions. The
// engine must already be loaded.
func Detect(engine Engine, img image.Image, cfg Config, observer RegionObserver) (*DetectionResult, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	b := img.Bounds()
	res := &DetectionResult{OriginalWidth: b.Dx(), OriginalHeight: b.Dy()}

	start := time.Now()
	scores, geometry, err := engine.Forward(img, cfg.InputSize(), cfg.Mean)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForward, err)
	}
	res.InferenceTime = time.Since(start)

	start = time.Now()
	cands, err := Decode(scores, geometry, cfg.ScoreThreshold)
	if err != nil {
		return nil, err
	}
	res.Candidates = len(cands)
	if len(scores.Shape) == 4 {
		res.GridHeight, res.GridWidth = int(scores.Shape[2]), int(scores.Shape[3])
	}

	kept := RotatedNMS(cands, cfg.ScoreThreshold, cfg.NMSThreshold)
	res.Survivors = len(kept)
	res.Regions = regionsFromSurvivors(cands, kept, SelectOptions{
		RatioX:      float64(res.OriginalWidth) / float64(cfg.InputWidth),
		RatioY:      float64(res.OriginalHeight) / float64(cfg.InputHeight),
		ImageWidth:  res.OriginalWidth,
		ImageHeight: res.OriginalHeight,
		Observer:    observer,
	})
	res.DecodeTime = time.Since(start)

	slog.Debug("Detection finished",
		"grid", fmt.Sprintf("%dx%d", res.GridWidth, res.GridHeight),
		"candidates", res.Candidates,
		"survivors", res.Survivors,
		"regions", len(res.Regions),
		"inference", res.InferenceTime,
		"decode", res.DecodeTime)
	return res, nil
}
