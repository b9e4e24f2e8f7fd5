package detector

import (
	"github.com/MeKo-Tech/eastocr/internal/utils"
)

// DetectedRegion is an axis-aligned text region in original image pixels.
type DetectedRegion struct {
	utils.Rect
	Index      int     `json:"index"`
	Confidence float32 `json:"confidence"`
}

// RegionObserver is called for every emitted region, in emission order.
type RegionObserver func(DetectedRegion)

// SelectOptions parameterises SelectRegions.
type SelectOptions struct {
	ScoreThreshold float32
	NMSThreshold   float64
	// RatioX and RatioY map network input pixels to original image pixels.
	RatioX      float64
	RatioY      float64
	ImageWidth  int
	ImageHeight int
	Observer    RegionObserver
}

// SelectRegions suppresses overlapping candidates, converts the survivors to
// axis-aligned rectangles in original image coordinates and clips them to the
// image. Regions that end up empty are dropped.
func SelectRegions(cands []CandidateBox, opts SelectOptions) []DetectedRegion {
	kept := RotatedNMS(cands, opts.ScoreThreshold, opts.NMSThreshold)
	return regionsFromSurvivors(cands, kept, opts)
}

// regionsFromSurvivors maps the kept candidates to clipped regions. Index is
// the survivor ordinal, so dropped survivors leave gaps.
func regionsFromSurvivors(cands []CandidateBox, kept []int, opts SelectOptions) []DetectedRegion {
	regions := make([]DetectedRegion, 0, len(kept))
	for ordinal, idx := range kept {
		rect := cands[idx].Box.BoundingRect().
			Scale(opts.RatioX, opts.RatioY).
			ClipTo(opts.ImageWidth, opts.ImageHeight)
		if rect.Empty() {
			continue
		}
		r := DetectedRegion{Rect: rect, Index: ordinal, Confidence: cands[idx].Confidence}
		regions = append(regions, r)
		if opts.Observer != nil {
			opts.Observer(r)
		}
	}
	return regions
}
