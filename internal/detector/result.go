package detector

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/MeKo-Tech/eastocr/internal/utils"
)

// DefaultOverlayColor is used for region boxes and labels.
var DefaultOverlayColor = color.RGBA{G: 255, A: 255}

// labelOffset is the gap between a box's top edge and its label baseline.
const labelOffset = 2

// DetectionResultJSON is a serializable representation of detected regions.
type DetectionResultJSON struct {
	Width   int              `json:"width"`
	Height  int              `json:"height"`
	Regions []DetectedRegion `json:"regions"`
}

// RegionsToJSON converts regions to JSON with the given image dimensions.
func RegionsToJSON(regs []DetectedRegion, width, height int) ([]byte, error) {
	out := DetectionResultJSON{Width: width, Height: height, Regions: regs}
	if out.Regions == nil {
		out.Regions = []DetectedRegion{}
	}
	return json.MarshalIndent(out, "", "  ")
}

// RegionsFromJSON parses regions JSON.
func RegionsFromJSON(data []byte) (DetectionResultJSON, error) {
	var res DetectionResultJSON
	err := json.Unmarshal(data, &res)
	return res, err
}

// ValidateRegions checks that every region is non-empty and inside the image.
func ValidateRegions(regs []DetectedRegion, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.New("invalid image dimensions for validation")
	}
	for i, r := range regs {
		if r.Empty() {
			return fmt.Errorf("region %d has non-positive size", i)
		}
		if r.X < 0 || r.Y < 0 || r.X+r.Width > width || r.Y+r.Height > height {
			return fmt.Errorf("region %d (%s) out of bounds", i, r.Rect)
		}
	}
	return nil
}

// RenderRegions draws each region as a 1-px box with its index written just
// above the top-left corner, on a copy of img.
func RenderRegions(img image.Image, regs []DetectedRegion, col color.Color) *image.RGBA {
	if col == nil {
		col = DefaultOverlayColor
	}
	dst := utils.CloneRGBA(img)
	for _, r := range regs {
		DrawRegion(dst, r, col)
	}
	return dst
}

// DrawRegion draws a single region onto dst.
func DrawRegion(dst *image.RGBA, r DetectedRegion, col color.Color) {
	utils.DrawRect(dst, r.Image(), col, 1)
	utils.DrawLabel(dst, r.X, r.Y-labelOffset, strconv.Itoa(r.Index), col)
}
