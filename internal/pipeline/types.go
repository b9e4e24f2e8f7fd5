package pipeline

import (
	"encoding/json"
	"errors"
	"image"

	"github.com/MeKo-Tech/eastocr/internal/detector"
)

// RegionText is a detected region together with the text recognised in it.
type RegionText struct {
	detector.DetectedRegion
	Text string `json:"text"`
}

// Processing holds stage timings in nanoseconds.
type Processing struct {
	DetectionNs   int64 `json:"detection_ns"`
	RecognitionNs int64 `json:"recognition_ns"`
	TotalNs       int64 `json:"total_ns"`
}

// Result is the output of one Process call.
type Result struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Language string `json:"language"`
	// Text is the whole-image text, or the region texts concatenated in
	// region order without a separator.
	Text     string       `json:"text"`
	Detected bool         `json:"detected"`
	Regions  []RegionText `json:"regions"`

	Candidates int `json:"candidates,omitempty"`
	Survivors  int `json:"survivors,omitempty"`

	// Overlay is the input with region boxes drawn; set in region mode only.
	Overlay    *image.RGBA `json:"-"`
	Processing Processing  `json:"processing"`
}

// ToJSON serializes a result to pretty JSON. Regions encode as an empty array
// when there are none.
func ToJSON(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	out := *res
	if out.Regions == nil {
		out.Regions = []RegionText{}
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
