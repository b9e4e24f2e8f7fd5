package testutil

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/MeKo-Tech/eastocr/internal/onnx"
	"github.com/MeKo-Tech/eastocr/internal/utils"
)

// FakeDetector returns fixed tensors from Forward.
type FakeDetector struct {
	Scores     onnx.Tensor
	Geometry   onnx.Tensor
	LoadErr    error
	ForwardErr error

	mu        sync.Mutex
	Loads     int
	Forwards  int
	Closes    int
	loaded    bool
	LastSize  image.Point
	LastMean  [3]float32
	inFlight  int
	MaxFlight int
}

// Load counts calls and fails with LoadErr when set.
func (f *FakeDetector) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Loads++
	if f.LoadErr != nil {
		return f.LoadErr
	}
	f.loaded = true
	return nil
}

// Forward returns the configured tensors.
func (f *FakeDetector) Forward(_ image.Image, size image.Point, mean [3]float32) (onnx.Tensor, onnx.Tensor, error) {
	f.mu.Lock()
	f.Forwards++
	f.inFlight++
	f.MaxFlight = max(f.MaxFlight, f.inFlight)
	f.LastSize, f.LastMean = size, mean
	loaded := f.loaded
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if !loaded {
		return onnx.Tensor{}, onnx.Tensor{}, errors.New("fake detector not loaded")
	}
	if f.ForwardErr != nil {
		return onnx.Tensor{}, onnx.Tensor{}, f.ForwardErr
	}
	return f.Scores, f.Geometry, nil
}

// Close marks the fake as unloaded.
func (f *FakeDetector) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closes++
	f.loaded = false
	return nil
}

// FakeOCR records calls and returns text from a callback or a fixed string.
type FakeOCR struct {
	// Text is returned by Recognize unless TextFor is set.
	Text            string
	// TextFor computes the text for the active region (nil for the whole image).
	TextFor         func(region *utils.Rect) string
	InitErr         error
	RecognizeErr    error
	Available       []string
	// BrokenLanguages fail Init even when InitErr is nil.
	BrokenLanguages []string

	mu         sync.Mutex
	languages  []string
	region     *utils.Rect
	Inits      []string
	Images     int
	Regions    []utils.Rect
	Recognized int
}

// Init records the language and marks it loaded.
func (f *FakeOCR) Init(_, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Inits = append(f.Inits, language)
	if f.InitErr != nil {
		f.languages = nil
		return f.InitErr
	}
	if slices.Contains(f.BrokenLanguages, language) {
		f.languages = nil
		return fmt.Errorf("fake ocr: cannot load %q", language)
	}
	f.languages = []string{language}
	return nil
}

// SetImage counts calls.
func (f *FakeOCR) SetImage(pix []byte, width, height, channels, stride int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(pix) < height*stride || channels != 3 || width <= 0 {
		return errors.New("fake ocr: bad image buffer")
	}
	f.Images++
	f.region = nil
	return nil
}

// SetRegion records the region.
func (f *FakeOCR) SetRegion(r utils.Rect) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Regions = append(f.Regions, r)
	f.region = &r
	return nil
}

// ClearRegion resets the active region.
func (f *FakeOCR) ClearRegion() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.region = nil
}

// Recognize returns the configured text.
func (f *FakeOCR) Recognize() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RecognizeErr != nil {
		return "", f.RecognizeErr
	}
	f.Recognized++
	if f.TextFor != nil {
		return f.TextFor(f.region), nil
	}
	return f.Text, nil
}

// LoadedLanguages returns the language of the last successful Init.
func (f *FakeOCR) LoadedLanguages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.languages)
}

// AvailableLanguages returns Available.
func (f *FakeOCR) AvailableLanguages() ([]string, error) {
	return slices.Clone(f.Available), nil
}

// Close is a no-op.
func (f *FakeOCR) Close() error { return nil }
