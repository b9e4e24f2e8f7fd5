//go:build !tesseract

package ocr

import (
	"sync"

	"github.com/MeKo-Tech/eastocr/internal/utils"
)

// Tesseract stands in for the gosseract backend in builds without the
// tesseract tag. Init always fails with ErrEngineUnavailable.
type Tesseract struct {
	dataDir string
	frame   frame
	mu      sync.Mutex
}

// NewTesseract returns an engine that cannot be initialised.
func NewTesseract(TesseractOptions) Engine {
	return &Tesseract{}
}

// Init records dataDir for language listing and fails.
func (t *Tesseract) Init(dataDir, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dataDir = dataDir
	return ErrEngineUnavailable
}

func (t *Tesseract) SetImage(pix []byte, width, height, channels, stride int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame.set(pix, width, height, channels, stride)
}

func (t *Tesseract) SetRegion(r utils.Rect) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame.setRegion(r)
}

func (t *Tesseract) ClearRegion() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frame.region = nil
}

func (t *Tesseract) Recognize() (string, error) { return "", ErrNotInitialized }

func (t *Tesseract) LoadedLanguages() []string { return nil }

// AvailableLanguages lists the traineddata files even without a backend.
func (t *Tesseract) AvailableLanguages() ([]string, error) {
	t.mu.Lock()
	dir := t.dataDir
	t.mu.Unlock()
	if dir == "" {
		return nil, ErrEngineUnavailable
	}
	return ListTrainedData(dir)
}

func (t *Tesseract) Close() error { return nil }
