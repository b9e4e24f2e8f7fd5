//go:build tesseract

package ocr

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/otiai10/gosseract/v2"
)

// Tesseract is an Engine backed by libtesseract through gosseract.
type Tesseract struct {
	opts    TesseractOptions
	client  *gosseract.Client
	dataDir string
	langs   []string
	frame   frame
	mu      sync.Mutex
}

// NewTesseract creates an uninitialised Tesseract engine.
func NewTesseract(opts TesseractOptions) Engine {
	return &Tesseract{opts: opts}
}

// Init (re)creates the client for dataDir and language ("eng+deu" selects
// several languages). libtesseract is initialised before Init returns, so a
// language that cannot be loaded fails here rather than in Recognize.
func (t *Tesseract) Init(dataDir, language string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	langs := ParseLanguages(language)
	if len(langs) == 0 {
		return errors.New("no language given")
	}
	t.closeClient()

	if dataDir != "" {
		for _, l := range langs {
			if _, err := os.Stat(filepath.Join(dataDir, l+trainedDataExt)); err != nil {
				return fmt.Errorf("language %q: %w", l, err)
			}
		}
	}

	client := gosseract.NewClient()
	// Region texts are concatenated as returned, line terminators included.
	client.Trim = false
	if dataDir != "" {
		if err := client.SetTessdataPrefix(dataDir); err != nil {
			_ = client.Close()
			return fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(langs...); err != nil {
		_ = client.Close()
		return fmt.Errorf("set language %q: %w", language, err)
	}
	if t.opts.PageSegMode > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(t.opts.PageSegMode)); err != nil {
			_ = client.Close()
			return fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if t.opts.Whitelist != "" {
		if err := client.SetWhitelist(t.opts.Whitelist); err != nil {
			_ = client.Close()
			return fmt.Errorf("set whitelist: %w", err)
		}
	}

	if err := warmUp(client); err != nil {
		_ = client.Close()
		return fmt.Errorf("load language %q: %w", language, err)
	}

	slog.Debug("Tesseract initialized", "tessdata", dataDir, "languages", langs)
	t.client = client
	t.dataDir = dataDir
	t.langs = langs
	return nil
}

// SetImage installs the pixel buffer and clears the region.
func (t *Tesseract) SetImage(pix []byte, width, height, channels, stride int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame.set(pix, width, height, channels, stride)
}

// SetRegion limits recognition to r, clipped to the image.
func (t *Tesseract) SetRegion(r utils.Rect) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame.setRegion(r)
}

// ClearRegion makes Recognize use the whole image again.
func (t *Tesseract) ClearRegion() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frame.region = nil
}

// Recognize runs Tesseract on the active region.
func (t *Tesseract) Recognize() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return "", ErrNotInitialized
	}
	img, err := t.frame.current()
	if err != nil {
		return "", err
	}
	data, err := utils.EncodePNG(img)
	if err != nil {
		return "", err
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		if isInitError(err) {
			t.closeClient()
			return "", fmt.Errorf("%w: %w", ErrNotInitialized, err)
		}
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}

// warmUp runs recognition once on a blank pixel. gosseract defers the
// TessBaseAPI init until the first Text call.
func warmUp(client *gosseract.Client) error {
	data, err := utils.EncodePNG(image.NewGray(image.Rect(0, 0, 1, 1)))
	if err != nil {
		return err
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return err
	}
	_, err = client.Text()
	return err
}

func isInitError(err error) bool {
	return strings.HasPrefix(err.Error(), "failed to initialize TessBaseAPI")
}

// LoadedLanguages returns the languages of the last successful Init.
func (t *Tesseract) LoadedLanguages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.langs)
}

// AvailableLanguages lists the traineddata files in the data directory.
func (t *Tesseract) AvailableLanguages() ([]string, error) {
	t.mu.Lock()
	dir := t.dataDir
	t.mu.Unlock()
	if dir == "" {
		return nil, fmt.Errorf("%w: tessdata directory unknown", ErrNotInitialized)
	}
	return ListTrainedData(dir)
}

// Close releases the client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeClient()
}

func (t *Tesseract) closeClient() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	t.langs = nil
	return err
}
