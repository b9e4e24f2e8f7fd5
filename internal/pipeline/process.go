package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"

	"github.com/MeKo-Tech/eastocr/internal/common"
	"github.com/MeKo-Tech/eastocr/internal/detector"
	"github.com/MeKo-Tech/eastocr/internal/mempool"
	"github.com/MeKo-Tech/eastocr/internal/ocr"
)

var (
	// ErrInferenceUnavailable is returned when the detection model cannot be
	// loaded or run.
	ErrInferenceUnavailable = errors.New("inference engine unavailable")
	// ErrOCRUnavailable is returned when the OCR engine is not initialised for
	// the selected language.
	ErrOCRUnavailable = errors.New("ocr engine unavailable")
)

// RegionCallback receives each region after its text has been recognised.
type RegionCallback func(RegionText)

// Pipeline wires the detector and the OCR engine. Both engines are
// non-reentrant; the pipeline serialises access with one mutex per engine.
// Lock order is ocrMu before inferMu.
type Pipeline struct {
	cfg      Config
	detector detector.Engine
	ocr      ocr.Engine

	inferMu sync.Mutex
	loaded  bool

	ocrMu    sync.Mutex
	language string
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Language returns the currently selected OCR language.
func (p *Pipeline) Language() string {
	p.ocrMu.Lock()
	defer p.ocrMu.Unlock()
	return p.language
}

// Process recognises text in img. With detectRegions the EAST detector
// selects regions first and each region is recognised on its own; otherwise
// the whole image is recognised once. ctx is only checked before work starts.
func (p *Pipeline) Process(ctx context.Context, img image.Image, detectRegions bool) (*Result, error) {
	return p.process(ctx, img, detectRegions, nil)
}

// ProcessStream runs region mode and calls onRegion after each region.
func (p *Pipeline) ProcessStream(ctx context.Context, img image.Image, onRegion RegionCallback) (*Result, error) {
	return p.process(ctx, img, true, onRegion)
}

func (p *Pipeline) process(ctx context.Context, img image.Image, detectRegions bool, onRegion RegionCallback) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	total := common.NewNamedTimer("total")

	p.ocrMu.Lock()
	defer p.ocrMu.Unlock()
	if err := p.ensureLanguage(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	res := &Result{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Language: p.language,
		Detected: detectRegions,
	}

	if !detectRegions {
		rec := common.NewNamedTimer("recognition")
		text, err := p.recognizeWhole(img)
		if err != nil {
			return nil, err
		}
		res.Text = text
		res.Processing.RecognitionNs = rec.Stop().Nanoseconds()
		res.Processing.TotalNs = total.Stop().Nanoseconds()
		return res, nil
	}

	det := common.NewNamedTimer("detection")
	dr, err := p.detect(img)
	if err != nil {
		return nil, err
	}
	res.Processing.DetectionNs = det.Stop().Nanoseconds()
	res.Candidates, res.Survivors = dr.Candidates, dr.Survivors
	res.Overlay = detector.RenderRegions(img, dr.Regions, p.cfg.OverlayColor)

	rec := common.NewNamedTimer("recognition")
	if err := p.recognizeRegions(img, dr.Regions, res, onRegion); err != nil {
		return nil, err
	}
	res.Processing.RecognitionNs = rec.Stop().Nanoseconds()
	res.Processing.TotalNs = total.Stop().Nanoseconds()

	slog.Debug("OCR finished",
		"regions", len(res.Regions),
		"chars", len(res.Text),
		"detection", det.Duration(),
		"recognition", rec.Duration())
	return res, nil
}

// Detect runs only the detector.
func (p *Pipeline) Detect(ctx context.Context, img image.Image) (*detector.DetectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	return p.detect(img)
}

func (p *Pipeline) detect(img image.Image) (*detector.DetectionResult, error) {
	p.inferMu.Lock()
	defer p.inferMu.Unlock()
	if err := p.loadInference(); err != nil {
		return nil, err
	}
	dr, err := detector.Detect(p.detector, img, p.cfg.Detector, nil)
	if errors.Is(err, detector.ErrForward) {
		return nil, fmt.Errorf("%w: %w", ErrInferenceUnavailable, err)
	}
	return dr, err
}

// loadInference loads the detector once. inferMu must be held.
func (p *Pipeline) loadInference() error {
	if p.loaded {
		return nil
	}
	if err := p.detector.Load(); err != nil {
		return fmt.Errorf("%w: %w", ErrInferenceUnavailable, err)
	}
	p.loaded = true
	return nil
}

// InvalidateInference closes the detector; the next region request loads it
// again.
func (p *Pipeline) InvalidateInference() error {
	p.inferMu.Lock()
	defer p.inferMu.Unlock()
	if !p.loaded {
		return nil
	}
	p.loaded = false
	return p.detector.Close()
}

// ensureLanguage initialises the OCR engine for the selected language unless
// it is already loaded. ocrMu must be held.
func (p *Pipeline) ensureLanguage() error {
	if ocr.IsLoaded(p.ocr, p.language) {
		return nil
	}
	slog.Debug("Initializing OCR engine", "language", p.language, "tessdata", p.cfg.OCR.TessdataDir)
	if err := p.ocr.Init(p.cfg.OCR.TessdataDir, p.language); err != nil {
		return fmt.Errorf("%w: language %q: %w", ErrOCRUnavailable, p.language, err)
	}
	if !ocr.IsLoaded(p.ocr, p.language) {
		return fmt.Errorf("%w: language %q not loaded", ErrOCRUnavailable, p.language)
	}
	return nil
}

// SetLanguage selects the OCR language, re-initialising the engine only when
// lang is not loaded yet.
func (p *Pipeline) SetLanguage(lang string) error {
	if len(ocr.ParseLanguages(lang)) == 0 {
		return errors.New("language is empty")
	}
	p.ocrMu.Lock()
	defer p.ocrMu.Unlock()
	p.language = lang
	return p.ensureLanguage()
}

// Languages returns the languages with data files and those loaded in the
// engine.
func (p *Pipeline) Languages() (available, loaded []string, err error) {
	p.ocrMu.Lock()
	defer p.ocrMu.Unlock()
	available, err = p.ocr.AvailableLanguages()
	if err != nil {
		available, err = ocr.ListTrainedData(p.cfg.OCR.TessdataDir)
	}
	return available, p.ocr.LoadedLanguages(), err
}

func (p *Pipeline) postProcess(s string) string {
	return ocr.PostProcessText(s, p.cfg.OCR.Text)
}

// setImage hands img to the OCR engine. ocrMu must be held.
func (p *Pipeline) setImage(img image.Image) error {
	pix, w, h, ch, stride := ocr.RGBBuffer(img)
	defer mempool.PutBytes(pix)
	if err := p.ocr.SetImage(pix, w, h, ch, stride); err != nil {
		return fmt.Errorf("set ocr image: %w", err)
	}
	return nil
}

// recognizeWhole runs OCR over the whole image. ocrMu must be held.
func (p *Pipeline) recognizeWhole(img image.Image) (string, error) {
	if err := p.setImage(img); err != nil {
		return "", err
	}
	text, err := p.recognize()
	if err != nil {
		return "", err
	}
	return p.postProcess(text), nil
}

// recognize runs the engine on its active region. An engine that lost its
// language data reports ErrOCRUnavailable. ocrMu must be held.
func (p *Pipeline) recognize() (string, error) {
	text, err := p.ocr.Recognize()
	if errors.Is(err, ocr.ErrNotInitialized) {
		return "", fmt.Errorf("%w: language %q: %w", ErrOCRUnavailable, p.language, err)
	}
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}

// recognizeRegions runs OCR over each region in order. ocrMu must be held.
func (p *Pipeline) recognizeRegions(img image.Image, regions []detector.DetectedRegion, res *Result, onRegion RegionCallback) error {
	res.Regions = make([]RegionText, 0, len(regions))
	if len(regions) == 0 {
		return nil
	}
	if err := p.setImage(img); err != nil {
		return err
	}
	defer p.ocr.ClearRegion()

	var sb strings.Builder
	for _, r := range regions {
		if err := p.ocr.SetRegion(r.Rect); err != nil {
			return fmt.Errorf("set region %d: %w", r.Index, err)
		}
		text, err := p.recognize()
		if err != nil {
			return fmt.Errorf("region %d: %w", r.Index, err)
		}
		rt := RegionText{DetectedRegion: r, Text: p.postProcess(text)}
		sb.WriteString(rt.Text)
		res.Regions = append(res.Regions, rt)
		if onRegion != nil {
			onRegion(rt)
		}
	}
	res.Text = sb.String()
	return nil
}

// Info returns key pipeline properties.
func (p *Pipeline) Info() map[string]any {
	p.inferMu.Lock()
	loaded := p.loaded
	p.inferMu.Unlock()
	return map[string]any{
		"models_dir":      p.cfg.ModelsDir,
		"detector_model":  p.cfg.Detector.ModelPath,
		"detector_loaded": loaded,
		"input_size":      fmt.Sprintf("%dx%d", p.cfg.Detector.InputWidth, p.cfg.Detector.InputHeight),
		"score_threshold": p.cfg.Detector.ScoreThreshold,
		"nms_threshold":   p.cfg.Detector.NMSThreshold,
		"tessdata_dir":    p.cfg.OCR.TessdataDir,
		"language":        p.Language(),
		"gpu_enabled":     p.cfg.Detector.GPU.UseGPU,
	}
}

// Close releases both engines.
func (p *Pipeline) Close() error {
	p.ocrMu.Lock()
	defer p.ocrMu.Unlock()
	p.inferMu.Lock()
	defer p.inferMu.Unlock()
	p.loaded = false
	return errors.Join(p.detector.Close(), p.ocr.Close())
}
