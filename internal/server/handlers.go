package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/eastocr/internal/common"
	"github.com/MeKo-Tech/eastocr/internal/ocr"
	"github.com/MeKo-Tech/eastocr/internal/pipeline"
	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/MeKo-Tech/eastocr/internal/version"
)

const formatText = "text"

var errUnknownLanguage = errors.New("unknown language")

// ocrRequest holds the per-request options of /ocr and /ws/ocr.
type ocrRequest struct {
	Detect   bool
	Language string
	Overlay  bool
	Format   string
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Info().Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Memory:  common.GetMemoryStats(),
	}
	if s.pipeline != nil {
		response.Pipeline = s.pipeline.Info()
	}
	writeJSON(w, http.StatusOK, response)
}

// languagesHandler lists the OCR languages with data files and those loaded.
func (s *Server) languagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.pipeline == nil {
		s.writeErrorResponse(w, "OCR pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	available, loaded, err := s.pipeline.Languages()
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Failed to list languages: %v", err), http.StatusInternalServerError)
		return
	}
	if available == nil {
		available = []string{}
	}
	if loaded == nil {
		loaded = []string{}
	}
	writeJSON(w, http.StatusOK, LanguagesResponse{
		Current:   s.pipeline.Language(),
		Available: available,
		Loaded:    loaded,
	})
}

// ocrHandler processes image OCR requests.
func (s *Server) ocrHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, req, err := s.parseImageRequest(w, r)
	if err != nil {
		ocrRequestsTotal.WithLabelValues("http", "error").Inc()
		return // error already written
	}
	if s.pipeline == nil {
		s.writeErrorResponse(w, "OCR pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := s.requestContext(r.Context())
	defer cancel()

	start := time.Now()
	res, err := s.withLanguage(req.Language, func() (*pipeline.Result, error) {
		return s.pipeline.Process(ctx, img, req.Detect)
	})
	if err != nil {
		ocrRequestsTotal.WithLabelValues("http", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("OCR processing failed: %v", err), statusForError(err))
		return
	}
	observeResult("http", res, time.Since(start))

	if req.Format == formatText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, res.Text)
		return
	}

	response := OCRResponse{Success: true, Result: res}
	if req.Overlay && res.Overlay != nil {
		data, err := utils.EncodePNG(res.Overlay)
		if err != nil {
			s.writeErrorResponse(w, fmt.Sprintf("Overlay encoding failed: %v", err), http.StatusInternalServerError)
			return
		}
		response.Overlay = base64.StdEncoding.EncodeToString(data)
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) parseImageRequest(w http.ResponseWriter, r *http.Request) (image.Image, ocrRequest, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return nil, ocrRequest{}, err
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, ocrRequest{}, err
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, ocrRequest{}, errors.New("file too large")
	}
	uploadSizeBytes.Observe(float64(header.Size))

	img, meta, err := utils.DecodeImage(file)
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return nil, ocrRequest{}, err
	}
	meta.Path = header.Filename
	meta.SizeBytes = header.Size
	slog.Debug("Received image", "image", meta, "client", getClientIP(r))

	req := ocrRequest{
		Detect:   formBool(r, "detect", true),
		Language: strings.TrimSpace(r.FormValue("lang")),
		Overlay:  formBool(r, "overlay", false),
		Format:   r.FormValue("format"),
	}
	return img, req, nil
}

// requestContext bounds a request by the configured timeout.
func (s *Server) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeoutSec <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, time.Duration(s.timeoutSec)*time.Second)
}

// withLanguage switches the pipeline language when lang is set and runs fn.
// A successful switch stays in effect for later requests; a failed one
// restores the previous language.
func (s *Server) withLanguage(lang string, fn func() (*pipeline.Result, error)) (*pipeline.Result, error) {
	s.langMu.Lock()
	defer s.langMu.Unlock()
	if prev := s.pipeline.Language(); lang != "" && lang != prev {
		if err := s.checkLanguage(lang); err != nil {
			return nil, err
		}
		if err := s.pipeline.SetLanguage(lang); err != nil {
			if rerr := s.pipeline.SetLanguage(prev); rerr != nil {
				slog.Warn("Failed to restore OCR language", "language", prev, "error", rerr)
			}
			return nil, err
		}
	}
	return fn()
}

// checkLanguage rejects languages without data files. It passes when the
// available languages cannot be listed and leaves the decision to the engine.
func (s *Server) checkLanguage(lang string) error {
	available, _, err := s.pipeline.Languages()
	if err != nil || len(available) == 0 {
		return nil //nolint:nilerr // the engine reports missing data on init
	}
	for _, l := range ocr.ParseLanguages(lang) {
		if !slices.Contains(available, l) {
			return fmt.Errorf("%w: %q", errUnknownLanguage, l)
		}
	}
	return nil
}

// statusForError maps pipeline errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, errUnknownLanguage):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrOCRUnavailable), errors.Is(err, pipeline.ErrInferenceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func observeResult(endpoint string, res *pipeline.Result, d time.Duration) {
	mode := "whole"
	if res.Detected {
		mode = "regions"
	}
	ocrRequestsTotal.WithLabelValues(endpoint, "success").Inc()
	ocrProcessingDuration.WithLabelValues(endpoint, mode).Observe(d.Seconds())
	ocrTextLength.WithLabelValues(endpoint).Observe(float64(len(res.Text)))
	if res.Detected {
		ocrRegionsDetected.WithLabelValues(endpoint).Observe(float64(len(res.Regions)))
	}
}

func formBool(r *http.Request, key string, def bool) bool {
	v := r.FormValue(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, OCRResponse{Success: false, Error: message})
}
