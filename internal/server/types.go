package server

import (
	"context"
	"image"
	"net/http"
	"sync"

	"github.com/MeKo-Tech/eastocr/internal/common"
	"github.com/MeKo-Tech/eastocr/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ocrPipeline defines the methods needed by the server from a pipeline.
type ocrPipeline interface {
	Process(ctx context.Context, img image.Image, detectRegions bool) (*pipeline.Result, error)
	ProcessStream(ctx context.Context, img image.Image, onRegion pipeline.RegionCallback) (*pipeline.Result, error)
	SetLanguage(lang string) error
	Language() string
	Languages() (available, loaded []string, err error)
	Info() map[string]any
	Close() error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    ocrPipeline
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int

	// langMu keeps a language switch and the request that asked for it
	// together.
	langMu sync.Mutex
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status   string             `json:"status"`
	Version  string             `json:"version,omitempty"`
	Time     string             `json:"time"`
	Memory   common.MemoryStats `json:"memory"`
	Pipeline map[string]any     `json:"pipeline,omitempty"`
}

// LanguagesResponse is returned by /languages.
type LanguagesResponse struct {
	Current   string   `json:"current"`
	Available []string `json:"available"`
	Loaded    []string `json:"loaded"`
}

// OCRResponse is returned by /ocr.
type OCRResponse struct {
	Success bool             `json:"success"`
	Result  *pipeline.Result `json:"result,omitempty"`
	// Overlay is the base64 encoded PNG overlay, present when requested.
	Overlay string `json:"overlay,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewServerWithPipeline creates a server around an existing pipeline. The
// pipeline loads its engines on the first request that needs them.
func NewServerWithPipeline(config Config, pl *pipeline.Pipeline) *Server {
	if pl == nil {
		return newServer(config, nil)
	}
	return newServer(config, pl)
}

func newServer(config Config, pl ocrPipeline) *Server {
	s := &Server{
		pipeline:    pl,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 20
	}
	return s
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.pipeline != nil {
		return s.pipeline.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/languages", s.corsMiddleware(s.languagesHandler))
	mux.HandleFunc("/ocr", s.corsMiddleware(s.ocrHandler))
	mux.HandleFunc("/ws/ocr", s.ocrWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
