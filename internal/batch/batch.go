// Package batch runs the OCR pipeline over many image files.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/eastocr/internal/pipeline"
)

// ErrNoImages is returned when discovery finds nothing to process.
var ErrNoImages = errors.New("no image files found")

// Processor is the part of the pipeline a batch run needs.
type Processor interface {
	Process(ctx context.Context, img image.Image, detect bool) (*pipeline.Result, error)
}

// Config holds the batch settings.
type Config struct {
	Detect bool

	// File discovery
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// OverlayDir receives <name>_overlay.png per image in region mode.
	OverlayDir string
	// FailFast stops at the first image that fails.
	FailFast bool
}

// Item is the outcome for one file.
type Item struct {
	File   string           `json:"file"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Result holds the outcome of a batch run.
type Result struct {
	Items    []Item        `json:"images"`
	Duration time.Duration `json:"-"`
}

// Failed returns the number of items that failed.
func (r *Result) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Error != "" {
			n++
		}
	}
	return n
}

// Process discovers images under paths and runs p on each of them in order.
// Per-image failures are recorded in the item unless cfg.FailFast is set.
func Process(ctx context.Context, p Processor, paths []string, cfg Config) (*Result, error) {
	files, err := discoverImageFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	start := time.Now()
	res := &Result{Items: make([]Item, 0, len(files))}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog.Debug("Processing image", "file", file, "index", i+1, "total", len(files))

		out, err := processSingleImage(ctx, p, file, cfg)
		if err != nil {
			if cfg.FailFast {
				return nil, err
			}
			slog.Warn("Image failed", "file", file, "error", err)
			res.Items = append(res.Items, Item{File: file, Error: err.Error()})
			continue
		}
		res.Items = append(res.Items, Item{File: file, Result: out})
	}
	res.Duration = time.Since(start)
	return res, nil
}
