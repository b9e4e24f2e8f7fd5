// Package benchmark times pipeline stages over repeated runs.
package benchmark

import (
	"context"
	"fmt"
	"image"
	"io"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/MeKo-Tech/eastocr/internal/common"
	"github.com/MeKo-Tech/eastocr/internal/pipeline"
)

// Result holds the outcome of one benchmark.
type Result struct {
	Name         string             `json:"name"`
	Iterations   int                `json:"iterations"`
	Total        time.Duration      `json:"total_ns"`
	Min          time.Duration      `json:"min_ns"`
	Max          time.Duration      `json:"max_ns"`
	Mean         time.Duration      `json:"mean_ns"`
	P95          time.Duration      `json:"p95_ns"`
	MemoryBefore common.MemoryStats `json:"memory_before"`
	MemoryAfter  common.MemoryStats `json:"memory_after"`
	Error        error              `json:"-"`
}

func (r Result) String() string {
	if r.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", r.Name, r.Error)
	}
	memDiff := int64(r.MemoryAfter.AllocBytes) - int64(r.MemoryBefore.AllocBytes) //nolint:gosec // display only
	return fmt.Sprintf("%s: %d iterations, mean: %v, min: %v, p95: %v, max: %v, mem: %+d KB",
		r.Name, r.Iterations, r.Mean, r.Min, r.P95, r.Max, memDiff/1024)
}

// Benchmark is a named function run once per iteration.
type Benchmark struct {
	Name string
	Func func() error
}

// Suite runs benchmarks in the order they were added.
type Suite struct {
	benchmarks []Benchmark
	results    []Result
	mu         sync.Mutex
}

// NewSuite returns an empty suite.
func NewSuite() *Suite {
	return &Suite{}
}

// Add appends a benchmark.
func (s *Suite) Add(name string, fn func() error) {
	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Func: fn})
}

// Names returns the benchmark names in run order.
func (s *Suite) Names() []string {
	names := make([]string, len(s.benchmarks))
	for i, b := range s.benchmarks {
		names[i] = b.Name
	}
	return names
}

// Run runs the named benchmark.
func (s *Suite) Run(name string, iterations int) Result {
	i := slices.IndexFunc(s.benchmarks, func(b Benchmark) bool { return b.Name == name })
	if i < 0 {
		return Result{Name: name, Error: fmt.Errorf("benchmark '%s' not found", name)}
	}
	return run(s.benchmarks[i], iterations)
}

// RunAll runs every benchmark and keeps the results.
func (s *Suite) RunAll(iterations int) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = make([]Result, 0, len(s.benchmarks))
	for _, b := range s.benchmarks {
		s.results = append(s.results, run(b, iterations))
	}
	return s.results
}

// Results returns the results of the last RunAll.
func (s *Suite) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// PrintResults writes one line per result.
func (s *Suite) PrintResults(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Benchmark Results:")
	_, _ = fmt.Fprintln(w, "==================")
	for _, r := range s.Results() {
		_, _ = fmt.Fprintln(w, r.String())
	}
}

// run stops at the first failing iteration; the statistics cover the
// iterations that succeeded.
func run(b Benchmark, iterations int) Result {
	iterations = max(iterations, 1)
	runtime.GC()
	res := Result{Name: b.Name, MemoryBefore: common.GetMemoryStats()}

	samples := make([]time.Duration, 0, iterations)
	total := common.NewNamedTimer(b.Name)
	for range iterations {
		t := common.NewTimer()
		if err := b.Func(); err != nil {
			res.Error = err
			break
		}
		samples = append(samples, t.Stop())
	}
	res.Total = total.Stop()
	res.MemoryAfter = common.GetMemoryStats()
	res.Iterations = len(samples)
	summarize(&res, samples)
	return res
}

func summarize(res *Result, samples []time.Duration) {
	if len(samples) == 0 {
		return
	}
	slices.Sort(samples)
	var sum time.Duration
	for _, d := range samples {
		sum += d
	}
	res.Min = samples[0]
	res.Max = samples[len(samples)-1]
	res.Mean = sum / time.Duration(len(samples))
	res.P95 = samples[(len(samples)*95+99)/100-1]
}

// Stage names used by PipelineSuite.
const (
	StageDetect  = "detect"
	StageWhole   = "ocr-whole"
	StageRegions = "ocr-regions"
)

// PipelineSuite builds a suite over one image: detection alone, then
// optionally whole-image OCR and region OCR.
func PipelineSuite(ctx context.Context, p *pipeline.Pipeline, img image.Image, ocrStages bool) (*Suite, error) {
	// Warm up so the model load is not timed.
	if _, err := p.Detect(ctx, img); err != nil {
		return nil, fmt.Errorf("warm-up detection failed: %w", err)
	}

	s := NewSuite()
	s.Add(StageDetect, func() error {
		_, err := p.Detect(ctx, img)
		return err
	})
	if ocrStages {
		s.Add(StageWhole, func() error {
			_, err := p.Process(ctx, img, false)
			return err
		})
		s.Add(StageRegions, func() error {
			_, err := p.Process(ctx, img, true)
			return err
		})
	}
	return s, nil
}
