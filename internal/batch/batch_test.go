package batch

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/eastocr/internal/pipeline"
	"github.com/MeKo-Tech/eastocr/internal/testutil"
	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) (*pipeline.Pipeline, *testutil.FakeOCR) {
	t.Helper()
	scores, geometry := testutil.EASTTensors(80, 80,
		testutil.EASTCell{X: 20, Y: 10, Score: 0.9, Top: 10, Right: 8, Bottom: 10, Left: 8})
	eng := &testutil.FakeOCR{
		TextFor: func(r *utils.Rect) string {
			if r == nil {
				return "whole"
			}
			return fmt.Sprintf("[%d,%d]", r.X, r.Y)
		},
	}
	p, err := pipeline.NewBuilder().
		WithDetectorEngine(&testutil.FakeDetector{Scores: scores, Geometry: geometry}).
		WithOCREngine(eng).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, eng
}

func writeImages(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = testutil.WritePNG(t, dir, n, testutil.SolidImage(320, 320, color.White))
	}
	return paths
}

func TestProcess_WholeImages(t *testing.T) {
	dir := t.TempDir()
	paths := writeImages(t, dir, "a.png", "b.png")
	p, eng := newTestPipeline(t)

	res, err := Process(context.Background(), p, []string{dir}, Config{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.ElementsMatch(t, paths, []string{res.Items[0].File, res.Items[1].File})
	for _, it := range res.Items {
		assert.Empty(t, it.Error)
		assert.Equal(t, "whole", it.Result.Text)
		assert.False(t, it.Result.Detected)
	}
	assert.Zero(t, res.Failed())
	assert.Equal(t, 2, eng.Images)
}

func TestProcess_RegionsWithOverlays(t *testing.T) {
	dir := t.TempDir()
	paths := writeImages(t, dir, "page.png")
	overlays := filepath.Join(dir, "overlays")
	p, _ := newTestPipeline(t)

	res, err := Process(context.Background(), p, paths, Config{Detect: true, OverlayDir: overlays})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "[72,30]", res.Items[0].Result.Text)
	assert.FileExists(t, filepath.Join(overlays, "page_overlay.png"))
}

func TestProcess_Failures(t *testing.T) {
	dir := t.TempDir()
	good := writeImages(t, dir, "good.png")[0]
	bad := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte("not a png"), 0o600))
	p, _ := newTestPipeline(t)

	res, err := Process(context.Background(), p, []string{bad, good}, Config{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, 1, res.Failed())
	assert.Contains(t, res.Items[0].Error, "failed to load")
	assert.Nil(t, res.Items[0].Result)
	assert.Equal(t, "whole", res.Items[1].Result.Text)

	_, err = Process(context.Background(), p, []string{bad, good}, Config{FailFast: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
}

func TestProcess_NoImages(t *testing.T) {
	p, _ := newTestPipeline(t)
	_, err := Process(context.Background(), p, []string{t.TempDir()}, Config{})
	require.ErrorIs(t, err, ErrNoImages)
}

func TestProcess_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a.png")
	p, eng := newTestPipeline(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Process(ctx, p, []string{dir}, Config{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, eng.Images)
}

func TestOverlayPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "scan_overlay.png"), overlayPath("out", "/in/scan.jpeg"))
}
