package cmd

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/eastocr/internal/config"
	"github.com/MeKo-Tech/eastocr/internal/pipeline"
	"github.com/MeKo-Tech/eastocr/internal/testutil"
	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cellA = testutil.EASTCell{X: 20, Y: 10, Score: 0.9, Top: 10, Right: 8, Bottom: 10, Left: 8}
	cellB = testutil.EASTCell{X: 50, Y: 50, Score: 0.8, Top: 10, Right: 8, Bottom: 10, Left: 8}
)

// useFakeEngines makes commands build pipelines around fake engines.
func useFakeEngines(t *testing.T, cells ...testutil.EASTCell) (*testutil.FakeDetector, *testutil.FakeOCR) {
	t.Helper()
	scores, geometry := testutil.EASTTensors(80, 80, cells...)
	det := &testutil.FakeDetector{Scores: scores, Geometry: geometry}
	eng := &testutil.FakeOCR{
		Available: []string{"deu", "eng"},
		TextFor: func(r *utils.Rect) string {
			if r == nil {
				return "whole"
			}
			return fmt.Sprintf("[%d,%d]", r.X, r.Y)
		},
	}

	orig := newPipeline
	t.Cleanup(func() { newPipeline = orig })
	newPipeline = func(cfg pipeline.Config) (*pipeline.Pipeline, error) {
		return pipeline.NewBuilder().WithConfig(cfg).WithDetectorEngine(det).WithOCREngine(eng).Build()
	}
	return det, eng
}

func writeTestImage(t *testing.T, dir string) string {
	t.Helper()
	return testutil.WritePNG(t, dir, "input.png", testutil.SolidImage(320, 320, color.White))
}

func TestOCRCommand_WholeImage(t *testing.T) {
	dir := isolate(t)
	det, _ := useFakeEngines(t, cellA)

	out, err := execute(t, "ocr", writeTestImage(t, dir))
	require.NoError(t, err)
	assert.Equal(t, "whole\n", out)
	assert.Zero(t, det.Loads)
}

func TestOCRCommand_Regions(t *testing.T) {
	dir := isolate(t)
	det, eng := useFakeEngines(t, cellA, cellB)

	out, err := execute(t, "ocr", writeTestImage(t, dir), "--detect")
	require.NoError(t, err)
	assert.Equal(t, "[72,30][192,190]\n", out)
	assert.Equal(t, 1, det.Loads)
	assert.Len(t, eng.Regions, 2)
	assert.Equal(t, []string{"eng"}, eng.Inits)
}

func TestOCRCommand_OutputFiles(t *testing.T) {
	dir := isolate(t)
	useFakeEngines(t, cellA, cellB)
	txt := filepath.Join(dir, "result.txt")
	overlay := filepath.Join(dir, "overlay.png")

	out, err := execute(t, "ocr", writeTestImage(t, dir), "--detect", "--output", txt, "--overlay", overlay)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(txt)
	require.NoError(t, err)
	assert.Equal(t, "[72,30][192,190]\n", string(data))

	img, meta, err := utils.LoadImage(overlay)
	require.NoError(t, err)
	assert.Equal(t, 320, meta.Width)
	r, g, b, _ := img.At(72, 40).RGBA()
	assert.Equal(t, [3]uint32{0, 0xffff, 0}, [3]uint32{r, g, b})
}

func TestOCRCommand_RejectsNonTextOutput(t *testing.T) {
	dir := isolate(t)
	_, eng := useFakeEngines(t, cellA)

	_, err := execute(t, "ocr", writeTestImage(t, dir), "--output", filepath.Join(dir, "result.md"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad format or filename")
	assert.Empty(t, eng.Inits)
}

func TestOCRCommand_JSON(t *testing.T) {
	dir := isolate(t)
	useFakeEngines(t, cellA, cellB)

	out, err := execute(t, "ocr", writeTestImage(t, dir), "--detect", "--format", "json")
	require.NoError(t, err)

	var res pipeline.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Detected)
	assert.Equal(t, "[72,30][192,190]", res.Text)
	require.Len(t, res.Regions, 2)
	assert.Equal(t, utils.Rect{X: 192, Y: 190, Width: 17, Height: 21}, res.Regions[1].Rect)
	assert.Equal(t, 2, res.Survivors)
}

func TestOCRCommand_Language(t *testing.T) {
	dir := isolate(t)
	_, eng := useFakeEngines(t)

	_, err := execute(t, "ocr", writeTestImage(t, dir), "--lang", "deu")
	require.NoError(t, err)
	assert.Equal(t, []string{"deu"}, eng.Inits)
}

func TestOCRCommand_ConfigFileAndEnv(t *testing.T) {
	dir := isolate(t)
	_, eng := useFakeEngines(t)
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("ocr:\n  language: deu\n"), 0o600))

	_, err := execute(t, "ocr", writeTestImage(t, dir), "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"deu"}, eng.Inits)

	t.Setenv("EASTOCR_OCR_LANGUAGE", "fra")
	_, eng = useFakeEngines(t)
	_, err = execute(t, "ocr", writeTestImage(t, dir))
	require.NoError(t, err)
	assert.Equal(t, []string{"fra"}, eng.Inits)
}

func TestOCRCommand_Errors(t *testing.T) {
	dir := isolate(t)

	t.Run("missing argument", func(t *testing.T) {
		_, err := execute(t, "ocr")
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		useFakeEngines(t)
		_, err := execute(t, "ocr", filepath.Join(dir, "nope.png"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load image")
	})

	t.Run("bad threshold", func(t *testing.T) {
		useFakeEngines(t)
		_, err := execute(t, "ocr", writeTestImage(t, dir), "--score-threshold", "1.5")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "detector.score_threshold")
	})

	t.Run("ocr unavailable", func(t *testing.T) {
		_, eng := useFakeEngines(t)
		eng.InitErr = assert.AnError
		_, err := execute(t, "ocr", writeTestImage(t, dir))
		require.ErrorIs(t, err, pipeline.ErrOCRUnavailable)
	})
}

func TestDetectCommand(t *testing.T) {
	dir := isolate(t)
	_, eng := useFakeEngines(t, cellA, cellB)
	overlay := filepath.Join(dir, "boxes.png")

	out, err := execute(t, "detect", writeTestImage(t, dir), "--overlay", overlay)
	require.NoError(t, err)
	assert.Equal(t, "0 72 30 17 21 0.9000\n1 192 190 17 21 0.8000\n", out)
	assert.FileExists(t, overlay)
	assert.Empty(t, eng.Inits)

	out, err = execute(t, "detect", writeTestImage(t, dir), "--format", "json")
	require.NoError(t, err)
	var res struct {
		Width   int               `json:"width"`
		Regions []json.RawMessage `json:"regions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 320, res.Width)
	assert.Len(t, res.Regions, 2)
}

func TestLanguagesCommand(t *testing.T) {
	isolate(t)
	_, eng := useFakeEngines(t)

	out, err := execute(t, "languages")
	require.NoError(t, err)
	assert.Contains(t, out, "Available:\n   deu\n * eng\n")
	assert.NotContains(t, out, "Loaded:")
	assert.Empty(t, eng.Inits)

	out, err = execute(t, "languages", "--init", "--lang", "deu")
	require.NoError(t, err)
	assert.Contains(t, out, " * deu\n")
	assert.Contains(t, out, "Loaded: deu")
}

func TestConfigCommands(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "language: eng")
	assert.Contains(t, out, "score_threshold: 0.5")

	t.Setenv("EASTOCR_OCR_LANGUAGE", "deu")
	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "language: deu")

	target := filepath.Join(dir, "generated.yaml")
	out, err = execute(t, "config", "init", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+target)
	assert.FileExists(t, target)

	_, err = execute(t, "config", "init", target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", target, "--force")
	require.NoError(t, err)
}

func TestCheckCommand_MissingFiles(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "check", "--models-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EAST model")
	assert.Contains(t, out, "❌ EAST model")
	assert.Contains(t, out, "❌ Tessdata")
}

func TestCheckTextOutput(t *testing.T) {
	tests := []struct {
		format, file string
		ok           bool
	}{
		{"text", "", true},
		{"text", "out.txt", true},
		{"text", "out.TXT", true},
		{"json", "out.json", true},
		{"text", "out.json", false},
		{"text", "out", false},
	}
	for _, tt := range tests {
		err := checkTextOutput(config.OutputConfig{Format: tt.format, File: tt.file})
		if tt.ok {
			assert.NoError(t, err, tt.file)
		} else {
			assert.Error(t, err, tt.file)
		}
	}
}

func TestFormatResult(t *testing.T) {
	res := &pipeline.Result{Width: 10, Height: 10, Text: "ab"}

	s, err := formatResult(res, outputFormatText)
	require.NoError(t, err)
	assert.Equal(t, "ab\n", s)

	s, err = formatResult(res, outputFormatJSON)
	require.NoError(t, err)
	assert.Contains(t, s, `"regions": []`)
	assert.True(t, strings.HasSuffix(s, "}\n"))
}
