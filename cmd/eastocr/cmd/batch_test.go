package cmd

import (
	"encoding/csv"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/eastocr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCommand(t *testing.T) {
	dir := isolate(t)
	useFakeEngines(t, cellA, cellB)
	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(in, 0o750))
	a := testutil.WritePNG(t, in, "a.png", testutil.SolidImage(320, 320, color.White))
	b := testutil.WritePNG(t, in, "b.png", testutil.SolidImage(320, 320, color.White))

	out, err := execute(t, "batch", in, "--detect")
	require.NoError(t, err)
	assert.Equal(t, "# "+a+"\n[72,30][192,190]\n\n# "+b+"\n[72,30][192,190]\n", out)

	out, err = execute(t, "batch", in, "--detect", "--format", "csv", "--exclude", "b.*",
		"--overlay-dir", filepath.Join(dir, "ov"))
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{a, "1", "192", "190", "17", "21", "0.8000", "[192,190]", ""}, rows[2])
	assert.FileExists(t, filepath.Join(dir, "ov", "a_overlay.png"))
}

func TestBatchCommand_Errors(t *testing.T) {
	dir := isolate(t)
	useFakeEngines(t)

	_, err := execute(t, "batch")
	require.Error(t, err)

	_, err = execute(t, "batch", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image files found")

	_, err = execute(t, "batch", dir, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestBenchmarkCommand(t *testing.T) {
	dir := isolate(t)
	det, eng := useFakeEngines(t, cellA)
	img := writeTestImage(t, dir)

	out, err := execute(t, "benchmark", img, "-n", "3", "--ocr")
	require.NoError(t, err)
	assert.Contains(t, out, "detect: 3 iterations")
	assert.Contains(t, out, "ocr-whole: 3 iterations")
	assert.Contains(t, out, "ocr-regions: 3 iterations")
	assert.Equal(t, 1, det.Loads)
	assert.Equal(t, 6, eng.Recognized)

	out, err = execute(t, "benchmark", img, "-n", "2", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "detect"`)
	assert.Contains(t, out, `"iterations": 2`)
}
