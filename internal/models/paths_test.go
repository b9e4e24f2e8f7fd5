package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelsDir(t *testing.T) {
	t.Run("explicit wins", func(t *testing.T) {
		t.Setenv(EnvModelsDir, "/from/env")
		assert.Equal(t, "/explicit", GetModelsDir("/explicit"))
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(EnvModelsDir, "/from/env")
		assert.Equal(t, "/from/env", GetModelsDir(""))
	})

	t.Run("project root default", func(t *testing.T) {
		t.Setenv(EnvModelsDir, "")
		root, err := findProjectRoot()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, DefaultModelsDir), GetModelsDir(""))
	})
}

func TestGetDetectionModelPath(t *testing.T) {
	dir := t.TempDir()

	// flat layout when the organized file is missing
	assert.Equal(t, filepath.Join(dir, DetectionEAST), GetDetectionModelPath(dir))

	organized := filepath.Join(dir, TypeDetection, DetectionEAST)
	require.NoError(t, os.MkdirAll(filepath.Dir(organized), 0o750))
	require.NoError(t, os.WriteFile(organized, []byte("onnx"), 0o600))
	assert.Equal(t, organized, GetDetectionModelPath(dir))
}

func TestGetTessdataDir(t *testing.T) {
	t.Setenv(EnvTessdataDir, "")
	assert.Equal(t, "/td", GetTessdataDir("/td", "/models"))
	assert.Equal(t, filepath.Join("/models", TypeTessdata), GetTessdataDir("", "/models"))

	t.Setenv(EnvTessdataDir, "/usr/share/tessdata")
	assert.Equal(t, "/usr/share/tessdata", GetTessdataDir("", "/models"))
}

func TestTrainedDataPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/td", "deu.traineddata"), TrainedDataPath("/td", "deu"))
	assert.Equal(t, filepath.Join("/td", "eng.traineddata"), TrainedDataPath("/td", ""))
}

func TestValidateModelExists(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope.onnx")
	require.ErrorContains(t, ValidateModelExists(missing), "model file not found")

	present := filepath.Join(dir, "east.onnx")
	require.NoError(t, os.WriteFile(present, nil, 0o600))
	require.NoError(t, ValidateModelExists(present))
}
