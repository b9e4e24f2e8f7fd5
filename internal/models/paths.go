package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model and data file names.
const (
	// DetectionEAST is the EAST text detector exported to ONNX.
	DetectionEAST = "frozen_east_text_detection.onnx"
)

// Directory layout below the models directory.
const (
	TypeDetection = "detection"
	TypeTessdata  = "tessdata"
)

// DefaultModelsDir is used when nothing else is configured.
const DefaultModelsDir = "models"

// Environment variable overrides.
const (
	EnvModelsDir    = "EASTOCR_MODELS_DIR"
	EnvTessdataDir  = "TESSDATA_PREFIX"
	tessdataSuffix  = ".traineddata"
	defaultLanguage = "eng"
)

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New("could not find project root (go.mod not found)")
}

// GetModelsDir returns the models directory.
// Priority: 1. explicit modelsDir, 2. environment variable, 3. project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}
	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// ResolveModelPath prefers modelsDir/<modelType>/<filename> and falls back to
// the flat modelsDir/<filename> layout.
func ResolveModelPath(modelsDir, modelType, filename string) string {
	baseDir := GetModelsDir(modelsDir)
	if modelType != "" {
		organized := filepath.Join(baseDir, modelType, filename)
		if _, err := os.Stat(organized); err == nil {
			return organized
		}
	}
	return filepath.Join(baseDir, filename)
}

// GetDetectionModelPath returns the path of the EAST detection model.
func GetDetectionModelPath(modelsDir string) string {
	return ResolveModelPath(modelsDir, TypeDetection, DetectionEAST)
}

// GetTessdataDir returns the Tesseract language data directory.
// Priority: 1. explicit dir, 2. TESSDATA_PREFIX, 3. <modelsDir>/tessdata.
func GetTessdataDir(dir, modelsDir string) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv(EnvTessdataDir); env != "" {
		return env
	}
	return filepath.Join(GetModelsDir(modelsDir), TypeTessdata)
}

// TrainedDataPath returns the data file for a Tesseract language code.
func TrainedDataPath(tessdataDir, lang string) string {
	if lang == "" {
		lang = defaultLanguage
	}
	return filepath.Join(tessdataDir, lang+tessdataSuffix)
}

// ValidateModelExists checks if a model file exists at the given path.
func ValidateModelExists(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}
	return nil
}
