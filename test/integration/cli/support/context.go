package support

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastOutput    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	WorkingDir string
	TempDir    string
	EnvVars    []string

	// Files registered for ${name} substitution in commands
	Files map[string]string
}

// NewTestContext creates a scenario context. Commands run inside a fresh
// temporary directory with HOME pointing at it, so no user configuration
// leaks into a scenario.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "eastocr-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	ctx := &TestContext{
		WorkingDir: tempDir,
		TempDir:    tempDir,
		Files:      map[string]string{},
	}
	ctx.AddEnvVar("HOME", tempDir)
	ctx.AddEnvVar("XDG_CONFIG_HOME", "")
	ctx.AddEnvVar("TESSDATA_PREFIX", "")
	ctx.AddEnvVar("EASTOCR_MODELS_DIR", filepath.Join(tempDir, "models"))
	return ctx, nil
}

// Cleanup removes the scenario's temporary directory.
func (testCtx *TestContext) Cleanup() error {
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution. Later
// values win over earlier ones and over the inherited environment.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// TempPath returns path joined onto the scenario's temporary directory.
func (testCtx *TestContext) TempPath(path string) string {
	return filepath.Join(testCtx.TempDir, path)
}
