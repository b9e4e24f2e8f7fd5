package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

// LibraryEnvVar overrides shared library discovery.
const LibraryEnvVar = "EASTOCR_ONNXRUNTIME_LIB"

const (
	osLinux    = "linux"
	osDarwin   = "darwin"
	osWindows  = "windows"
	libLinux   = "libonnxruntime.so"
	libDarwin  = "libonnxruntime.dylib"
	libWindows = "onnxruntime.dll"
)

var (
	envMu    sync.Mutex
	envRefs  int
	statFile = os.Stat
)

// libraryName returns the shared library filename for goos.
func libraryName(goos string) (string, error) {
	switch goos {
	case osLinux:
		return libLinux, nil
	case osDarwin:
		return libDarwin, nil
	case osWindows:
		return libWindows, nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", goos)
	}
}

// candidateLibraryPaths lists locations to search, in order. GPU builds are
// preferred when useGPU is set.
func candidateLibraryPaths(useGPU bool, projectRoot, libName string) []string {
	var paths []string
	if env := os.Getenv(LibraryEnvVar); env != "" {
		paths = append(paths, env)
	}
	if useGPU {
		paths = append(paths, filepath.Join("/opt/onnxruntime/gpu/lib", libName))
	}
	paths = append(paths,
		filepath.Join("/usr/local/lib", libName),
		filepath.Join("/usr/lib", libName),
		filepath.Join("/opt/onnxruntime/cpu/lib", libName),
	)
	if projectRoot != "" {
		if useGPU {
			paths = append(paths, filepath.Join(projectRoot, "onnxruntime", "gpu", "lib", libName))
		}
		paths = append(paths, filepath.Join(projectRoot, "onnxruntime", "lib", libName))
	}
	return paths
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	for {
		if _, err := statFile(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root")
		}
		dir = parent
	}
}

// FindLibrary returns the first existing ONNX Runtime shared library.
func FindLibrary(useGPU bool) (string, error) {
	libName, err := libraryName(runtime.GOOS)
	if err != nil {
		return "", err
	}
	root, _ := findProjectRoot()
	candidates := candidateLibraryPaths(useGPU, root, libName)
	for _, p := range candidates {
		if _, err := statFile(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("ONNX Runtime library %s not found (set %s)", libName, LibraryEnvVar)
}

// Acquire locates the shared library and initializes the process-wide ONNX
// Runtime environment on first use. Every successful Acquire must be paired
// with Release.
func Acquire(useGPU bool) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 && !onnxruntime_go.IsInitialized() {
		path, err := FindLibrary(useGPU)
		if err != nil {
			return err
		}
		onnxruntime_go.SetSharedLibraryPath(path)
		if err := onnxruntime_go.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
		}
		slog.Debug("ONNX Runtime initialized", "library", path, "version", onnxruntime_go.GetVersion())
	}
	envRefs++
	return nil
}

// Release drops one reference and tears the environment down after the last.
func Release() {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		return
	}
	envRefs--
	if envRefs == 0 && onnxruntime_go.IsInitialized() {
		if err := onnxruntime_go.DestroyEnvironment(); err != nil {
			slog.Warn("failed to destroy ONNX Runtime environment", "error", err)
		}
	}
}
