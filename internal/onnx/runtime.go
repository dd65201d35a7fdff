// Package onnx wraps ONNX Runtime environment setup and single-input
// inference sessions.
package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// EnvLibraryPath overrides the shared library lookup.
const EnvLibraryPath = "SHELFOCR_ONNXRUNTIME_LIB"

var initMu sync.Mutex

// GPUConfig selects the CUDA execution provider.
type GPUConfig struct {
	UseGPU      bool   `mapstructure:"use_gpu" yaml:"use_gpu" json:"use_gpu"`
	DeviceID    int    `mapstructure:"device_id" yaml:"device_id" json:"device_id"`
	GPUMemLimit uint64 `mapstructure:"mem_limit" yaml:"mem_limit" json:"mem_limit"`
}

// Init locates the runtime library and initializes the shared environment.
// It is safe to call repeatedly.
func Init(useGPU bool) error {
	initMu.Lock()
	defer initMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	lib, err := LibraryPath(useGPU)
	if err != nil {
		return err
	}
	ort.SetSharedLibraryPath(lib)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}
	return nil
}

// LibraryPath resolves the runtime shared library: the environment override,
// then system locations, then an onnxruntime/ directory next to the project
// root.
func LibraryPath(useGPU bool) (string, error) {
	if p := os.Getenv(EnvLibraryPath); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s points to a missing file: %w", EnvLibraryPath, err)
		}
		return p, nil
	}
	name, err := libraryName()
	if err != nil {
		return "", err
	}
	for _, p := range systemLibraryPaths(name, useGPU) {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	root, err := findProjectRoot()
	if err != nil {
		return "", err
	}
	candidates := []string{filepath.Join(root, "onnxruntime", "lib", name)}
	if useGPU {
		candidates = append([]string{filepath.Join(root, "onnxruntime", "gpu", "lib", name)}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("ONNX Runtime library %s not found", name)
}

func systemLibraryPaths(name string, useGPU bool) []string {
	paths := []string{
		filepath.Join("/usr/local/lib", name),
		filepath.Join("/usr/lib", name),
		filepath.Join("/opt/onnxruntime/cpu/lib", name),
	}
	if useGPU {
		paths = append([]string{filepath.Join("/opt/onnxruntime/gpu/lib", name)}, paths...)
	}
	return paths
}

func libraryName() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so", nil
	case "darwin":
		return "libonnxruntime.dylib", nil
	case "windows":
		return "onnxruntime.dll", nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("could not find project root")
		}
		dir = parent
	}
}

func configureGPU(opts *ort.SessionOptions, gpu GPUConfig) error {
	if !gpu.UseGPU {
		return nil
	}
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("failed to create CUDA provider options: %w", err)
	}
	defer func() { _ = cuda.Destroy() }()

	settings := map[string]string{"device_id": strconv.Itoa(gpu.DeviceID)}
	if gpu.GPUMemLimit > 0 {
		settings["gpu_mem_limit"] = strconv.FormatUint(gpu.GPUMemLimit, 10)
	}
	if err := cuda.Update(settings); err != nil {
		return fmt.Errorf("failed to update CUDA provider options: %w", err)
	}
	if err := opts.AppendExecutionProviderCUDA(cuda); err != nil {
		return fmt.Errorf("failed to append CUDA execution provider: %w", err)
	}
	return nil
}
