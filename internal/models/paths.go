// Package models resolves on-disk locations of the OCR model files.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Default file names for the Korean PaddleOCR models.
const (
	DetectionMobile   = "PP-OCRv5_mobile_det.onnx"
	RecognitionKorean = "korean_PP-OCRv5_mobile_rec.onnx"
	DictionaryKorean  = "korean_dict.txt"
)

// Directory layout under the models root.
const (
	TypeDetection    = "detection"
	TypeRecognition  = "recognition"
	TypeDictionaries = "dictionaries"
)

// DefaultModelsDir is relative to the project root.
const DefaultModelsDir = "models"

// EnvModelsDir overrides the models root.
const EnvModelsDir = "SHELFOCR_MODELS_DIR"

// Dir returns the models root. Priority: explicit dir, EnvModelsDir, project
// root plus DefaultModelsDir, then DefaultModelsDir relative to the working
// directory.
func Dir(dir string) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv(EnvModelsDir); env != "" {
		return env
	}
	if root, err := findProjectRoot(); err == nil {
		return filepath.Join(root, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// Resolve returns the path of filename under the models root. Absolute
// names are returned unchanged. The typed subdirectory is preferred and the
// flat layout is the fallback.
func Resolve(dir, modelType, filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	base := Dir(dir)
	if modelType != "" {
		p := filepath.Join(base, modelType, filename)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(base, filename)
}

// Paths is a resolved model set.
type Paths struct {
	Detection   string
	Recognition string
	Dictionary  string
}

// ResolvePaths fills in defaults for empty names and resolves all three.
func ResolvePaths(dir, det, rec, dict string) Paths {
	if det == "" {
		det = DetectionMobile
	}
	if rec == "" {
		rec = RecognitionKorean
	}
	if dict == "" {
		dict = DictionaryKorean
	}
	return Paths{
		Detection:   Resolve(dir, TypeDetection, det),
		Recognition: Resolve(dir, TypeRecognition, rec),
		Dictionary:  Resolve(dir, TypeDictionaries, dict),
	}
}

// Validate reports every missing file.
func (p Paths) Validate() error {
	var errs []error
	for _, f := range []string{p.Detection, p.Recognition, p.Dictionary} {
		if _, err := os.Stat(f); err != nil {
			errs = append(errs, fmt.Errorf("model file not found: %s", f))
		}
	}
	return errors.Join(errs...)
}

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
			return "", errors.New("could not find project root (go.mod not found)")
		}
		dir = parent
	}
}
