// Package engines builds the configured OCR engine.
package engines

import (
	"context"
	"fmt"

	"github.com/MeKo-Tech/shelfocr/internal/config"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer/paddle"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer/tesseract"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer/vision"
)

// staticConfidence is reported for every line of the static engine.
const staticConfidence = 0.9

// New builds the engine selected by cfg.Engine.Kind.
func New(ctx context.Context, cfg *config.Config) (recognizer.Recognizer, error) {
	ec := cfg.Engine
	switch ec.Kind {
	case config.EnginePaddle:
		return build(paddle.New(paddle.Config{
			ModelsDir:   ec.ModelsDir,
			Detection:   ec.DetModel,
			Recognition: ec.RecModel,
			Dictionary:  ec.DictPath,
			NumThreads:  ec.NumThreads,
			GPU:         cfg.GPUSettings(),
			MaxRecWidth: ec.MaxRecWidth,
		}))
	case config.EngineTesseract:
		return build(tesseract.New(tesseract.Config{Languages: ec.Languages, DataDir: ec.TessdataDir}))
	case config.EngineVision:
		return build(vision.New(ctx, visionHints(ec.Languages)))
	case config.EngineStatic:
		return recognizer.NewStatic(staticConfidence, ec.StaticText...), nil
	default:
		return nil, fmt.Errorf("unknown engine kind: %q", ec.Kind)
	}
}

// build keeps a failed constructor from yielding a typed nil engine.
func build[E recognizer.Recognizer](eng E, err error) (recognizer.Recognizer, error) {
	if err != nil {
		return nil, err
	}
	return eng, nil
}

// Lazy defers New until the first recognition.
func Lazy(ctx context.Context, cfg *config.Config) *recognizer.Lazy {
	return recognizer.NewLazy(cfg.Engine.Kind, func() (recognizer.Recognizer, error) {
		return New(ctx, cfg)
	})
}

// visionHints maps Tesseract language codes to BCP-47 hints.
func visionHints(langs []string) []string {
	codes := map[string]string{"kor": "ko", "eng": "en", "jpn": "ja", "chi_sim": "zh"}
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		if c, ok := codes[l]; ok {
			out = append(out, c)
		} else {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return vision.DefaultLanguageHints
	}
	return out
}
