package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/shelfocr/internal/matcher"
	"github.com/MeKo-Tech/shelfocr/internal/models"
	"github.com/MeKo-Tech/shelfocr/internal/onnx"
	"github.com/MeKo-Tech/shelfocr/internal/selector"
)

// Engine kinds.
const (
	EngineTesseract = "tesseract"
	EngineVision    = "vision"
	EnginePaddle    = "paddle"
	EngineStatic    = "static"
)

// EngineKinds lists the accepted engine.kind values.
var EngineKinds = []string{EnginePaddle, EngineTesseract, EngineVision, EngineStatic}

// DefaultConfig returns a configuration with the kiosk defaults.
func DefaultConfig() Config {
	mc := matcher.DefaultConfig()
	w := selector.DefaultWeights()
	return Config{
		LogLevel: "info",
		Engine: EngineConfig{
			Kind:      EnginePaddle,
			Languages: []string{"kor", "eng"},
			ModelsDir: models.DefaultModelsDir,
			DetModel:  models.DetectionMobile,
			RecModel:  models.RecognitionKorean,
			DictPath:  models.DictionaryKorean,
		},
		Catalog: CatalogConfig{
			NameColumn: "name",
			DBPath:     "data/products.db",
			Seed:       true,
		},
		Matcher: MatcherConfig{
			AcceptBase:           mc.AcceptBase,
			NumericBase:          mc.NumericBase,
			TokenBase:            mc.TokenBase,
			NumericBonusPerMatch: mc.NumericBonusPerMatch,
			NumericBonusCap:      mc.NumericBonusCap,
			TokenBonusPerHit:     mc.TokenBonusPerHit,
			TokenBonusCap:        mc.TokenBonusCap,
			PartialBonus:         mc.PartialBonus,
			PartialThreshold:     mc.PartialThreshold,
			TopK:                 mc.TopK,
		},
		Selector: SelectorConfig{
			Confidence: w.Confidence,
			Korean:     w.Korean,
			Brand:      w.Brand,
			Product:    w.Product,
		},
		Pipeline: PipelineConfig{
			FrameTimeout:  "8s",
			DebugDir:      "debug",
			OverlayFormat: "png",
			ResizeWidth:   640,
			ResizeHeight:  480,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            5000,
			CORSOrigin:      "*",
			MaxUploadMB:     10,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
			},
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		GPU: GPUConfig{
			MemoryLimit: "auto",
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if !slices.Contains(EngineKinds, c.Engine.Kind) {
		return fmt.Errorf("invalid engine kind: %s (must be one of: %s)", c.Engine.Kind, strings.Join(EngineKinds, ", "))
	}
	if c.Engine.NumThreads < 0 {
		return fmt.Errorf("invalid engine num_threads: %d (must not be negative)", c.Engine.NumThreads)
	}
	if err := c.MatcherConfig().Validate(); err != nil {
		return fmt.Errorf("invalid matcher settings: %w", err)
	}
	for name, v := range map[string]float64{
		"selector.confidence": c.Selector.Confidence,
		"selector.korean":     c.Selector.Korean,
		"selector.brand":      c.Selector.Brand,
		"selector.product":    c.Selector.Product,
	} {
		if err := validateThreshold(v, name); err != nil {
			return err
		}
	}

	if _, err := c.FrameTimeout(); err != nil {
		return err
	}
	validOverlayFormats := []string{"png", "jpg", "jpeg"}
	if !slices.Contains(validOverlayFormats, c.Pipeline.OverlayFormat) {
		return fmt.Errorf("invalid overlay format: %s (must be one of: %s)", c.Pipeline.OverlayFormat, strings.Join(validOverlayFormats, ", "))
	}
	if c.Pipeline.ResizeWidth < 0 || c.Pipeline.ResizeHeight < 0 {
		return fmt.Errorf("invalid resize %dx%d (must not be negative)", c.Pipeline.ResizeWidth, c.Pipeline.ResizeHeight)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per minute (must be positive)", c.Server.RateLimit.RequestsPerMinute)
	}

	if _, err := c.WatchDebounce(); err != nil {
		return err
	}
	if _, err := parseMemoryLimit(c.GPU.MemoryLimit); err != nil {
		return fmt.Errorf("invalid GPU memory limit: %w", err)
	}
	return nil
}

// MatcherConfig converts the matcher section.
func (c *Config) MatcherConfig() matcher.Config {
	mc := matcher.DefaultConfig()
	mc.AcceptBase = c.Matcher.AcceptBase
	mc.NumericBase = c.Matcher.NumericBase
	mc.TokenBase = c.Matcher.TokenBase
	mc.NumericBonusPerMatch = c.Matcher.NumericBonusPerMatch
	mc.NumericBonusCap = c.Matcher.NumericBonusCap
	mc.TokenBonusPerHit = c.Matcher.TokenBonusPerHit
	mc.TokenBonusCap = c.Matcher.TokenBonusCap
	mc.PartialBonus = c.Matcher.PartialBonus
	mc.PartialThreshold = c.Matcher.PartialThreshold
	mc.TopK = c.Matcher.TopK
	return mc
}

// SelectorWeights converts the selector section.
func (c *Config) SelectorWeights() selector.Weights {
	return selector.Weights{
		Confidence: c.Selector.Confidence,
		Korean:     c.Selector.Korean,
		Brand:      c.Selector.Brand,
		Product:    c.Selector.Product,
	}
}

// GPUSettings converts the gpu section for the ONNX runtime.
func (c *Config) GPUSettings() onnx.GPUConfig {
	limit, _ := parseMemoryLimit(c.GPU.MemoryLimit)
	return onnx.GPUConfig{UseGPU: c.GPU.Enabled, DeviceID: c.GPU.Device, GPUMemLimit: limit}
}

// FrameTimeout parses pipeline.frame_timeout. Zero disables the timeout.
func (c *Config) FrameTimeout() (time.Duration, error) {
	return parseDuration(c.Pipeline.FrameTimeout, "pipeline.frame_timeout")
}

// WatchDebounce parses watch.debounce.
func (c *Config) WatchDebounce() (time.Duration, error) {
	return parseDuration(c.Watch.Debounce, "watch.debounce")
}

func parseDuration(s, name string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: %s (must not be negative)", name, s)
	}
	return d, nil
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

// parseMemoryLimit converts "auto", "" or sizes such as "512MB" to bytes.
func parseMemoryLimit(limit string) (uint64, error) {
	if limit == "" || limit == "auto" {
		return 0, nil
	}
	upper := strings.ToUpper(limit)
	units := []struct {
		suffix string
		mult   float64
	}{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1}}
	for _, u := range units {
		if !strings.HasSuffix(upper, u.suffix) {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSuffix(upper, u.suffix), 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid number in memory limit: %s", limit)
		}
		return uint64(n * u.mult), nil
	}
	return 0, errors.New("memory limit must end with one of: B, KB, MB, GB")
}
