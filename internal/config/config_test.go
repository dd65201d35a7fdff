package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Engine.Kind != EnginePaddle {
		t.Errorf("expected default engine %q, got %q", EnginePaddle, cfg.Engine.Kind)
	}
	if cfg.Matcher.TopK != 3 {
		t.Errorf("expected top_k 3, got %d", cfg.Matcher.TopK)
	}
	d, err := cfg.FrameTimeout()
	if err != nil || d != 8*time.Second {
		t.Errorf("expected 8s frame timeout, got %v (%v)", d, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"engine kind", func(c *Config) { c.Engine.Kind = "easyocr" }, "invalid engine kind"},
		{"threads", func(c *Config) { c.Engine.NumThreads = -1 }, "num_threads"},
		{"matcher", func(c *Config) { c.Matcher.TopK = 0 }, "invalid matcher settings"},
		{"selector", func(c *Config) { c.Selector.Brand = 1.5 }, "selector.brand"},
		{"frame timeout", func(c *Config) { c.Pipeline.FrameTimeout = "soon" }, "pipeline.frame_timeout"},
		{"negative timeout", func(c *Config) { c.Pipeline.FrameTimeout = "-1s" }, "must not be negative"},
		{"overlay format", func(c *Config) { c.Pipeline.OverlayFormat = "gif" }, "invalid overlay format"},
		{"resize", func(c *Config) { c.Pipeline.ResizeWidth = -1 }, "invalid resize"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"upload", func(c *Config) { c.Server.MaxUploadMB = 0 }, "invalid max upload size"},
		{"server timeout", func(c *Config) { c.Server.TimeoutSec = 0 }, "invalid timeout"},
		{"rate limit", func(c *Config) {
			c.Server.RateLimit.Enabled = true
			c.Server.RateLimit.RequestsPerMinute = 0
		}, "invalid rate limit"},
		{"debounce", func(c *Config) { c.Watch.Debounce = "x" }, "watch.debounce"},
		{"gpu memory", func(c *Config) { c.GPU.MemoryLimit = "lots" }, "invalid GPU memory limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseMemoryLimit(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"", 0, false},
		{"auto", 0, false},
		{"512MB", 512 << 20, false},
		{"1.5gb", 3 << 29, false},
		{"100B", 100, false},
		{"GB", 0, true},
		{"12", 0, true},
	}
	for _, tt := range tests {
		got, err := parseMemoryLimit(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMemoryLimit(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseMemoryLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matcher.AcceptBase = 80
	cfg.Selector.Brand = 0.3
	cfg.GPU = GPUConfig{Enabled: true, Device: 1, MemoryLimit: "1GB"}

	if mc := cfg.MatcherConfig(); mc.AcceptBase != 80 || mc.MinTokenLength != 3 {
		t.Errorf("unexpected matcher config: %+v", mc)
	}
	if w := cfg.SelectorWeights(); w.Brand != 0.3 || w.Confidence != 0.5 {
		t.Errorf("unexpected weights: %+v", w)
	}
	gpu := cfg.GPUSettings()
	if !gpu.UseGPU || gpu.DeviceID != 1 || gpu.GPUMemLimit != 1<<30 {
		t.Errorf("unexpected gpu settings: %+v", gpu)
	}
}
