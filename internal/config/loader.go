package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "shelfocr"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "SHELFOCR"

	// DotEnvFile is loaded into the process environment before the config.
	DotEnvFile = ".env"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v      *viper.Viper
	dotenv string
}

// NewIsolatedLoader creates a loader with its own viper instance and no
// .env file.
func NewIsolatedLoader() *Loader {
	return &Loader{v: viper.New()}
}

// WithDotEnv sets the .env file to load; empty disables it.
func (l *Loader) WithDotEnv(path string) *Loader {
	l.dotenv = path
	return l
}

// Load reads the config from the search paths, or from configFile when it
// is set, and validates it.
func (l *Loader) Load(configFile string) (*Config, error) {
	cfg, err := l.LoadWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation is Load without the validation step.
func (l *Loader) LoadWithoutValidation(configFile string) (*Config, error) {
	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the config file used, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Viper returns the underlying viper instance.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

func (l *Loader) loadDotEnv() error {
	if l.dotenv == "" {
		return nil
	}
	if err := godotenv.Load(l.dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading %s: %w", l.dotenv, err)
	}
	return nil
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range SearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables maps engine.kind to SHELFOCR_ENGINE_KIND.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so that AutomaticEnv can resolve it.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("log_file", d.LogFile)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("engine.kind", d.Engine.Kind)
	l.v.SetDefault("engine.languages", d.Engine.Languages)
	l.v.SetDefault("engine.tessdata_dir", d.Engine.TessdataDir)
	l.v.SetDefault("engine.models_dir", d.Engine.ModelsDir)
	l.v.SetDefault("engine.det_model", d.Engine.DetModel)
	l.v.SetDefault("engine.rec_model", d.Engine.RecModel)
	l.v.SetDefault("engine.dict_path", d.Engine.DictPath)
	l.v.SetDefault("engine.num_threads", d.Engine.NumThreads)
	l.v.SetDefault("engine.max_rec_width", d.Engine.MaxRecWidth)
	l.v.SetDefault("engine.static_text", d.Engine.StaticText)

	l.v.SetDefault("catalog.csv_path", d.Catalog.CSVPath)
	l.v.SetDefault("catalog.name_column", d.Catalog.NameColumn)
	l.v.SetDefault("catalog.db_path", d.Catalog.DBPath)
	l.v.SetDefault("catalog.seed", d.Catalog.Seed)

	l.v.SetDefault("matcher.accept_base", d.Matcher.AcceptBase)
	l.v.SetDefault("matcher.numeric_base", d.Matcher.NumericBase)
	l.v.SetDefault("matcher.token_base", d.Matcher.TokenBase)
	l.v.SetDefault("matcher.numeric_bonus_per_match", d.Matcher.NumericBonusPerMatch)
	l.v.SetDefault("matcher.numeric_bonus_cap", d.Matcher.NumericBonusCap)
	l.v.SetDefault("matcher.token_bonus_per_hit", d.Matcher.TokenBonusPerHit)
	l.v.SetDefault("matcher.token_bonus_cap", d.Matcher.TokenBonusCap)
	l.v.SetDefault("matcher.partial_bonus", d.Matcher.PartialBonus)
	l.v.SetDefault("matcher.partial_threshold", d.Matcher.PartialThreshold)
	l.v.SetDefault("matcher.top_k", d.Matcher.TopK)

	l.v.SetDefault("selector.confidence", d.Selector.Confidence)
	l.v.SetDefault("selector.korean", d.Selector.Korean)
	l.v.SetDefault("selector.brand", d.Selector.Brand)
	l.v.SetDefault("selector.product", d.Selector.Product)

	l.v.SetDefault("pipeline.frame_timeout", d.Pipeline.FrameTimeout)
	l.v.SetDefault("pipeline.debug", d.Pipeline.Debug)
	l.v.SetDefault("pipeline.debug_dir", d.Pipeline.DebugDir)
	l.v.SetDefault("pipeline.overlay_format", d.Pipeline.OverlayFormat)
	l.v.SetDefault("pipeline.resize_width", d.Pipeline.ResizeWidth)
	l.v.SetDefault("pipeline.resize_height", d.Pipeline.ResizeHeight)
	l.v.SetDefault("pipeline.mirror", d.Pipeline.Mirror)

	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", d.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.requests_per_hour", d.Server.RateLimit.RequestsPerHour)

	l.v.SetDefault("watch.dir", d.Watch.Dir)
	l.v.SetDefault("watch.debounce", d.Watch.Debounce)

	l.v.SetDefault("gpu.enabled", d.GPU.Enabled)
	l.v.SetDefault("gpu.device", d.GPU.Device)
	l.v.SetDefault("gpu.memory_limit", d.GPU.MemoryLimit)
}

// SearchPaths returns the directories searched for shelfocr.yaml.
func SearchPaths() []string {
	paths := []string{"."}
	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		paths = append(paths, home)
	}
	if dir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		paths = append(paths, filepath.Join(dir, ConfigFileName))
	} else if homeErr == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}
	return append(paths, "/etc/"+ConfigFileName)
}

// WriteDefault writes the default configuration as YAML. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(filename string, force bool) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	if !force {
		if _, err := os.Stat(filename); err == nil {
			return fmt.Errorf("config file already exists: %s", filename)
		}
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(filename, data, 0o600)
}
