//nolint:lll
package config

// Config is the complete shelfocr configuration. It is loaded from a
// config file, SHELFOCR_* environment variables and command-line flags.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file" json:"log_file"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine" json:"engine"`
	Catalog  CatalogConfig  `mapstructure:"catalog" yaml:"catalog" json:"catalog"`
	Matcher  MatcherConfig  `mapstructure:"matcher" yaml:"matcher" json:"matcher"`
	Selector SelectorConfig `mapstructure:"selector" yaml:"selector" json:"selector"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch" json:"watch"`
	GPU      GPUConfig      `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
}

// EngineConfig selects and configures the OCR engine.
type EngineConfig struct {
	Kind        string   `mapstructure:"kind" yaml:"kind" json:"kind"`
	Languages   []string `mapstructure:"languages" yaml:"languages" json:"languages"`
	TessdataDir string   `mapstructure:"tessdata_dir" yaml:"tessdata_dir" json:"tessdata_dir"`
	ModelsDir   string   `mapstructure:"models_dir" yaml:"models_dir" json:"models_dir"`
	DetModel    string   `mapstructure:"det_model" yaml:"det_model" json:"det_model"`
	RecModel    string   `mapstructure:"rec_model" yaml:"rec_model" json:"rec_model"`
	DictPath    string   `mapstructure:"dict_path" yaml:"dict_path" json:"dict_path"`
	NumThreads  int      `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	MaxRecWidth int      `mapstructure:"max_rec_width" yaml:"max_rec_width" json:"max_rec_width"`
	// StaticText is returned by the static engine for every variant.
	StaticText []string `mapstructure:"static_text" yaml:"static_text" json:"static_text"`
}

// CatalogConfig locates the product catalog.
type CatalogConfig struct {
	CSVPath    string `mapstructure:"csv_path" yaml:"csv_path" json:"csv_path"`
	NameColumn string `mapstructure:"name_column" yaml:"name_column" json:"name_column"`
	DBPath     string `mapstructure:"db_path" yaml:"db_path" json:"db_path"`
	Seed       bool   `mapstructure:"seed" yaml:"seed" json:"seed"`
}

// MatcherConfig holds the acceptance thresholds and bonus weights.
type MatcherConfig struct {
	AcceptBase           float64 `mapstructure:"accept_base" yaml:"accept_base" json:"accept_base"`
	NumericBase          float64 `mapstructure:"numeric_base" yaml:"numeric_base" json:"numeric_base"`
	TokenBase            float64 `mapstructure:"token_base" yaml:"token_base" json:"token_base"`
	NumericBonusPerMatch float64 `mapstructure:"numeric_bonus_per_match" yaml:"numeric_bonus_per_match" json:"numeric_bonus_per_match"`
	NumericBonusCap      float64 `mapstructure:"numeric_bonus_cap" yaml:"numeric_bonus_cap" json:"numeric_bonus_cap"`
	TokenBonusPerHit     float64 `mapstructure:"token_bonus_per_hit" yaml:"token_bonus_per_hit" json:"token_bonus_per_hit"`
	TokenBonusCap        float64 `mapstructure:"token_bonus_cap" yaml:"token_bonus_cap" json:"token_bonus_cap"`
	PartialBonus         float64 `mapstructure:"partial_bonus" yaml:"partial_bonus" json:"partial_bonus"`
	PartialThreshold     float64 `mapstructure:"partial_threshold" yaml:"partial_threshold" json:"partial_threshold"`
	TopK                 int     `mapstructure:"top_k" yaml:"top_k" json:"top_k"`
}

// SelectorConfig holds the candidate scoring weights.
type SelectorConfig struct {
	Confidence float64 `mapstructure:"confidence" yaml:"confidence" json:"confidence"`
	Korean     float64 `mapstructure:"korean" yaml:"korean" json:"korean"`
	Brand      float64 `mapstructure:"brand" yaml:"brand" json:"brand"`
	Product    float64 `mapstructure:"product" yaml:"product" json:"product"`
}

// PipelineConfig contains per-frame processing settings.
type PipelineConfig struct {
	FrameTimeout  string `mapstructure:"frame_timeout" yaml:"frame_timeout" json:"frame_timeout"`
	Debug         bool   `mapstructure:"debug" yaml:"debug" json:"debug"`
	DebugDir      string `mapstructure:"debug_dir" yaml:"debug_dir" json:"debug_dir"`
	OverlayFormat string `mapstructure:"overlay_format" yaml:"overlay_format" json:"overlay_format"`
	ResizeWidth   int    `mapstructure:"resize_width" yaml:"resize_width" json:"resize_width"`
	ResizeHeight  int    `mapstructure:"resize_height" yaml:"resize_height" json:"resize_height"`
	Mirror        bool   `mapstructure:"mirror" yaml:"mirror" json:"mirror"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig limits requests per client IP.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
}

// WatchConfig configures the directory frame source.
type WatchConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Debounce string `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
}

// GPUConfig contains GPU acceleration settings for the paddle engine.
type GPUConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Device      int    `mapstructure:"device" yaml:"device" json:"device"`
	MemoryLimit string `mapstructure:"memory_limit" yaml:"memory_limit" json:"memory_limit"`
}
