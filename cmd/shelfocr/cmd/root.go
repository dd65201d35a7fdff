package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/shelfocr/internal/config"
	"github.com/MeKo-Tech/shelfocr/internal/version"
)

// skipConfigAnnotation marks commands that must run without a valid config.
const skipConfigAnnotation = "shelfocr/skip-config"

// app is the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	loader  *config.Loader
	cfg     *config.Config
	logFile *os.File
}

// NewRootCommand builds the shelfocr command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "shelfocr",
		Short: "Identify shelf products from camera frames by their printed labels",
		Long: `shelfocr reads the text printed on a product label, captured by a kiosk
camera, and matches it against a product catalog.

Each frame is expanded into enhanced and rotated variants, every variant is
recognized by the configured OCR engine (PaddleOCR ONNX models, Tesseract
or Google Cloud Vision) and the best caption is fuzzy matched against the
catalog with numeric and token bonuses.

Examples:
  shelfocr match frame.jpg
  shelfocr match captures/*.png --format json --debug
  shelfocr catalog import products.csv
  shelfocr serve --port 5000
  shelfocr watch ./captures`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.closeLog()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is search in ., $HOME, $HOME/.config/shelfocr, /etc/shelfocr)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "also write logs to this file")
	pf.String("engine", "", "OCR engine: paddle, tesseract, vision or static")
	pf.String("db", "", "product database path")

	root.AddCommand(
		newMatchCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newCatalogCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// init loads the configuration and installs the logger.
func (a *app) init(cmd *cobra.Command) error {
	a.loader = config.NewIsolatedLoader().WithDotEnv(config.DotEnvFile)
	v := a.loader.Viper()
	pf := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"verbose":         "verbose",
		"log_level":       "log-level",
		"log_file":        "log-file",
		"engine.kind":     "engine",
		"catalog.db_path": "db",
	} {
		if f := pf.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", flag, err)
			}
		}
	}

	var err error
	if cmd.Annotations[skipConfigAnnotation] == "true" {
		a.cfg, err = a.loader.LoadWithoutValidation(a.cfgFile)
		if err != nil {
			d := config.DefaultConfig()
			a.cfg, err = &d, nil
		}
	} else {
		a.cfg, err = a.loader.Load(a.cfgFile)
	}
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	return a.setupLogging(cmd.ErrOrStderr())
}

// setupLogging installs a JSON slog handler on stderr, teed to log_file.
func (a *app) setupLogging(stderr io.Writer) error {
	level := slog.LevelInfo
	if a.cfg.Verbose {
		level = slog.LevelDebug
	} else {
		switch a.cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	w := stderr
	if a.cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(a.cfg.LogFile), 0o750); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		w = io.MultiWriter(stderr, f)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func (a *app) closeLog() {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}
