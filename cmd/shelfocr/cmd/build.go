package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/shelfocr/internal/analysis"
	"github.com/MeKo-Tech/shelfocr/internal/catalog"
	"github.com/MeKo-Tech/shelfocr/internal/config"
	"github.com/MeKo-Tech/shelfocr/internal/pipeline"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer/engines"
	"github.com/MeKo-Tech/shelfocr/internal/store"
)

// openStore opens the product database. A configured CSV catalog replaces
// the sample seed and is imported into an empty table.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	cc := cfg.Catalog
	db, err := store.Open(ctx, cc.DBPath, cc.Seed && cc.CSVPath == "")
	if err != nil {
		return nil, err
	}
	if cc.CSVPath == "" {
		return db, nil
	}

	existing, err := db.AllProductNames(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if len(existing) > 0 {
		return db, nil
	}
	cat, err := catalog.LoadCSV(cc.CSVPath, cc.NameColumn)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	n, err := db.Import(ctx, cat)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("Catalog imported", "path", cc.CSVPath, "products", n)
	return db, nil
}

// buildPipeline wires the configured engine and thresholds into a pipeline.
// The engine is created on the first frame.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, error) {
	timeout, err := cfg.FrameTimeout()
	if err != nil {
		return nil, err
	}
	p, err := pipeline.NewBuilder().
		WithRecognizer(engines.Lazy(ctx, cfg)).
		WithMatcherConfig(cfg.MatcherConfig()).
		WithWeights(cfg.SelectorWeights()).
		WithFrameTimeout(timeout).
		WithDebug(cfg.Pipeline.Debug, cfg.Pipeline.DebugDir).
		WithOverlayFormat(cfg.Pipeline.OverlayFormat).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	return p, nil
}

func analyzerConfig(cfg *config.Config) analysis.Config {
	ac := analysis.DefaultConfig()
	if cfg.Pipeline.ResizeWidth > 0 && cfg.Pipeline.ResizeHeight > 0 {
		ac.Width, ac.Height = cfg.Pipeline.ResizeWidth, cfg.Pipeline.ResizeHeight
	}
	ac.Mirror = cfg.Pipeline.Mirror
	return ac
}

// newAnalyzer opens the store and pipeline behind one analyzer. The
// returned close function releases both.
func newAnalyzer(ctx context.Context, cfg *config.Config) (*analysis.Analyzer, *store.Store, func(), error) {
	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := buildPipeline(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	closeAll := func() {
		if err := p.Close(); err != nil {
			slog.Warn("Failed to close pipeline", "error", err)
		}
		if err := db.Close(); err != nil {
			slog.Warn("Failed to close product database", "error", err)
		}
	}
	return analysis.New(p, db, analyzerConfig(cfg)), db, closeAll, nil
}
