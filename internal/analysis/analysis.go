// Package analysis is the product identification job behind the kiosk's
// "analyze" button: it fits the captured frame, runs the OCR pipeline with
// lexicons from the product store, looks the selected caption up in the
// store and attaches recommendations for the product it settled on.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/shelfocr/internal/catalog"
	"github.com/MeKo-Tech/shelfocr/internal/fuzzy"
	"github.com/MeKo-Tech/shelfocr/internal/matcher"
	"github.com/MeKo-Tech/shelfocr/internal/pipeline"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
	"github.com/MeKo-Tech/shelfocr/internal/selector"
	"github.com/MeKo-Tech/shelfocr/internal/store"
	"github.com/MeKo-Tech/shelfocr/internal/utils"
	"github.com/MeKo-Tech/shelfocr/internal/variants"
)

// User facing failures.
var (
	ErrEmptyFrame = errors.New("camera frame is empty")
	ErrNoText     = errors.New("no text recognized in the image")
)

// UserMessage returns the message the kiosk shows for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyFrame):
		return "카메라 프레임이 비어있습니다."
	case errors.Is(err, ErrNoText):
		return "이미지에서 텍스트가 인식되지 않았습니다. 라벨을 정면·밝게 비춰주세요."
	case errors.Is(err, pipeline.ErrNoCatalog):
		return "제품 데이터가 없습니다. 카탈로그를 먼저 등록해주세요."
	default:
		return fmt.Sprintf("제품 분석 중 오류가 발생했습니다: %v", err)
	}
}

// Products is the part of the store the analyzer reads.
type Products interface {
	AllBrands(ctx context.Context) ([]string, error)
	AllProductNames(ctx context.Context) ([]string, error)
	Catalog(ctx context.Context) (catalog.Catalog, error)
	ProductsByName(ctx context.Context, name string, limit int) ([]store.Product, error)
	ProductsByFilter(ctx context.Context, personalColor, skinType string, limit int) ([]store.Product, error)
}

// Config sizes the frame and the lookups.
type Config struct {
	Width, Height  int
	Mirror         bool
	DirectLimit    int
	FuzzyLimit     int
	RecommendLimit int
}

// DefaultConfig returns the kiosk settings.
func DefaultConfig() Config {
	return Config{Width: 640, Height: 480, DirectLimit: 5, FuzzyLimit: 5, RecommendLimit: 9}
}

// Payload is the analysis result handed to the UI.
type Payload struct {
	OK              bool                `json:"ok"`
	Text            string              `json:"ocr_text"`
	Detail          *selector.Candidate `json:"ocr_detail"`
	DebugDir        string              `json:"ocr_debug_dir,omitempty"`
	Overlays        []string            `json:"ocr_overlays"`
	Raw             []recognizer.Result `json:"ocr_raw"`
	ROI             image.Rectangle     `json:"ocr_roi"`
	Found           *store.Product      `json:"found_product"`
	DirectHits      []store.Product     `json:"direct_hits"`
	FuzzyHits       []store.Product     `json:"fuzzy_hits"`
	Recommendations []store.Product     `json:"recommendations"`
	Products        []store.Product     `json:"products"`
	Match           matcher.Result      `json:"match"`
}

// Analyzer runs the product identification job.
type Analyzer struct {
	p   *pipeline.Pipeline
	db  Products
	cfg Config
}

// New creates an analyzer.
func New(p *pipeline.Pipeline, db Products, cfg Config) *Analyzer {
	return &Analyzer{p: p, db: db, cfg: cfg}
}

// Config returns the analyzer settings.
func (a *Analyzer) Config() Config { return a.cfg }

// Pipeline returns the pipeline the analyzer runs.
func (a *Analyzer) Pipeline() *pipeline.Pipeline { return a.p }

// Input loads the catalog and lexicons for one run. Lexicon failures only
// weaken line scoring, so they are logged and ignored.
func (a *Analyzer) Input(ctx context.Context) (pipeline.Input, []string, error) {
	cat, err := a.db.Catalog(ctx)
	if err != nil {
		return pipeline.Input{}, nil, fmt.Errorf("%w: %w", pipeline.ErrNoCatalog, err)
	}
	brands, err := a.db.AllBrands(ctx)
	if err != nil {
		slog.Warn("Brand lexicon unavailable", "error", err)
	}
	names, err := a.db.AllProductNames(ctx)
	if err != nil {
		slog.Warn("Product lexicon unavailable", "error", err)
	}
	return pipeline.Input{Catalog: cat, Lexicons: selector.Lexicons{Brands: brands, Products: names}}, names, nil
}

// Analyze identifies the product in frame.
func (a *Analyzer) Analyze(ctx context.Context, frame image.Image) (*Payload, error) {
	if variants.IsEmpty(frame) {
		return nil, ErrEmptyFrame
	}
	frame = utils.FitFrame(frame, a.cfg.Width, a.cfg.Height, a.cfg.Mirror)

	in, names, err := a.Input(ctx)
	if err != nil {
		return nil, err
	}
	res, err := a.p.Run(ctx, frame, in)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyInput) {
			return nil, ErrEmptyFrame
		}
		return nil, err
	}
	slog.Info("OCR result", "text", res.Text(), "accepted", res.Accepted, "reason", res.Reason)

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return nil, ErrNoText
	}

	direct := a.lookup(ctx, text, a.cfg.DirectLimit)
	var fuzzyHits []store.Product
	if len(direct) == 0 {
		fuzzyHits = a.fuzzyLookup(ctx, text, names)
	}

	var picked *store.Product
	switch {
	case len(direct) > 0:
		picked = &direct[0]
	case len(fuzzyHits) > 0:
		picked = &fuzzyHits[0]
	}
	var color, skin string
	if picked != nil {
		color, skin = picked.FirstPersonalColor(), picked.FirstSkinType()
	}
	recs, err := a.db.ProductsByFilter(ctx, color, skin, a.cfg.RecommendLimit)
	if err != nil {
		slog.Error("Recommendation lookup failed", "error", err)
	}

	products := direct
	if len(products) == 0 {
		products = fuzzyHits
	}
	if len(products) == 0 {
		products = recs
	}
	return &Payload{
		OK:              true,
		Text:            text,
		Detail:          res.Selection.Best,
		DebugDir:        res.Diagnostics.DebugDir,
		Overlays:        nonNil(res.Diagnostics.OverlayPaths),
		Raw:             nonNil(res.Diagnostics.PerVariantLines),
		ROI:             res.Diagnostics.ROI,
		Found:           picked,
		DirectHits:      nonNil(direct),
		FuzzyHits:       nonNil(fuzzyHits),
		Recommendations: nonNil(recs),
		Products:        nonNil(products),
		Match:           res.Result,
	}, nil
}

func (a *Analyzer) lookup(ctx context.Context, text string, limit int) []store.Product {
	rows, err := a.db.ProductsByName(ctx, text, limit)
	if err != nil {
		slog.Error("Direct product lookup failed", "text", text, "error", err)
		return nil
	}
	return rows
}

// fuzzyLookup ranks product names by token set similarity and resolves
// each ranked name to its row.
func (a *Analyzer) fuzzyLookup(ctx context.Context, text string, names []string) []store.Product {
	var out []store.Product
	for _, m := range fuzzy.Extract(text, names, fuzzy.TokenSetRatio, a.cfg.FuzzyLimit) {
		if rows := a.lookup(ctx, m.Choice, 1); len(rows) > 0 {
			out = append(out, rows[0])
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
