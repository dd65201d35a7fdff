// Package support holds the godog step definitions for the matching
// scenarios. Every scenario runs the kiosk server in process over a private
// in-memory product store and a static OCR engine.
package support

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http/httptest"

	"github.com/MeKo-Tech/shelfocr/internal/analysis"
	"github.com/MeKo-Tech/shelfocr/internal/pipeline"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
	"github.com/MeKo-Tech/shelfocr/internal/server"
	"github.com/MeKo-Tech/shelfocr/internal/store"
	"github.com/MeKo-Tech/shelfocr/internal/testutil"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	ctx context.Context

	// Engine output for every recognition pass.
	Texts []string
	// Failures makes the engine fail every pass.
	Failures bool

	Store      *store.Store
	ServerCfg  server.Config
	HTTPServer *httptest.Server
	server     *server.Server

	LastStatus  int
	LastBody    []byte
	LastHeaders map[string]string
	LastJSON    map[string]any
}

// NewTestContext creates an empty scenario context.
func NewTestContext() *TestContext {
	return &TestContext{ctx: context.Background(), ServerCfg: server.DefaultConfig()}
}

func (tc *TestContext) ensureStore(seed bool) error {
	if tc.Store != nil {
		return nil
	}
	db, err := store.Open(tc.ctx, store.MemoryPath, seed)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	tc.Store = db
	return nil
}

func (tc *TestContext) recognizer() recognizer.Recognizer {
	if tc.Failures {
		return recognizer.Func(func(context.Context, image.Image, recognizer.Options) ([]recognizer.Line, error) {
			return nil, errors.New("engine unavailable")
		})
	}
	return recognizer.NewStatic(testutil.StaticConfidence, tc.Texts...)
}

// StartServer builds the analyzer and serves it on a local listener.
func (tc *TestContext) StartServer() error {
	if tc.HTTPServer != nil {
		return nil
	}
	if err := tc.ensureStore(true); err != nil {
		return err
	}
	p, err := pipeline.NewBuilder().WithRecognizer(tc.recognizer()).WithFrameTimeout(0).Build()
	if err != nil {
		return err
	}
	acfg := analysis.DefaultConfig()
	acfg.Width, acfg.Height = testutil.SmallSize.X, testutil.SmallSize.Y
	srv, err := server.New(tc.ServerCfg, analysis.New(p, tc.Store, acfg), tc.Store)
	if err != nil {
		_ = p.Close()
		return err
	}
	tc.server = srv
	tc.HTTPServer = httptest.NewServer(srv.Handler())
	return nil
}

// Cleanup stops the server and closes the store.
func (tc *TestContext) Cleanup() error {
	var errs []error
	if tc.HTTPServer != nil {
		tc.HTTPServer.Close()
		tc.HTTPServer = nil
	}
	if tc.server != nil {
		errs = append(errs, tc.server.Close())
		tc.server = nil
	}
	if tc.Store != nil {
		errs = append(errs, tc.Store.Close())
		tc.Store = nil
	}
	return errors.Join(errs...)
}

// field walks a dotted path through the last JSON body. Numeric segments
// index arrays.
func (tc *TestContext) field(path string) (any, error) {
	if tc.LastJSON == nil {
		return nil, errors.New("last response was not a JSON object")
	}
	var cur any = tc.LastJSON
	for _, key := range splitPath(path) {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, fmt.Errorf("field %q not found in %s", key, path)
			}
			cur = v
		case []any:
			var i int
			if _, err := fmt.Sscanf(key, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %s", key, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %s at %q", path, key)
		}
	}
	return cur, nil
}

func (tc *TestContext) record(status int, headers map[string]string, body []byte) {
	tc.LastStatus = status
	tc.LastHeaders = headers
	tc.LastBody = body
	tc.LastJSON = nil
	var obj map[string]any
	if json.Unmarshal(body, &obj) == nil {
		tc.LastJSON = obj
	}
}

func serverRateLimit(perMinute int) server.RateLimitConfig {
	return server.RateLimitConfig{Enabled: true, RequestsPerMinute: perMinute}
}
