package testutil

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/shelfocr/internal/pipeline"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
	"github.com/MeKo-Tech/shelfocr/internal/store"
)

// StaticConfidence is the line confidence used by StaticPipeline.
const StaticConfidence = 0.9

// NewStore opens a private in-memory product store, seeded with the sample
// products when seed is set. It is closed when the test ends.
func NewStore(t testing.TB, seed bool) *store.Store {
	t.Helper()
	db, err := store.Open(context.Background(), store.MemoryPath, seed)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// StaticPipeline builds a pipeline whose engine reads texts on every pass.
// The frame timeout is disabled.
func StaticPipeline(t testing.TB, texts ...string) (*pipeline.Pipeline, *recognizer.Static) {
	t.Helper()
	rec := recognizer.NewStatic(StaticConfidence, texts...)
	p, err := pipeline.NewBuilder().WithRecognizer(rec).WithFrameTimeout(0).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, rec
}

// WriteCSV writes rows, header first, to dir/name and returns the path.
func WriteCSV(t testing.TB, dir, name string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path) //nolint:gosec // G304: test file under t.TempDir
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
	return path
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
