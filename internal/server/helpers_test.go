package server

import (
	"bytes"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/shelfocr/internal/analysis"
	"github.com/MeKo-Tech/shelfocr/internal/testutil"
)

// newTestServer builds a server over a seeded in-memory store and a static
// engine that reads texts on every variant.
func newTestServer(t *testing.T, cfg Config, texts ...string) *Server {
	t.Helper()
	db := testutil.NewStore(t, true)
	p, _ := testutil.StaticPipeline(t, texts...)

	acfg := analysis.DefaultConfig()
	acfg.Width, acfg.Height = testutil.SmallSize.X, testutil.SmallSize.Y
	s, err := New(cfg, analysis.New(p, db, acfg), db)
	require.NoError(t, err)
	return s
}

func testFrame() image.Image { return testutil.LabelFrame() }

func pngBytes(t *testing.T, img image.Image) []byte { return testutil.PNG(t, img) }

// uploadRequest builds a multipart POST with the given form fields and an
// optional image part.
func uploadRequest(t *testing.T, target string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if data != nil {
		part, err := mw.CreateFormFile("image", "frame.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}
