package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/shelfocr/internal/analysis"
	"github.com/MeKo-Tech/shelfocr/internal/pipeline"
	"github.com/MeKo-Tech/shelfocr/internal/recognizer"
	"github.com/MeKo-Tech/shelfocr/internal/store"
	"github.com/MeKo-Tech/shelfocr/internal/utils"
	"github.com/MeKo-Tech/shelfocr/internal/variants"
	"github.com/MeKo-Tech/shelfocr/internal/version"
)

const (
	formatText    = "text"
	formatOverlay = "overlay"

	defaultProductLimit = 20
	defaultPerSection   = 6
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// matchHandler identifies the product in an uploaded frame.
func (s *Server) matchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErrorResponse(w, "file_too_large", "", http.StatusRequestEntityTooLarge)
			return
		}
		writeErrorResponse(w, "invalid_form", "Failed to parse form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeErrorResponse(w, "missing_image", "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	img, _, err := utils.DecodeImage(file)
	if err != nil {
		writeErrorResponse(w, "invalid_image", err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r.Context())
	defer cancel()
	payload, err := s.analyze(ctx, "http", img)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	switch r.FormValue("format") {
	case formatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(payload.Text + "\n"))
	case formatOverlay:
		s.writeOverlay(w, img, payload)
	default:
		writeJSON(w, http.StatusOK, payload)
	}
}

// analyze runs the analyzer and records the match metrics.
func (s *Server) analyze(ctx context.Context, source string, img image.Image) (*analysis.Payload, error) {
	start := time.Now()
	payload, err := s.analyzer.Analyze(ctx, img)
	matchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		matchRequestsTotal.WithLabelValues(source, "error").Inc()
		slog.Info("Frame analysis failed", "source", source, "error", err)
		return nil, err
	}
	matchRequestsTotal.WithLabelValues(source, "success").Inc()
	matchAccepted.WithLabelValues(strconv.FormatBool(payload.Match.Accepted)).Inc()
	if payload.Match.Best != nil {
		matchScore.Observe(payload.Match.TotalScore)
	}
	return payload, nil
}

// writeOverlay renders the boxes recognized on the unprocessed variant
// over the fitted frame. Those boxes are relative to the payload ROI.
func (s *Server) writeOverlay(w http.ResponseWriter, img image.Image, payload *analysis.Payload) {
	cfg := s.analyzer.Config()
	fitted := utils.FitFrame(img, cfg.Width, cfg.Height, cfg.Mirror)
	var lines []recognizer.Line
	for _, res := range payload.Raw {
		if res.Variant != variants.IDOrig {
			continue
		}
		for _, l := range res.Lines {
			box := make([]image.Point, len(l.Box))
			for i, p := range l.Box {
				box[i] = p.Add(payload.ROI.Min)
			}
			l.Box = box
			lines = append(lines, l)
		}
		break
	}
	w.Header().Set("Content-Type", "image/png")
	if err := utils.EncodeImage(w, pipeline.RenderOverlay(fitted, payload.Text, lines), "png"); err != nil {
		slog.Error("Failed to encode overlay", "error", err)
	}
}

// productsHandler searches products by name or by personal color and skin type.
func (s *Server) productsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), defaultProductLimit)
	if err != nil {
		writeErrorResponse(w, "invalid_limit", err.Error(), http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(q.Get("name"))
	var rows []store.Product
	if name != "" {
		rows, err = s.db.ProductsByName(r.Context(), name, limit)
	} else {
		rows, err = s.db.ProductsByFilter(r.Context(), q.Get("color"), q.Get("skin"), limit)
	}
	if err != nil {
		slog.Error("Product query failed", "name", name, "error", err)
		writeErrorResponse(w, "query_failed", "Product query failed", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.Product{}
	}
	writeJSON(w, http.StatusOK, ProductsResponse{Products: rows, Count: len(rows)})
}

// recommendationsHandler returns per-section makeup recommendations.
func (s *Server) recommendationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	perSection, err := intParam(q.Get("limit"), defaultPerSection)
	if err != nil {
		writeErrorResponse(w, "invalid_limit", err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := s.db.RecommendByTypes(r.Context(), q.Get("color"), q.Get("skin"), q.Get("number"), perSection)
	if err != nil {
		slog.Error("Recommendation query failed", "error", err)
		writeErrorResponse(w, "query_failed", "Recommendation query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// requestContext applies the configured request timeout.
func (s *Server) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return n, nil
}

// analysisStatus maps an analysis failure to an HTTP status and error code.
func analysisStatus(err error) (int, string) {
	switch {
	case errors.Is(err, analysis.ErrEmptyFrame):
		return http.StatusBadRequest, "empty_frame"
	case errors.Is(err, analysis.ErrNoText):
		return http.StatusUnprocessableEntity, "no_text"
	case errors.Is(err, pipeline.ErrNoCatalog):
		return http.StatusServiceUnavailable, "no_catalog"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "cancelled"
	default:
		return http.StatusInternalServerError, "analysis_failed"
	}
}

func writeAnalysisError(w http.ResponseWriter, err error) {
	status, code := analysisStatus(err)
	writeErrorResponse(w, code, analysis.UserMessage(err), status)
}

func writeErrorResponse(w http.ResponseWriter, code, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{OK: false, Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
