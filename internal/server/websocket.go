package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/shelfocr/internal/analysis"
	"github.com/MeKo-Tech/shelfocr/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsMessageType  = "match_response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 * 32,
	// The kiosk UI is served from a different origin than the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketMatchRequest is the JSON form of a frame sent as a text message.
// Binary messages carry the encoded image bytes directly.
type WebSocketMatchRequest struct {
	Type  string `json:"type"` // "image"
	Image []byte `json:"image"`
}

// WebSocketConnWriter is the write side of a WebSocket connection.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// matchWebSocketHandler streams frames in and match results out.
func (s *Server) matchWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()
	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024 * 2)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		s.handleWebSocketMessage(r.Context(), conn, messageType, data)
	}
}

// handleWebSocketMessage analyzes one frame and answers on conn.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, messageType int, data []byte) {
	requestID := uuid.NewString()

	switch messageType {
	case websocket.BinaryMessage:
	case websocket.TextMessage:
		var req WebSocketMatchRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.sendWebSocketError(conn, requestID, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
			return
		}
		if req.Type != "" && req.Type != "image" {
			s.sendWebSocketError(conn, requestID, "invalid_request", "Unsupported request type: "+req.Type)
			return
		}
		data = req.Image
	default:
		return
	}
	if len(data) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No image data provided")
		return
	}

	img, _, err := utils.DecodeImage(bytes.NewReader(data))
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_image", err.Error())
		return
	}

	ctx, cancel := s.requestContext(ctx)
	defer cancel()
	payload, err := s.analyze(ctx, "websocket", img)
	if err != nil {
		_, code := analysisStatus(err)
		s.sendWebSocketError(conn, requestID, code, analysis.UserMessage(err))
		return
	}
	s.sendWebSocketResponse(conn, WebSocketMatchResponse{
		Type:      wsMessageType,
		Status:    "completed",
		Result:    payload,
		RequestID: requestID,
	})
}

// sendWebSocketError sends an error response.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, code, message string) {
	s.sendWebSocketResponse(conn, WebSocketMatchResponse{
		Type:      wsMessageType,
		Status:    "error",
		Error:     code,
		Message:   message,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketMatchResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
