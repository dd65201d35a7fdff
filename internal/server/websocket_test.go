package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWebSocketConn records the messages written to it.
type mockWebSocketConn struct {
	sent [][]byte
}

func (m *mockWebSocketConn) WriteMessage(_ int, data []byte) error {
	m.sent = append(m.sent, data)
	return nil
}

func (m *mockWebSocketConn) last(t *testing.T) WebSocketMatchResponse {
	t.Helper()
	require.NotEmpty(t, m.sent)
	var resp WebSocketMatchResponse
	require.NoError(t, json.Unmarshal(m.sent[len(m.sent)-1], &resp))
	return resp
}

func TestHandleWebSocketMessage_Invalid(t *testing.T) {
	s := newTestServer(t, DefaultConfig(), "블랙 쿠션")

	tests := []struct {
		name        string
		messageType int
		data        []byte
		code        string
	}{
		{"empty binary", websocket.BinaryMessage, nil, "invalid_request"},
		{"bad json", websocket.TextMessage, []byte("{"), "invalid_request"},
		{"unknown type", websocket.TextMessage, []byte(`{"type":"pdf"}`), "invalid_request"},
		{"json without image", websocket.TextMessage, []byte(`{"type":"image"}`), "invalid_request"},
		{"undecodable", websocket.BinaryMessage, []byte("garbage"), "invalid_image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &mockWebSocketConn{}
			s.handleWebSocketMessage(context.Background(), conn, tt.messageType, tt.data)
			resp := conn.last(t)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.code, resp.Error)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestHandleWebSocketMessage_JSONImage(t *testing.T) {
	s := newTestServer(t, DefaultConfig(), "블랙 쿠션")
	req, err := json.Marshal(WebSocketMatchRequest{Type: "image", Image: pngBytes(t, testFrame())})
	require.NoError(t, err)

	conn := &mockWebSocketConn{}
	s.handleWebSocketMessage(context.Background(), conn, websocket.TextMessage, req)
	resp := conn.last(t)
	assert.Equal(t, "completed", resp.Status)
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "블랙 쿠션", result["ocr_text"])
}

func TestHandleWebSocketMessage_AnalysisError(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	conn := &mockWebSocketConn{}
	s.handleWebSocketMessage(context.Background(), conn, websocket.BinaryMessage, pngBytes(t, testFrame()))
	resp := conn.last(t)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "no_text", resp.Error)
	assert.Contains(t, resp.Message, "텍스트")
}

func TestMatchWebSocket_Stream(t *testing.T) {
	s := newTestServer(t, DefaultConfig(), "블랙 쿠션")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/match"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	frame := pngBytes(t, testFrame())
	for range 2 {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame))
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(30*time.Second)))
		var out WebSocketMatchResponse
		require.NoError(t, conn.ReadJSON(&out))
		assert.Equal(t, wsMessageType, out.Type)
		assert.Equal(t, "completed", out.Status)
	}
}
