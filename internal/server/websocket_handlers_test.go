package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWebSocketConn records written messages.
type mockWebSocketConn struct {
	sentMessages []sentMessage
}

type sentMessage struct {
	messageType int
	data        []byte
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	m.sentMessages = append(m.sentMessages, sentMessage{
		messageType: messageType,
		data:        data,
	})
	return nil
}

func (m *mockWebSocketConn) responses(t *testing.T) []WebSocketOCRResponse {
	t.Helper()
	out := make([]WebSocketOCRResponse, len(m.sentMessages))
	for i, msg := range m.sentMessages {
		assert.Equal(t, websocket.TextMessage, msg.messageType)
		require.NoError(t, json.Unmarshal(msg.data, &out[i]))
	}
	return out
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func TestServer_HandleWebSocketMessage_Invalid(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"bad json", "{", "Failed to parse request"},
		{"unknown type", `{"type":"pdf"}`, "Unsupported request type: pdf"},
		{"no image", `{"type":"ocr"}`, "No image data provided"},
		{"bad image", `{"type":"ocr","image":"bm90IGFuIGltYWdl"}`, "Failed to decode image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &mockWebSocketConn{}
			ts.handleWebSocketMessage(context.Background(), conn, []byte(tt.message))

			responses := conn.responses(t)
			require.Len(t, responses, 1)
			assert.Equal(t, "error", responses[0].Type)
			assert.Equal(t, "invalid_request", responses[0].ErrorType)
			assert.Contains(t, responses[0].Error, tt.want)
		})
	}
}

func TestServer_ProcessWebSocketImage_Streams(t *testing.T) {
	ts := newTestServer(t, cellA, cellB)
	conn := &mockWebSocketConn{}

	ts.processWebSocketImage(context.Background(), conn, WebSocketOCRRequest{Type: "ocr", Image: pngBytes(t), Overlay: true})

	responses := conn.responses(t)
	require.Len(t, responses, 4)
	assert.Equal(t, "processing", responses[0].Status)
	require.NotNil(t, responses[1].Region)
	assert.Equal(t, "[72,30]", responses[1].Region.Text)
	assert.Equal(t, 0, responses[1].Region.Index)
	require.NotNil(t, responses[2].Region)
	assert.Equal(t, "[192,190]", responses[2].Region.Text)

	final := responses[3]
	assert.Equal(t, "completed", final.Status)
	require.NotNil(t, final.Result)
	assert.Equal(t, "[72,30][192,190]", final.Result.Text)
	assert.NotEmpty(t, final.Overlay)

	for _, r := range responses {
		assert.Equal(t, responses[0].RequestID, r.RequestID)
	}
}

func TestServer_ProcessWebSocketImage_WholeImage(t *testing.T) {
	ts := newTestServer(t, cellA)
	conn := &mockWebSocketConn{}
	detect := false

	ts.processWebSocketImage(context.Background(), conn, WebSocketOCRRequest{Type: "ocr", Image: pngBytes(t), Detect: &detect})

	responses := conn.responses(t)
	require.Len(t, responses, 2)
	assert.Equal(t, "completed", responses[1].Status)
	assert.Equal(t, "whole", responses[1].Result.Text)
	assert.Zero(t, ts.det.Loads)
}

func TestServer_ProcessWebSocketImage_Unavailable(t *testing.T) {
	ts := newTestServer(t, cellA)
	ts.det.ForwardErr = assert.AnError
	conn := &mockWebSocketConn{}

	ts.processWebSocketImage(context.Background(), conn, WebSocketOCRRequest{Type: "ocr", Image: pngBytes(t)})

	responses := conn.responses(t)
	require.Len(t, responses, 2)
	assert.Equal(t, "error", responses[1].Status)
	assert.Equal(t, "unavailable", responses[1].ErrorType)
}

func TestServer_OCRWebSocket_EndToEnd(t *testing.T) {
	ts := newTestServer(t, cellA, cellB)
	mux := http.NewServeMux()
	ts.SetupRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/ocr"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	readUntilDone := func() []WebSocketOCRResponse {
		var msgs []WebSocketOCRResponse
		for {
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
			var m WebSocketOCRResponse
			require.NoError(t, conn.ReadJSON(&m))
			msgs = append(msgs, m)
			if m.Status != "processing" {
				return msgs
			}
		}
	}

	require.NoError(t, conn.WriteJSON(WebSocketOCRRequest{Type: "ocr", Image: pngBytes(t), Language: "deu"}))
	msgs := readUntilDone()
	require.Len(t, msgs, 4)
	assert.Equal(t, "region", msgs[1].Type)
	assert.Equal(t, "completed", msgs[3].Status)
	assert.Equal(t, "deu", msgs[3].Result.Language)

	// Raw image bytes use the default options.
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, pngBytes(t)))
	msgs = readUntilDone()
	require.Len(t, msgs, 4)
	assert.Equal(t, "[72,30][192,190]", msgs[3].Result.Text)
	assert.Equal(t, 1, ts.det.Loads)
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "invalid_request", errorType(errUnknownLanguage))
	assert.Equal(t, "timeout", errorType(context.DeadlineExceeded))
	assert.Equal(t, "processing_error", errorType(assert.AnError))
}
