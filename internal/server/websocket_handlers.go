package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/eastocr/internal/pipeline"
	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketOCRRequest is a text message asking for OCR of one image. A binary
// message is treated as raw image bytes with default options.
type WebSocketOCRRequest struct {
	Type     string `json:"type"` // "ocr"
	Image    []byte `json:"image,omitempty"`
	Detect   *bool  `json:"detect,omitempty"`
	Language string `json:"lang,omitempty"`
	Overlay  bool   `json:"overlay,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketOCRResponse is sent for progress, each recognised region and the
// final result.
type WebSocketOCRResponse struct {
	Type      string               `json:"type"`   // "ocr_response", "region", "error"
	Status    string               `json:"status"` // "processing", "completed", "error"
	Progress  float64              `json:"progress,omitempty"`
	Region    *pipeline.RegionText `json:"region,omitempty"`
	Result    *pipeline.Result     `json:"result,omitempty"`
	Overlay   string               `json:"overlay,omitempty"`
	Error     string               `json:"error,omitempty"`
	ErrorType string               `json:"error_type,omitempty"`
	RequestID string               `json:"request_id,omitempty"`
}

// ocrWebSocketHandler handles WebSocket connections for streaming OCR.
func (s *Server) ocrWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", getClientIP(r))

	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection processes messages until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

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
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteTimeout)); err != nil {
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
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		websocketMessagesTotal.WithLabelValues("received").Inc()

		switch messageType {
		case websocket.TextMessage:
			s.handleWebSocketMessage(ctx, conn, data)
		case websocket.BinaryMessage:
			s.processWebSocketImage(ctx, conn, WebSocketOCRRequest{Type: "ocr", Image: data})
		}
	}
}

// handleWebSocketMessage processes a JSON request message.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketOCRRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	switch req.Type {
	case "ocr", "image":
		s.processWebSocketImage(ctx, conn, req)
	default:
		s.sendWebSocketError(conn, "", "invalid_request", "Unsupported request type: "+req.Type)
	}
}

// processWebSocketImage runs OCR and streams each region as it is recognised.
func (s *Server) processWebSocketImage(ctx context.Context, conn WebSocketConnWriter, req WebSocketOCRRequest) {
	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No image data provided")
		return
	}
	if s.pipeline == nil {
		s.sendWebSocketError(conn, requestID, "unavailable", "OCR pipeline not initialized")
		return
	}

	img, meta, err := utils.DecodeImage(bytes.NewReader(req.Image))
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_request", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}
	meta.SizeBytes = int64(len(req.Image))
	slog.Debug("Received WebSocket image", "image", meta, "request_id", requestID)

	s.sendWebSocketResponse(conn, WebSocketOCRResponse{
		Type:      "ocr_response",
		Status:    "processing",
		RequestID: requestID,
	})

	detect := req.Detect == nil || *req.Detect
	reqCtx, cancel := s.requestContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := s.withLanguage(req.Language, func() (*pipeline.Result, error) {
		if !detect {
			return s.pipeline.Process(reqCtx, img, false)
		}
		return s.pipeline.ProcessStream(reqCtx, img, func(rt pipeline.RegionText) {
			s.sendWebSocketResponse(conn, WebSocketOCRResponse{
				Type:      "region",
				Status:    "processing",
				Region:    &rt,
				RequestID: requestID,
			})
		})
	})
	if err != nil {
		ocrRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, requestID, errorType(err), fmt.Sprintf("OCR processing failed: %v", err))
		return
	}
	observeResult("websocket", res, time.Since(start))

	response := WebSocketOCRResponse{
		Type:      "ocr_response",
		Status:    "completed",
		Progress:  1.0,
		Result:    res,
		RequestID: requestID,
	}
	if req.Overlay && res.Overlay != nil {
		if data, err := utils.EncodePNG(res.Overlay); err == nil {
			response.Overlay = base64.StdEncoding.EncodeToString(data)
		} else {
			slog.Error("Failed to encode overlay", "error", err)
		}
	}
	s.sendWebSocketResponse(conn, response)
}

// errorType classifies an OCR error for WebSocket clients.
func errorType(err error) string {
	switch statusForError(err) {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusGatewayTimeout:
		return "timeout"
	default:
		return "processing_error"
	}
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketOCRResponse) {
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

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, kind, message string) {
	s.sendWebSocketResponse(conn, WebSocketOCRResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: kind,
		RequestID: requestID,
	})
}
