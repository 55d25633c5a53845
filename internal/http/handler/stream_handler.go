package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/realtime"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsReadLimit  = 1024
	wsPongWindow = 60 * time.Second
)

// StreamHandler pushes realtime events for the caller's topic
type StreamHandler struct {
	broker    realtime.Broker
	heartbeat time.Duration
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewStreamHandler creates a StreamHandler. heartbeat is the keep-alive
// interval for both transports.
func NewStreamHandler(broker realtime.Broker, heartbeat time.Duration, logger *zap.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &StreamHandler{
		broker:    broker,
		heartbeat: heartbeat,
		// origin checks are done by the CORS layer and the bearer token
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:   logger,
	}
}

func (h *StreamHandler) subscribe(w http.ResponseWriter, r *http.Request) (*realtime.Subscription, string, bool) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return nil, "", false
	}
	sub, err := h.broker.Subscribe(r.Context(), realtime.UserTopic(userCtx.UserID))
	if err != nil {
		h.logger.Error("failed to subscribe to realtime topic", zap.String("userID", userCtx.UserID), zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, "Realtime stream unavailable")
		return nil, "", false
	}
	return sub, userCtx.UserID, true
}

// Events godoc
// @Summary Realtime event stream
// @Description Server-sent events for the caller: maintenance.updated, message.created, conversation.deleted, notification.created.
// @Description Browsers may pass the token as the access_token query parameter.
// @Tags Realtime
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /stream [get]
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	sub, userID, ok := h.subscribe(w, r)
	if !ok {
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.logger.Debug("event stream opened", zap.String("userID", userID))
	defer h.logger.Debug("event stream closed", zap.String("userID", userID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-sub.C:
			if !open {
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event realtime.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, body)
	return err
}

// WebSocket godoc
// @Summary Realtime event stream over WebSocket
// @Description Same events as /stream, one JSON object per text frame. Client frames are ignored.
// @Tags Realtime
// @Success 101 {string} string "switching protocols"
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /stream/ws [get]
func (h *StreamHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	sub, userID, ok := h.subscribe(w, r)
	if !ok {
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("userID", userID), zap.Error(err))
		return
	}
	defer conn.Close()

	// the read loop only services control frames and notices disconnects
	done := make(chan struct{})
	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWindow))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWindow))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case event, open := <-sub.C:
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("websocket write failed", zap.String("userID", userID), zap.Error(err))
				return
			}
		}
	}
}
