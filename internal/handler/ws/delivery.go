package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	httphandler "github.com/taskora/event-delivery-service/internal/handler/http"
	"github.com/taskora/event-delivery-service/internal/service"
)

// WSHandler is the WebSocket variant of the event stream, for clients that
// want a bidirectional transport instead of SSE. Delivery semantics are
// identical: same registry, same fan-out, same eviction.
type WSHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	upgrader  websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, deliverer service.Deliverer) *WSHandler {
	return &WSHandler{
		logger:    logger,
		deliverer: deliverer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

// wsEvent mirrors the SSE frame as a single JSON message.
type wsEvent struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := httphandler.UserID(r.Context())
	if !ok {
		http.Error(w, "authentication context missing", http.StatusUnauthorized)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "err", err)
		return
	}
	defer ws.Close()

	conn, err := h.deliverer.Subscribe(r.Context(), userID)
	if err != nil {
		return
	}
	defer func() {
		h.deliverer.Unsubscribe(userID, conn.GetID())
		conn.Close()
	}()

	l := h.logger.With("user_id", userID, "conn_id", conn.GetID())
	l.Info("ws opened")

	handshake, _ := json.Marshal(wsEvent{
		Event: "connected",
		Payload: map[string]string{
			"connection_id": conn.GetID(),
			"user_id":       userID,
		},
	})
	if err := ws.WriteMessage(websocket.TextMessage, handshake); err != nil {
		return
	}

	// The request context goes quiet once the connection is hijacked, so
	// client disconnects are observed through the read pump instead.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			// Evicted by the broadcaster or closed on shutdown.
			return
		case ev := <-conn.Recv():
			data, err := json.Marshal(wsEvent{Event: ev.Type.String(), Payload: ev})
			if err != nil {
				l.Warn("failed to marshal ws event", "err", err)
				continue
			}

			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				l.Warn("ws send failed", "err", err)
				return
			}
		}
	}
}
