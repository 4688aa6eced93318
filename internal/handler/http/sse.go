package http

import (
	"log/slog"
	"net/http"
	"time"

	ssemarshaller "github.com/taskora/event-delivery-service/internal/handler/marshaller/sse"
	"github.com/taskora/event-delivery-service/internal/service"
)

// SSEHandler serves the long-lived event stream. One request is one
// streaming session: register a connection, pump frames, clean up on every
// exit path.
type SSEHandler struct {
	logger            *slog.Logger
	deliverer         service.Deliverer
	keepaliveInterval time.Duration
}

func NewSSEHandler(logger *slog.Logger, deliverer service.Deliverer, keepaliveInterval time.Duration) *SSEHandler {
	if keepaliveInterval <= 0 {
		keepaliveInterval = 30 * time.Second
	}
	return &SSEHandler{
		logger:            logger,
		deliverer:         deliverer,
		keepaliveInterval: keepaliveInterval,
	}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "authentication context missing", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Intermediaries must not buffer or cache the stream.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// [SESSION_ATTACHMENT] Bind this request to the user's connection set.
	conn, err := h.deliverer.Subscribe(r.Context(), userID)
	if err != nil {
		h.logger.Error("subscription rejected", "user_id", userID, "err", err)
		return
	}

	l := h.logger.With("user_id", userID, "conn_id", conn.GetID())

	// [RESOURCE_RECLAMATION] Registry removal runs on every exit path:
	// client disconnect, server shutdown, handler panic.
	defer func() {
		h.deliverer.Unsubscribe(userID, conn.GetID())
		conn.Close()
		l.Info("sse connection closed")
	}()

	l.Info("sse connection opened")

	// [HANDSHAKE] Confirm the link is live before any real event.
	if _, err := w.Write(ssemarshaller.ConnectedFrame(conn.GetID(), userID)); err != nil {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(h.keepaliveInterval)
	defer keepalive.Stop()

	// [EVENT_LOOP] A single select races the mailbox, the connection
	// lifecycle and the keepalive clock, so disconnects and evictions are
	// observed immediately instead of once per poll interval.
	for {
		select {
		case <-r.Context().Done():
			// Client went away or the server is shutting down.
			return

		case <-conn.Done():
			// Evicted by the broadcaster or closed on shutdown.
			return

		case ev := <-conn.Recv():
			frame, err := ssemarshaller.Frame(ev)
			if err != nil {
				l.Warn("failed to render event frame", "event_id", ev.ID, "err", err)
				continue
			}
			if _, err := w.Write(frame); err != nil {
				l.Warn("frame transmission failed", "err", err)
				return
			}
			flusher.Flush()

		case <-keepalive.C:
			if _, err := w.Write(ssemarshaller.KeepaliveFrame()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
