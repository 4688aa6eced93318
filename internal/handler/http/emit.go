package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/taskora/event-delivery-service/internal/domain/event"
	"github.com/taskora/event-delivery-service/internal/service"
)

// EmitHandler lets a trusted caller trigger an event directly over HTTP,
// bypassing the bus. Sibling services without broker access use this path;
// it is also the simplest way to exercise a live stream by hand.
type EmitHandler struct {
	logger  *slog.Logger
	emitter *service.Emitter
}

func NewEmitHandler(logger *slog.Logger, emitter *service.Emitter) *EmitHandler {
	return &EmitHandler{
		logger:  logger,
		emitter: emitter,
	}
}

type emitRequest struct {
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
}

type emitResponse struct {
	Status    string `json:"status"`
	EventType string `json:"event_type"`
	Delivered bool   `json:"delivered"`
}

// ServeHTTP emits an event addressed to the authenticated subject. The
// user_id always comes from the verified token, never the body, so a caller
// cannot inject events into another user's stream.
func (h *EmitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req emitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	delivered, err := h.emitter.Emit(event.Type(req.EventType), userID, req.Payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Debug("direct emit", "event_type", req.EventType, "user_id", userID, "delivered", delivered)
	writeJSON(w, emitResponse{
		Status:    "success",
		EventType: req.EventType,
		Delivered: delivered,
	})
}
