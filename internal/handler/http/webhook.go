package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/taskora/event-delivery-service/internal/domain/event"
	"github.com/taskora/event-delivery-service/internal/service"
)

// WebhookHandler receives event envelopes pushed by the broker sidecar.
//
// Every response is HTTP 200 with an outcome body: surfacing processing
// failures as HTTP errors would make the broker retry malformed messages
// indefinitely. Failures are logged, not raised.
type WebhookHandler struct {
	logger *slog.Logger
	bridge service.Bridger
}

func NewWebhookHandler(logger *slog.Logger, bridge service.Bridger) *WebhookHandler {
	return &WebhookHandler{
		logger: logger,
		bridge: bridge,
	}
}

// TaskEvents handles the task-events topic feed.
func (h *WebhookHandler) TaskEvents(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "")
}

// ReminderEvents handles the reminder-events topic feed. Reminder producers
// predate the envelope format and may omit event_type; default it.
func (h *WebhookHandler) ReminderEvents(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, event.TaskReminder)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request, defaultType event.Type) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("failed to read webhook body", "err", err)
		writeJSON(w, service.Outcome{Status: "error", Reason: "unreadable body"})
		return
	}

	writeJSON(w, h.bridge.HandleIncoming(body, defaultType))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
