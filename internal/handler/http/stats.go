package http

import (
	"net/http"

	"github.com/taskora/event-delivery-service/internal/domain/registry"
)

// StatsHandler exposes registry introspection for dashboards and debugging.
// Read-only; no side effects.
type StatsHandler struct {
	hub registry.Hubber
}

func NewStatsHandler(hub registry.Hubber) *StatsHandler {
	return &StatsHandler{hub: hub}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.hub.Stats())
}
