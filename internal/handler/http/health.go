package http

import (
	"net/http"

	adapter "github.com/taskora/event-delivery-service/internal/adapter/pubsub"
)

// HealthHandler reports liveness plus the reachability of the two optional
// backends. Degraded backends do not fail the probe: the service keeps
// delivering to local subscribers without them.
type HealthHandler struct {
	publisher adapter.Publisher
	invoker   adapter.Invoker
}

func NewHealthHandler(publisher adapter.Publisher, invoker adapter.Invoker) *HealthHandler {
	return &HealthHandler{
		publisher: publisher,
		invoker:   invoker,
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Bus     bool   `json:"bus"`
	Sidecar bool   `json:"sidecar"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:  "ok",
		Bus:     h.publisher.HealthCheck(r.Context()),
		Sidecar: h.invoker.Healthy(r.Context()),
	})
}
