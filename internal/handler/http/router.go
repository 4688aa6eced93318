package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/taskora/event-delivery-service/internal/auth"
)

// StreamHandler lets the router mount transports (SSE, WebSocket) without
// importing their packages.
type StreamHandler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// NewRouter assembles the public HTTP surface.
func NewRouter(
	logger *slog.Logger,
	verifier auth.Verifier,
	sse *SSEHandler,
	ws StreamHandler,
	webhooks *WebhookHandler,
	emit *EmitHandler,
	stats *StatsHandler,
	health *HealthHandler,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))

	r.Get("/healthz", health.ServeHTTP)

	r.Route("/api/events", func(r chi.Router) {
		// Streaming endpoints require an authenticated subject.
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(verifier))
			r.Get("/stream", sse.ServeHTTP)
			r.Get("/ws", ws.ServeHTTP)
			r.Post("/emit", emit.ServeHTTP)
		})

		// Broker-facing surface: sidecar push and discovery.
		r.Post("/task-event", webhooks.TaskEvents)
		r.Post("/reminder-event", webhooks.ReminderEvents)
		r.Get("/subscriptions", Subscriptions)

		// Introspection.
		r.Get("/stats", stats.ServeHTTP)
	})

	return r
}
