package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/taskora/event-delivery-service/config"
	"github.com/taskora/event-delivery-service/internal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("http-handler",
	fx.Provide(
		func(logger *slog.Logger, deliverer service.Deliverer, cfg *config.Config) *SSEHandler {
			return NewSSEHandler(logger, deliverer, cfg.Delivery.KeepaliveInterval)
		},
		NewWebhookHandler,
		NewEmitHandler,
		NewStatsHandler,
		NewHealthHandler,
		NewRouter,
	),

	fx.Invoke(RegisterServer),
)

// RegisterServer binds the HTTP server to the fx lifecycle.
func RegisterServer(lc fx.Lifecycle, cfg *config.Config, router chi.Router, logger *slog.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
		// No global read/write timeouts: /stream connections stay open for
		// the lifetime of the client session.
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("http server listening", "addr", cfg.HTTP.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server failed", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
