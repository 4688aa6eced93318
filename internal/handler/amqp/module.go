package amqp

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/taskora/event-delivery-service/config"
	"github.com/taskora/event-delivery-service/infra/pubsub"
	"go.uber.org/fx"
)

var Module = fx.Module("amqp-handler",
	fx.Provide(
		NewEventHandler,
		NewWatermillRouter,
	),

	fx.Invoke(func(lc fx.Lifecycle, h *EventHandler, router *message.Router, factory *pubsub.Factory, cfg *config.Config, logger *slog.Logger) error {
		if err := h.RegisterHandlers(router, factory, cfg); err != nil {
			// Consumer wiring failure is degraded mode, not a boot failure:
			// the HTTP webhook path still carries inbound events.
			logger.Warn("amqp consumers unavailable, continuing with webhook ingestion only", "err", err)
			return nil
		}

		runCtx, cancel := context.WithCancel(context.Background())

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if !cfg.AMQP.Enabled {
					return nil
				}
				go func() {
					if err := router.Run(runCtx); err != nil {
						logger.Error("watermill router stopped", "err", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				cancel()
				return router.Close()
			},
		})
		return nil
	}),
)
