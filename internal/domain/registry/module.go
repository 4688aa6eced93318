package registry

import (
	"context"

	"github.com/taskora/event-delivery-service/config"
	"go.uber.org/fx"
)

var Module = fx.Module("registry",
	fx.Provide(
		// [CLEAN_INJECTION] Configure Hub using Functional Options
		func(cfg *config.Config) *Hub {
			return NewHub(
				WithSendTimeout(cfg.Delivery.SendTimeout),
				WithEvictionInterval(cfg.Registry.EvictionInterval),
				WithIdleTimeout(cfg.Registry.IdleTimeout),
			)
		},
		fx.Annotate(
			func(h *Hub) Hubber { return h },
			fx.As(new(Hubber)),
		),
	),
	fx.Invoke(func(lc fx.Lifecycle, h Hubber) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				h.Shutdown() // [GRACEFUL_SHUTDOWN] Close all live sessions
				return nil
			},
		})
	}),
)
