package service

import (
	"log/slog"

	"github.com/taskora/event-delivery-service/config"
	adapter "github.com/taskora/event-delivery-service/internal/adapter/pubsub"
	"github.com/taskora/event-delivery-service/internal/domain/registry"
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		fx.Annotate(
			func(hub registry.Hubber, cfg *config.Config) *DeliveryService {
				return NewDeliveryService(hub, cfg.Delivery.BufferSize)
			},
			fx.As(new(Deliverer)),
		),
		fx.Annotate(
			NewEventBridge,
			fx.As(new(Bridger)),
		),
		func(publisher adapter.Publisher, bridge Bridger, logger *slog.Logger, cfg *config.Config) *Emitter {
			return NewEmitter(publisher, bridge, logger, cfg.Delivery.PublishTimeout)
		},
	),
)
