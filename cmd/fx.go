package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/taskora/event-delivery-service/config"
	infra "github.com/taskora/event-delivery-service/infra/pubsub"
	adapter "github.com/taskora/event-delivery-service/internal/adapter/pubsub"
	"github.com/taskora/event-delivery-service/internal/auth"
	"github.com/taskora/event-delivery-service/internal/domain/registry"
	amqphandler "github.com/taskora/event-delivery-service/internal/handler/amqp"
	httphandler "github.com/taskora/event-delivery-service/internal/handler/http"
	wshandler "github.com/taskora/event-delivery-service/internal/handler/ws"
	"github.com/taskora/event-delivery-service/internal/service"
	"go.uber.org/fx"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvidePubSub,
			ProvidePublisher,
			ProvideInvoker,
			ProvideVerifier,
		),
		registry.Module,
		service.Module,
		httphandler.Module,
		wshandler.Module,
		amqphandler.Module,
	)
}

func ProvideLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With(
		"service", cfg.Service.Name,
		"version", cfg.Service.Version,
	)
	slog.SetDefault(logger)
	return logger
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}

func ProvidePubSub(cfg *config.Config, logger watermill.LoggerAdapter) *infra.Factory {
	return infra.NewFactory(cfg.AMQP.URI, logger)
}

func ProvidePublisher(lc fx.Lifecycle, cfg *config.Config, factory *infra.Factory, logger *slog.Logger) adapter.Publisher {
	p := adapter.NewBusPublisher(cfg, factory, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.Close()
		},
	})
	return p
}

func ProvideInvoker(cfg *config.Config, logger *slog.Logger) adapter.Invoker {
	return adapter.NewSidecarInvoker(cfg.Sidecar.BaseURL, logger)
}

func ProvideVerifier(cfg *config.Config) auth.Verifier {
	return auth.NewJWTVerifier(cfg.Auth.Secret)
}
