package ws

import (
	httphandler "github.com/taskora/event-delivery-service/internal/handler/http"
	"go.uber.org/fx"
)

var Module = fx.Module("ws-handler",
	fx.Provide(
		fx.Annotate(
			NewWSHandler,
			fx.As(new(httphandler.StreamHandler)),
		),
	),
)
