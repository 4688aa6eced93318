package amqp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/taskora/event-delivery-service/config"
	"github.com/taskora/event-delivery-service/infra/pubsub"
	adapter "github.com/taskora/event-delivery-service/internal/adapter/pubsub"
	"github.com/taskora/event-delivery-service/internal/domain/event"
	"github.com/taskora/event-delivery-service/internal/service"
)

// [CONSUMER_QUEUE] base name; per-node suffixes are added at registration.
const DeliveryProcessorQueue = "taskora-delivery.incoming-processor.v1"

// EventHandler consumes event topics from the bus and forwards them into
// the same bridge the HTTP webhooks feed. This is the broker-push path for
// deployments wired straight to AMQP instead of a sidecar.
type EventHandler struct {
	bridge service.Bridger
	logger *slog.Logger
}

func NewEventHandler(bridge service.Bridger, logger *slog.Logger) *EventHandler {
	return &EventHandler{bridge: bridge, logger: logger}
}

func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{}, logger)
}

// [REGISTRATION_PIPELINE]
func (h *EventHandler) RegisterHandlers(router *message.Router, factory *pubsub.Factory, cfg *config.Config) error {
	if !cfg.AMQP.Enabled {
		h.logger.Info("bus disabled, skipping amqp consumers")
		return nil
	}

	configs := []struct {
		name        string
		topic       string
		defaultType event.Type
	}{
		{"ON_TASK_EVENT", adapter.TopicTaskEvents, ""},
		{"ON_REMINDER_EVENT", adapter.TopicReminderEvents, event.TaskReminder},
	}

	for _, c := range configs {
		instanceID := uuid.NewString()[:8]
		// [UNIQUE_HANDLER_QUEUE]
		// Each handler on each node consumes through its own queue.
		// Format: taskora-delivery.incoming-processor.v1.b23a8f12.ON_TASK_EVENT
		handlerQueue := fmt.Sprintf("%s.%s.%s", DeliveryProcessorQueue, instanceID, c.name)

		sub, err := factory.BuildSubscriber(handlerQueue, cfg.AMQP.Exchange, c.topic)
		if err != nil {
			return fmt.Errorf("build subscriber for %s: %w", c.topic, err)
		}

		router.AddNoPublisherHandler(c.name, c.topic, sub, Bind(h, c.defaultType)).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			middleware.NewThrottle(100, time.Second).Middleware,
			middleware.Timeout(time.Second*30),
		)
	}

	h.logger.Info("amqp pipeline ready", "queue", DeliveryProcessorQueue)
	return nil
}
