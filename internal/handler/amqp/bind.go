package amqp

import (
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/taskora/event-delivery-service/internal/domain/event"
)

// [INFRASTRUCTURE_BRIDGE]
// Bind connects a Watermill consumer to the event bridge, handling panic
// recovery and terminal-state ACKs.
func Bind(h *EventHandler, defaultType event.Type) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		// [PANIC_RECOVERY]
		// Keep the consumer alive whatever the payload does to us.
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("panic recovered in amqp handler",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
			}
		}()

		outcome := h.bridge.HandleIncoming(msg.Payload, defaultType)

		switch outcome.Status {
		case "success":
			h.logger.Debug("bus event delivered",
				"msg_id", msg.UUID,
				"sent_to", outcome.Delivered(),
			)
		case "ignored":
			// ACK: unroutable or duplicate envelopes are terminal states;
			// redelivery cannot fix them.
			h.logger.Debug("bus event ignored",
				"msg_id", msg.UUID,
				"reason", outcome.Reason,
			)
		case "error":
			// ACK anyway: a poison payload stays a poison payload. The
			// bridge already logged the details.
			h.logger.Warn("bus event failed processing",
				"msg_id", msg.UUID,
				"reason", outcome.Reason,
			)
		}

		return nil
	}
}
