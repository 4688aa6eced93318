package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmsg "github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"
	"github.com/taskora/event-delivery-service/config"
	"github.com/taskora/event-delivery-service/infra/pubsub"
	"github.com/taskora/event-delivery-service/internal/domain/event"
)

// Topics this service publishes domain events to.
const (
	TopicTaskEvents     = "task-events"
	TopicUserEvents     = "user-events"
	TopicChatEvents     = "chat-events"
	TopicReminderEvents = "reminder-events"
)

// TopicFor maps a taxonomy tag to the bus topic carrying it.
func TopicFor(typ event.Type) string {
	switch {
	case typ == event.TaskReminder:
		return TopicReminderEvents
	case strings.HasPrefix(typ.String(), "task."):
		return TopicTaskEvents
	case strings.HasPrefix(typ.String(), "user."):
		return TopicUserEvents
	case strings.HasPrefix(typ.String(), "chat."):
		return TopicChatEvents
	default:
		return TopicTaskEvents
	}
}

// Publisher is the best-effort outbound gate to the message bus.
//
// Broker unavailability is a degraded mode, not an error condition: every
// method converts transport failure into a boolean and logs at warning
// level. Retries, if any, belong to the caller.
type Publisher interface {
	// Publish reports true only if the broker accepted the message.
	Publish(ctx context.Context, topic string, ev *event.Event) bool
	// Available is the cheap local gate: configuration flag plus breaker
	// state, no network I/O.
	Available() bool
	// HealthCheck actually probes the broker. It performs network I/O;
	// use sparingly.
	HealthCheck(ctx context.Context) bool
}

// Interface guard
var _ Publisher = (*BusPublisher)(nil)

type BusPublisher struct {
	cfg     config.AMQPConfig
	factory *pubsub.Factory
	logger  *slog.Logger

	// [DEGRADED_MODE] The breaker opens after consecutive publish failures;
	// while open, Publish and Available short-circuit without touching the
	// transport, and the periodic half-open probe restores service when the
	// broker comes back.
	breaker *gobreaker.CircuitBreaker

	// [LAZY_TRANSPORT] The AMQP publisher dials on first use so the process
	// boots cleanly with the broker down.
	mu  sync.Mutex
	pub wmsg.Publisher
}

func NewBusPublisher(cfg *config.Config, factory *pubsub.Factory, logger *slog.Logger) *BusPublisher {
	return &BusPublisher{
		cfg:     cfg.AMQP,
		factory: factory,
		logger:  logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "amqp-publisher",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

func (p *BusPublisher) Available() bool {
	return p.cfg.Enabled && p.breaker.State() != gobreaker.StateOpen
}

func (p *BusPublisher) Publish(ctx context.Context, topic string, ev *event.Event) bool {
	if !p.cfg.Enabled {
		p.logger.Debug("bus disabled, skipping publish", "topic", topic)
		return false
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("failed to marshal event for bus", "err", err, "event_id", ev.ID)
		return false
	}

	_, err = p.breaker.Execute(func() (any, error) {
		transport, err := p.transport()
		if err != nil {
			return nil, err
		}

		msg := wmsg.NewMessage(watermill.NewUUID(), payload)
		msg.SetContext(ctx)
		msg.Metadata.Set("event_type", ev.Type.String())

		return nil, transport.Publish(topic, msg)
	})
	if err != nil {
		p.logger.Warn("failed to publish event to bus",
			"topic", topic,
			"event_type", ev.Type,
			"err", err,
		)
		return false
	}

	p.logger.Info("published event to bus", "topic", topic, "event_type", ev.Type)
	return true
}

// HealthCheck dials the broker endpoint with a short deadline. It bypasses
// the breaker on purpose: the whole point is to observe the real transport.
func (p *BusPublisher) HealthCheck(ctx context.Context) bool {
	if !p.cfg.Enabled {
		return false
	}

	u, err := url.Parse(p.cfg.URI)
	if err != nil || u.Host == "" {
		return false
	}

	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "5672")
	}

	d := net.Dialer{Timeout: 2 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Close releases the underlying transport, if one was ever built.
func (p *BusPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pub == nil {
		return nil
	}
	err := p.pub.Close()
	p.pub = nil
	return err
}

func (p *BusPublisher) transport() (wmsg.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pub != nil {
		return p.pub, nil
	}
	pub, err := p.factory.BuildPublisher(p.cfg.Exchange)
	if err != nil {
		return nil, err
	}
	p.pub = pub
	return pub, nil
}
