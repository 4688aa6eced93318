package service

import (
	"encoding/json"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/taskora/event-delivery-service/internal/domain/event"
	"github.com/taskora/event-delivery-service/internal/domain/registry"
)

// Outcome reports how an inbound envelope was handled. It is always paired
// with HTTP 200 on the webhook surface so the broker never retries
// malformed messages forever.
type Outcome struct {
	Status string `json:"status"` // success | ignored | error
	Reason string `json:"reason,omitempty"`
	// SentTo is set only on success, so ignored and error bodies carry just
	// status and reason. A successful pass with zero subscribers still
	// reports "sent_to": 0 explicitly.
	SentTo *int `json:"sent_to,omitempty"`
}

// Delivered returns the fan-out count, 0 for non-success outcomes.
func (o Outcome) Delivered() int {
	if o.SentTo == nil {
		return 0
	}
	return *o.SentTo
}

func successOutcome(sentTo int) Outcome { return Outcome{Status: "success", SentTo: &sentTo} }
func ignoredOutcome(reason string) Outcome {
	return Outcome{Status: "ignored", Reason: reason}
}
func errorOutcome(err error) Outcome {
	return Outcome{Status: "error", Reason: err.Error()}
}

// Bridger normalizes inbound envelopes into the fan-out path.
type Bridger interface {
	// HandleIncoming processes a broker-pushed envelope (webhook or bus).
	// defaultType fills event_type for topic-scoped routes whose producers
	// omit it (reminder feed).
	HandleIncoming(raw []byte, defaultType event.Type) Outcome
	// EmitDirect constructs an event and broadcasts it locally, bypassing
	// the bus entirely. True iff at least one connection received it.
	EmitDirect(userID string, typ event.Type, payload any) bool
	// BroadcastLocal fans out an already-constructed event and records its
	// id so a later bus echo of the same emission is suppressed.
	BroadcastLocal(ev *event.Event) int
}

// Interface guard
var _ Bridger = (*EventBridge)(nil)

// dedupSize bounds the redelivery-suppression window; ids fall out in LRU
// order, so delivery stays at-least-once. The cache only swallows the
// common duplicate of a dual-path (bus + direct) emission.
const dedupSize = 4096

type EventBridge struct {
	hub    registry.Hubber
	logger *slog.Logger
	seen   *lru.Cache[string, struct{}]
}

func NewEventBridge(hub registry.Hubber, logger *slog.Logger) *EventBridge {
	seen, _ := lru.New[string, struct{}](dedupSize)
	return &EventBridge{
		hub:    hub,
		logger: logger,
		seen:   seen,
	}
}

func (b *EventBridge) HandleIncoming(raw []byte, defaultType event.Type) (out Outcome) {
	// [BOUNDARY_GUARD] Whatever goes wrong inside event processing must
	// surface as an "error" outcome, never crash the consumer or abort
	// sibling deliveries.
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while processing inbound event", "panic", r)
			out = errorOutcome(fmt.Errorf("internal error: %v", r))
		}
	}()

	var envelope map[string]any
	if err := json.Unmarshal(raw, &envelope); err != nil {
		b.logger.Warn("malformed inbound envelope", "err", err)
		return errorOutcome(err)
	}

	// The transport wraps payloads one level deep (CloudEvents-style
	// {"data": …}); unwrap when present, otherwise take the body as-is.
	data := envelope
	if inner, ok := envelope["data"].(map[string]any); ok {
		data = inner
	}

	if len(data) == 0 {
		b.logger.Warn("received empty event data")
		return ignoredOutcome("empty data")
	}

	ev := event.FromRaw(data, defaultType)
	if ev.UserID == "" {
		b.logger.Warn("event missing user_id, cannot route", "event_type", ev.Type)
		return ignoredOutcome("missing user_id")
	}

	// [REDELIVERY_SUPPRESSION] The direct path usually beats the bus copy
	// of the same emission; drop ids we already fanned out recently.
	if found, _ := b.seen.ContainsOrAdd(ev.ID, struct{}{}); found {
		b.logger.Debug("duplicate event suppressed", "event_id", ev.ID)
		return ignoredOutcome("duplicate")
	}

	sent := b.hub.Broadcast(ev)
	b.logger.Info("processed inbound event",
		"event_type", ev.Type,
		"user_id", ev.UserID,
		"sent_to", sent,
	)
	return successOutcome(sent)
}

func (b *EventBridge) EmitDirect(userID string, typ event.Type, payload any) bool {
	ev, err := event.New(typ, userID, payload)
	if err != nil {
		b.logger.Warn("refusing direct emission", "err", err, "event_type", typ)
		return false
	}
	return b.BroadcastLocal(ev) > 0
}

func (b *EventBridge) BroadcastLocal(ev *event.Event) int {
	b.seen.Add(ev.ID, struct{}{})
	return b.hub.Broadcast(ev)
}
