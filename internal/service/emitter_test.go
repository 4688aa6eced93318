package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	adapter "github.com/taskora/event-delivery-service/internal/adapter/pubsub"
	"github.com/taskora/event-delivery-service/internal/domain/event"
)

// stubPublisher answers Publish with a fixed result and records topics.
type stubPublisher struct {
	mu     sync.Mutex
	ok     bool
	topics []string
	events []*event.Event
}

var _ adapter.Publisher = (*stubPublisher)(nil)

func (s *stubPublisher) Publish(_ context.Context, topic string, ev *event.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
	s.events = append(s.events, ev)
	return s.ok
}

func (s *stubPublisher) Available() bool                  { return s.ok }
func (s *stubPublisher) HealthCheck(context.Context) bool { return s.ok }

func (s *stubPublisher) published() ([]string, []*event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.topics...), append([]*event.Event(nil), s.events...)
}

// stubBridge records local broadcasts and answers with a fixed count.
type stubBridge struct {
	mu        sync.Mutex
	delivered int
	events    []*event.Event
}

var _ Bridger = (*stubBridge)(nil)

func (s *stubBridge) HandleIncoming([]byte, event.Type) Outcome { return Outcome{} }
func (s *stubBridge) EmitDirect(string, event.Type, any) bool   { return false }

func (s *stubBridge) BroadcastLocal(ev *event.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.delivered
}

func (s *stubBridge) broadcasts() []*event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*event.Event(nil), s.events...)
}

func newTestEmitter(busOK bool, localDelivered int) (*Emitter, *stubPublisher, *stubBridge) {
	pub := &stubPublisher{ok: busOK}
	bridge := &stubBridge{delivered: localDelivered}
	return NewEmitter(pub, bridge, discardLogger(), time.Second), pub, bridge
}

func TestEmitter_ResultCombination(t *testing.T) {
	tests := []struct {
		name      string
		busOK     bool
		delivered int
		want      bool
	}{
		{name: "both paths succeed", busOK: true, delivered: 1, want: true},
		{name: "bus down, local delivery carries", busOK: false, delivered: 2, want: true},
		{name: "bus up, nobody connected locally", busOK: true, delivered: 0, want: true},
		{name: "both paths fail", busOK: false, delivered: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emitter, pub, bridge := newTestEmitter(tt.busOK, tt.delivered)

			assert.Equal(t, tt.want, emitter.TaskCreated("user-1", 1, nil))

			// Both paths always run regardless of the other's outcome.
			topics, _ := pub.published()
			assert.Len(t, topics, 1)
			assert.Len(t, bridge.broadcasts(), 1)
		})
	}
}

func TestEmitter_SameEventOnBothPaths(t *testing.T) {
	emitter, pub, bridge := newTestEmitter(true, 1)

	require.True(t, emitter.TaskUpdated("user-1", 3, map[string]any{"title": "x"}, []string{"title"}))

	_, busEvents := pub.published()
	localEvents := bridge.broadcasts()
	require.Len(t, busEvents, 1)
	require.Len(t, localEvents, 1)

	// The bus copy and the local copy share one event_id so the inbound
	// bridge can recognize the echo.
	assert.Equal(t, busEvents[0].ID, localEvents[0].ID)
}

func TestEmitter_TopicRouting(t *testing.T) {
	emitter, pub, _ := newTestEmitter(true, 0)

	emitter.TaskCreated("u", 1, nil)
	emitter.TaskReminder("u", 1, "standup", "2026-09-02T09:00:00Z")
	emitter.UserLogin("u", nil)
	emitter.ChatMessageSent("u", 1, "hi", nil)

	topics, events := pub.published()
	require.Len(t, topics, 4)
	assert.Equal(t, []string{
		adapter.TopicTaskEvents,
		adapter.TopicReminderEvents,
		adapter.TopicUserEvents,
		adapter.TopicChatEvents,
	}, topics)
	assert.Equal(t, event.TaskReminder, events[1].Type)
}

func TestEmitter_GenericEmit(t *testing.T) {
	emitter, pub, _ := newTestEmitter(true, 0)

	ok, err := emitter.Emit(event.UserLogout, "user-1", map[string]any{"reason": "manual"})
	require.NoError(t, err)
	assert.True(t, ok)

	topics, events := pub.published()
	require.Len(t, topics, 1)
	assert.Equal(t, adapter.TopicUserEvents, topics[0])
	assert.Equal(t, "user-1", events[0].UserID)

	_, err = emitter.Emit(event.Type("not.a.thing"), "user-1", nil)
	assert.ErrorIs(t, err, event.ErrUnknownType)

	_, err = emitter.Emit(event.TaskCreated, "", nil)
	assert.ErrorIs(t, err, event.ErrEmptyUserID)
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, adapter.TopicTaskEvents, adapter.TopicFor(event.TaskCompleted))
	assert.Equal(t, adapter.TopicReminderEvents, adapter.TopicFor(event.TaskReminder))
	assert.Equal(t, adapter.TopicUserEvents, adapter.TopicFor(event.UserRegistered))
	assert.Equal(t, adapter.TopicChatEvents, adapter.TopicFor(event.ChatResponseReceived))
}
