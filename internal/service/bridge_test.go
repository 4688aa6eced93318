package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskora/event-delivery-service/internal/domain/event"
	"github.com/taskora/event-delivery-service/internal/domain/model"
	"github.com/taskora/event-delivery-service/internal/domain/registry"
)

// fakeHub records broadcasts and answers with a fixed delivery count.
type fakeHub struct {
	mu        sync.Mutex
	delivered int
	events    []*event.Event
}

var _ registry.Hubber = (*fakeHub)(nil)

func (f *fakeHub) Broadcast(ev *event.Event) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.delivered
}

func (f *fakeHub) Register(model.Connector)          {}
func (f *fakeHub) Unregister(string, string)         {}
func (f *fakeHub) Snapshot(string) []model.Connector { return nil }
func (f *fakeHub) IsConnected(string) bool           { return false }
func (f *fakeHub) Stats() model.HubStats             { return model.HubStats{} }
func (f *fakeHub) Shutdown()                         {}

func (f *fakeHub) broadcasts() []*event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*event.Event(nil), f.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleIncoming(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		defaultType event.Type
		delivered   int
		wantStatus  string
		wantReason  string
		wantSentTo  int
	}{
		{
			name:       "routable event",
			raw:        `{"event_id":"e1","event_type":"task.created","user_id":"user-1","payload":{"task_id":1}}`,
			delivered:  2,
			wantStatus: "success",
			wantSentTo: 2,
		},
		{
			name:       "wrapped envelope unwrapped",
			raw:        `{"data":{"event_id":"e2","event_type":"task.updated","user_id":"user-1"}}`,
			delivered:  1,
			wantStatus: "success",
			wantSentTo: 1,
		},
		{
			name:       "no subscribers still succeeds",
			raw:        `{"event_id":"e3","event_type":"task.created","user_id":"nobody"}`,
			delivered:  0,
			wantStatus: "success",
			wantSentTo: 0,
		},
		{
			name:       "malformed json",
			raw:        `{not json`,
			wantStatus: "error",
		},
		{
			name:       "empty data",
			raw:        `{"data":{}}`,
			wantStatus: "ignored",
			wantReason: "empty data",
		},
		{
			name:       "empty body object",
			raw:        `{}`,
			wantStatus: "ignored",
			wantReason: "empty data",
		},
		{
			name:       "missing user id",
			raw:        `{"event_id":"e4","event_type":"task.created","payload":{"task_id":1}}`,
			wantStatus: "ignored",
			wantReason: "missing user_id",
		},
		{
			name:        "reminder default type applied",
			raw:         `{"event_id":"e5","user_id":"user-1","task_id":9,"title":"standup"}`,
			defaultType: event.TaskReminder,
			delivered:   1,
			wantStatus:  "success",
			wantSentTo:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := &fakeHub{delivered: tt.delivered}
			bridge := NewEventBridge(hub, discardLogger())

			out := bridge.HandleIncoming([]byte(tt.raw), tt.defaultType)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantSentTo, out.Delivered())
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, out.Reason)
			}
		})
	}
}

func TestOutcome_WireShape(t *testing.T) {
	hub := &fakeHub{delivered: 0}
	bridge := NewEventBridge(hub, discardLogger())

	// Non-success bodies carry only status and reason.
	body, err := json.Marshal(bridge.HandleIncoming([]byte(`{"data":{}}`), ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ignored","reason":"empty data"}`, string(body))

	body, err = json.Marshal(bridge.HandleIncoming([]byte(`{not json`), ""))
	require.NoError(t, err)
	fields := map[string]any{}
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.NotContains(t, fields, "sent_to")

	// A successful pass keeps the count even when nobody was listening.
	body, err = json.Marshal(bridge.HandleIncoming(
		[]byte(`{"event_id":"e9","event_type":"task.created","user_id":"nobody"}`), ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","sent_to":0}`, string(body))
}

func TestHandleIncoming_DefaultTypeRouting(t *testing.T) {
	hub := &fakeHub{delivered: 1}
	bridge := NewEventBridge(hub, discardLogger())

	out := bridge.HandleIncoming([]byte(`{"user_id":"user-1","task_id":3}`), event.TaskReminder)
	require.Equal(t, "success", out.Status)

	events := hub.broadcasts()
	require.Len(t, events, 1)
	assert.Equal(t, event.TaskReminder, events[0].Type)
	assert.Equal(t, "user-1", events[0].UserID)
}

func TestHandleIncoming_SuppressesDuplicates(t *testing.T) {
	hub := &fakeHub{delivered: 1}
	bridge := NewEventBridge(hub, discardLogger())

	raw := []byte(`{"event_id":"dup-1","event_type":"task.created","user_id":"user-1"}`)

	first := bridge.HandleIncoming(raw, "")
	assert.Equal(t, "success", first.Status)

	second := bridge.HandleIncoming(raw, "")
	assert.Equal(t, "ignored", second.Status)
	assert.Equal(t, "duplicate", second.Reason)

	assert.Len(t, hub.broadcasts(), 1)
}

func TestHandleIncoming_SuppressesBusEchoAfterLocalBroadcast(t *testing.T) {
	hub := &fakeHub{delivered: 1}
	bridge := NewEventBridge(hub, discardLogger())

	ev := event.NewTaskCreated("user-1", 5, nil)
	assert.Equal(t, 1, bridge.BroadcastLocal(ev))

	// The bus copy of the same emission arrives later.
	echo, err := json.Marshal(ev)
	require.NoError(t, err)

	out := bridge.HandleIncoming(echo, "")
	assert.Equal(t, "ignored", out.Status)
	assert.Equal(t, "duplicate", out.Reason)
	assert.Len(t, hub.broadcasts(), 1)
}

func TestEmitDirect(t *testing.T) {
	hub := &fakeHub{delivered: 1}
	bridge := NewEventBridge(hub, discardLogger())

	assert.True(t, bridge.EmitDirect("user-1", event.UserLogin, map[string]any{"ip": "127.0.0.1"}))

	hub.delivered = 0
	assert.False(t, bridge.EmitDirect("user-1", event.UserLogin, nil),
		"no live connections means no direct delivery")

	assert.False(t, bridge.EmitDirect("", event.UserLogin, nil))
	assert.False(t, bridge.EmitDirect("user-1", event.Type("bogus"), nil))
}

func TestDeliveryService_SubscribeUnsubscribe(t *testing.T) {
	hub := registry.NewHub(registry.WithSendTimeout(10 * time.Millisecond))
	t.Cleanup(hub.Shutdown)

	svc := NewDeliveryService(hub, 4)

	conn, err := svc.Subscribe(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, hub.IsConnected("user-1"))

	svc.Unsubscribe("user-1", conn.GetID())
	conn.Close()
	assert.False(t, hub.IsConnected("user-1"))
}
