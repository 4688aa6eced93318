package event

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type tags every event with its place in the closed domain taxonomy.
type Type string

const (
	// ------------------- TASK LIFECYCLE -------------------
	TaskCreated   Type = "task.created"
	TaskUpdated   Type = "task.updated"
	TaskDeleted   Type = "task.deleted"
	TaskCompleted Type = "task.completed"
	TaskRecurred  Type = "task.recurred"
	TaskReminder  Type = "task.reminder"

	// ------------------- USER ACTIVITY --------------------
	UserLogin      Type = "user.login"
	UserLogout     Type = "user.logout"
	UserRegistered Type = "user.registered"

	// ------------------- CHAT ASSISTANT -------------------
	ChatMessageSent      Type = "chat.message_sent"
	ChatResponseReceived Type = "chat.response_received"
)

var taxonomy = map[Type]struct{}{
	TaskCreated: {}, TaskUpdated: {}, TaskDeleted: {}, TaskCompleted: {},
	TaskRecurred: {}, TaskReminder: {},
	UserLogin: {}, UserLogout: {}, UserRegistered: {},
	ChatMessageSent: {}, ChatResponseReceived: {},
}

// Valid reports whether the tag belongs to the closed taxonomy.
func (t Type) Valid() bool {
	_, ok := taxonomy[t]
	return ok
}

func (t Type) String() string { return string(t) }

var (
	ErrUnknownType = errors.New("event: unknown event type")
	ErrEmptyUserID = errors.New("event: empty user id")
)

// Event is the immutable envelope for one domain occurrence.
//
// [ROUTING_TARGET] UserID is the delivery key: every event belongs to exactly
// one user and is fanned out to that user's live connections only.
// The envelope has no persistence; it exists only for the duration of delivery.
type Event struct {
	ID        string `json:"event_id"`
	Type      Type   `json:"event_type"`
	Timestamp string `json:"timestamp"` // UTC, RFC 3339
	UserID    string `json:"user_id"`
	Payload   any    `json:"payload"`
}

// New assembles a validated envelope for an arbitrary taxonomy tag.
// The typed constructors in task.go/user.go/chat.go are preferred; New is the
// entry point for callers that carry the tag as data (inbound bridge).
func New(typ Type, userID string, payload any) (*Event, error) {
	if !typ.Valid() {
		return nil, ErrUnknownType
	}
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	return newEvent(typ, userID, payload), nil
}

// newEvent is the unchecked assembly path used by the typed constructors,
// which guarantee their inputs by signature.
func newEvent(typ Type, userID string, payload any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		UserID:    userID,
		Payload:   payload,
	}
}

// FromRaw rebuilds an envelope from a decoded inbound body (webhook or bus).
// Identity fields are preserved when the producer supplied them so that a
// redelivered event keeps a stable event_id; missing ones are filled in.
// The payload stays an open map; inbound shapes are validated upstream.
func FromRaw(data map[string]any, defaultType Type) *Event {
	ev := &Event{
		ID:        stringField(data, "event_id"),
		Type:      Type(stringField(data, "event_type")),
		Timestamp: stringField(data, "timestamp"),
		UserID:    stringField(data, "user_id"),
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Type == "" {
		ev.Type = defaultType
	}
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if payload, ok := data["payload"].(map[string]any); ok {
		ev.Payload = payload
	} else {
		// Flat producers put payload fields at the top level.
		ev.Payload = data
	}
	return ev
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}
