package http

import (
	"net/http"
)

// Subscription declares one broker topic this service consumes and the
// local route the sidecar should push it to.
type Subscription struct {
	PubsubName string            `json:"pubsubname"`
	Topic      string            `json:"topic"`
	Route      string            `json:"route"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

const pubsubName = "taskora-pubsub"

// subscriptions is the static consumption contract; the sidecar polls this
// at startup to wire its push routes.
var subscriptions = []Subscription{
	{
		PubsubName: pubsubName,
		Topic:      "task-events",
		Route:      "/api/events/task-event",
		Metadata:   map[string]string{"rawPayload": "true"},
	},
	{
		PubsubName: pubsubName,
		Topic:      "reminder-events",
		Route:      "/api/events/reminder-event",
		Metadata:   map[string]string{"rawPayload": "true"},
	},
}

// Subscriptions serves the broker subscription descriptor.
func Subscriptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, subscriptions)
}
