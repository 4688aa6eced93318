// Package ssemarshaller renders domain events as Server-Sent-Events frames.
package ssemarshaller

import (
	"encoding/json"
	"fmt"

	"github.com/taskora/event-delivery-service/internal/domain/event"
)

// Frame renders one event as `event: <type>\ndata: <json>\n\n`.
// The data block is the full envelope so clients can correlate event_id
// and timestamp without a second fetch.
func Frame(ev *event.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("sse marshaller: %w", err)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, data)), nil
}

// ConnectedFrame is the handshake confirming the link is live and naming the
// connection for diagnostics.
func ConnectedFrame(connectionID, userID string) []byte {
	data, _ := json.Marshal(map[string]string{
		"connection_id": connectionID,
		"user_id":       userID,
	})
	return []byte(fmt.Sprintf("event: connected\ndata: %s\n\n", data))
}

// KeepaliveFrame is a comment no-op that keeps intermediary proxies from
// timing out an idle stream.
func KeepaliveFrame() []byte {
	return []byte(": keepalive\n\n")
}
