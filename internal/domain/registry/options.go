package registry

import "time"

// Option defines a functional configuration type for the Hub.
type Option func(*Hub)

// WithSendTimeout bounds the per-connection enqueue wait during fan-out.
// Connections that stay saturated past this window are evicted.
func WithSendTimeout(d time.Duration) Option {
	return func(h *Hub) {
		h.config.sendTimeout = d
	}
}

// WithEvictionInterval configures how often the [JANITOR] process runs
// to reclaim memory from inactive users.
func WithEvictionInterval(d time.Duration) Option {
	return func(h *Hub) {
		h.config.evictionInterval = d
	}
}

// WithIdleTimeout defines the [QUIET_PERIOD] after which a user cell
// without active sessions is considered eligible for eviction.
func WithIdleTimeout(d time.Duration) Option {
	return func(h *Hub) {
		h.config.idleTimeout = d
	}
}
