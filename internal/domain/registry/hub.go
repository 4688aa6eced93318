package registry

import (
	"sync"
	"time"

	"github.com/taskora/event-delivery-service/internal/domain/event"
	"github.com/taskora/event-delivery-service/internal/domain/model"
)

// Hubber defines the gateway for user session management and event routing.
type Hubber interface {
	Broadcast(ev *event.Event) int
	Register(conn model.Connector)
	Unregister(userID, connID string)
	Snapshot(userID string) []model.Connector
	IsConnected(userID string) bool
	Stats() model.HubStats
	Shutdown()
}

// Interface guard
var _ Hubber = (*Hub)(nil)

type hubConfig struct {
	sendTimeout      time.Duration
	evictionInterval time.Duration
	idleTimeout      time.Duration
}

// Hub implements the process-wide registry mapping user identity to the set
// of live subscriber connections.
type Hub struct {
	// cells stores Map[string]*Cell. Optimized for [READ_HEAVY] workloads.
	cells sync.Map

	config    hubConfig
	startedAt time.Time
	doneCh    chan struct{}
	stopOnce  sync.Once
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		config: hubConfig{
			sendTimeout:      time.Second,
			evictionInterval: 15 * time.Minute,
			idleTimeout:      30 * time.Minute,
		},
		startedAt: time.Now(),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	// [JANITOR] Background reclamation of cells whose user went quiet.
	// Pruning is a memory optimization only; empty cells are harmless.
	go h.janitor()

	return h
}

func (h *Hub) IsConnected(userID string) bool {
	val, ok := h.cells.Load(userID)
	if !ok {
		return false
	}
	return val.(*Cell).Len() > 0
}

// Broadcast delivers the event to every live connection of its user.
// Absence of subscribers is not an error: the count is simply 0.
func (h *Hub) Broadcast(ev *event.Event) int {
	val, ok := h.cells.Load(ev.UserID)
	if !ok {
		return 0
	}
	return val.(*Cell).Deliver(ev, h.config.sendTimeout)
}

// Register ensures [IDEMPOTENT] cell creation and attaches a new connection.
func (h *Hub) Register(conn model.Connector) {
	for {
		// [LAZY_INIT] Create the cell only when the first connection arrives.
		val, _ := h.cells.LoadOrStore(conn.GetUserID(), NewCell(conn.GetUserID()))
		if val.(*Cell).Attach(conn) {
			return
		}
		// Lost a race with the janitor: the loaded cell was retired between
		// lookup and attach. Clear the stale entry and take another pass so
		// the connection lands in a cell that broadcasts can still reach.
		h.cells.CompareAndDelete(conn.GetUserID(), val)
	}
}

// Unregister detaches a connection if present; unknown ids are a no-op since
// disconnect paths may race with broadcast-side eviction.
func (h *Hub) Unregister(userID, connID string) {
	if val, ok := h.cells.Load(userID); ok {
		val.(*Cell).Detach(connID)
	}
}

// Snapshot returns a point-in-time copy of the user's connections for
// iteration without holding any lock across delivery.
func (h *Hub) Snapshot(userID string) []model.Connector {
	val, ok := h.cells.Load(userID)
	if !ok {
		return nil
	}
	return val.(*Cell).Snapshot()
}

// Stats exposes registry introspection for the diagnostics endpoint.
func (h *Hub) Stats() model.HubStats {
	stats := model.HubStats{
		Users:  make(map[string]int),
		Uptime: time.Since(h.startedAt),
	}
	h.cells.Range(func(key, val any) bool {
		n := val.(*Cell).Len()
		stats.TotalUsers++
		stats.TotalConnections += n
		if n > 0 {
			stats.Users[key.(string)] = n
		}
		return true
	})
	return stats
}

// Shutdown stops the janitor and closes every live connection.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.doneCh)
		h.cells.Range(func(key, val any) bool {
			val.(*Cell).Stop()
			h.cells.Delete(key)
			return true
		})
	})
}

func (h *Hub) janitor() {
	ticker := time.NewTicker(h.config.evictionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.doneCh:
			return
		case <-ticker.C:
			h.cells.Range(func(key, val any) bool {
				// [GRACEFUL_RECLAMATION] Purge only cells with no sessions
				// that have been quiet past the idle threshold. The cell is
				// marked closed first, so a registration that already loaded
				// it fails its attach and retries instead of vanishing into
				// an entry this delete is about to drop.
				if cell := val.(*Cell); cell.retire(h.config.idleTimeout) {
					h.cells.CompareAndDelete(key, val)
				}
				return true
			})
		}
	}
}
