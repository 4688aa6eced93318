/*
Package registry provides the in-process event distribution core.

Key architectural concepts:
  - Per-user cells: every active user is represented by an isolated Cell
    holding all of that user's concurrent streaming sessions.
  - Snapshot fan-out: delivery iterates over a point-in-time copy of the
    session set, so the lock is never held while a slow consumer is written
    to and concurrent register/unregister cannot corrupt iteration.
  - Self-healing eviction: sessions that time out during delivery are
    detached after the pass, reclaiming clients that vanished without a
    clean disconnect.
*/
package registry

import (
	"sync"
	"time"

	"github.com/taskora/event-delivery-service/internal/domain/event"
	"github.com/taskora/event-delivery-service/internal/domain/model"
)

// Cell implements [ISOLATED_DELIVERY] logic for a single user.
type Cell struct {
	// [IDENTITY]
	// The user whose sessions this cell manages.
	userID string

	// [SESSIONS]
	// Registry of all active transport channels for the user. Allows
	// multiplexing a single event to multiple devices (mobile, web, desktop).
	sessions map[string]model.Connector

	// [CONCURRENCY_CONTROL]
	// Guards the sessions map for mutation and snapshot-copy only.
	// The lock is never held across actual event delivery: a stalled
	// consumer would otherwise serialize delivery for every subscriber.
	mu sync.RWMutex

	// lastActivityAt records the last membership change or delivery,
	// consulted by the hub janitor.
	lastActivityAt time.Time

	// closed marks a retired cell. Set under mu before the hub removes the
	// cell from its map, so an Attach racing the janitor can detect it lost
	// and retry against a fresh cell instead of landing in an orphan.
	closed bool
}

func NewCell(userID string) *Cell {
	return &Cell{
		userID:         userID,
		sessions:       make(map[string]model.Connector),
		lastActivityAt: time.Now(),
	}
}

// Attach registers a connection and reports whether the cell accepted it.
// A false return means the cell has been retired and the caller must attach
// to a live one. Re-attaching the same id is harmless.
func (c *Cell) Attach(conn model.Connector) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.sessions[conn.GetID()] = conn
	c.lastActivityAt = time.Now()
	return true
}

// Detach removes a connection if present; absent ids are a no-op.
func (c *Cell) Detach(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, connID)
	c.lastActivityAt = time.Now()
}

// Snapshot copies the current membership under the read lock.
func (c *Cell) Snapshot() []model.Connector {
	c.mu.RLock()
	defer c.mu.RUnlock()

	conns := make([]model.Connector, 0, len(c.sessions))
	for _, conn := range c.sessions {
		conns = append(conns, conn)
	}
	return conns
}

func (c *Cell) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// retire closes the cell if it is empty and has been quiet longer than the
// timeout, reporting whether it did. The closed mark and the idleness check
// happen under one lock acquisition, so a concurrent Attach either lands
// before retirement (cell no longer empty, retire declines) or observes the
// mark and fails.
func (c *Cell) retire(timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sessions) > 0 || time.Since(c.lastActivityAt) <= timeout {
		return false
	}
	c.closed = true
	return true
}

// Deliver fans the event out to a snapshot of the user's sessions with a
// bounded per-session wait and returns the delivered count. Sessions that
// time out are detached after the pass, not during it, so the delivery
// iteration never mutates the set it walks.
func (c *Cell) Deliver(ev *event.Event, timeout time.Duration) int {
	conns := c.Snapshot()
	if len(conns) == 0 {
		return 0
	}

	c.touch()

	delivered := 0
	var dead []model.Connector

	for _, conn := range conns {
		if conn.Send(ev, timeout) {
			delivered++
		} else {
			dead = append(dead, conn)
		}
	}

	// [SELF_HEALING] Evict subscribers that vanished without a clean
	// disconnect (network drop, crashed tab).
	for _, conn := range dead {
		c.Detach(conn.GetID())
		conn.Close()
	}

	return delivered
}

// Stop retires the cell and closes every session; used on hub shutdown.
func (c *Cell) Stop() {
	c.mu.Lock()
	c.closed = true
	conns := make([]model.Connector, 0, len(c.sessions))
	for _, conn := range c.sessions {
		conns = append(conns, conn)
	}
	c.sessions = make(map[string]model.Connector)
	c.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

func (c *Cell) touch() {
	c.mu.Lock()
	c.lastActivityAt = time.Now()
	c.mu.Unlock()
}
