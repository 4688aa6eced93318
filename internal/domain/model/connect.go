package model

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/taskora/event-delivery-service/internal/domain/event"
)

// Interface guard
var _ Connector = (*connect)(nil)

// [CONNECTOR] THE INTERFACE FOR EXTERNAL LAYERS (REGISTRY/HUB)
// This allows mocking and decoupling from the concrete implementation
type Connector interface {
	GetID() string
	GetUserID() string
	Send(ev *event.Event, timeout time.Duration) bool // Thread-safe send with bounded wait
	Recv() <-chan *event.Event
	Done() <-chan struct{} // Closed once the connection is terminated
	Dropped() uint64
	Close() // Terminate connection and release resources
}

// [CONNECT] CONCRETE IMPLEMENTATION (UNEXPORTED TO FORCE INTERFACE USAGE)
//
// [SHARED_REFERENCE] The broadcaster, the owning transport handler and the
// registry can all hold this object at the same time, and teardown may be
// started by any of them. Every field is therefore immutable after
// construction: termination is signalled exclusively through the context,
// the mailbox is never closed or replaced, and the object is never recycled.
type connect struct {
	id        string
	userID    string
	createdAt time.Time
	ctx       context.Context
	cancelFn  context.CancelFunc
	sendCh    chan *event.Event
	closeOnce sync.Once // [PROTECTION]

	// [ATOMIC_FIELD]
	droppedCount uint64
}

// NewConnector builds a subscriber channel scoped to the given context.
// The id is a short random tag used only for diagnostics and logging.
func NewConnector(ctx context.Context, userID string, bufferSize int) Connector {
	childCtx, cancel := context.WithCancel(ctx)
	return &connect{
		id:        uuid.NewString()[:8],
		userID:    userID,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan *event.Event, bufferSize),
	}
}

func (c *connect) GetID() string     { return c.id }
func (c *connect) GetUserID() string { return c.userID }

// Send attempts to enqueue the event into the connection's mailbox, waiting
// at most `timeout` for buffer space. A false return marks the connection as
// a slow or dead subscriber; the caller decides on eviction.
func (c *connect) Send(ev *event.Event, timeout time.Duration) bool {
	// [FAST_FAIL] A connection that is already dead must never accept an
	// event; without this check the select below could still pick the
	// buffered-send branch.
	select {
	case <-c.ctx.Done():
		return false
	default:
	}

	// [RESOURCE_MANAGEMENT] A localized context enforces a strict delivery
	// window so one stalled session cannot hold the fan-out pass hostage.
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	// 1. [LIFECYCLE_GATE] Abort if the underlying transport is already dead.
	case <-c.ctx.Done():
		return false

	// 2. [PRIMARY_DELIVERY] Waits up to `timeout` for space, which smooths
	// out transient consumer jitter instead of dropping on a full buffer.
	case c.sendCh <- ev:
		return true

	// 3. [BACKPRESSURE_THRESHOLD] Buffer stayed saturated for the entire
	// window; report failure and count the drop.
	case <-ctx.Done():
		atomic.AddUint64(&c.droppedCount, 1)
		return false
	}
}

func (c *connect) Recv() <-chan *event.Event { return c.sendCh }

// Done exposes the termination signal. Consumers select on it next to Recv:
// the mailbox stays open after Close, so channel closure cannot serve as the
// exit signal.
func (c *connect) Done() <-chan struct{} { return c.ctx.Done() }

func (c *connect) Dropped() uint64 { return atomic.LoadUint64(&c.droppedCount) }

// Close terminates the session.
//
// [IDEMPOTENCY_SHIELD] Teardown runs exactly once even when the Hub
// (shutdown), the Cell (eviction) and the transport handler (defer) race to
// close. Cancellation is the whole teardown: pending Send calls bail out on
// the lifecycle gate and blocked consumers wake up via Done. The mailbox is
// deliberately left open because a broadcaster snapshotted before eviction
// may still be inside Send; closing it from here would be a send-on-closed
// panic waiting to happen.
func (c *connect) Close() {
	c.closeOnce.Do(c.cancelFn)
}
