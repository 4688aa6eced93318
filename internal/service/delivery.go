package service

import (
	"context"

	"github.com/taskora/event-delivery-service/internal/domain/model"
	"github.com/taskora/event-delivery-service/internal/domain/registry"
)

// [DELIVERY_SERVICE] PRIMARY INTERFACE FOR TRANSPORT HANDLERS (SSE/WebSocket)
type Deliverer interface {
	Subscribe(ctx context.Context, userID string) (model.Connector, error)
	Unsubscribe(userID, connID string)
}

// Interface guard
var _ Deliverer = (*DeliveryService)(nil)

type DeliveryService struct {
	hub        registry.Hubber
	bufferSize int
}

// NewDeliveryService returns the service that owns connection lifecycle.
func NewDeliveryService(hub registry.Hubber, bufferSize int) *DeliveryService {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &DeliveryService{
		hub:        hub,
		bufferSize: bufferSize,
	}
}

// Subscribe creates a connection bound to ctx and registers it in the hub.
// The connector is returned to the transport handler, which owns it; the
// hub holds only a non-owning membership reference.
func (s *DeliveryService) Subscribe(ctx context.Context, userID string) (model.Connector, error) {
	conn := model.NewConnector(ctx, userID, s.bufferSize)
	s.hub.Register(conn)
	return conn, nil
}

// Unsubscribe detaches the connection; already-evicted ids are a no-op.
func (s *DeliveryService) Unsubscribe(userID, connID string) {
	s.hub.Unregister(userID, connID)
}
