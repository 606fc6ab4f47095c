package ports

import (
	"context"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

// EventPublisher delivers an event to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// EventQueue accepts events for asynchronous delivery.
type EventQueue interface {
	Enqueue(event domain.Event)
}
