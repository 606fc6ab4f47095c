package domain

import "time"

// EventType names a change published to the message queue.
type EventType string

const (
	EventUserRegistered   EventType = "user.registered"
	EventUserUpdated      EventType = "user.updated"
	EventUserRoleAssigned EventType = "user.role_assigned"
	EventUserRoleRemoved  EventType = "user.role_removed"
	EventRoleCreated      EventType = "role.created"
)

// Event is an integration event about a user or role. Key is the aggregate id
// and decides ordering: events with the same key are delivered in order.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Key        string            `json:"key"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data,omitempty"`
}
