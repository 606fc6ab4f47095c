package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

// LogPublisher records events in the service log. It stands in for the broker
// when no Kafka brokers are configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.Event) error {
	p.log.Info().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("key", event.Key).
		Interface("data", event.Data).
		Msg("event published")
	return nil
}
