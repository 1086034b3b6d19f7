// Package messaging holds event publishers used when no event bus is
// configured.
package messaging

import (
	"context"

	"humaneval/domain/events"

	"go.uber.org/zap"
)

// LogPublisher writes lifecycle events to the log instead of a bus
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher that only logs
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish implements ports.EventPublisher
func (p *LogPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Info("Domain event",
		zap.String("eventType", event.GetEventType()),
		zap.String("raterID", event.GetAggregateID()),
		zap.Int("version", event.GetVersion()),
		zap.Time("timestamp", event.GetTimestamp()),
	)
	return nil
}

// PublishBatch implements ports.EventPublisher
func (p *LogPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		_ = p.Publish(ctx, event)
	}
	return nil
}
