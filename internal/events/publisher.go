package events

import (
	"context"

	"go.uber.org/zap"
)

// Publisher sends a change message to a named topic and returns the
// broker-assigned message id. Failures are returned, never retried.
type Publisher interface {
	Publish(ctx context.Context, payload map[string]any, topic string) (string, error)
}

// DisabledPublisher is the explicit non-production mode: nothing leaves the
// process.
type DisabledPublisher struct{}

// Publish returns immediately without contacting a broker.
func (DisabledPublisher) Publish(context.Context, map[string]any, string) (string, error) {
	return "", nil
}

// LoggingPublisher logs every publish attempt of the wrapped publisher.
type LoggingPublisher struct {
	next   Publisher
	logger *zap.Logger
}

// NewLoggingPublisher decorates next.
func NewLoggingPublisher(next Publisher, logger *zap.Logger) *LoggingPublisher {
	return &LoggingPublisher{next: next, logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, payload map[string]any, topic string) (string, error) {
	fields := []zap.Field{
		zap.String("topic", topic),
		zap.Any("operation", payload[KeyOperation]),
		zap.Any("incident_id", payload["id"]),
	}
	id, err := p.next.Publish(ctx, payload, topic)
	if err != nil {
		p.logger.Error("publish failed", append(fields, zap.Error(err))...)
		return "", err
	}
	p.logger.Info("event published", append(fields, zap.String("message_id", id))...)
	return id, nil
}
