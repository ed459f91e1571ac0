package observability

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// EventBus publishes progress events to the context logger.
type EventBus struct {
	level zap.AtomicLevel
}

// NewEventBus creates a new event bus that logs events at info level.
func NewEventBus() *EventBus {
	return &EventBus{
		level: zap.NewAtomicLevelAt(zap.InfoLevel),
	}
}

// Publish publishes an event with the given type and data.
func (e *EventBus) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(data)+1)
	fields = append(fields, zap.String("event", eventType))
	for _, k := range keys {
		fields = append(fields, zap.Any(k, data[k]))
	}

	if ce := FromContext(ctx).Check(e.level.Level(), "progress"); ce != nil {
		ce.Write(fields...)
	}
}
