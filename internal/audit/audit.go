// Package audit records durable trail events for component lifecycle changes.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Actions recorded on the trail.
const (
	ActionRegistered    = "component.registered"
	ActionStatusChanged = "component.status_changed"
	ActionSerialReserve = "serial.reserved"
	ActionQualityScored = "quality.scored"
)

// Event is one audit trail entry.
type Event struct {
	Action     string    `json:"action"`
	Identifier string    `json:"identifier,omitempty"`
	Partition  string    `json:"partition,omitempty"`
	Serial     int       `json:"serial,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events to the trail backend.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// producer is the transport slice of kafka.Producer used by KafkaPublisher.
type producer interface {
	Produce(ctx context.Context, key, value []byte) error
}

// KafkaPublisher writes events to the audit topic keyed by partition so
// per-partition ordering is preserved.
type KafkaPublisher struct {
	producer producer
}

func NewKafkaPublisher(p producer) (*KafkaPublisher, error) {
	if p == nil {
		return nil, fmt.Errorf("producer is required")
	}
	return &KafkaPublisher{producer: p}, nil
}

func (k *KafkaPublisher) Emit(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return k.producer.Produce(ctx, []byte(event.Partition), payload)
}

// LogPublisher is the fallback trail when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (l *LogPublisher) Emit(ctx context.Context, event Event) error {
	l.logger.InfoContext(ctx, "audit event",
		"action", event.Action,
		"identifier", event.Identifier,
		"partition", event.Partition,
		"serial", event.Serial,
		"detail", event.Detail,
	)
	return nil
}

// Emit publishes best-effort: a trail failure is logged and never blocks
// the operation that produced the event.
func Emit(ctx context.Context, logger *slog.Logger, pub Publisher, event Event) {
	if pub == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := pub.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
