package telemetry

import (
	"context"
	"log/slog"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// Routing keys for domain events.
const (
	EventMessagePersisted = "chat.message_persisted"
	EventAudit            = "audit_log"
)

// Emitter publishes versioned domain events for downstream consumers.
type Emitter struct {
	publisher   Publisher
	service     string
	environment string
}

type Envelope struct {
	SchemaVersion int     `json:"schema_version"`
	EventType     string  `json:"event_type"`
	OccurredAt    string  `json:"occurred_at"`
	Service       string  `json:"service"`
	Environment   string  `json:"environment"`
	RequestID     string  `json:"request_id,omitempty"`
	TraceID       string  `json:"trace_id,omitempty"`
	UserID        *string `json:"user_id,omitempty"`
	Payload       any     `json:"payload"`
}

type AuditPayload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

func NewEmitter(publisher Publisher, service, environment string) *Emitter {
	return &Emitter{
		publisher:   publisher,
		service:     service,
		environment: environment,
	}
}

// Emit wraps payload in an Envelope and publishes it under eventType.
// Failures are logged and never returned; events are best effort.
func (e *Emitter) Emit(ctx context.Context, eventType, requestID, traceID string, userID *string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		TraceID:       traceID,
		UserID:        userID,
		Payload:       payload,
	}

	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	if err := e.publisher.Publish(ctx, eventType, envelope, headers); err != nil {
		slog.Warn("event publish failed", "event_type", eventType, "error", err)
	}
}

// Audit emits a free-form audit record.
func (e *Emitter) Audit(ctx context.Context, level, text, requestID string, userID *string) {
	slog.Debug("audit emit", "level", level, "request_id", requestID, "text", text)
	e.Emit(ctx, EventAudit, requestID, "", userID, AuditPayload{Level: level, Text: text})
}
