package ws

import (
	"context"
	"time"

	"vexa-service/internal/observability"
)

const wsRoutingKey = "ws_events.chat"

// publishWSEvent reports a connection lifecycle event to metrics and the
// event bus.
func publishWSEvent(ctx context.Context, event string, info ConnInfo, userID, reason string) {
	observability.IncWSEvent(event)

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   userID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}
