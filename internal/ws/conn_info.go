package ws

import "time"

// ConnInfo describes the client behind a websocket for logs and events.
type ConnInfo struct {
	ConnID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
