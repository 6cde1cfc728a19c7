// Package relay forwards stored messages between service instances over NATS
// so that sessions connected to any instance receive them.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"vexa-service/internal/models"
	"vexa-service/internal/observability"
)

// SubjectDeliver carries every stored message to all instances.
const SubjectDeliver = "chat.deliver"

// Envelope is the relay wire format.
type Envelope struct {
	Origin  string             `json:"origin"`
	Message models.ChatMessage `json:"message"`
}

// Handler receives messages stored by other instances.
type Handler func(msg models.ChatMessage)

// NATSRelay publishes and receives relay envelopes.
type NATSRelay struct {
	conn       *nats.Conn
	instanceID string
	log        *slog.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// Connect dials NATS with reconnects enabled.
func Connect(url, instanceID string, logger *slog.Logger) (*NATSRelay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "relay")
	opts := []nats.Option{
		nats.Name("vexa-" + instanceID),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info("nats connected", "url", nc.ConnectedUrl(), "instance_id", instanceID)
	return &NATSRelay{conn: nc, instanceID: instanceID, log: logger}, nil
}

// Publish sends msg to the other instances.
func (r *NATSRelay) Publish(_ context.Context, msg models.ChatMessage) error {
	data, err := json.Marshal(Envelope{Origin: r.instanceID, Message: msg})
	if err != nil {
		return fmt.Errorf("encode relay envelope: %w", err)
	}
	return r.conn.Publish(SubjectDeliver, data)
}

// Start subscribes and calls handle for each message stored elsewhere.
// Messages published by this instance are ignored since they were already
// delivered locally.
func (r *NATSRelay) Start(handle Handler) error {
	sub, err := r.conn.Subscribe(SubjectDeliver, func(m *nats.Msg) {
		msg, ok, err := Decode(m.Data, r.instanceID)
		if err != nil {
			observability.IncRelayError("decode")
			r.log.Warn("dropping bad relay envelope", "error", err)
			return
		}
		if ok {
			handle(msg)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", SubjectDeliver, err)
	}
	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()
	return nil
}

// Decode parses a relay envelope. ok is false for envelopes from self.
func Decode(data []byte, self string) (msg models.ChatMessage, ok bool, err error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.ChatMessage{}, false, err
	}
	if env.Message.ID == "" {
		return models.ChatMessage{}, false, fmt.Errorf("relay envelope without message id")
	}
	if env.Origin == self {
		return models.ChatMessage{}, false, nil
	}
	return env.Message, true, nil
}

// Close drains the subscription and closes the connection.
func (r *NATSRelay) Close() error {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()
	if sub != nil {
		_ = sub.Unsubscribe()
	}
	return r.conn.Drain()
}
