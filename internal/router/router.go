// Package router stores chat messages and fans them out to every live
// session of the sender and the recipient.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"vexa-service/internal/models"
	"vexa-service/internal/observability"
	"vexa-service/internal/presence"
	"vexa-service/internal/protocol"
	"vexa-service/internal/telemetry"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrPersistFailed    = errors.New("persist message")
)

// ChatStore is the durable write used by the router.
type ChatStore interface {
	CreateChat(ctx context.Context, fromUserID, toUserID, text string) (models.ChatMessage, error)
}

// Directory resolves a user to their live sessions.
type Directory interface {
	SessionsFor(userID string) []presence.Session
}

// Relay forwards a stored message to other service instances.
type Relay interface {
	Publish(ctx context.Context, msg models.ChatMessage) error
}

// Router handles inbound sends. It is safe for concurrent use; ordering per
// sender comes from each session calling HandleSend sequentially.
type Router struct {
	store   ChatStore
	dir     Directory
	relay   Relay
	emitter *telemetry.Emitter
	log     *slog.Logger
}

type Option func(*Router)

// WithRelay enables cross-instance delivery.
func WithRelay(relay Relay) Option {
	return func(r *Router) { r.relay = relay }
}

// WithEmitter publishes a domain event for every stored message.
func WithEmitter(emitter *telemetry.Emitter) Option {
	return func(r *Router) { r.emitter = emitter }
}

func New(store ChatStore, dir Directory, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{store: store, dir: dir, log: logger.With("component", "router")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleSend persists send and delivers it to both participants. Malformed
// sends are dropped without any outbound frame. When persistence fails only
// origin receives an error frame and nothing is delivered.
//
// The work is not cancelled if the originating connection goes away.
func (r *Router) HandleSend(ctx context.Context, origin presence.Session, send protocol.Send) (models.ChatMessage, error) {
	ctx = context.WithoutCancel(ctx)

	if err := send.Validate(); err != nil {
		observability.IncDropped("malformed")
		r.log.Warn("dropping malformed message", "session_id", sessionID(origin), "error", err)
		return models.ChatMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	ctx, span := observability.Tracer("router").Start(ctx, "chat.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.from_user_id", send.FromUserID),
		attribute.String("chat.to_user_id", send.ToUserID),
	)

	start := time.Now()
	msg, err := r.store.CreateChat(ctx, send.FromUserID, send.ToUserID, send.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		r.log.Error("failed to store message",
			"session_id", sessionID(origin),
			"user_id", send.FromUserID,
			"error", err,
		)
		r.notifyFailure(origin)
		return models.ChatMessage{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	observability.ObservePersist(time.Since(start))
	span.SetAttributes(attribute.String("chat.message_id", msg.ID))

	delivered := r.deliver(msg, "local")
	r.log.Debug("message delivered",
		"message_id", msg.ID,
		"user_id", msg.FromUserID,
		"sessions", delivered,
		"trace_id", span.SpanContext().TraceID().String(),
	)

	if r.relay != nil {
		if err := r.relay.Publish(ctx, msg); err != nil {
			observability.IncRelayError("publish")
			r.log.Warn("relay publish failed", "message_id", msg.ID, "error", err)
		}
	}

	from := msg.FromUserID
	r.emitter.Emit(ctx, telemetry.EventMessagePersisted, "", observability.TraceID(ctx), &from, protocol.DeliveredFrom(msg))

	return msg, nil
}

// Deliver pushes an already stored message to local sessions of both
// participants. Used for messages relayed from other instances.
func (r *Router) Deliver(msg models.ChatMessage) int {
	return r.deliver(msg, "relay")
}

func (r *Router) deliver(msg models.ChatMessage, source string) int {
	frame, err := protocol.EncodeDelivered(protocol.DeliveredFrom(msg))
	if err != nil {
		r.log.Error("encode message frame", "message_id", msg.ID, "error", err)
		return 0
	}

	targets := Recipients(r.dir, msg.FromUserID, msg.ToUserID)
	delivered := 0
	for _, s := range targets {
		if s.Deliver(frame) {
			delivered++
			continue
		}
		r.log.Warn("session did not accept message", "session_id", s.ID(), "message_id", msg.ID)
	}
	observability.AddDelivered(source, delivered)
	return delivered
}

// Recipients returns the sessions of both users, each session once.
func Recipients(dir Directory, fromUserID, toUserID string) []presence.Session {
	sessions := dir.SessionsFor(fromUserID)
	if toUserID != fromUserID {
		sessions = append(sessions, dir.SessionsFor(toUserID)...)
	}
	return lo.UniqBy(sessions, func(s presence.Session) string { return s.ID() })
}

func (r *Router) notifyFailure(origin presence.Session) {
	if origin == nil {
		return
	}
	frame, err := protocol.EncodeError(protocol.SendFailedMessage)
	if err != nil {
		return
	}
	origin.Deliver(frame)
}

func sessionID(s presence.Session) string {
	if s == nil {
		return ""
	}
	return s.ID()
}
