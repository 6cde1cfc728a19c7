package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"vexa-service/internal/observability"
	"vexa-service/internal/presence"
)

// ChatWebSocketHandler upgrades connections on the chat endpoint.
type ChatWebSocketHandler struct {
	hub      *Hub
	registry *presence.Registry
	sender   Sender
	mirror   PresenceMirror
	opts     Options
	log      *slog.Logger
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler. mirror may be nil.
func NewChatWebSocketHandler(hub *Hub, registry *presence.Registry, sender Sender, mirror PresenceMirror, opts Options, logger *slog.Logger) *ChatWebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatWebSocketHandler{
		hub:      hub,
		registry: registry,
		sender:   sender,
		mirror:   mirror,
		opts:     opts,
		log:      logger.With("component", "ws"),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and starts the session pumps. The client
// declares its identity afterwards with a join frame.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := observability.Tracer("ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	// Sessions outlive the upgrade request and its span.
	sessionCtx := trace.ContextWithSpanContext(context.WithoutCancel(ctx), trace.SpanContext{})
	session := newSession(sessionCtx, conn, info, h.registry, h.sender, h.mirror, h.opts, h.log)
	session.handshake = trace.LinkFromContext(ctx)
	session.onClose = func(s *Session, reason string) {
		h.hub.Remove(s)
		observability.DecWSActive()
		publishWSEvent(sessionCtx, "ws_disconnect", info, s.UserID(), reason)
	}

	h.hub.Add(session)
	observability.IncWSActive()
	publishWSEvent(sessionCtx, "ws_connect", info, "", "")
	h.log.Info("session opened", "session_id", info.ConnID, "ip", info.IP, "trace_id", info.TraceID)

	session.run()
}
