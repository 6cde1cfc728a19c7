package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"vexa-service/internal/models"
	"vexa-service/internal/observability"
	"vexa-service/internal/presence"
	"vexa-service/internal/protocol"
)

// State is the lifecycle position of a session.
type State int

const (
	StateUnidentified State = iota
	StateIdentified
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnidentified:
		return "unidentified"
	case StateIdentified:
		return "identified"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Close reasons.
const (
	ReasonClientClosed = "client closed"
	ReasonReadError    = "read error"
	ReasonWriteError   = "write error"
	ReasonSlowConsumer = "slow consumer"
	ReasonShutdown     = "server shutdown"
)

// Sender handles a message frame on behalf of a session.
type Sender interface {
	HandleSend(ctx context.Context, origin presence.Session, send protocol.Send) (models.ChatMessage, error)
}

// PresenceMirror is told about joins and leaves for the shared presence view.
// Touch is called on every ping while the session stays identified.
type PresenceMirror interface {
	Joined(ctx context.Context, userID, sessionID string) error
	Touch(ctx context.Context, userID string) error
	Left(ctx context.Context, userID, sessionID string) error
}

// Options tune connection handling.
type Options struct {
	SendBuffer            int
	WriteWait             time.Duration
	PongWait              time.Duration
	MaxMessageBytes       int64
	// EnforceSenderIdentity off (the default) forwards caller-declared
	// fromUserId as-is and accepts sends from sessions that never joined.
	EnforceSenderIdentity bool
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		SendBuffer:      256,
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		MaxMessageBytes: 64 * 1024,
	}
}

func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

const mirrorTimeout = 2 * time.Second

// Session is one websocket connection. A read pump handles inbound frames
// one at a time; a write pump drains the buffered send channel.
type Session struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	registry *presence.Registry
	sender   Sender
	mirror   PresenceMirror
	opts     Options
	info     ConnInfo
	log      *slog.Logger
	ctx      context.Context
	// handshake links per-message spans back to the upgrade request.
	handshake trace.Link

	mu     sync.Mutex
	state  State
	userID string

	closeOnce sync.Once
	closed    chan struct{}
	onClose   func(s *Session, reason string)
}

func newSession(ctx context.Context, conn *websocket.Conn, info ConnInfo, registry *presence.Registry, sender Sender, mirror PresenceMirror, opts Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:       info.ConnID,
		conn:     conn,
		send:     make(chan []byte, opts.SendBuffer),
		registry: registry,
		sender:   sender,
		mirror:   mirror,
		opts:     opts,
		info:     info,
		log:      logger.With("session_id", info.ConnID),
		ctx:      ctx,
		closed:   make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// UserID returns the joined identity, or "" before join.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Deliver queues frame without blocking. A session whose buffer is full is
// closed as a slow consumer.
func (s *Session) Deliver(frame []byte) bool {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return false
	}
	select {
	case s.send <- frame:
		s.mu.Unlock()
		return true
	default:
	}
	s.mu.Unlock()

	s.Close(ReasonSlowConsumer)
	return false
}

// Close moves the session to Closed and removes it from the registry before
// returning. The mirror update and the onClose hook do network I/O and run
// in the background; Done is closed once they finish. Safe to call from any
// goroutine, any number of times.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		userID := s.userID
		close(s.send)
		s.mu.Unlock()

		_, registered := s.registry.Deregister(s.id)
		s.log.Info("session closed", "user_id", userID, "reason", reason)

		go s.finishClose(userID, reason, registered)
	})
}

// Done is closed when the background part of Close has completed.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

func (s *Session) finishClose(userID, reason string, registered bool) {
	defer close(s.closed)
	if registered {
		s.mirrorLeft(userID)
	}
	if s.onClose != nil {
		s.onClose(s, reason)
	}
}

func (s *Session) run() {
	go s.writePump()
	go s.readPump()
}

func (s *Session) readPump() {
	reason := ReasonClientClosed
	defer func() {
		s.Close(reason)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(s.opts.MaxMessageBytes)
	s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = ReasonReadError
				s.log.Warn("websocket read error", "error", err)
			}
			return
		}
		s.handleFrame(data)
		if s.State() == StateClosed {
			return
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Warn("websocket write error", "error", err)
				s.Close(ReasonWriteError)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close(ReasonWriteError)
				return
			}
			s.touchPresence()
		}
	}
}

// handleFrame processes one inbound frame to completion. A panic is
// contained to this frame.
func (s *Session) handleFrame(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic handling frame", "panic", r)
		}
	}()

	in, err := protocol.ParseInbound(data)
	if err != nil {
		observability.IncDropped(dropReason(err))
		s.log.Warn("dropping inbound frame", "error", err)
		return
	}

	switch frame := in.(type) {
	case protocol.Join:
		s.join(frame.UserID)
	case protocol.Send:
		s.handleSend(frame)
	}
}

func dropReason(err error) string {
	if errors.Is(err, protocol.ErrUnknownType) {
		return "unknown_type"
	}
	return "invalid_payload"
}

// join binds the session to userID. Re-joining as the same user is a no-op;
// joining as another user moves the session.
func (s *Session) join(userID string) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	previous := s.userID
	if s.state == StateIdentified && previous == userID {
		s.mu.Unlock()
		return
	}
	s.registry.Register(userID, s)
	s.userID = userID
	s.state = StateIdentified
	s.mu.Unlock()

	if previous != "" {
		s.mirrorLeft(previous)
	}
	s.mirrorJoined(userID)
	observability.IncWSEvent("ws_join")
	s.log.Info("session joined", "user_id", userID, "previous_user_id", previous)
}

func (s *Session) handleSend(send protocol.Send) {
	if s.opts.EnforceSenderIdentity {
		s.mu.Lock()
		state, userID := s.state, s.userID
		s.mu.Unlock()
		if state != StateIdentified {
			observability.IncDropped("unidentified")
			s.log.Warn("dropping message from unidentified session")
			return
		}
		if send.FromUserID != userID {
			observability.IncDropped("sender_mismatch")
			s.log.Warn("dropping message with foreign sender", "user_id", userID, "from_user_id", send.FromUserID)
			return
		}
	}

	// One trace per message, linked to the connection's handshake.
	ctx, span := observability.Tracer("ws").Start(s.ctx, "ws.message",
		trace.WithNewRoot(),
		trace.WithLinks(s.handshake),
	)
	defer span.End()
	_, _ = s.sender.HandleSend(ctx, s, send)
}

func (s *Session) mirrorJoined(userID string) {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), mirrorTimeout)
	defer cancel()
	if err := s.mirror.Joined(ctx, userID, s.id); err != nil {
		observability.IncPresenceMirrorError()
		s.log.Warn("presence mirror join failed", "user_id", userID, "error", err)
	}
}

// touchPresence keeps the mirror entry alive for as long as the session is
// identified.
func (s *Session) touchPresence() {
	if s.mirror == nil {
		return
	}
	s.mu.Lock()
	state, userID := s.state, s.userID
	s.mu.Unlock()
	if state != StateIdentified {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), mirrorTimeout)
	defer cancel()
	if err := s.mirror.Touch(ctx, userID); err != nil {
		observability.IncPresenceMirrorError()
		s.log.Warn("presence mirror refresh failed", "user_id", userID, "error", err)
	}
}

func (s *Session) mirrorLeft(userID string) {
	if s.mirror == nil || userID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), mirrorTimeout)
	defer cancel()
	if err := s.mirror.Left(ctx, userID, s.id); err != nil {
		observability.IncPresenceMirrorError()
		s.log.Warn("presence mirror leave failed", "user_id", userID, "error", err)
	}
}
