package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vexa-service/internal/mocks"
	"vexa-service/internal/models"
	"vexa-service/internal/presence"
	"vexa-service/internal/protocol"
	"vexa-service/internal/repositories"
	"vexa-service/internal/router"
)

type fakeSession struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
	refuse bool
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Deliver(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuse {
		return false
	}
	s.frames = append(s.frames, frame)
	return true
}

func (s *fakeSession) decoded(t *testing.T) []protocol.Frame {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Frame, 0, len(s.frames))
	for _, raw := range s.frames {
		var f protocol.Frame
		require.NoError(t, json.Unmarshal(raw, &f))
		out = append(out, f)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stored(id, from, to, text string) models.ChatMessage {
	return models.ChatMessage{ID: id, FromUserID: from, ToUserID: to, Text: text, CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func TestHandleSendFansOutToAllSessionsOfBothUsers(t *testing.T) {
	store := new(mocks.ChatRepositoryMock)
	reg := presence.NewRegistry()
	phone, laptop, peer := &fakeSession{id: "a-phone"}, &fakeSession{id: "a-laptop"}, &fakeSession{id: "b-web"}
	bystander := &fakeSession{id: "c-web"}
	reg.Register("a", phone)
	reg.Register("a", laptop)
	reg.Register("b", peer)
	reg.Register("c", bystander)

	store.On("CreateChat", mock.Anything, "a", "b", "hi").Return(stored("m1", "a", "b", "hi"), nil).Once()

	r := router.New(store, reg, quietLogger())
	msg, err := r.HandleSend(context.Background(), phone, protocol.Send{Text: "hi", FromUserID: "a", ToUserID: "b"})
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)

	for _, s := range []*fakeSession{phone, laptop, peer} {
		frames := s.decoded(t)
		require.Len(t, frames, 1, s.id)
		assert.Equal(t, protocol.TypeMessage, frames[0].Type)
		assert.JSONEq(t, `{"id":"m1","text":"hi","timestamp":"2024-05-01T09:00:00.000Z","fromUserId":"a","toUserId":"b"}`, string(frames[0].Payload))
	}
	assert.Empty(t, bystander.decoded(t))
	store.AssertExpectations(t)
}

func TestHandleSendToSelfDeliversOncePerSession(t *testing.T) {
	store := new(mocks.ChatRepositoryMock)
	reg := presence.NewRegistry()
	s1, s2 := &fakeSession{id: "s1"}, &fakeSession{id: "s2"}
	reg.Register("a", s1)
	reg.Register("a", s2)
	store.On("CreateChat", mock.Anything, "a", "a", "note").Return(stored("m1", "a", "a", "note"), nil).Once()

	r := router.New(store, reg, quietLogger())
	_, err := r.HandleSend(context.Background(), s1, protocol.Send{Text: "note", FromUserID: "a", ToUserID: "a"})
	require.NoError(t, err)

	assert.Len(t, s1.decoded(t), 1)
	assert.Len(t, s2.decoded(t), 1)
}

func TestHandleSendPersistFailureNotifiesOriginOnly(t *testing.T) {
	store := new(mocks.ChatRepositoryMock)
	relay := new(mocks.RelayMock)
	reg := presence.NewRegistry()
	origin, other, peer := &fakeSession{id: "o"}, &fakeSession{id: "o2"}, &fakeSession{id: "p"}
	reg.Register("a", origin)
	reg.Register("a", other)
	reg.Register("b", peer)
	store.On("CreateChat", mock.Anything, "a", "b", "hi").Return(nil, errors.New("db down")).Once()

	r := router.New(store, reg, quietLogger(), router.WithRelay(relay))
	_, err := r.HandleSend(context.Background(), origin, protocol.Send{Text: "hi", FromUserID: "a", ToUserID: "b"})
	assert.ErrorIs(t, err, router.ErrPersistFailed)

	frames := origin.decoded(t)
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.TypeError, frames[0].Type)
	assert.JSONEq(t, `{"message":"Failed to send message"}`, string(frames[0].Payload))
	assert.Empty(t, other.decoded(t))
	assert.Empty(t, peer.decoded(t))
	relay.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestHandleSendMalformedIsDroppedSilently(t *testing.T) {
	store := new(mocks.ChatRepositoryMock)
	reg := presence.NewRegistry()
	origin := &fakeSession{id: "o"}
	reg.Register("a", origin)

	r := router.New(store, reg, quietLogger())
	for _, send := range []protocol.Send{
		{FromUserID: "a", ToUserID: "b"},
		{Text: "hi", ToUserID: "b"},
		{Text: "hi", FromUserID: "a"},
	} {
		_, err := r.HandleSend(context.Background(), origin, send)
		assert.ErrorIs(t, err, router.ErrMalformedMessage)
	}

	assert.Empty(t, origin.decoded(t))
	store.AssertNotCalled(t, "CreateChat", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleSendPreservesPerSenderOrder(t *testing.T) {
	store := repositories.NewMemStore()
	reg := presence.NewRegistry()
	origin, peer := &fakeSession{id: "o"}, &fakeSession{id: "p"}
	reg.Register("a", origin)
	reg.Register("b", peer)

	r := router.New(store, reg, quietLogger())
	const n = 50
	for i := 0; i < n; i++ {
		_, err := r.HandleSend(context.Background(), origin, protocol.Send{Text: fmt.Sprintf("m%d", i), FromUserID: "a", ToUserID: "b"})
		require.NoError(t, err)
	}

	frames := peer.decoded(t)
	require.Len(t, frames, n)
	for i, f := range frames {
		var d protocol.Delivered
		require.NoError(t, json.Unmarshal(f.Payload, &d))
		assert.Equal(t, fmt.Sprintf("m%d", i), d.Text)
	}

	history, err := store.GetChatHistory(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Len(t, history, n)
	for i, m := range history {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Text)
	}
}

func TestHandleSendSurvivesCancelledOriginContext(t *testing.T) {
	store := new(mocks.ChatRepositoryMock)
	reg := presence.NewRegistry()
	peer := &fakeSession{id: "p"}
	reg.Register("b", peer)
	store.On("CreateChat", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), "a", "b", "bye").
		Return(stored("m1", "a", "b", "bye"), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := router.New(store, reg, quietLogger())
	_, err := r.HandleSend(ctx, nil, protocol.Send{Text: "bye", FromUserID: "a", ToUserID: "b"})
	require.NoError(t, err)
	assert.Len(t, peer.decoded(t), 1)
}

func TestHandleSendPublishesToRelay(t *testing.T) {
	store := new(mocks.ChatRepositoryMock)
	relay := new(mocks.RelayMock)
	reg := presence.NewRegistry()
	msg := stored("m1", "a", "b", "hi")
	store.On("CreateChat", mock.Anything, "a", "b", "hi").Return(msg, nil).Once()
	relay.On("Publish", mock.Anything, msg).Return(errors.New("nats down")).Once()

	r := router.New(store, reg, quietLogger(), router.WithRelay(relay))
	_, err := r.HandleSend(context.Background(), nil, protocol.Send{Text: "hi", FromUserID: "a", ToUserID: "b"})

	require.NoError(t, err)
	relay.AssertExpectations(t)
}

func TestDeliverSkipsRefusingSession(t *testing.T) {
	reg := presence.NewRegistry()
	full, ok := &fakeSession{id: "full", refuse: true}, &fakeSession{id: "ok"}
	reg.Register("a", full)
	reg.Register("b", ok)

	r := router.New(new(mocks.ChatRepositoryMock), reg, quietLogger())
	n := r.Deliver(stored("m1", "a", "b", "hi"))

	assert.Equal(t, 1, n)
	assert.Len(t, ok.decoded(t), 1)
}

func TestRecipientsDeduplicates(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Register("a", &fakeSession{id: "s1"})
	reg.Register("b", &fakeSession{id: "s2"})

	assert.Len(t, router.Recipients(reg, "a", "b"), 2)
	assert.Len(t, router.Recipients(reg, "a", "a"), 1)
	assert.Empty(t, router.Recipients(reg, "x", "y"))
}
