package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"vexa-service/internal/models"
)

// MemStore keeps users and messages in process memory. It implements both
// UserRepository and ChatRepository and is safe for concurrent use.
type MemStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	order    []string
	messages []models.ChatMessage
	last     time.Time
	now      func() time.Time
}

// NewMemStore returns a store seeded with users.
func NewMemStore(users ...models.User) *MemStore {
	s := &MemStore{users: make(map[string]models.User), now: time.Now}
	for _, u := range users {
		s.PutUser(u)
	}
	return s
}

// PutUser adds or replaces a profile.
func (s *MemStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Interests == nil {
		u.Interests = []string{}
	}
	if _, ok := s.users[u.ID]; !ok {
		s.order = append(s.order, u.ID)
	}
	s.users[u.ID] = u
}

func (s *MemStore) GetUser(_ context.Context, userID string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.users[id])
	}
	return out, nil
}

// CreateChat appends a message. createdAt is strictly increasing across calls
// at millisecond resolution so wire timestamps keep the persist order.
func (s *MemStore) CreateChat(ctx context.Context, fromUserID, toUserID, text string) (models.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return models.ChatMessage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := s.now().UTC().Truncate(time.Millisecond)
	if !createdAt.After(s.last) {
		createdAt = s.last.Add(time.Millisecond)
	}
	s.last = createdAt

	msg := models.ChatMessage{
		ID:         ulid.MustNew(ulid.Timestamp(createdAt), ulid.DefaultEntropy()).String(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Text:       text,
		CreatedAt:  createdAt,
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *MemStore) GetChatHistory(_ context.Context, userID, peerID string) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.ChatMessage{}
	for _, m := range s.messages {
		if (m.FromUserID == userID && m.ToUserID == peerID) || (m.FromUserID == peerID && m.ToUserID == userID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemStore) RecentChats(_ context.Context, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
