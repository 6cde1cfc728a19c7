package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// UserKeyPrefix prefixes the Redis set holding a user's session ids across
// all service instances.
const UserKeyPrefix = "presence:user:"

// RedisMirror copies registry membership into Redis so any instance can
// answer whether a user is online. The in-process Registry stays the source
// of truth for delivery.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMirror connects to redisURL and verifies the connection.
func NewRedisMirror(ctx context.Context, redisURL string, ttl time.Duration) (*RedisMirror, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("presence: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("presence: redis connection failed: %w", err)
	}
	return NewRedisMirrorFromClient(client, ttl), nil
}

// NewRedisMirrorFromClient wraps an existing client.
func NewRedisMirrorFromClient(client *redis.Client, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, ttl: ttl}
}

func userKey(userID string) string {
	return UserKeyPrefix + userID
}

// Joined records sessionID under userID and refreshes the key TTL.
func (m *RedisMirror) Joined(ctx context.Context, userID, sessionID string) error {
	key := userKey(userID)
	pipe := m.client.TxPipeline()
	pipe.SAdd(ctx, key, sessionID)
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence: record join: %w", err)
	}
	return nil
}

// Touch pushes back the expiry of userID's set. Sessions call it on every
// ping so a long-lived session keeps its entry.
func (m *RedisMirror) Touch(ctx context.Context, userID string) error {
	if m.ttl <= 0 {
		return nil
	}
	if err := m.client.Expire(ctx, userKey(userID), m.ttl).Err(); err != nil {
		return fmt.Errorf("presence: refresh: %w", err)
	}
	return nil
}

// Left removes sessionID from userID's set. Redis drops the key once the set
// is empty.
func (m *RedisMirror) Left(ctx context.Context, userID, sessionID string) error {
	if err := m.client.SRem(ctx, userKey(userID), sessionID).Err(); err != nil {
		return fmt.Errorf("presence: record leave: %w", err)
	}
	return nil
}

// Online reports whether any instance holds a session for userID.
func (m *RedisMirror) Online(ctx context.Context, userID string) (bool, error) {
	n, err := m.client.SCard(ctx, userKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("presence: read: %w", err)
	}
	return n > 0, nil
}

// Close closes the underlying client.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
