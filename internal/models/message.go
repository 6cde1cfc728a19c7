package models

import "time"

// TimestampLayout renders message timestamps as ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ChatMessage represents a persisted direct message between two users.
type ChatMessage struct {
	ID         string    `db:"id" json:"id"`
	FromUserID string    `db:"from_user_id" json:"fromUserId"`
	ToUserID   string    `db:"to_user_id" json:"toUserId"`
	Text       string    `db:"text" json:"text"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Timestamp returns CreatedAt in the wire format.
func (m ChatMessage) Timestamp() string {
	return m.CreatedAt.UTC().Format(TimestampLayout)
}

