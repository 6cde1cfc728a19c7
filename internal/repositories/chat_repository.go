package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"

	"vexa-service/internal/models"
)

// RecentLimit is the number of messages returned by the recent history listing.
const RecentLimit = 20

// ChatRepository persists direct messages. Messages are append-only.
type ChatRepository interface {
	// CreateChat durably stores a message, assigning its id and createdAt.
	CreateChat(ctx context.Context, fromUserID, toUserID, text string) (models.ChatMessage, error)
	// GetChatHistory returns the conversation between two users, oldest first.
	GetChatHistory(ctx context.Context, userID, peerID string) ([]models.ChatMessage, error)
	// RecentChats returns the newest messages, newest first.
	RecentChats(ctx context.Context, limit int) ([]models.ChatMessage, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateChat stores a message. The row timestamp comes from the database clock.
func (r *ChatRepo) CreateChat(ctx context.Context, fromUserID, toUserID, text string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO chats (id, from_user_id, to_user_id, text) VALUES ($1, $2, $3, $4)
        RETURNING id, from_user_id, to_user_id, text, created_at`, ulid.Make().String(), fromUserID, toUserID, text).
		StructScan(&msg)
	return msg, err
}

// GetChatHistory returns messages exchanged between userID and peerID in both directions.
func (r *ChatRepo) GetChatHistory(ctx context.Context, userID, peerID string) ([]models.ChatMessage, error) {
	query := `SELECT id, from_user_id, to_user_id, text, created_at FROM chats
        WHERE (from_user_id=$1 AND to_user_id=$2) OR (from_user_id=$2 AND to_user_id=$1)
        ORDER BY created_at ASC, id ASC`
	msgs := []models.ChatMessage{}
	err := r.db.SelectContext(ctx, &msgs, query, userID, peerID)
	return msgs, err
}

// RecentChats returns at most limit messages across all conversations.
func (r *ChatRepo) RecentChats(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = RecentLimit
	}
	msgs := []models.ChatMessage{}
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, from_user_id, to_user_id, text, created_at FROM chats
        ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	return msgs, err
}
