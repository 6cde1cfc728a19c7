package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vexa-service/internal/models"
)

// Connect opens the database connection and runs migrations.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(ctx context.Context, db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id VARCHAR PRIMARY KEY,
            name TEXT NOT NULL,
            interests TEXT[] NOT NULL DEFAULT ARRAY[]::TEXT[],
            avatar_url TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS chats (
            id VARCHAR(26) PRIMARY KEY,
            from_user_id VARCHAR NOT NULL,
            to_user_id VARCHAR NOT NULL,
            text TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
        );`,
		`CREATE INDEX IF NOT EXISTS chats_pair_idx ON chats (from_user_id, to_user_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS chats_created_idx ON chats (created_at DESC);`,
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	slog.Info("database migrations applied")
	return nil
}

// Seed inserts users that do not exist yet.
func Seed(ctx context.Context, db *sqlx.DB, users []models.User) error {
	for _, u := range users {
		if _, err := db.ExecContext(ctx, `INSERT INTO users (id, name, interests, avatar_url) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			u.ID, u.Name, pq.StringArray(u.Interests), u.AvatarURL); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	return nil
}
