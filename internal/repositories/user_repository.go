package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vexa-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository reads user profiles. Profiles are owned elsewhere; this
// service never writes them outside of seeding.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

type userRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Interests pq.StringArray `db:"interests"`
	AvatarURL sql.NullString `db:"avatar_url"`
}

func (r userRow) toModel() models.User {
	u := models.User{ID: r.ID, Name: r.Name, Interests: []string(r.Interests)}
	if u.Interests == nil {
		u.Interests = []string{}
	}
	if r.AvatarURL.Valid {
		avatar := r.AvatarURL.String
		u.AvatarURL = &avatar
	}
	return u
}

// GetUser fetches a single profile.
func (r *UserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT id, name, interests, avatar_url FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return row.toModel(), nil
}

// ListUsers returns every profile ordered by name.
func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, interests, avatar_url FROM users ORDER BY name ASC`); err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toModel())
	}
	return users, nil
}

// UpsertUser inserts or replaces a profile. Used for seeding.
func (r *UserRepo) UpsertUser(ctx context.Context, u models.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, name, interests, avatar_url) VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, interests = EXCLUDED.interests, avatar_url = EXCLUDED.avatar_url`,
		u.ID, u.Name, pq.StringArray(u.Interests), u.AvatarURL)
	return err
}
