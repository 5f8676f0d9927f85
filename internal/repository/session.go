package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sparkyfit/authority/internal/models"
)

// PostgresSessionRepository implements session persistence against a
// PostgreSQL database.
type PostgresSessionRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresSessionRepository creates a new PostgresSessionRepository
// with the given database connection.
func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{DB: db}
}

// SessionByToken fetches the live session behind an opaque token.
// Expired sessions are filtered out by the query; sql.ErrNoRows means
// no live session matches.
func (r *PostgresSessionRepository) SessionByToken(ctx context.Context, token string) (*models.SessionRecord, error) {
	var s models.SessionRecord
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, token, user_id, active_user_id, expires_at
		  FROM sessions WHERE token = $1 AND expires_at > NOW()
	`, token).Scan(&s.ID, &s.Token, &s.UserID, &s.ActiveUserID, &s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSession inserts a new session for the given user with a fresh
// id and token. The active principal starts as the user itself.
func (r *PostgresSessionRepository) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*models.SessionRecord, error) {
	s := models.SessionRecord{
		ID:           uuid.NewString(),
		Token:        uuid.NewString(),
		UserID:       userID,
		ActiveUserID: userID,
		ExpiresAt:    time.Now().Add(ttl),
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sessions (id, token, user_id, active_user_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.Token, s.UserID, s.ActiveUserID, s.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSession removes a session by id.
func (r *PostgresSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}
