package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sparkyfit/authority/internal/models"
)

// SessionRepository defines the persistence operations required by the
// session service.
type SessionRepository interface {
	// SessionByToken fetches the live session behind an opaque token.
	// Expired sessions are not returned. Returns sql.ErrNoRows when no
	// live session matches.
	SessionByToken(ctx context.Context, token string) (*models.SessionRecord, error)
	// CreateSession inserts a new session for the given user.
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*models.SessionRecord, error)
	// DeleteSession removes a session by id.
	DeleteSession(ctx context.Context, sessionID string) error
}

// SessionService resolves opaque session tokens. Tokens are looked up,
// never cryptographically verified; issuance belongs to the external
// authentication provider, CreateSession only serves development seeds
// and tests.
type SessionService struct {
	repo SessionRepository
}

// NewSessionService constructs a SessionService using the provided
// repository.
func NewSessionService(repo SessionRepository) *SessionService {
	return &SessionService{repo: repo}
}

// Authenticate returns the live session behind token, or
// ErrSessionNotFound.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.SessionRecord, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := s.repo.SessionByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	return sess, nil
}

// Create inserts a new session for userID valid for ttl.
func (s *SessionService) Create(ctx context.Context, userID string, ttl time.Duration) (*models.SessionRecord, error) {
	return s.repo.CreateSession(ctx, userID, ttl)
}

// Delete removes the session by id (sign-out).
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	return s.repo.DeleteSession(ctx, sessionID)
}
