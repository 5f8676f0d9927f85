package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sparkyfit/authority/internal/models"
)

// IdentityRepository defines the persistence operations required by the
// identity service.
type IdentityRepository interface {
	// PrincipalByID fetches a principal by id. Returns sql.ErrNoRows
	// when none exists.
	PrincipalByID(ctx context.Context, id string) (*models.Principal, error)
	// GrantsForGrantee lists every grant whose grantee is the given
	// principal.
	GrantsForGrantee(ctx context.Context, granteeID string) ([]models.Grant, error)
	// GrantFor fetches the single grant from grantorID to granteeID.
	// Returns sql.ErrNoRows when none exists.
	GrantFor(ctx context.Context, granteeID, grantorID string) (*models.Grant, error)
	// SetActiveUser updates the session's active principal.
	SetActiveUser(ctx context.Context, sessionID, activeUserID string) error
}

// IdentityService implements the identity operations behind the
// /identity endpoints: authoritative identity lookup, accessible-users
// listing and the active-principal context switch.
type IdentityService struct {
	repo IdentityRepository
	now  func() time.Time
}

// NewIdentityService constructs an IdentityService using the provided
// repository.
func NewIdentityService(repo IdentityRepository) *IdentityService {
	return &IdentityService{repo: repo, now: time.Now}
}

// Principal returns the principal with the given id, or
// ErrPrincipalNotFound.
func (s *IdentityService) Principal(ctx context.Context, id string) (*models.Principal, error) {
	p, err := s.repo.PrincipalByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPrincipalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("principal lookup: %w", err)
	}
	return p, nil
}

// AccessibleUsers lists the principals who granted granteeID access.
func (s *IdentityService) AccessibleUsers(ctx context.Context, granteeID string) ([]models.Grant, error) {
	grants, err := s.repo.GrantsForGrantee(ctx, granteeID)
	if err != nil {
		return nil, fmt.Errorf("grants lookup: %w", err)
	}
	return grants, nil
}

// SwitchContext changes which principal's data the session operates as.
// The target must be the authenticated principal itself or a grantor
// with a non-expired grant; violations return ErrDelegationNotGranted
// or ErrGrantExpired and leave the session untouched. On success the
// adopted active principal id is returned.
func (s *IdentityService) SwitchContext(ctx context.Context, sess *models.SessionRecord, targetUserID string) (string, error) {
	if targetUserID == "" {
		return "", ErrInvalidTarget
	}

	if targetUserID != sess.UserID {
		grant, err := s.repo.GrantFor(ctx, sess.UserID, targetUserID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrDelegationNotGranted
		}
		if err != nil {
			return "", fmt.Errorf("grant lookup: %w", err)
		}
		if grant.Expired(s.now()) {
			return "", ErrGrantExpired
		}
	}

	if err := s.repo.SetActiveUser(ctx, sess.ID, targetUserID); err != nil {
		return "", fmt.Errorf("set active user: %w", err)
	}
	return targetUserID, nil
}
