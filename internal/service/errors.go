// Package service provides the identity-service business logic,
// delegating persistence to repository interfaces.
package service

import "errors"

var (
	// ErrPrincipalNotFound means no principal exists with the given id.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrSessionNotFound means the token matches no live session.
	ErrSessionNotFound = errors.New("session not found or expired")
	// ErrInvalidTarget means the switch-context request named no target.
	ErrInvalidTarget = errors.New("target user id is required")
	// ErrDelegationNotGranted means the target principal has not granted
	// the caller any access.
	ErrDelegationNotGranted = errors.New("no delegation grant for target user")
	// ErrGrantExpired means the grant's access period has ended.
	ErrGrantExpired = errors.New("delegation grant has expired")
)
