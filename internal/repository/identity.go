// Package repository provides PostgreSQL persistence for the identity
// service.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sparkyfit/authority/internal/models"
)

// PostgresIdentityRepository implements identity lookups against a
// PostgreSQL database.
type PostgresIdentityRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresIdentityRepository creates a new PostgresIdentityRepository
// with the given database connection.
func NewPostgresIdentityRepository(db *sql.DB) *PostgresIdentityRepository {
	return &PostgresIdentityRepository{DB: db}
}

// PrincipalByID fetches one principal by id. Returns sql.ErrNoRows when
// no principal exists.
func (r *PostgresIdentityRepository) PrincipalByID(ctx context.Context, id string) (*models.Principal, error) {
	var p models.Principal
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, two_factor_enabled, mfa_email_enabled
		  FROM principals WHERE id = $1
	`, id).Scan(&p.ID, &p.Email, &p.DisplayName, &p.Role, &p.TwoFactorEnabled, &p.MFAEmailEnabled)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GrantsForGrantee lists every grant whose grantee is the given
// principal, joined with the grantor's display data.
func (r *PostgresIdentityRepository) GrantsForGrantee(ctx context.Context, granteeID string) ([]models.Grant, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT g.grantor_id, p.full_name, p.email,
		       g.diary, g.checkin, g.reports, g.food_list, g.access_end_date
		  FROM access_grants g
		  JOIN principals p ON p.id = g.grantor_id
		 WHERE g.grantee_id = $1
	`, granteeID)
	if err != nil {
		return nil, fmt.Errorf("GrantsForGrantee: %w", err)
	}
	defer rows.Close()

	var grants []models.Grant
	for rows.Next() {
		g := models.Grant{GranteePrincipalID: granteeID}
		var end sql.NullTime
		if err := rows.Scan(
			&g.GrantorPrincipalID, &g.GrantorDisplayName, &g.GrantorEmail,
			&g.Permissions.Diary, &g.Permissions.Checkin,
			&g.Permissions.Reports, &g.Permissions.FoodList, &end,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if end.Valid {
			t := end.Time
			g.ExpiresAt = &t
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// GrantFor fetches the single grant from grantorID to granteeID.
// Returns sql.ErrNoRows when none exists.
func (r *PostgresIdentityRepository) GrantFor(ctx context.Context, granteeID, grantorID string) (*models.Grant, error) {
	g := models.Grant{
		GranteePrincipalID: granteeID,
		GrantorPrincipalID: grantorID,
	}
	var end sql.NullTime
	err := r.DB.QueryRowContext(ctx, `
		SELECT g.diary, g.checkin, g.reports, g.food_list, g.access_end_date, p.full_name, p.email
		  FROM access_grants g
		  JOIN principals p ON p.id = g.grantor_id
		 WHERE g.grantee_id = $1 AND g.grantor_id = $2
	`, granteeID, grantorID).Scan(
		&g.Permissions.Diary, &g.Permissions.Checkin,
		&g.Permissions.Reports, &g.Permissions.FoodList,
		&end, &g.GrantorDisplayName, &g.GrantorEmail,
	)
	if err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		g.ExpiresAt = &t
	}
	return &g, nil
}

// SetActiveUser updates the session's active principal.
func (r *PostgresIdentityRepository) SetActiveUser(ctx context.Context, sessionID, activeUserID string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE sessions SET active_user_id = $2 WHERE id = $1
	`, sessionID, activeUserID)
	return err
}
