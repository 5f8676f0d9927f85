package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS principals (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    full_name TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'user',
    two_factor_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    mfa_email_enabled BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS access_grants (
    grantee_id TEXT REFERENCES principals(id) ON DELETE CASCADE,
    grantor_id TEXT REFERENCES principals(id) ON DELETE CASCADE,
    diary BOOLEAN NOT NULL DEFAULT FALSE,
    checkin BOOLEAN NOT NULL DEFAULT FALSE,
    reports BOOLEAN NOT NULL DEFAULT FALSE,
    food_list BOOLEAN NOT NULL DEFAULT FALSE,
    access_end_date TIMESTAMPTZ,
    PRIMARY KEY (grantee_id, grantor_id)
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    token TEXT UNIQUE NOT NULL,
    user_id TEXT REFERENCES principals(id) ON DELETE CASCADE,
    active_user_id TEXT NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);
`

func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}
