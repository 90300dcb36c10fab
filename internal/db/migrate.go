// Package db bootstraps the application schema.
package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The unique index on ledger_entries.external_ref is the idempotency
// mechanism for every external producer (provider callbacks, in-app survey
// rewards, withdrawal debits). Postgres exempts NULLs, so internal entries
// without a reference are unconstrained.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id),
		amount BIGINT NOT NULL,
		kind TEXT NOT NULL,
		external_ref TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_id ON ledger_entries (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS surveys (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		questions JSONB NOT NULL DEFAULT '[]',
		coin_reward BIGINT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS survey_responses (
		id UUID PRIMARY KEY,
		survey_id UUID NOT NULL REFERENCES surveys(id),
		user_id UUID NOT NULL REFERENCES profiles(id),
		answers JSONB NOT NULL DEFAULT '{}',
		completed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (survey_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS withdraw_requests (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id),
		amount BIGINT NOT NULL,
		bank_name TEXT NOT NULL,
		account_number TEXT NOT NULL,
		country TEXT NOT NULL,
		country_code TEXT NOT NULL,
		currency TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema. Statements are idempotent, so running at
// every startup is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
