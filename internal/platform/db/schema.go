package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		salt TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_login TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_active ON users (is_active)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		permission_id TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		level TEXT NOT NULL,
		dependencies JSONB NOT NULL DEFAULT '[]',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_permissions_category ON permissions (category)`,
	`CREATE TABLE IF NOT EXISTS user_permissions (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		permission_id TEXT NOT NULL REFERENCES permissions(permission_id) ON DELETE CASCADE,
		granted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, permission_id)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(10,2) NOT NULL DEFAULT 0,
		stock INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		transaction_id TEXT UNIQUE NOT NULL,
		customer_id TEXT,
		employee_id TEXT NOT NULL,
		ts TIMESTAMPTZ NOT NULL DEFAULT now(),
		subtotal NUMERIC(10,2) NOT NULL,
		tax_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
		discount_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
		total_amount NUMERIC(10,2) NOT NULL,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_employee ON transactions (employee_id)`,
	`CREATE TABLE IF NOT EXISTS transaction_items (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(transaction_id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		quantity INT NOT NULL,
		unit_price NUMERIC(10,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		at TIMESTAMPTZ NOT NULL DEFAULT now(),
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		remote_addr TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate creates the schema when it does not exist yet. It is run at
// startup; a failure here is fatal to the process.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: migrate: %w", err)
		}
	}
	return nil
}
