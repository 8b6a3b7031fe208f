package postgres

import (
	"context"
	"fmt"
)

// Schema notes:
//   - current_stock keeps at most one live row per (branch, company,
//     item_code); refreshed_at lets a commit insert new rows before
//     deleting the superseded ones.
//   - movements dedup on (branch, document_number, item_code,
//     document_date) and are indexed for "most recent per item" scans.
//   - refresh_lock is the storage-backed mutual exclusion row; every
//     process sharing the database sees the same holder.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS current_stock (
		id BIGSERIAL PRIMARY KEY,
		branch TEXT NOT NULL,
		company TEXT NOT NULL,
		item_code TEXT NOT NULL,
		item_name TEXT NOT NULL DEFAULT '',
		encoded_quantity TEXT NOT NULL DEFAULT '0W0P',
		pack_size DOUBLE PRECISION NOT NULL DEFAULT 1,
		refreshed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (branch, company, item_code)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_analysis (
		id BIGSERIAL PRIMARY KEY,
		branch TEXT NOT NULL,
		company TEXT NOT NULL,
		item_code TEXT NOT NULL,
		item_name TEXT NOT NULL DEFAULT '',
		abc_class TEXT NOT NULL DEFAULT '',
		adjusted_consumption_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
		ideal_stock DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (branch, company, item_code)
	)`,
	`CREATE TABLE IF NOT EXISTS movements (
		id BIGSERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		branch TEXT NOT NULL,
		source_branch TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL,
		item_code TEXT NOT NULL,
		item_name TEXT NOT NULL DEFAULT '',
		document_date DATE NOT NULL,
		document_number TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL DEFAULT 0,
		UNIQUE (branch, document_number, item_code, document_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_movements_item_branch_date
		ON movements (item_code, branch, document_date DESC)`,
	`CREATE TABLE IF NOT EXISTS refresh_lock (
		name TEXT PRIMARY KEY,
		locked_by TEXT NOT NULL,
		acquired_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_runs (
		id BIGSERIAL PRIMARY KEY,
		owner TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'running',
		branches_ok INT NOT NULL DEFAULT 0,
		branches_failed INT NOT NULL DEFAULT 0,
		movements_stored INT NOT NULL DEFAULT 0,
		detail TEXT NOT NULL DEFAULT ''
	)`,
}

// EnsureSchema creates the tables and indexes if they do not exist.
// Statements are idempotent so every binary can run this at startup.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("could not apply schema statement: %w", err)
		}
	}

	return nil
}
