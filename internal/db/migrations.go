package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: lookup indexes for per-location and per-key queries.
	`CREATE INDEX IF NOT EXISTS idx_expected_items_location
	     ON expected_items(cycle_id, location_code)`,
	`CREATE INDEX IF NOT EXISTS idx_scanned_items_location
	     ON scanned_items(cycle_id, location_code, outcome)`,
	`CREATE INDEX IF NOT EXISTS idx_discrepancies_cycle_key
	     ON discrepancies(cycle_id, primary_key, kind)`,
	// Migration 2: audit viewer filters by cycle and action.
	`CREATE INDEX IF NOT EXISTS idx_audit_entries_cycle
	     ON audit_entries(cycle_id, action)`,
}

// Migrate ensures the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
