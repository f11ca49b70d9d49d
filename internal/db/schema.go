package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    role       TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'responsible', 'user')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cycles (
    id         TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by INTEGER NOT NULL REFERENCES users(id),
    closed     INTEGER NOT NULL DEFAULT 0 CHECK (closed IN (0, 1)),
    closed_at  DATETIME,
    CHECK ((closed = 0) = (closed_at IS NULL))
);

-- At most one open cycle.
CREATE UNIQUE INDEX IF NOT EXISTS idx_cycles_single_open
    ON cycles(closed) WHERE closed = 0;

CREATE TABLE IF NOT EXISTS expected_items (
    cycle_id      TEXT NOT NULL REFERENCES cycles(id),
    primary_key   TEXT NOT NULL,
    location_code TEXT NOT NULL,
    room          TEXT,
    description   TEXT,
    temperature   TEXT,
    expiry_date   TEXT,
    category      TEXT NOT NULL DEFAULT 'sample' CHECK (category IN ('sample', 'substance')),
    PRIMARY KEY (cycle_id, primary_key)
);

CREATE TABLE IF NOT EXISTS scanned_items (
    cycle_id      TEXT NOT NULL REFERENCES cycles(id),
    primary_key   TEXT NOT NULL,
    location_code TEXT NOT NULL,
    scanned_by    INTEGER NOT NULL REFERENCES users(id),
    outcome       TEXT NOT NULL CHECK (outcome IN ('ok', 'wrong_location', 'unexpected')),
    scanned_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (cycle_id, primary_key)
);

CREATE TABLE IF NOT EXISTS discrepancies (
    id           TEXT PRIMARY KEY,
    cycle_id     TEXT NOT NULL REFERENCES cycles(id),
    primary_key  TEXT NOT NULL,
    kind         TEXT NOT NULL CHECK (kind IN ('missing', 'wrong_location', 'unexpected')),
    comment      TEXT,
    confirmed_by INTEGER REFERENCES users(id),
    confirmed_at DATETIME,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK ((confirmed_by IS NULL) = (confirmed_at IS NULL))
);

CREATE TABLE IF NOT EXISTS location_verifications (
    cycle_id      TEXT NOT NULL REFERENCES cycles(id),
    location_code TEXT NOT NULL,
    verified_by   INTEGER NOT NULL REFERENCES users(id),
    verified_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (cycle_id, location_code)
);

CREATE TABLE IF NOT EXISTS audit_entries (
    id          TEXT PRIMARY KEY,
    actor_id    INTEGER NOT NULL REFERENCES users(id),
    action      TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_ref  TEXT NOT NULL,
    cycle_id    TEXT REFERENCES cycles(id),
    details     TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
