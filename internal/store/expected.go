package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/inventura/internal/model"
)

// expiryLayout is the storage format of expiry dates.
const expiryLayout = "2006-01-02"

// ReplaceExpectedItems replaces the full expected stock of an open cycle.
// Existing expected items are deleted before the new set is inserted; scans
// are left untouched, so the "expected location" recorded with earlier
// WRONG_LOCATION discrepancies may no longer match the new set.
// Returns the number of items inserted.
func ReplaceExpectedItems(ctx context.Context, db *sql.DB, cycleID string, items []model.ExpectedItem, actor model.Actor) (int, error) {
	normalized, err := normalizeExpectedItems(items)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := requireOpenCycle(ctx, tx, cycleID); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM expected_items WHERE cycle_id = ?`, cycleID)
	if err != nil {
		return 0, storageErr("deleting expected items", err)
	}
	replaced, _ := result.RowsAffected()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO expected_items
		    (cycle_id, primary_key, location_code, room, description, temperature, expiry_date, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, storageErr("preparing expected item insert", err)
	}
	defer stmt.Close()

	for _, item := range normalized {
		var expiry sql.NullString
		if item.ExpiryDate != nil {
			expiry = sql.NullString{String: item.ExpiryDate.Format(expiryLayout), Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			cycleID, item.PrimaryKey, item.LocationCode,
			nullString(item.Room), nullString(item.Description), nullString(item.Temperature),
			expiry, string(item.Category),
		)
		if err != nil {
			return 0, storageErr("inserting expected item", err)
		}
	}

	details := map[string]any{"imported": len(normalized), "replaced": replaced}
	if err := appendAudit(ctx, tx, actor, model.ActionExpectedImported, model.EntityCycle, cycleID, cycleID, details); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("committing expected items", err)
	}
	return len(normalized), nil
}

// normalizeExpectedItems trims keys and locations, fills in the category and
// rejects empty or duplicate keys.
func normalizeExpectedItems(items []model.ExpectedItem) ([]model.ExpectedItem, error) {
	seen := make(map[string]bool, len(items))
	out := make([]model.ExpectedItem, 0, len(items))
	for i, item := range items {
		item.PrimaryKey = strings.TrimSpace(item.PrimaryKey)
		item.LocationCode = strings.TrimSpace(item.LocationCode)
		if item.PrimaryKey == "" {
			return nil, fmt.Errorf("%w: item %d has no primary key", ErrInvalidInput, i+1)
		}
		if item.LocationCode == "" {
			return nil, fmt.Errorf("%w: item %s has no location", ErrInvalidInput, item.PrimaryKey)
		}
		if seen[item.PrimaryKey] {
			return nil, fmt.Errorf("%w: duplicate primary key %s", ErrInvalidInput, item.PrimaryKey)
		}
		seen[item.PrimaryKey] = true

		if item.Category == "" {
			item.Category = model.CategoryForKey(item.PrimaryKey)
		}
		if !item.Category.Valid() {
			return nil, fmt.Errorf("%w: item %s has unknown category %q", ErrInvalidInput, item.PrimaryKey, item.Category)
		}
		out = append(out, item)
	}
	return out, nil
}

// ListExpectedItems returns the expected items of a cycle, optionally
// restricted to one location.
func ListExpectedItems(ctx context.Context, db *sql.DB, cycleID, locationCode string) ([]model.ExpectedItem, error) {
	if _, err := cycleClosed(ctx, db, cycleID); err != nil {
		return nil, err
	}

	query := `SELECT cycle_id, primary_key, location_code, room, description, temperature, expiry_date, category
	          FROM expected_items
	          WHERE cycle_id = ?`
	args := []any{cycleID}
	if locationCode != "" {
		query += ` AND location_code = ?`
		args = append(args, locationCode)
	}
	query += ` ORDER BY location_code, primary_key`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("listing expected items", err)
	}
	defer rows.Close()

	var items []model.ExpectedItem
	for rows.Next() {
		var item model.ExpectedItem
		var room, description, temperature, expiry sql.NullString
		var category string
		if err := rows.Scan(&item.CycleID, &item.PrimaryKey, &item.LocationCode,
			&room, &description, &temperature, &expiry, &category); err != nil {
			return nil, storageErr("scanning expected item", err)
		}
		item.Room = room.String
		item.Description = description.String
		item.Temperature = temperature.String
		item.Category = model.ItemCategory(category)
		if expiry.Valid {
			if t, err := time.Parse(expiryLayout, expiry.String); err == nil {
				item.ExpiryDate = &t
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing expected items", err)
	}
	return items, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
