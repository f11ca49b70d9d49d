package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

// ClassifyScan records a barcode scan at a claimed location and returns its
// outcome:
//
//   - UNEXPECTED if the key is not in the expected stock,
//   - WRONG_LOCATION if it is expected at a different location,
//   - OK otherwise.
//
// UNEXPECTED and WRONG_LOCATION scans also record a discrepancy. The scan,
// the discrepancy and the audit entry are written in one transaction.
// A key can be scanned once per cycle; a second scan fails with
// ErrDuplicateScan and changes nothing.
func ClassifyScan(ctx context.Context, db *sql.DB, cycleID, claimedLocation, scannedKey string, actor model.Actor) (*model.ScanResult, error) {
	claimedLocation = strings.TrimSpace(claimedLocation)
	scannedKey = strings.TrimSpace(scannedKey)
	if claimedLocation == "" || scannedKey == "" {
		return nil, fmt.Errorf("%w: location and barcode are required", ErrInvalidInput)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := requireOpenCycle(ctx, tx, cycleID); err != nil {
		return nil, err
	}

	var scanned int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scanned_items WHERE cycle_id = ? AND primary_key = ?`,
		cycleID, scannedKey,
	).Scan(&scanned)
	if err != nil {
		return nil, storageErr("checking previous scans", err)
	}
	if scanned > 0 {
		return nil, ErrDuplicateScan
	}

	var expected *string
	var expectedLocation string
	err = tx.QueryRowContext(ctx,
		`SELECT location_code FROM expected_items WHERE cycle_id = ? AND primary_key = ?`,
		cycleID, scannedKey,
	).Scan(&expectedLocation)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, storageErr("looking up expected item", err)
	default:
		expected = &expectedLocation
	}

	result, comment := classify(expected, claimedLocation)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scanned_items (cycle_id, primary_key, location_code, scanned_by, outcome)
		 VALUES (?, ?, ?, ?, ?)`,
		cycleID, scannedKey, claimedLocation, actor.UserID, string(result.Outcome),
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateScan
	}
	if err != nil {
		return nil, storageErr("recording scan", err)
	}

	if kind, ok := result.Outcome.DiscrepancyKind(); ok {
		id, err := insertDiscrepancy(ctx, tx, cycleID, scannedKey, kind, comment)
		if err != nil {
			return nil, err
		}
		result.DiscrepancyID = id
	}

	details := map[string]any{
		"primary_key":   scannedKey,
		"location_code": claimedLocation,
		"outcome":       result.Outcome,
	}
	if expected != nil {
		details["expected_location"] = *expected
	}
	if err := appendAudit(ctx, tx, actor, model.ActionBarcodeScanned, model.EntityScan, scannedKey, cycleID, details); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("committing scan", err)
	}
	return result, nil
}

// classify decides the outcome of a scan from the expected location of the
// key (nil if the key is not expected) and the location it was found at.
// The returned comment is recorded with the discrepancy, if any.
func classify(expected *string, found string) (*model.ScanResult, *string) {
	if expected == nil {
		return &model.ScanResult{
			Outcome: model.OutcomeUnexpected,
			Message: "item not in expected stock, recorded as unexpected",
		}, nil
	}

	if *expected != found {
		comment := fmt.Sprintf("expected: %s, found: %s", *expected, found)
		return &model.ScanResult{
			Outcome:          model.OutcomeWrongLocation,
			Message:          fmt.Sprintf("item at wrong location, expected: %s", *expected),
			ExpectedLocation: *expected,
		}, &comment
	}

	return &model.ScanResult{
		Outcome:          model.OutcomeOK,
		Message:          "item recorded",
		ExpectedLocation: *expected,
	}, nil
}

// ListScans returns all scans of a cycle in scan order.
func ListScans(ctx context.Context, db *sql.DB, cycleID string) ([]model.ScannedItem, error) {
	if _, err := cycleClosed(ctx, db, cycleID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT cycle_id, primary_key, location_code, scanned_by, outcome, scanned_at
		 FROM scanned_items
		 WHERE cycle_id = ?
		 ORDER BY scanned_at, rowid`, cycleID,
	)
	if err != nil {
		return nil, storageErr("listing scans", err)
	}
	defer rows.Close()

	var scans []model.ScannedItem
	for rows.Next() {
		var s model.ScannedItem
		var outcome string
		if err := rows.Scan(&s.CycleID, &s.PrimaryKey, &s.LocationCode, &s.ScannedBy, &outcome, &s.ScannedAt); err != nil {
			return nil, storageErr("scanning scan", err)
		}
		s.Outcome = model.ScanOutcome(outcome)
		scans = append(scans, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing scans", err)
	}
	return scans, nil
}

// GetLocationItems returns the scan list of one location: every item expected
// there with its scan state, followed by items scanned there that were not
// expected there.
func GetLocationItems(ctx context.Context, db *sql.DB, cycleID, locationCode string) ([]model.LocationItem, error) {
	if _, err := cycleClosed(ctx, db, cycleID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT e.primary_key, COALESCE(e.description, ''), COALESCE(e.temperature, ''), s.outcome
		 FROM expected_items e
		 LEFT JOIN scanned_items s
		   ON s.cycle_id = e.cycle_id AND s.primary_key = e.primary_key AND s.location_code = e.location_code
		 WHERE e.cycle_id = ? AND e.location_code = ?
		 ORDER BY e.primary_key`,
		cycleID, locationCode,
	)
	if err != nil {
		return nil, storageErr("listing location items", err)
	}
	defer rows.Close()

	var items []model.LocationItem
	for rows.Next() {
		var item model.LocationItem
		var outcome sql.NullString
		if err := rows.Scan(&item.PrimaryKey, &item.Description, &item.Temperature, &outcome); err != nil {
			return nil, storageErr("scanning location item", err)
		}
		if outcome.Valid {
			o := model.ScanOutcome(outcome.String)
			item.Scanned = true
			item.Outcome = &o
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing location items", err)
	}
	rows.Close()

	extra, err := db.QueryContext(ctx,
		`SELECT s.primary_key, s.outcome
		 FROM scanned_items s
		 WHERE s.cycle_id = ? AND s.location_code = ?
		   AND NOT EXISTS (SELECT 1 FROM expected_items e
		                    WHERE e.cycle_id = s.cycle_id AND e.primary_key = s.primary_key
		                      AND e.location_code = s.location_code)
		 ORDER BY s.primary_key`,
		cycleID, locationCode,
	)
	if err != nil {
		return nil, storageErr("listing unexpected location items", err)
	}
	defer extra.Close()

	for extra.Next() {
		var item model.LocationItem
		var outcome string
		if err := extra.Scan(&item.PrimaryKey, &outcome); err != nil {
			return nil, storageErr("scanning location item", err)
		}
		o := model.ScanOutcome(outcome)
		item.Scanned = true
		item.Outcome = &o
		item.Unexpected = true
		items = append(items, item)
	}
	if err := extra.Err(); err != nil {
		return nil, storageErr("listing unexpected location items", err)
	}
	return items, nil
}
