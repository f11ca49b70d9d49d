package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

// GetLocationSummaries returns the completion state of every location in the
// expected stock of a cycle, ordered by location code. Only OK scans count
// toward a location; verification is tracked separately from completeness.
func GetLocationSummaries(ctx context.Context, db *sql.DB, cycleID string) ([]model.LocationSummary, error) {
	if _, err := cycleClosed(ctx, db, cycleID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT e.location_code, MAX(COALESCE(e.room, '')), COUNT(*),
		        (SELECT COUNT(*) FROM scanned_items s
		          WHERE s.cycle_id = ? AND s.location_code = e.location_code AND s.outcome = 'ok'),
		        EXISTS (SELECT 1 FROM location_verifications v
		                 WHERE v.cycle_id = ? AND v.location_code = e.location_code)
		 FROM expected_items e
		 WHERE e.cycle_id = ?
		 GROUP BY e.location_code
		 ORDER BY e.location_code`,
		cycleID, cycleID, cycleID,
	)
	if err != nil {
		return nil, storageErr("listing locations", err)
	}
	defer rows.Close()

	var summaries []model.LocationSummary
	for rows.Next() {
		var s model.LocationSummary
		if err := rows.Scan(&s.LocationCode, &s.Room, &s.ExpectedCount, &s.ScannedCount, &s.IsVerified); err != nil {
			return nil, storageErr("scanning location", err)
		}
		s.IsComplete = s.ScannedCount >= s.ExpectedCount
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing locations", err)
	}
	return summaries, nil
}

// ConfirmLocation marks a location as verified. Every item expected at the
// location without an OK scan gets a MISSING discrepancy, unless it already
// has one. A WRONG_LOCATION scan elsewhere does not count as present here, so
// such an item ends up with both a WRONG_LOCATION and a MISSING discrepancy.
func ConfirmLocation(ctx context.Context, db *sql.DB, cycleID, locationCode string, actor model.Actor) (*model.LocationConfirmation, error) {
	locationCode = strings.TrimSpace(locationCode)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := requireOpenCycle(ctx, tx, cycleID); err != nil {
		return nil, err
	}

	var known bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM expected_items WHERE cycle_id = ? AND location_code = ?)
		     OR EXISTS (SELECT 1 FROM scanned_items WHERE cycle_id = ? AND location_code = ?)`,
		cycleID, locationCode, cycleID, locationCode,
	).Scan(&known)
	if err != nil {
		return nil, storageErr("checking location", err)
	}
	if !known {
		return nil, ErrNotFound
	}

	var verified int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM location_verifications WHERE cycle_id = ? AND location_code = ?`,
		cycleID, locationCode,
	).Scan(&verified)
	if err != nil {
		return nil, storageErr("checking verification", err)
	}
	if verified > 0 {
		return nil, ErrAlreadyVerified
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO location_verifications (cycle_id, location_code, verified_by) VALUES (?, ?, ?)`,
		cycleID, locationCode, actor.UserID,
	)
	if isUniqueViolation(err) {
		return nil, ErrAlreadyVerified
	}
	if err != nil {
		return nil, storageErr("verifying location", err)
	}

	missing, err := missingKeys(ctx, tx, cycleID, locationCode)
	if err != nil {
		return nil, err
	}

	created := 0
	for _, key := range missing {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM discrepancies WHERE cycle_id = ? AND primary_key = ? AND kind = ?`,
			cycleID, key, string(model.KindMissing),
		).Scan(&exists)
		if err != nil {
			return nil, storageErr("checking missing discrepancy", err)
		}
		if exists > 0 {
			continue
		}
		if _, err := insertDiscrepancy(ctx, tx, cycleID, key, model.KindMissing, nil); err != nil {
			return nil, err
		}
		created++
	}

	details := map[string]any{
		"location_code":   locationCode,
		"still_missing":   len(missing),
		"missing_created": created,
	}
	if err := appendAudit(ctx, tx, actor, model.ActionLocationVerified, model.EntityLocation, locationCode, cycleID, details); err != nil {
		return nil, err
	}

	var v model.LocationVerification
	err = tx.QueryRowContext(ctx,
		`SELECT cycle_id, location_code, verified_by, verified_at
		 FROM location_verifications WHERE cycle_id = ? AND location_code = ?`,
		cycleID, locationCode,
	).Scan(&v.CycleID, &v.LocationCode, &v.VerifiedBy, &v.VerifiedAt)
	if err != nil {
		return nil, storageErr("reading verification", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("committing verification", err)
	}

	return &model.LocationConfirmation{
		Verification:   v,
		StillMissing:   len(missing),
		MissingCreated: created,
	}, nil
}

// missingKeys returns the keys expected at a location that have no OK scan
// there.
func missingKeys(ctx context.Context, q querier, cycleID, locationCode string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT e.primary_key
		 FROM expected_items e
		 WHERE e.cycle_id = ? AND e.location_code = ?
		   AND NOT EXISTS (SELECT 1 FROM scanned_items s
		                    WHERE s.cycle_id = e.cycle_id AND s.primary_key = e.primary_key
		                      AND s.location_code = e.location_code AND s.outcome = 'ok')
		 ORDER BY e.primary_key`,
		cycleID, locationCode,
	)
	if err != nil {
		return nil, storageErr("listing missing items", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, storageErr("scanning missing item", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing missing items", err)
	}
	return keys, nil
}

// ReopenLocation removes the verification of a location so it can be scanned
// again. MISSING discrepancies created at verification are kept.
func ReopenLocation(ctx context.Context, db *sql.DB, cycleID, locationCode string, actor model.Actor) error {
	locationCode = strings.TrimSpace(locationCode)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := requireOpenCycle(ctx, tx, cycleID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM location_verifications WHERE cycle_id = ? AND location_code = ?`,
		cycleID, locationCode,
	)
	if err != nil {
		return storageErr("reopening location", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	details := map[string]any{"location_code": locationCode}
	if err := appendAudit(ctx, tx, actor, model.ActionLocationReopened, model.EntityLocation, locationCode, cycleID, details); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing reopen", err)
	}
	return nil
}
