package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/inventura/internal/model"
)

const cycleColumns = `c.id, c.created_at, c.created_by, c.closed, c.closed_at, u.name,
        (SELECT COUNT(*) FROM expected_items e WHERE e.cycle_id = c.id),
        (SELECT COUNT(*) FROM scanned_items s WHERE s.cycle_id = c.id),
        (SELECT COUNT(*) FROM scanned_items s WHERE s.cycle_id = c.id AND s.outcome = 'ok')`

// CreateCycle opens a new inventory cycle. Only one cycle may be open at a time.
func CreateCycle(ctx context.Context, db *sql.DB, actor model.Actor) (*model.Cycle, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning transaction", err)
	}
	defer tx.Rollback()

	var open int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles WHERE closed = 0`).Scan(&open)
	if err != nil {
		return nil, storageErr("checking open cycles", err)
	}
	if open > 0 {
		return nil, ErrOpenCycleExists
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cycles (id, created_by) VALUES (?, ?)`,
		id, actor.UserID,
	)
	if isUniqueViolation(err) {
		return nil, ErrOpenCycleExists
	}
	if err != nil {
		return nil, storageErr("creating cycle", err)
	}

	details := map[string]any{"created_by": actor.Name}
	if err := appendAudit(ctx, tx, actor, model.ActionCycleCreated, model.EntityCycle, id, id, details); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("committing cycle", err)
	}

	return GetCycle(ctx, db, id)
}

// GetCycle returns a cycle with its item and scan counts.
func GetCycle(ctx context.Context, db *sql.DB, id string) (*model.Cycle, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+cycleColumns+`
		 FROM cycles c
		 JOIN users u ON u.id = c.created_by
		 WHERE c.id = ?`, id,
	)
	c, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("getting cycle", err)
	}
	return c, nil
}

// GetActiveCycle returns the open cycle, or ErrNotFound if every cycle is closed.
func GetActiveCycle(ctx context.Context, db *sql.DB) (*model.Cycle, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+cycleColumns+`
		 FROM cycles c
		 JOIN users u ON u.id = c.created_by
		 WHERE c.closed = 0`,
	)
	c, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("getting active cycle", err)
	}
	return c, nil
}

// ListCycles returns the most recent cycles first. A limit of zero returns all.
func ListCycles(ctx context.Context, db *sql.DB, limit int) ([]model.Cycle, error) {
	query := `SELECT ` + cycleColumns + `
	          FROM cycles c
	          JOIN users u ON u.id = c.created_by
	          ORDER BY c.created_at DESC, c.rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("listing cycles", err)
	}
	defer rows.Close()

	var cycles []model.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, storageErr("scanning cycle", err)
		}
		cycles = append(cycles, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing cycles", err)
	}
	return cycles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCycle(row rowScanner) (*model.Cycle, error) {
	c := &model.Cycle{}
	err := row.Scan(&c.ID, &c.CreatedAt, &c.CreatedBy, &c.Closed, &c.ClosedAt, &c.CreatedByName,
		&c.ExpectedCount, &c.ScanCount, &c.OKScanCount)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// cycleClosed returns whether the cycle is closed, or ErrNotFound.
func cycleClosed(ctx context.Context, q querier, cycleID string) (bool, error) {
	var closed bool
	err := q.QueryRowContext(ctx, `SELECT closed FROM cycles WHERE id = ?`, cycleID).Scan(&closed)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, storageErr("checking cycle", err)
	}
	return closed, nil
}

// requireOpenCycle fails with ErrNotFound or ErrCycleClosed unless the cycle
// exists and is open.
func requireOpenCycle(ctx context.Context, q querier, cycleID string) error {
	closed, err := cycleClosed(ctx, q, cycleID)
	if err != nil {
		return err
	}
	if closed {
		return ErrCycleClosed
	}
	return nil
}

// GetClosureReadiness reports whether a cycle meets the closing criteria:
// every expected location verified and every discrepancy confirmed.
func GetClosureReadiness(ctx context.Context, db *sql.DB, cycleID string) (*model.ClosureReadiness, error) {
	if _, err := cycleClosed(ctx, db, cycleID); err != nil {
		return nil, err
	}
	return closureReadiness(ctx, db, cycleID)
}

func closureReadiness(ctx context.Context, q querier, cycleID string) (*model.ClosureReadiness, error) {
	var s model.ClosureStats
	err := q.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM expected_items WHERE cycle_id = ?),
		    (SELECT COUNT(*) FROM scanned_items WHERE cycle_id = ?),
		    (SELECT COUNT(DISTINCT location_code) FROM expected_items WHERE cycle_id = ?),
		    (SELECT COUNT(*) FROM location_verifications v
		      WHERE v.cycle_id = ?
		        AND EXISTS (SELECT 1 FROM expected_items e
		                     WHERE e.cycle_id = v.cycle_id AND e.location_code = v.location_code)),
		    (SELECT COUNT(*) FROM discrepancies WHERE cycle_id = ?),
		    (SELECT COUNT(*) FROM discrepancies WHERE cycle_id = ? AND confirmed_at IS NULL)`,
		cycleID, cycleID, cycleID, cycleID, cycleID, cycleID,
	).Scan(&s.ExpectedItems, &s.Scans, &s.LocationsTotal, &s.LocationsVerified,
		&s.DiscrepanciesTotal, &s.DiscrepanciesOpen)
	if err != nil {
		return nil, storageErr("computing closure readiness", err)
	}

	reasons := []string{}
	if s.LocationsVerified < s.LocationsTotal {
		reasons = append(reasons, fmt.Sprintf("%d locations not yet verified", s.LocationsTotal-s.LocationsVerified))
	}
	if s.DiscrepanciesOpen > 0 {
		reasons = append(reasons, fmt.Sprintf("%d discrepancies not yet confirmed", s.DiscrepanciesOpen))
	}

	return &model.ClosureReadiness{
		CanClose: len(reasons) == 0,
		Reasons:  reasons,
		Stats:    s,
	}, nil
}

// CloseCycle closes a cycle. Readiness is re-evaluated inside the closing
// transaction; a cycle that is not ready fails with a *NotReadyError.
// Closing is irreversible.
func CloseCycle(ctx context.Context, db *sql.DB, cycleID string, actor model.Actor) (*model.Cycle, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := requireOpenCycle(ctx, tx, cycleID); err != nil {
		return nil, err
	}

	readiness, err := closureReadiness(ctx, tx, cycleID)
	if err != nil {
		return nil, err
	}
	if !readiness.CanClose {
		return nil, &NotReadyError{Reasons: readiness.Reasons}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE cycles SET closed = 1, closed_at = CURRENT_TIMESTAMP WHERE id = ? AND closed = 0`,
		cycleID,
	)
	if err != nil {
		return nil, storageErr("closing cycle", err)
	}

	if err := appendAudit(ctx, tx, actor, model.ActionCycleClosed, model.EntityCycle, cycleID, cycleID, readiness.Stats); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("committing cycle close", err)
	}

	return GetCycle(ctx, db, cycleID)
}

// sqliteTime is the layout of CURRENT_TIMESTAMP values.
const sqliteTime = "2006-01-02 15:04:05"

// GetDashboardStats returns the overview across all cycles. "Today" and
// "this year" start at local midnight and local January 1.
func GetDashboardStats(ctx context.Context, db *sql.DB) (*model.DashboardStats, error) {
	return dashboardStats(ctx, db, time.Now())
}

func dashboardStats(ctx context.Context, db *sql.DB, now time.Time) (*model.DashboardStats, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	s := &model.DashboardStats{}
	err := db.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM cycles WHERE closed = 0),
		    (SELECT COUNT(*) FROM cycles WHERE closed = 1 AND closed_at >= ?),
		    (SELECT COUNT(*) FROM discrepancies WHERE confirmed_at IS NULL),
		    (SELECT COUNT(*) FROM scanned_items WHERE scanned_at >= ?)`,
		yearStart.UTC().Format(sqliteTime), dayStart.UTC().Format(sqliteTime),
	).Scan(&s.OpenCycles, &s.ClosedThisYear, &s.OpenDiscrepancies, &s.ScannedToday)
	if err != nil {
		return nil, storageErr("getting dashboard stats", err)
	}
	return s, nil
}
