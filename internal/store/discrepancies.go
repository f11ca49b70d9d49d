package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/inventura/internal/model"
)

const discrepancyColumns = `d.id, d.cycle_id, d.primary_key, d.kind, d.comment, d.confirmed_by, d.confirmed_at, d.created_at,
        COALESCE(u.name, ''),
        COALESCE(e.location_code, s.location_code, ''),
        COALESCE(e.description, '')`

const discrepancyJoins = `FROM discrepancies d
        LEFT JOIN users u ON u.id = d.confirmed_by
        LEFT JOIN expected_items e ON e.cycle_id = d.cycle_id AND e.primary_key = d.primary_key
        LEFT JOIN scanned_items s ON s.cycle_id = d.cycle_id AND s.primary_key = d.primary_key`

func insertDiscrepancy(ctx context.Context, q querier, cycleID, key string, kind model.DiscrepancyKind, comment *string) (string, error) {
	id := uuid.NewString()
	_, err := q.ExecContext(ctx,
		`INSERT INTO discrepancies (id, cycle_id, primary_key, kind, comment) VALUES (?, ?, ?, ?, ?)`,
		id, cycleID, key, string(kind), comment,
	)
	if err != nil {
		return "", storageErr("recording discrepancy", err)
	}
	return id, nil
}

// ListDiscrepancies returns the discrepancies of a cycle with the description
// and location of the item. The location is the expected one when the item
// is in the expected stock, otherwise the location it was scanned at.
func ListDiscrepancies(ctx context.Context, db *sql.DB, cycleID string) ([]model.Discrepancy, error) {
	if _, err := cycleClosed(ctx, db, cycleID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+discrepancyColumns+`
		 `+discrepancyJoins+`
		 WHERE d.cycle_id = ?
		 ORDER BY d.kind, d.primary_key, d.created_at`, cycleID,
	)
	if err != nil {
		return nil, storageErr("listing discrepancies", err)
	}
	defer rows.Close()

	var discrepancies []model.Discrepancy
	for rows.Next() {
		d, err := scanDiscrepancy(rows)
		if err != nil {
			return nil, storageErr("scanning discrepancy", err)
		}
		discrepancies = append(discrepancies, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing discrepancies", err)
	}
	return discrepancies, nil
}

// GetDiscrepancy returns a discrepancy by ID.
func GetDiscrepancy(ctx context.Context, db *sql.DB, id string) (*model.Discrepancy, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+discrepancyColumns+`
		 `+discrepancyJoins+`
		 WHERE d.id = ?`, id,
	)
	d, err := scanDiscrepancy(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("getting discrepancy", err)
	}
	return d, nil
}

func scanDiscrepancy(row rowScanner) (*model.Discrepancy, error) {
	d := &model.Discrepancy{}
	var kind string
	var comment sql.NullString
	err := row.Scan(&d.ID, &d.CycleID, &d.PrimaryKey, &kind, &comment, &d.ConfirmedBy, &d.ConfirmedAt, &d.CreatedAt,
		&d.ConfirmedByName, &d.LocationCode, &d.Description)
	if err != nil {
		return nil, err
	}
	d.Kind = model.DiscrepancyKind(kind)
	if comment.Valid {
		d.Comment = &comment.String
	}
	return d, nil
}

// ConfirmDiscrepancy signs off a discrepancy. A non-empty comment replaces the
// stored one; otherwise the existing comment is kept. Confirming an already
// confirmed discrepancy records the new confirmer and time again.
// Discrepancies of a closed cycle can no longer be changed.
func ConfirmDiscrepancy(ctx context.Context, db *sql.DB, id string, actor model.Actor, comment *string) (*model.Discrepancy, error) {
	var newComment *string
	if comment != nil && strings.TrimSpace(*comment) != "" {
		c := strings.TrimSpace(*comment)
		newComment = &c
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("beginning transaction", err)
	}
	defer tx.Rollback()

	var cycleID, key string
	var confirmedAt *time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT cycle_id, primary_key, confirmed_at FROM discrepancies WHERE id = ?`, id,
	).Scan(&cycleID, &key, &confirmedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("getting discrepancy", err)
	}

	if err := requireOpenCycle(ctx, tx, cycleID); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE discrepancies
		 SET confirmed_by = ?, confirmed_at = CURRENT_TIMESTAMP, comment = COALESCE(?, comment)
		 WHERE id = ?`,
		actor.UserID, newComment, id,
	)
	if err != nil {
		return nil, storageErr("confirming discrepancy", err)
	}

	details := map[string]any{
		"primary_key": key,
		"comment":     newComment,
		"reconfirmed": confirmedAt != nil,
	}
	if err := appendAudit(ctx, tx, actor, model.ActionDiscrepancyConfirmed, model.EntityDiscrepancy, id, cycleID, details); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("committing confirmation", err)
	}

	return GetDiscrepancy(ctx, db, id)
}

// GetStatistics aggregates the discrepancies of a cycle. ByKind lists every
// kind, including kinds with no discrepancies.
func GetStatistics(ctx context.Context, db *sql.DB, cycleID string) (*model.DiscrepancyStats, error) {
	if _, err := cycleClosed(ctx, db, cycleID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT kind, COUNT(*), COUNT(confirmed_at)
		 FROM discrepancies
		 WHERE cycle_id = ?
		 GROUP BY kind`, cycleID,
	)
	if err != nil {
		return nil, storageErr("getting statistics", err)
	}
	defer rows.Close()

	counts := make(map[model.DiscrepancyKind]int)
	stats := &model.DiscrepancyStats{}
	for rows.Next() {
		var kind string
		var total, confirmed int
		if err := rows.Scan(&kind, &total, &confirmed); err != nil {
			return nil, storageErr("scanning statistics", err)
		}
		counts[model.DiscrepancyKind(kind)] = total
		stats.Total += total
		stats.Confirmed += confirmed
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("getting statistics", err)
	}

	stats.Open = stats.Total - stats.Confirmed
	for _, kind := range model.DiscrepancyKinds {
		stats.ByKind = append(stats.ByKind, model.KindCount{Kind: kind, Count: counts[kind]})
	}
	return stats, nil
}
