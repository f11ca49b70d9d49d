package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/erazemk/inventura/internal/model"
)

// DefaultAuditLimit is the number of entries returned when no limit is given.
const DefaultAuditLimit = 100

// appendAudit records a state-changing action. It runs inside the caller's
// transaction so the entry commits or rolls back with the change itself.
func appendAudit(ctx context.Context, q querier, actor model.Actor, action model.AuditAction,
	entityType, entityRef, cycleID string, details any) error {
	var payload sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return storageErr("encoding audit details", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	var cycle sql.NullString
	if cycleID != "" {
		cycle = sql.NullString{String: cycleID, Valid: true}
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO audit_entries (id, actor_id, action, entity_type, entity_ref, cycle_id, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), actor.UserID, string(action), entityType, entityRef, cycle, payload,
	)
	if err != nil {
		return storageErr("recording audit entry", err)
	}
	return nil
}

// ListAuditEntries returns audit entries, newest first, optionally filtered
// by cycle and action.
func ListAuditEntries(ctx context.Context, db *sql.DB, filter model.AuditFilter) ([]model.AuditEntry, error) {
	query := `SELECT a.id, a.actor_id, a.action, a.entity_type, a.entity_ref, a.cycle_id,
	                 a.details, a.created_at, u.name
	          FROM audit_entries a
	          JOIN users u ON u.id = a.actor_id
	          WHERE 1=1`
	var args []any

	if filter.CycleID != "" {
		query += ` AND a.cycle_id = ?`
		args = append(args, filter.CycleID)
	}
	if filter.Action != "" {
		query += ` AND a.action = ?`
		args = append(args, string(filter.Action))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	query += ` ORDER BY a.created_at DESC, a.rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("listing audit entries", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var action string
		var cycleID, details sql.NullString
		if err := rows.Scan(&e.ID, &e.ActorID, &action, &e.EntityType, &e.EntityRef, &cycleID,
			&details, &e.CreatedAt, &e.ActorName); err != nil {
			return nil, storageErr("scanning audit entry", err)
		}
		e.Action = model.AuditAction(action)
		e.CycleID = cycleID.String
		if details.Valid {
			e.Details = json.RawMessage(details.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("listing audit entries", err)
	}
	return entries, nil
}
