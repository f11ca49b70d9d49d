package model

import (
	"encoding/json"
	"time"
)

// AuditAction is the kind of state change an audit entry records.
type AuditAction string

// Audit actions.
const (
	ActionCycleCreated         AuditAction = "cycle_created"
	ActionCycleClosed          AuditAction = "cycle_closed"
	ActionExpectedImported     AuditAction = "expected_imported"
	ActionBarcodeScanned       AuditAction = "barcode_scanned"
	ActionDiscrepancyConfirmed AuditAction = "discrepancy_confirmed"
	ActionLocationVerified     AuditAction = "location_verified"
	ActionLocationReopened     AuditAction = "location_reopened"
)

// Valid reports whether a is a known action.
func (a AuditAction) Valid() bool {
	switch a {
	case ActionCycleCreated, ActionCycleClosed, ActionExpectedImported,
		ActionBarcodeScanned, ActionDiscrepancyConfirmed,
		ActionLocationVerified, ActionLocationReopened:
		return true
	}
	return false
}

// Entity types referenced by audit entries.
const (
	EntityCycle       = "cycle"
	EntityScan        = "scan"
	EntityDiscrepancy = "discrepancy"
	EntityLocation    = "location"
)

// AuditEntry is an append-only record of a state-changing action.
type AuditEntry struct {
	ID         string          `json:"id"`
	ActorID    int64           `json:"actor_id"`
	Action     AuditAction     `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityRef  string          `json:"entity_ref"`
	CycleID    string          `json:"cycle_id,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`

	// Joined fields (not always populated).
	ActorName string `json:"actor_name,omitempty"`
}

// AuditFilter narrows an audit listing. Zero values mean "any".
type AuditFilter struct {
	CycleID string
	Action  AuditAction
	Limit   int
}
