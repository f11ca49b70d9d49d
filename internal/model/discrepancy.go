package model

import "time"

// DiscrepancyKind is the kind of mismatch between expected and scanned stock.
type DiscrepancyKind string

// Discrepancy kinds.
const (
	KindMissing       DiscrepancyKind = "missing"
	KindWrongLocation DiscrepancyKind = "wrong_location"
	KindUnexpected    DiscrepancyKind = "unexpected"
)

// DiscrepancyKinds lists all kinds in reporting order.
var DiscrepancyKinds = []DiscrepancyKind{KindMissing, KindWrongLocation, KindUnexpected}

// Valid reports whether k is a known kind.
func (k DiscrepancyKind) Valid() bool {
	switch k {
	case KindMissing, KindWrongLocation, KindUnexpected:
		return true
	}
	return false
}

// Discrepancy is a recorded mismatch requiring sign-off. ConfirmedBy and
// ConfirmedAt are either both nil (open) or both set (confirmed).
type Discrepancy struct {
	ID          string          `json:"id"`
	CycleID     string          `json:"cycle_id"`
	PrimaryKey  string          `json:"primary_key"`
	Kind        DiscrepancyKind `json:"kind"`
	Comment     *string         `json:"comment,omitempty"`
	ConfirmedBy *int64          `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`

	// Joined fields (not always populated).
	ConfirmedByName string `json:"confirmed_by_name,omitempty"`
	LocationCode    string `json:"location_code,omitempty"`
	Description     string `json:"description,omitempty"`
}

// Confirmed reports whether the discrepancy has been signed off.
func (d *Discrepancy) Confirmed() bool {
	return d.ConfirmedAt != nil
}

// KindCount is the number of discrepancies of one kind.
type KindCount struct {
	Kind  DiscrepancyKind `json:"kind"`
	Count int             `json:"count"`
}

// DiscrepancyStats aggregates the discrepancies of a cycle.
type DiscrepancyStats struct {
	Total     int         `json:"total"`
	Confirmed int         `json:"confirmed"`
	Open      int         `json:"open"`
	ByKind    []KindCount `json:"by_kind"`
}
