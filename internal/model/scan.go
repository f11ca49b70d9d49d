package model

import "time"

// ScanOutcome is the classification of a single barcode scan.
type ScanOutcome string

// Scan outcomes.
const (
	OutcomeOK            ScanOutcome = "ok"
	OutcomeWrongLocation ScanOutcome = "wrong_location"
	OutcomeUnexpected    ScanOutcome = "unexpected"
)

// Valid reports whether o is a known outcome.
func (o ScanOutcome) Valid() bool {
	switch o {
	case OutcomeOK, OutcomeWrongLocation, OutcomeUnexpected:
		return true
	}
	return false
}

// DiscrepancyKind returns the kind of discrepancy a scan with this outcome
// records, and false for outcomes that record none.
func (o ScanOutcome) DiscrepancyKind() (DiscrepancyKind, bool) {
	switch o {
	case OutcomeOK:
		return "", false
	case OutcomeWrongLocation:
		return KindWrongLocation, true
	case OutcomeUnexpected:
		return KindUnexpected, true
	}
	panic("model: unknown scan outcome " + string(o))
}

// ScannedItem is one physical scan (IST). A key is scanned at most once per cycle.
type ScannedItem struct {
	CycleID      string      `json:"cycle_id"`
	PrimaryKey   string      `json:"primary_key"`
	LocationCode string      `json:"location_code"`
	ScannedBy    int64       `json:"scanned_by"`
	Outcome      ScanOutcome `json:"outcome"`
	ScannedAt    time.Time   `json:"scanned_at"`
}

// ScanResult is returned to the scanning client.
type ScanResult struct {
	Outcome          ScanOutcome `json:"outcome"`
	Message          string      `json:"message"`
	ExpectedLocation string      `json:"expected_location,omitempty"`
	DiscrepancyID    string      `json:"discrepancy_id,omitempty"`
}
