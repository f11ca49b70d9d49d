package model

import "time"

// Cycle is one inventory-taking exercise. At most one cycle is open at a time.
type Cycle struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	CreatedBy int64      `json:"created_by"`
	Closed    bool       `json:"closed"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	// Joined fields (not always populated).
	CreatedByName string `json:"created_by_name,omitempty"`
	ExpectedCount int    `json:"expected_count"`
	ScanCount     int    `json:"scan_count"`
	OKScanCount   int    `json:"ok_scan_count"`
}

// ClosureStats summarizes the state of a cycle at closing time.
type ClosureStats struct {
	ExpectedItems      int `json:"expected_items"`
	Scans              int `json:"scans"`
	LocationsTotal     int `json:"locations_total"`
	LocationsVerified  int `json:"locations_verified"`
	DiscrepanciesTotal int `json:"discrepancies_total"`
	DiscrepanciesOpen  int `json:"discrepancies_open"`
}

// ClosureReadiness tells whether a cycle can be closed and, if not, why.
type ClosureReadiness struct {
	CanClose bool         `json:"can_close"`
	Reasons  []string     `json:"reasons"`
	Stats    ClosureStats `json:"stats"`
}

// DashboardStats is the overview across all cycles.
type DashboardStats struct {
	OpenCycles        int `json:"open_cycles"`
	ClosedThisYear    int `json:"closed_this_year"`
	OpenDiscrepancies int `json:"open_discrepancies"`
	ScannedToday      int `json:"scanned_today"`
}
