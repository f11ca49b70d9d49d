package model

import "time"

// LocationSummary is the completion state of one storage location.
type LocationSummary struct {
	LocationCode  string `json:"location_code"`
	Room          string `json:"room,omitempty"`
	ExpectedCount int    `json:"expected_count"`
	ScannedCount  int    `json:"scanned_count"`
	IsComplete    bool   `json:"is_complete"`
	IsVerified    bool   `json:"is_verified"`
}

// LocationVerification records that a user checked and closed out a location.
type LocationVerification struct {
	CycleID      string    `json:"cycle_id"`
	LocationCode string    `json:"location_code"`
	VerifiedBy   int64     `json:"verified_by"`
	VerifiedAt   time.Time `json:"verified_at"`
}

// LocationConfirmation is the result of verifying a location.
type LocationConfirmation struct {
	Verification   LocationVerification `json:"verification"`
	StillMissing   int                  `json:"still_missing"`
	MissingCreated int                  `json:"missing_created"`
}
