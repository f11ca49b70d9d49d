package model

import (
	"strings"
	"time"
)

// ItemCategory distinguishes samples from substances.
type ItemCategory string

// Item categories.
const (
	CategorySample    ItemCategory = "sample"
	CategorySubstance ItemCategory = "substance"
)

// Valid reports whether c is a known category.
func (c ItemCategory) Valid() bool {
	switch c {
	case CategorySample, CategorySubstance:
		return true
	}
	return false
}

// CategoryForKey derives the category from a primary key prefix:
// "M-" is a sample, "S-" a substance. Anything else counts as a sample.
func CategoryForKey(key string) ItemCategory {
	if strings.HasPrefix(key, "S-") {
		return CategorySubstance
	}
	return CategorySample
}

// ExpectedItem is one item the inventory expects at a location (SOLL).
type ExpectedItem struct {
	CycleID      string       `json:"cycle_id"`
	PrimaryKey   string       `json:"primary_key" validate:"required"`
	LocationCode string       `json:"location_code" validate:"required"`
	Room         string       `json:"room,omitempty"`
	Description  string       `json:"description,omitempty"`
	Temperature  string       `json:"temperature,omitempty"`
	ExpiryDate   *time.Time   `json:"expiry_date,omitempty"`
	Category     ItemCategory `json:"category,omitempty"`
}

// LocationItem is an item shown on a location's scan list: either an
// expected item with its scan state or an unexpected item scanned there.
type LocationItem struct {
	PrimaryKey  string       `json:"primary_key"`
	Description string       `json:"description,omitempty"`
	Temperature string       `json:"temperature,omitempty"`
	Scanned     bool         `json:"scanned"`
	Outcome     *ScanOutcome `json:"outcome,omitempty"`
	Unexpected  bool         `json:"unexpected"`
}
