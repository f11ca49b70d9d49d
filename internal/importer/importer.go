// Package importer reads the expected stock (SOLL) from a spreadsheet export.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/inventura/internal/model"
)

// ErrNoRows is returned when the sheet has no usable data rows.
var ErrNoRows = errors.New("spreadsheet contains no items")

// ColumnMap lists the accepted header names per field. Headers match
// exactly, ignoring case and surrounding whitespace.
type ColumnMap struct {
	PrimaryKey   []string `mapstructure:"primary_key"`
	LocationCode []string `mapstructure:"location_code"`
	Room         []string `mapstructure:"room"`
	Description  []string `mapstructure:"description"`
	Temperature  []string `mapstructure:"temperature"`
	ExpiryDate   []string `mapstructure:"expiry_date"`
}

// DefaultColumnMap matches the LIMS export.
func DefaultColumnMap() ColumnMap {
	return ColumnMap{
		PrimaryKey:   []string{"Primärschlüssel", "Muster Nr. LIMS", "Barcode"},
		LocationCode: []string{"Lagerplatz", "Standort"},
		Room:         []string{"Raum", "Räume - Raum Nr."},
		Description:  []string{"Bezeichnung", "Musterbezeichnung"},
		Temperature:  []string{"Temperatur", "Temperaturanforderung"},
		ExpiryDate:   []string{"Ablaufdatum", "Exp. Datum"},
	}
}

// RowError describes a skipped row. Line is the 1-based sheet row, counting
// the header.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Message)
}

// Result is the outcome of reading a sheet.
type Result struct {
	Sheet  string               `json:"sheet"`
	Items  []model.ExpectedItem `json:"-"`
	Errors []RowError           `json:"errors,omitempty"`
}

// Skipped returns the number of rows that were not imported.
func (r *Result) Skipped() int {
	return len(r.Errors)
}

// Reader parses expected stock workbooks.
type Reader struct {
	columns ColumnMap
}

// NewReader returns a reader using the given column map.
func NewReader(columns ColumnMap) *Reader {
	return &Reader{columns: columns}
}

// Read parses the first sheet of an .xlsx workbook. Rows missing a primary
// key or location, rows with unreadable expiry dates and repeated primary
// keys are skipped and reported in Result.Errors.
func (r *Reader) Read(src io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading rows of %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	cols, err := r.resolve(rows[0])
	if err != nil {
		return nil, err
	}

	result := &Result{Sheet: sheet}
	seen := make(map[string]int)
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}

		item, msg := cols.item(row)
		if msg == "" {
			if first, ok := seen[item.PrimaryKey]; ok {
				msg = fmt.Sprintf("duplicate primary key %s (first in row %d)", item.PrimaryKey, first)
			}
		}
		if msg != "" {
			result.Errors = append(result.Errors, RowError{Line: line, Message: msg})
			continue
		}

		seen[item.PrimaryKey] = line
		result.Items = append(result.Items, item)
	}

	if len(result.Items) == 0 {
		return result, ErrNoRows
	}
	return result, nil
}

// columns holds the resolved column index per field, -1 if absent.
type columns struct {
	key, location, room, description, temperature, expiry int
}

func (r *Reader) resolve(header []string) (*columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}

	find := func(names []string) int {
		for _, n := range names {
			if i, ok := index[strings.ToLower(strings.TrimSpace(n))]; ok {
				return i
			}
		}
		return -1
	}

	c := &columns{
		key:         find(r.columns.PrimaryKey),
		location:    find(r.columns.LocationCode),
		room:        find(r.columns.Room),
		description: find(r.columns.Description),
		temperature: find(r.columns.Temperature),
		expiry:      find(r.columns.ExpiryDate),
	}
	if c.key < 0 {
		return nil, fmt.Errorf("no primary key column (expected one of %s)", strings.Join(r.columns.PrimaryKey, ", "))
	}
	if c.location < 0 {
		return nil, fmt.Errorf("no location column (expected one of %s)", strings.Join(r.columns.LocationCode, ", "))
	}
	return c, nil
}

// item builds an expected item from a row, or returns why the row is invalid.
func (c *columns) item(row []string) (model.ExpectedItem, string) {
	item := model.ExpectedItem{
		PrimaryKey:   cell(row, c.key),
		LocationCode: cell(row, c.location),
		Room:         cell(row, c.room),
		Description:  cell(row, c.description),
		Temperature:  cell(row, c.temperature),
	}
	if item.PrimaryKey == "" {
		return item, "primary key missing"
	}
	if item.LocationCode == "" {
		return item, "location missing"
	}
	item.Category = model.CategoryForKey(item.PrimaryKey)

	if raw := cell(row, c.expiry); raw != "" {
		expiry, err := parseExpiry(raw)
		if err != nil {
			return item, fmt.Sprintf("invalid expiry date %q", raw)
		}
		item.ExpiryDate = &expiry
	}
	return item, ""
}

var expiryLayouts = []string{"2006-01-02", "02.01.2006", "2.1.2006", "01/02/2006"}

// parseExpiry accepts Excel date serials and the common textual formats.
func parseExpiry(raw string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
