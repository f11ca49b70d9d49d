// Package report renders the reconciliation report of an inventory cycle as
// an .xlsx workbook.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// ContentType is the media type of the rendered report.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	summarySheet     = "Summary"
	discrepancySheet = "Discrepancies"
	timestampLayout  = "2006-01-02 15:04"
)

var discrepancyColumns = []string{
	"Primary key", "Kind", "Location", "Description", "Comment", "Confirmed by", "Confirmed at",
}

var columnWidths = []float64{20, 16, 16, 36, 40, 18, 18}

// Data is everything the report shows.
type Data struct {
	Cycle         *model.Cycle
	Readiness     *model.ClosureReadiness
	Stats         *model.DiscrepancyStats
	Discrepancies []model.Discrepancy
}

// Load collects the report data of a cycle.
func Load(ctx context.Context, db *sql.DB, cycleID string) (*Data, error) {
	cycle, err := store.GetCycle(ctx, db, cycleID)
	if err != nil {
		return nil, err
	}
	readiness, err := store.GetClosureReadiness(ctx, db, cycleID)
	if err != nil {
		return nil, err
	}
	stats, err := store.GetStatistics(ctx, db, cycleID)
	if err != nil {
		return nil, err
	}
	discrepancies, err := store.ListDiscrepancies(ctx, db, cycleID)
	if err != nil {
		return nil, err
	}
	return &Data{Cycle: cycle, Readiness: readiness, Stats: stats, Discrepancies: discrepancies}, nil
}

// Filename returns the suggested download name of a cycle report.
func Filename(c *model.Cycle) string {
	return fmt.Sprintf("inventory-%s.xlsx", c.CreatedAt.Format("2006-01-02"))
}

// Write renders the report to w.
func Write(w io.Writer, d *Data) error {
	f, err := build(d)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func build(d *Data) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(discrepancySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	if err := writeSummary(f, d, bold); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeDiscrepancies(f, d.Discrepancies, bold); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeSummary(f *excelize.File, d *Data, bold int) error {
	status := "open"
	closedAt := ""
	if d.Cycle.Closed {
		status = "closed"
		if d.Cycle.ClosedAt != nil {
			closedAt = d.Cycle.ClosedAt.Format(timestampLayout)
		}
	}

	rows := [][]any{
		{"Inventory", d.Cycle.ID},
		{"Status", status},
		{"Created at", d.Cycle.CreatedAt.Format(timestampLayout)},
		{"Created by", d.Cycle.CreatedByName},
		{"Closed at", closedAt},
		{},
		{"Expected items", d.Readiness.Stats.ExpectedItems},
		{"Scans", d.Readiness.Stats.Scans},
		{"Locations", d.Readiness.Stats.LocationsTotal},
		{"Locations verified", d.Readiness.Stats.LocationsVerified},
		{},
		{"Discrepancies", d.Stats.Total},
		{"Confirmed", d.Stats.Confirmed},
		{"Open", d.Stats.Open},
	}
	for _, kc := range d.Stats.ByKind {
		rows = append(rows, []any{"  " + kindLabel(kc.Kind), kc.Count})
	}
	if !d.Cycle.Closed && len(d.Readiness.Reasons) > 0 {
		rows = append(rows, []any{})
		for _, reason := range d.Readiness.Reasons {
			rows = append(rows, []any{"Not ready", reason})
		}
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("converting coordinates: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
		if err := f.SetCellStyle(summarySheet, cell, cell, bold); err != nil {
			return fmt.Errorf("styling summary: %w", err)
		}
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 22); err != nil {
		return fmt.Errorf("setting column width: %w", err)
	}
	return f.SetColWidth(summarySheet, "B", "B", 40)
}

func writeDiscrepancies(f *excelize.File, discrepancies []model.Discrepancy, bold int) error {
	for i, header := range discrepancyColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("converting coordinates: %w", err)
		}
		if err := f.SetCellValue(discrepancySheet, cell, header); err != nil {
			return fmt.Errorf("setting header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(discrepancySheet, cell, cell, bold); err != nil {
			return fmt.Errorf("styling header: %w", err)
		}

		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("converting column number: %w", err)
		}
		if err := f.SetColWidth(discrepancySheet, col, col, columnWidths[i]); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}

	for i, d := range discrepancies {
		row := []any{
			d.PrimaryKey,
			kindLabel(d.Kind),
			d.LocationCode,
			d.Description,
			deref(d.Comment),
			d.ConfirmedByName,
			formatTime(d.ConfirmedAt),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("converting coordinates: %w", err)
		}
		if err := f.SetSheetRow(discrepancySheet, cell, &row); err != nil {
			return fmt.Errorf("writing discrepancy row %d: %w", i+2, err)
		}
	}

	if len(discrepancies) > 0 {
		last, err := excelize.CoordinatesToCellName(len(discrepancyColumns), len(discrepancies)+1)
		if err != nil {
			return fmt.Errorf("converting coordinates: %w", err)
		}
		if err := f.AutoFilter(discrepancySheet, "A1:"+last, nil); err != nil {
			return fmt.Errorf("setting filter: %w", err)
		}
	}
	return nil
}

func kindLabel(k model.DiscrepancyKind) string {
	switch k {
	case model.KindMissing:
		return "Missing"
	case model.KindWrongLocation:
		return "Wrong location"
	case model.KindUnexpected:
		return "Unexpected"
	}
	return string(k)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timestampLayout)
}
