package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventura/internal/model"
)

func TestClassifyScanOutcomes(t *testing.T) {
	f := newFixture(t)
	f.expect(t, "M-1", "L1", "M-2", "L1")

	ok := f.scan(t, "L1", "M-1")
	assert.Equal(t, model.OutcomeOK, ok.Outcome)
	assert.Equal(t, "L1", ok.ExpectedLocation)
	assert.Empty(t, ok.DiscrepancyID)

	wrong := f.scan(t, "L2", "M-2")
	assert.Equal(t, model.OutcomeWrongLocation, wrong.Outcome)
	assert.Equal(t, "L1", wrong.ExpectedLocation)
	assert.NotEmpty(t, wrong.DiscrepancyID)

	unexpected := f.scan(t, "L1", "B-9")
	assert.Equal(t, model.OutcomeUnexpected, unexpected.Outcome)
	assert.Empty(t, unexpected.ExpectedLocation)
	assert.NotEmpty(t, unexpected.DiscrepancyID)

	discrepancies, err := ListDiscrepancies(context.Background(), f.db, f.cycle.ID)
	require.NoError(t, err)
	require.Len(t, discrepancies, 2)

	byKey := map[string]model.Discrepancy{}
	for _, d := range discrepancies {
		byKey[d.PrimaryKey] = d
	}
	require.NotNil(t, byKey["M-2"].Comment)
	assert.Equal(t, "expected: L1, found: L2", *byKey["M-2"].Comment)
	assert.Equal(t, model.KindWrongLocation, byKey["M-2"].Kind)
	assert.Nil(t, byKey["B-9"].Comment)
	assert.Equal(t, model.KindUnexpected, byKey["B-9"].Kind)

	assert.Equal(t, 3, f.count(t, `SELECT COUNT(*) FROM audit_entries WHERE action = 'barcode_scanned'`))
}

func TestClassifyScanDuplicateChangesNothing(t *testing.T) {
	f := newFixture(t)
	f.expect(t, "M-1", "L1")
	f.scan(t, "L2", "M-1")

	scans := f.count(t, `SELECT COUNT(*) FROM scanned_items`)
	discrepancies := f.count(t, `SELECT COUNT(*) FROM discrepancies`)
	audits := f.count(t, `SELECT COUNT(*) FROM audit_entries`)

	_, err := ClassifyScan(context.Background(), f.db, f.cycle.ID, "L1", "M-1", f.actor)
	assert.ErrorIs(t, err, ErrDuplicateScan)

	assert.Equal(t, scans, f.count(t, `SELECT COUNT(*) FROM scanned_items`))
	assert.Equal(t, discrepancies, f.count(t, `SELECT COUNT(*) FROM discrepancies`))
	assert.Equal(t, audits, f.count(t, `SELECT COUNT(*) FROM audit_entries`))
}

func TestClassifyScanClosedCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := CloseCycle(ctx, f.db, f.cycle.ID, f.actor)
	require.NoError(t, err)

	_, err = ClassifyScan(ctx, f.db, f.cycle.ID, "L1", "M-1", f.actor)
	assert.ErrorIs(t, err, ErrCycleClosed)
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM scanned_items`))
}

func TestClassifyScanUnknownCycle(t *testing.T) {
	f := newFixture(t)

	_, err := ClassifyScan(context.Background(), f.db, "no-such-cycle", "L1", "M-1", f.actor)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClassifyScanRequiresInput(t *testing.T) {
	f := newFixture(t)

	_, err := ClassifyScan(context.Background(), f.db, f.cycle.ID, " ", "M-1", f.actor)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ClassifyScan(context.Background(), f.db, f.cycle.ID, "L1", "", f.actor)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClassifyScanConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	f.expect(t, "M-1", "L1")

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := ClassifyScan(context.Background(), f.db, f.cycle.ID, "L1", "M-1", f.actor)
			errs <- err
		}()
	}

	succeeded := 0
	for i := 0; i < workers; i++ {
		err := <-errs
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateScan)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM scanned_items`))
}

func TestGetLocationItems(t *testing.T) {
	f := newFixture(t)
	f.expect(t, "M-1", "L1", "M-2", "L1", "M-3", "L2")
	f.scan(t, "L1", "M-1")
	f.scan(t, "L1", "M-3")
	f.scan(t, "L1", "B-9")

	items, err := GetLocationItems(context.Background(), f.db, f.cycle.ID, "L1")
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "M-1", items[0].PrimaryKey)
	assert.True(t, items[0].Scanned)
	assert.Equal(t, model.OutcomeOK, *items[0].Outcome)

	assert.Equal(t, "M-2", items[1].PrimaryKey)
	assert.False(t, items[1].Scanned)
	assert.Nil(t, items[1].Outcome)

	assert.Equal(t, "B-9", items[2].PrimaryKey)
	assert.True(t, items[2].Unexpected)
	assert.Equal(t, model.OutcomeUnexpected, *items[2].Outcome)

	assert.Equal(t, "M-3", items[3].PrimaryKey)
	assert.True(t, items[3].Unexpected)
	assert.Equal(t, model.OutcomeWrongLocation, *items[3].Outcome)
}

func TestListScans(t *testing.T) {
	f := newFixture(t)
	f.expect(t, "M-1", "L1")
	f.scan(t, "L1", "M-1")
	f.scan(t, "L1", "B-9")

	scans, err := ListScans(context.Background(), f.db, f.cycle.ID)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, "M-1", scans[0].PrimaryKey)
	assert.Equal(t, f.actor.UserID, scans[0].ScannedBy)
	assert.Equal(t, "B-9", scans[1].PrimaryKey)
}
