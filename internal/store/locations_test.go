package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventura/internal/model"
)

func TestReconciliationScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expect(t, "A1", "L1", "A2", "L1")

	assert.Equal(t, model.OutcomeOK, f.scan(t, "L1", "A1").Outcome)
	assert.Equal(t, model.OutcomeWrongLocation, f.scan(t, "L2", "A2").Outcome)
	assert.Equal(t, model.OutcomeUnexpected, f.scan(t, "L1", "B9").Outcome)

	confirmation, err := ConfirmLocation(ctx, f.db, f.cycle.ID, "L1", f.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, confirmation.MissingCreated)
	assert.Equal(t, 1, confirmation.StillMissing)
	assert.Equal(t, "L1", confirmation.Verification.LocationCode)
	assert.Equal(t, f.actor.UserID, confirmation.Verification.VerifiedBy)

	stats, err := GetStatistics(ctx, f.db, f.cycle.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Open)
	assert.Equal(t, []model.KindCount{
		{Kind: model.KindMissing, Count: 1},
		{Kind: model.KindWrongLocation, Count: 1},
		{Kind: model.KindUnexpected, Count: 1},
	}, stats.ByKind)

	// A2 carries both a WRONG_LOCATION and a MISSING discrepancy.
	assert.Equal(t, 2, f.count(t, `SELECT COUNT(*) FROM discrepancies WHERE primary_key = 'A2'`))
}

func TestConfirmLocationCreatesMissingOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expect(t, "M-1", "L1", "M-2", "L1", "M-3", "L1")
	f.scan(t, "L1", "M-1")

	confirmation, err := ConfirmLocation(ctx, f.db, f.cycle.ID, "L1", f.actor)
	require.NoError(t, err)
	assert.Equal(t, 2, confirmation.MissingCreated)

	_, err = ConfirmLocation(ctx, f.db, f.cycle.ID, "L1", f.actor)
	assert.ErrorIs(t, err, ErrAlreadyVerified)

	require.NoError(t, ReopenLocation(ctx, f.db, f.cycle.ID, "L1", f.actor))

	confirmation, err = ConfirmLocation(ctx, f.db, f.cycle.ID, "L1", f.actor)
	require.NoError(t, err)
	assert.Equal(t, 2, confirmation.StillMissing)
	assert.Zero(t, confirmation.MissingCreated)

	assert.Equal(t, 2, f.count(t, `SELECT COUNT(*) FROM discrepancies WHERE kind = 'missing'`))
}

func TestConfirmLocationUnknown(t *testing.T) {
	f := newFixture(t)
	f.expect(t, "M-1", "L1")

	_, err := ConfirmLocation(context.Background(), f.db, f.cycle.ID, "L9", f.actor)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmLocationWithOnlyUnexpectedScans(t *testing.T) {
	f := newFixture(t)
	f.expect(t, "M-1", "L1")
	f.scan(t, "L5", "B-9")

	confirmation, err := ConfirmLocation(context.Background(), f.db, f.cycle.ID, "L5", f.actor)
	require.NoError(t, err)
	assert.Zero(t, confirmation.StillMissing)
}

func TestReopenLocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expect(t, "M-1", "L1")

	err := ReopenLocation(ctx, f.db, f.cycle.ID, "L1", f.actor)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ConfirmLocation(ctx, f.db, f.cycle.ID, "L1", f.actor)
	require.NoError(t, err)
	require.NoError(t, ReopenLocation(ctx, f.db, f.cycle.ID, "L1", f.actor))

	summaries, err := GetLocationSummaries(ctx, f.db, f.cycle.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.False(t, summaries[0].IsVerified)

	// The MISSING discrepancy survives the reopen.
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM discrepancies WHERE kind = 'missing'`))
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM audit_entries WHERE action = 'location_reopened'`))
}

func TestReopenLocationTrimsCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expect(t, "M-1", "L1")

	confirmation, err := ConfirmLocation(ctx, f.db, f.cycle.ID, " L1 ", f.actor)
	require.NoError(t, err)
	assert.Equal(t, "L1", confirmation.Verification.LocationCode)

	require.NoError(t, ReopenLocation(ctx, f.db, f.cycle.ID, " L1 ", f.actor))
	assert.Zero(t, f.count(t, `SELECT COUNT(*) FROM location_verifications`))
}

func TestConfirmLocationAfterItemMoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expect(t, "M-1", "L1")
	assert.Equal(t, model.OutcomeOK, f.scan(t, "L1", "M-1").Outcome)

	// Re-import moves the already scanned item to L2.
	f.expect(t, "M-1", "L2", "M-2", "L2")

	summaries, err := GetLocationSummaries(ctx, f.db, f.cycle.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 0, summaries[0].ScannedCount)

	confirmation, err := ConfirmLocation(ctx, f.db, f.cycle.ID, "L2", f.actor)
	require.NoError(t, err)
	assert.Equal(t, 2, confirmation.StillMissing)
	assert.Equal(t, 2, confirmation.MissingCreated)
	assert.Equal(t, 1, f.count(t,
		`SELECT COUNT(*) FROM discrepancies WHERE primary_key = 'M-1' AND kind = 'missing'`))
}

func TestLocationSummaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := ReplaceExpectedItems(ctx, f.db, f.cycle.ID, []model.ExpectedItem{
		{PrimaryKey: "M-1", LocationCode: "L2", Room: "K1"},
		{PrimaryKey: "M-2", LocationCode: "L1", Room: "K1"},
		{PrimaryKey: "M-3", LocationCode: "L1", Room: "K1"},
	}, f.actor)
	require.NoError(t, err)

	f.scan(t, "L2", "M-1")
	f.scan(t, "L2", "M-2") // wrong location, doesn't count anywhere

	summaries, err := GetLocationSummaries(ctx, f.db, f.cycle.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, model.LocationSummary{
		LocationCode: "L1", Room: "K1", ExpectedCount: 2, ScannedCount: 0,
	}, summaries[0])
	assert.Equal(t, model.LocationSummary{
		LocationCode: "L2", Room: "K1", ExpectedCount: 1, ScannedCount: 1, IsComplete: true,
	}, summaries[1])
}

func TestConfirmLocationClosedCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := CloseCycle(ctx, f.db, f.cycle.ID, f.actor)
	require.NoError(t, err)

	_, err = ConfirmLocation(ctx, f.db, f.cycle.ID, "L1", f.actor)
	assert.ErrorIs(t, err, ErrCycleClosed)

	err = ReopenLocation(ctx, f.db, f.cycle.ID, "L1", f.actor)
	assert.ErrorIs(t, err, ErrCycleClosed)
}
