package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventura/internal/db"
	"github.com/erazemk/inventura/internal/model"
)

// fixture is an in-memory database with one user and one open cycle.
type fixture struct {
	db    *sql.DB
	actor model.Actor
	cycle *model.Cycle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := db.NewTestDB(t)
	actor := seedActor(t, database, "Ana", model.RoleResponsible)

	cycle, err := CreateCycle(context.Background(), database, actor)
	require.NoError(t, err)

	return &fixture{db: database, actor: actor, cycle: cycle}
}

func seedActor(t *testing.T, database *sql.DB, name, role string) model.Actor {
	t.Helper()

	user, err := CreateUser(context.Background(), database, name, role)
	require.NoError(t, err)
	return ActorFor(user)
}

// expect replaces the expected stock with the given key/location pairs.
func (f *fixture) expect(t *testing.T, pairs ...string) {
	t.Helper()
	require.Zero(t, len(pairs)%2, "expect takes key/location pairs")

	var items []model.ExpectedItem
	for i := 0; i < len(pairs); i += 2 {
		items = append(items, model.ExpectedItem{
			PrimaryKey:   pairs[i],
			LocationCode: pairs[i+1],
			Description:  "item " + pairs[i],
		})
	}
	_, err := ReplaceExpectedItems(context.Background(), f.db, f.cycle.ID, items, f.actor)
	require.NoError(t, err)
}

func (f *fixture) scan(t *testing.T, location, key string) *model.ScanResult {
	t.Helper()

	result, err := ClassifyScan(context.Background(), f.db, f.cycle.ID, location, key, f.actor)
	require.NoError(t, err)
	return result
}

func (f *fixture) count(t *testing.T, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, f.db.QueryRow(query, args...).Scan(&n))
	return n
}

func strPtr(s string) *string { return &s }
