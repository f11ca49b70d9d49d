package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventura/internal/db"
	"github.com/erazemk/inventura/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "  Ana  ", model.RoleResponsible)
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, model.RoleResponsible, user.Role)

	got, err := GetUser(ctx, database, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ana", got.Name)
}

func TestGetUserMissing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	got, err := GetUser(ctx, database, 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	byName, err := GetUserByName(ctx, database, "nobody")
	require.NoError(t, err)
	assert.Nil(t, byName)
}

func TestCreateUserRejectsInvalidInput(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateUser(ctx, database, "", model.RoleUser)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = CreateUser(ctx, database, "Ana", "superuser")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = CreateUser(ctx, database, "Ana", model.RoleUser)
	require.NoError(t, err)
	_, err = CreateUser(ctx, database, "Ana", model.RoleAdmin)
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestListUsersSortedByName(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"Zala", "Bor", "Maja"} {
		_, err := CreateUser(ctx, database, name, model.RoleUser)
		require.NoError(t, err)
	}

	users, err := ListUsers(ctx, database)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Bor", users[0].Name)
	assert.Equal(t, "Maja", users[1].Name)
	assert.Equal(t, "Zala", users[2].Name)
}
