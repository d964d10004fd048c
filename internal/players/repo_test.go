//go:build integration_test || all_tests

package players

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cmpeavlerjr72/vbt-api/internal/db"
	"github.com/cmpeavlerjr72/vbt-api/internal/teams"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, *pgxpool.Pool, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postgres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "vbtapi",
		DBUser:         "postgres",
		TracingEnabled: false,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(dbPool))

	return NewRepo(dbPool), dbPool, func() {
		dbPool.Close()
	}
}

func addTestTeam(t *testing.T, dbPool *pgxpool.Pool) *teams.Team {
	t.Helper()
	team, err := teams.NewRepo(dbPool).Add(context.Background(), teams.Team{
		CoachID: gofakeit.UUID(),
		Name:    gofakeit.Company(),
		Sport:   "football",
	})
	require.NoError(t, err)
	return team
}

func TestRepo_AddGetDelete(t *testing.T) {
	ctx := context.Background()
	repo, dbPool, shutdown := testRepoSetup(t)
	defer shutdown()

	team := addTestTeam(t, dbPool)

	jersey := 52
	inviteCode := gofakeit.LetterN(8)
	added, err := repo.Add(ctx, Player{
		TeamID:        team.ID,
		FirstName:     gofakeit.FirstName(),
		LastName:      gofakeit.LastName(),
		JerseyNumber:  &jersey,
		PositionGroup: PositionGroupPower,
		InviteCode:    &inviteCode,
	})
	require.NoError(t, err)
	require.NotEmpty(t, added.ID)

	got, err := repo.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.ID, got.ID)
	assert.Equal(t, team.ID, got.TeamID)
	assert.Equal(t, PositionGroupPower, got.PositionGroup)
	require.NotNil(t, got.JerseyNumber)
	assert.Equal(t, jersey, *got.JerseyNumber)

	roster, err := repo.ListForTeam(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)

	require.NoError(t, repo.Delete(ctx, added.ID))

	_, err = repo.Get(ctx, added.ID)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, added.ID), ErrPlayerNotFound)
}

func TestRepo_Update(t *testing.T) {
	ctx := context.Background()
	repo, dbPool, shutdown := testRepoSetup(t)
	defer shutdown()

	team := addTestTeam(t, dbPool)

	added, err := repo.Add(ctx, Player{
		TeamID:        team.ID,
		FirstName:     "Miles",
		LastName:      "Carter",
		PositionGroup: PositionGroupSkill,
	})
	require.NoError(t, err)

	newGroup := PositionGroupCombo
	newLast := "Carter-Jones"
	updated, err := repo.Update(ctx, added.ID, Update{
		LastName:      &newLast,
		PositionGroup: &newGroup,
	})
	require.NoError(t, err)
	assert.Equal(t, "Miles", updated.FirstName)
	assert.Equal(t, newLast, updated.LastName)
	assert.Equal(t, newGroup, updated.PositionGroup)

	_, err = repo.Update(ctx, gofakeit.UUID(), Update{LastName: &newLast})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestRepo_ClaimInvite(t *testing.T) {
	ctx := context.Background()
	repo, dbPool, shutdown := testRepoSetup(t)
	defer shutdown()

	team := addTestTeam(t, dbPool)

	inviteCode := gofakeit.LetterN(8)
	added, err := repo.Add(ctx, Player{
		TeamID:     team.ID,
		FirstName:  gofakeit.FirstName(),
		LastName:   gofakeit.LastName(),
		InviteCode: &inviteCode,
	})
	require.NoError(t, err)

	userID := gofakeit.UUID()
	claimed, err := repo.ClaimInvite(ctx, inviteCode, userID)
	require.NoError(t, err)
	assert.Equal(t, added.ID, claimed.ID)
	require.NotNil(t, claimed.LinkedUserID)
	assert.Equal(t, userID, *claimed.LinkedUserID)
	assert.NotNil(t, claimed.LinkedAt)

	found, err := repo.GetByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, added.ID, found.ID)

	// claiming again with the same user stays fine
	_, err = repo.ClaimInvite(ctx, inviteCode, userID)
	require.NoError(t, err)

	// another user cannot take the spot
	_, err = repo.ClaimInvite(ctx, inviteCode, gofakeit.UUID())
	assert.ErrorIs(t, err, ErrInviteCodeClaimed)

	_, err = repo.ClaimInvite(ctx, "NOSUCHCODE", userID)
	assert.ErrorIs(t, err, ErrInviteCodeNotFound)
}
