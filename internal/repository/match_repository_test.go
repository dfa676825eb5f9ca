package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/oggyb/amica/internal/db"
	"github.com/oggyb/amica/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&db.Match{}, &db.Message{}, &db.Profile{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestCreateAndLatestForUser(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	id1, err := repo.Create(ctx, &db.Match{MaleID: "U1", FemaleID: "U2", Mutual: false})
	require.NoError(t, err)

	// a later notification for the same pair stacks a new row
	id2, err := repo.Create(ctx, &db.Match{MaleID: "U1", FemaleID: "U2", Mutual: true})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	latest, err := repo.LatestForUser(ctx, "U1")
	require.NoError(t, err)
	assert.Equal(t, id2, latest.ID)
	assert.True(t, latest.Mutual)

	// the female party resolves to the same row
	latest, err = repo.LatestForUser(ctx, "U2")
	require.NoError(t, err)
	assert.Equal(t, id2, latest.ID)
}

func TestLatestForUser_NoMatch(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	_, err := repo.LatestForUser(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListForUser_MutualFilter(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	_, err := repo.Create(ctx, &db.Match{MaleID: "U1", FemaleID: "U2", Mutual: false})
	require.NoError(t, err)
	mutualID, err := repo.Create(ctx, &db.Match{MaleID: "U1", FemaleID: "U3", Mutual: true})
	require.NoError(t, err)

	all, err := repo.ListForUser(ctx, "U1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	// newest first
	assert.Equal(t, mutualID, all[0].ID)

	mutual, err := repo.ListForUser(ctx, "U1", true)
	require.NoError(t, err)
	require.Len(t, mutual, 1)
	assert.Equal(t, mutualID, mutual[0].ID)
}

func TestMarkPaid_Idempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	id, err := repo.Create(ctx, &db.Match{MaleID: "U1", FemaleID: "U2", Mutual: true})
	require.NoError(t, err)

	require.NoError(t, repo.MarkPaid(ctx, id))

	first, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, first.Paid)
	require.NotNil(t, first.PaidAt)

	// second confirmation must not revert or restamp
	require.NoError(t, repo.MarkPaid(ctx, id))

	second, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, second.Paid)
	require.NotNil(t, second.PaidAt)
	assert.Equal(t, first.PaidAt.Unix(), second.PaidAt.Unix())
}

func TestSetInvoiceURL_IdempotentOverwrite(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	id, err := repo.Create(ctx, &db.Match{MaleID: "U1", FemaleID: "U2", Mutual: true})
	require.NoError(t, err)

	require.NoError(t, repo.SetInvoiceURL(ctx, id, "https://pay.example.com/1"))
	require.NoError(t, repo.SetInvoiceURL(ctx, id, "https://pay.example.com/1"))

	m, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/1", m.InvoiceURL)
}

func TestMatchPhase(t *testing.T) {
	m := &db.Match{Mutual: false, Paid: false}
	assert.Equal(t, db.PhasePending, m.Phase())

	m.Mutual = true
	assert.Equal(t, db.PhaseMutualUnpaid, m.Phase())

	m.Paid = true
	assert.Equal(t, db.PhaseMutualPaid, m.Phase())
}
