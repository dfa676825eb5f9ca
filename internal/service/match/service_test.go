package match_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/amica/internal/app"
	"github.com/oggyb/amica/internal/cache"
	"github.com/oggyb/amica/internal/db"
	"github.com/oggyb/amica/internal/service/match"
)

func setupAppContext(t *testing.T) (*app.AppContext, *miniredis.Miniredis) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.Match{}, &db.Message{}, &db.Profile{}))

	mr := miniredis.RunT(t)
	rdb := &cache.RedisCache{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return app.New(database, rdb, logger), mr
}

func TestCreateMatch_AlwaysInserts(t *testing.T) {
	appCtx, _ := setupAppContext(t)
	svc := match.NewService(appCtx)
	ctx := context.Background()

	first, err := svc.CreateMatch(ctx, match.CreateMatchInput{MaleID: "m1", FemaleID: "f1", Mutual: false})
	require.NoError(t, err)

	// a second notification for the same pair gets its own row
	second, err := svc.CreateMatch(ctx, match.CreateMatchInput{MaleID: "m1", FemaleID: "f1", Mutual: true})
	require.NoError(t, err)
	assert.Greater(t, second, first)

	latest, err := svc.LatestForUser(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second, latest.ID)
	assert.True(t, latest.Mutual)
}

func TestCreateMatch_RequiresBothParties(t *testing.T) {
	appCtx, _ := setupAppContext(t)
	svc := match.NewService(appCtx)

	_, err := svc.CreateMatch(context.Background(), match.CreateMatchInput{MaleID: "m1"})
	assert.Error(t, err)
}

func TestLatestForUser_NoMatchReturnsNil(t *testing.T) {
	appCtx, _ := setupAppContext(t)
	svc := match.NewService(appCtx)

	m, err := svc.LatestForUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestLatestForUser_CacheFilledAndInvalidated(t *testing.T) {
	appCtx, mr := setupAppContext(t)
	svc := match.NewService(appCtx)
	ctx := context.Background()

	id, err := svc.CreateMatch(ctx, match.CreateMatchInput{MaleID: "m1", FemaleID: "f1", Mutual: true})
	require.NoError(t, err)

	// first read is a DB hit that refills the cache
	_, err = svc.LatestForUser(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("match:latest:m1"))

	// cached snapshot is served even if the row changes under it
	require.NoError(t, appCtx.DB.Model(&db.Match{}).Where("id = ?", id).Update("male_username", "ghost").Error)
	cached, err := svc.LatestForUser(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, cached.MaleUsername)

	// a mutation drops both parties' snapshots
	_, err = svc.LatestForUser(ctx, "f1")
	require.NoError(t, err)
	require.NoError(t, svc.MarkPaid(ctx, id))
	assert.False(t, mr.Exists("match:latest:m1"))
	assert.False(t, mr.Exists("match:latest:f1"))

	fresh, err := svc.LatestForUser(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, fresh.Paid)
	assert.Equal(t, "ghost", fresh.MaleUsername)
}

func TestMarkPaid_TransitionsPhase(t *testing.T) {
	appCtx, _ := setupAppContext(t)
	svc := match.NewService(appCtx)
	ctx := context.Background()

	id, err := svc.CreateMatch(ctx, match.CreateMatchInput{MaleID: "m1", FemaleID: "f1", Mutual: true})
	require.NoError(t, err)

	before, err := svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.PhaseMutualUnpaid, before.Phase())

	require.NoError(t, svc.MarkPaid(ctx, id))
	after, err := svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, db.PhaseMutualPaid, after.Phase())
	require.NotNil(t, after.PaidAt)
}

func TestSetInvoiceURL(t *testing.T) {
	appCtx, _ := setupAppContext(t)
	svc := match.NewService(appCtx)
	ctx := context.Background()

	id, err := svc.CreateMatch(ctx, match.CreateMatchInput{MaleID: "m1", FemaleID: "f1", Mutual: true})
	require.NoError(t, err)

	require.NoError(t, svc.SetInvoiceURL(ctx, id, "https://pay.example/1"))
	m, err := svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/1", m.InvoiceURL)

	assert.Error(t, svc.SetInvoiceURL(ctx, 9999, "https://pay.example/x"))
}

func TestDecideContact_Asymmetry(t *testing.T) {
	base := db.Match{
		ID: 1, MaleID: "m1", FemaleID: "f1",
		MaleUsername: "ivan", FemaleUsername: "anna",
	}

	t.Run("no match", func(t *testing.T) {
		assert.Equal(t, match.ContactDecision{}, match.DecideContact(nil, "m1"))
	})

	t.Run("not mutual", func(t *testing.T) {
		m := base
		m.Mutual = false
		assert.Equal(t, match.ContactDecision{}, match.DecideContact(&m, "m1"))
		assert.Equal(t, match.ContactDecision{}, match.DecideContact(&m, "f1"))
	})

	t.Run("outsider", func(t *testing.T) {
		m := base
		m.Mutual = true
		assert.Equal(t, match.ContactDecision{}, match.DecideContact(&m, "stranger"))
	})

	t.Run("female sees male handle for free", func(t *testing.T) {
		m := base
		m.Mutual = true
		d := match.DecideContact(&m, "f1")
		assert.True(t, d.Disclose)
		assert.Equal(t, "ivan", d.Handle)
		assert.False(t, d.NeedsPayment)
	})

	t.Run("male must pay first", func(t *testing.T) {
		m := base
		m.Mutual = true
		m.InvoiceURL = "https://pay.example/1"
		d := match.DecideContact(&m, "m1")
		assert.False(t, d.Disclose)
		assert.True(t, d.NeedsPayment)
		assert.Equal(t, "https://pay.example/1", d.InvoiceURL)
	})

	t.Run("male sees female handle after payment", func(t *testing.T) {
		m := base
		m.Mutual = true
		m.Paid = true
		d := match.DecideContact(&m, "m1")
		assert.True(t, d.Disclose)
		assert.Equal(t, "anna", d.Handle)
		assert.False(t, d.NeedsPayment)
	})
}

func TestListForUser_MutualOnly(t *testing.T) {
	appCtx, _ := setupAppContext(t)
	svc := match.NewService(appCtx)
	ctx := context.Background()

	_, err := svc.CreateMatch(ctx, match.CreateMatchInput{MaleID: "m1", FemaleID: "f1", Mutual: true})
	require.NoError(t, err)
	_, err = svc.CreateMatch(ctx, match.CreateMatchInput{MaleID: "m1", FemaleID: "f2", Mutual: false})
	require.NoError(t, err)

	all, err := svc.ListForUser(ctx, "m1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mutual, err := svc.ListForUser(ctx, "m1", true)
	require.NoError(t, err)
	require.Len(t, mutual, 1)
	assert.Equal(t, "f1", mutual[0].FemaleID)
}
