package payment_test

import (
	"context"
	"fmt"
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
	"github.com/oggyb/amica/internal/billing"
	"github.com/oggyb/amica/internal/cache"
	"github.com/oggyb/amica/internal/db"
	"github.com/oggyb/amica/internal/service/match"
	"github.com/oggyb/amica/internal/service/payment"
)

// stubProvider counts invoice issuances and verifies with a fixed secret.
type stubProvider struct {
	hmac     billing.HMACProvider
	invoices int
}

func (p *stubProvider) CreateInvoice(_ context.Context, matchID uint64, amountRUB int, _ string) (string, error) {
	p.invoices++
	return fmt.Sprintf("https://pay.example/%d?amount=%d", matchID, amountRUB), nil
}

func (p *stubProvider) VerifyWebhook(payload []byte, signature string) bool {
	return p.hmac.VerifyWebhook(payload, signature)
}

func setupPayment(t *testing.T) (*payment.Service, *match.Service, *stubProvider) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.Match{}, &db.Message{}, &db.Profile{}))

	mr := miniredis.RunT(t)
	rdb := &cache.RedisCache{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	appCtx := app.New(database, rdb, slog.New(slog.NewTextHandler(io.Discard, nil)))

	matches := match.NewService(appCtx)
	provider := &stubProvider{hmac: billing.HMACProvider{WebhookSecret: "hook-secret"}}
	return payment.NewService(appCtx, matches, provider, 1000), matches, provider
}

func TestCreateInvoice_NeverReissued(t *testing.T) {
	svc, matches, provider := setupPayment(t)
	ctx := context.Background()

	id, err := matches.CreateMatch(ctx, match.CreateMatchInput{MaleID: "m1", FemaleID: "f1", Mutual: true})
	require.NoError(t, err)

	first, err := svc.CreateInvoice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("https://pay.example/%d?amount=1000", id), first)
	assert.Equal(t, 1, provider.invoices)

	// the stored URL is returned without touching the provider again
	second, err := svc.CreateInvoice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.invoices)
}

func TestCreateInvoice_UnknownMatch(t *testing.T) {
	svc, _, provider := setupPayment(t)

	_, err := svc.CreateInvoice(context.Background(), 9999)
	assert.Error(t, err)
	assert.Zero(t, provider.invoices)
}

func TestConfirmWebhook_BadSignatureLeavesStateUntouched(t *testing.T) {
	svc, matches, _ := setupPayment(t)
	ctx := context.Background()

	id, err := matches.CreateMatch(ctx, match.CreateMatchInput{MaleID: "m1", FemaleID: "f1", Mutual: true})
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(`{"match_id":%d,"status":"paid"}`, id))
	err = svc.ConfirmWebhook(ctx, body, "deadbeef")
	assert.ErrorIs(t, err, payment.ErrBadSignature)

	m, err := matches.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, m.Paid)
	assert.Nil(t, m.PaidAt)
}

func TestConfirmWebhook_ValidSignatureMarksPaid(t *testing.T) {
	svc, matches, provider := setupPayment(t)
	ctx := context.Background()

	id, err := matches.CreateMatch(ctx, match.CreateMatchInput{MaleID: "m1", FemaleID: "f1", Mutual: true})
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(`{"match_id":%d,"status":"paid"}`, id))
	require.NoError(t, svc.ConfirmWebhook(ctx, body, provider.hmac.Sign(body)))

	m, err := matches.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, m.Paid)
	require.NotNil(t, m.PaidAt)

	// redelivery is harmless and keeps the first paid_at
	firstPaidAt := *m.PaidAt
	require.NoError(t, svc.ConfirmWebhook(ctx, body, provider.hmac.Sign(body)))
	again, err := matches.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, firstPaidAt.UTC(), again.PaidAt.UTC())
}

func TestConfirmWebhook_InvalidPayload(t *testing.T) {
	svc, matches, provider := setupPayment(t)
	ctx := context.Background()

	id, err := matches.CreateMatch(ctx, match.CreateMatchInput{MaleID: "m1", FemaleID: "f1", Mutual: true})
	require.NoError(t, err)

	cases := map[string][]byte{
		"not json":      []byte("definitely not json"),
		"wrong status":  []byte(fmt.Sprintf(`{"match_id":%d,"status":"pending"}`, id)),
		"missing match": []byte(`{"status":"paid"}`),
		"zero match id": []byte(`{"match_id":0,"status":"paid"}`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			err := svc.ConfirmWebhook(ctx, body, provider.hmac.Sign(body))
			assert.ErrorIs(t, err, payment.ErrInvalidPayload)
		})
	}

	m, err := matches.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, m.Paid)
}

func TestConfirmWebhook_UnknownMatchFails(t *testing.T) {
	svc, _, provider := setupPayment(t)

	body := []byte(`{"match_id":424242,"status":"paid"}`)
	err := svc.ConfirmWebhook(context.Background(), body, provider.hmac.Sign(body))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, payment.ErrBadSignature)
	assert.NotErrorIs(t, err, payment.ErrInvalidPayload)
}
