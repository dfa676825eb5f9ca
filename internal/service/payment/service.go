// Package payment implements the confirmation pipeline: invoice issuance
// and the signature-verified webhook that flips a match to paid.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/oggyb/amica/internal/app"
	"github.com/oggyb/amica/internal/billing"
	"github.com/oggyb/amica/internal/service/match"
)

// Sentinel errors for webhook rejection. Both mean the request had no
// effect; the distinction picks the HTTP status.
var (
	ErrBadSignature   = errors.New("invalid webhook signature")
	ErrInvalidPayload = errors.New("invalid webhook payload")
)

// Service wires the provider abstraction to the match state machine.
type Service struct {
	appCtx   *app.AppContext
	matches  *match.Service
	provider billing.Provider
	priceRUB int
}

// NewService creates a payment service. priceRUB is the fixed contact
// price; it is a business constant, never computed.
func NewService(appCtx *app.AppContext, matches *match.Service, provider billing.Provider, priceRUB int) *Service {
	return &Service{
		appCtx:   appCtx,
		matches:  matches,
		provider: provider,
		priceRUB: priceRUB,
	}
}

// CreateInvoice issues an invoice for the match and persists its URL.
//
// Behavior:
//   - An existing invoice is returned as-is: invoices are never reissued.
//   - On first issuance the URL is stored through the match service.
func (s *Service) CreateInvoice(ctx context.Context, matchID uint64) (string, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return "", err
	}
	if m.InvoiceURL != "" {
		return m.InvoiceURL, nil
	}

	description := fmt.Sprintf("Доступ к контакту по совпадению №%d", matchID)
	url, err := s.provider.CreateInvoice(ctx, matchID, s.priceRUB, description)
	if err != nil {
		return "", fmt.Errorf("create invoice: %w", err)
	}

	if err := s.matches.SetInvoiceURL(ctx, matchID, url); err != nil {
		return "", err
	}

	s.appCtx.Logger.Info("invoice created", "match_id", matchID, "invoice_url", url)
	return url, nil
}

type webhookPayload struct {
	MatchID uint64 `json:"match_id"`
	Status  string `json:"status"`
}

// ConfirmWebhook processes a payment-provider callback.
//
// The signature is verified over the raw bytes before anything is parsed;
// any rejection leaves the state machine untouched.
func (s *Service) ConfirmWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !s.provider.VerifyWebhook(rawBody, signature) {
		return ErrBadSignature
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPayload, err)
	}
	if strings.ToLower(payload.Status) != "paid" || payload.MatchID == 0 {
		return ErrInvalidPayload
	}

	return s.matches.MarkPaid(ctx, payload.MatchID)
}
