// Package billing abstracts the external payment provider: invoice
// creation and webhook signature verification.
package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oggyb/amica/internal/config"
)

// Provider is the capability the confirmation pipeline needs from a
// payment backend.
type Provider interface {
	// CreateInvoice returns a payment URL for the given match.
	CreateInvoice(ctx context.Context, matchID uint64, amountRUB int, description string) (string, error)

	// VerifyWebhook checks the provider signature over the raw webhook
	// body. It must be called before the body is parsed as trusted input.
	VerifyWebhook(payload []byte, signature string) bool
}

// New selects a provider implementation from config. Anything other than
// an explicitly configured "mock" gets the strict HMAC provider.
func New(cfg *config.Config, httpClient *http.Client) Provider {
	if strings.EqualFold(cfg.Payment.Provider, "mock") {
		return &MockProvider{BaseURL: cfg.App.BaseURL}
	}
	return &HMACProvider{
		InvoiceEndpoint: cfg.Payment.InvoiceURL,
		APIID:           cfg.Payment.APIID,
		APIKey:          cfg.Payment.APIKey,
		ProjectID:       cfg.Payment.ProjectID,
		WebhookSecret:   cfg.Payment.WebhookSecret,
		SuccessURL:      cfg.Payment.SuccessURL,
		FailURL:         cfg.Payment.FailURL,
		httpClient:      httpClient,
	}
}

// HMACProvider talks to a real provider over HTTP and verifies webhooks
// with HMAC-SHA256 over the raw body.
type HMACProvider struct {
	InvoiceEndpoint string
	APIID           string
	APIKey          string
	ProjectID       string
	WebhookSecret   string
	SuccessURL      string
	FailURL         string

	httpClient *http.Client
}

type invoiceRequest struct {
	ProjectID   string `json:"project_id"`
	Amount      int    `json:"amount"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	Description string `json:"description"`
	SuccessURL  string `json:"success_url,omitempty"`
	FailURL     string `json:"fail_url,omitempty"`
}

type invoiceResponse struct {
	InvoiceURL string `json:"invoice_url"`
}

// CreateInvoice posts an invoice request to the provider API.
func (p *HMACProvider) CreateInvoice(ctx context.Context, matchID uint64, amountRUB int, description string) (string, error) {
	if p.InvoiceEndpoint == "" {
		return "", fmt.Errorf("payment provider not configured")
	}

	body, err := json.Marshal(invoiceRequest{
		ProjectID:   p.ProjectID,
		Amount:      amountRUB,
		Currency:    "RUB",
		OrderID:     fmt.Sprintf("%d", matchID),
		Description: description,
		SuccessURL:  p.SuccessURL,
		FailURL:     p.FailURL,
	})
	if err != nil {
		return "", fmt.Errorf("build invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.InvoiceEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create invoice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-ID", p.APIID)
	req.Header.Set("X-API-KEY", p.APIKey)

	client := p.httpClient
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("invoice request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("invoice request rejected (status %d): %s", resp.StatusCode, payload)
	}

	var out invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("parse invoice response: %w", err)
	}
	if out.InvoiceURL == "" {
		return "", fmt.Errorf("provider returned empty invoice_url")
	}
	return out.InvoiceURL, nil
}

// VerifyWebhook compares the hex HMAC-SHA256 of the raw body against the
// signature header in constant time. Missing secret means nothing ever
// verifies.
func (p *HMACProvider) VerifyWebhook(payload []byte, signature string) bool {
	if p.WebhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(p.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign computes the signature the provider would send for a payload.
func (p *HMACProvider) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(p.WebhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// MockProvider is a dev/test stand-in: canned invoice URLs and signature
// checks that always pass. It must never be the default in production;
// selecting it requires PAYMENT_PROVIDER=mock.
type MockProvider struct {
	BaseURL string
}

func (p *MockProvider) CreateInvoice(_ context.Context, matchID uint64, amountRUB int, _ string) (string, error) {
	return fmt.Sprintf("%s/mockpay/%d?amount=%d", strings.TrimRight(p.BaseURL, "/"), matchID, amountRUB), nil
}

func (p *MockProvider) VerifyWebhook(_ []byte, _ string) bool {
	return true
}
