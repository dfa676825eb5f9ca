package genai

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Fallback replies. The assistant always answers something; when the
// backend cannot produce a reply the user gets one of these instead of
// an error.
const (
	// FallbackBusy is returned after every retry attempt is exhausted.
	FallbackBusy = "Извините, я сейчас перегружен. Напишите, пожалуйста, чуть позже."

	// FallbackUnavailable is returned on a non-retryable backend error.
	FallbackUnavailable = "Извините, ИИ временно недоступен."
)

// completer is the wire contract the gateway retries over.
type completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Gateway wraps the wire client with the process-wide concurrency gate,
// per-attempt timeout, and the classified retry policy. Its one method
// never fails outward.
type Gateway struct {
	client completer
	gate   *Gate
	retry  RetryConfig
	logger *slog.Logger
	sleep  func(time.Duration)
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGate sets the concurrency gate shared with other gateway users.
func WithGate(g *Gate) GatewayOption {
	return func(gw *Gateway) {
		gw.gate = g
	}
}

// WithRetryConfig sets the retry policy.
func WithRetryConfig(cfg RetryConfig) GatewayOption {
	return func(gw *Gateway) {
		gw.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(gw *Gateway) {
		gw.logger = logger
	}
}

// WithSleepFunc overrides how backoff sleeps are performed.
func WithSleepFunc(sleep func(time.Duration)) GatewayOption {
	return func(gw *Gateway) {
		gw.sleep = sleep
	}
}

// NewGateway creates a gateway over the given wire client.
func NewGateway(client completer, opts ...GatewayOption) *Gateway {
	gw := &Gateway{
		client: client,
		gate:   NewGate(1),
		retry:  DefaultRetryConfig(),
		logger: slog.Default(),
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(gw)
	}
	return gw
}

// GenerateReply produces the assistant's reply for the given system prompt
// and chronological history. It never returns an error: exhausted retries
// and non-retryable failures both collapse into a fixed fallback reply.
//
// The gate is held only for the duration of one attempt, not across the
// whole retry loop, so other callers are not blocked while this caller
// sleeps through a backoff.
func (g *Gateway) GenerateReply(ctx context.Context, systemPrompt string, history []Message) string {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)

	requestID := uuid.New().String()
	log := g.logger.With("request_id", requestID)

	for attempt := 0; attempt < g.retry.MaxAttempts; attempt++ {
		reply, err := g.attempt(ctx, messages)
		if err == nil {
			return reply
		}

		switch {
		case IsRateLimit(err):
			if attempt < g.retry.MaxAttempts-1 {
				backoff := g.retry.RateLimitBackoff(attempt)
				log.Warn("generation rate-limited, backing off",
					"attempt", attempt+1, "backoff", backoff, "err", err)
				g.sleep(backoff)
			} else {
				log.Error("generation rate-limited, attempts exhausted", "err", err)
			}

		case IsTransient(err):
			if attempt < g.retry.MaxAttempts-1 {
				backoff := g.retry.TransientBackoff(attempt)
				log.Warn("generation failed transiently, backing off",
					"attempt", attempt+1, "backoff", backoff, "err", err)
				g.sleep(backoff)
			} else {
				log.Error("generation failed transiently, attempts exhausted", "err", err)
			}

		default:
			log.Error("generation failed fatally", "attempt", attempt+1, "err", err)
			return FallbackUnavailable
		}
	}

	return FallbackBusy
}

// attempt runs one gated, time-bounded call to the backend.
func (g *Gateway) attempt(ctx context.Context, messages []Message) (string, error) {
	if err := g.gate.Acquire(ctx); err != nil {
		return "", NewTransientError(err)
	}
	defer g.gate.Release()

	attemptCtx, cancel := context.WithTimeout(ctx, g.retry.AttemptTimeout)
	defer cancel()

	return g.client.Complete(attemptCtx, messages)
}
