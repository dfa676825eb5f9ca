// Package match owns the match lifecycle and the contact-disclosure
// decision. All match-row mutation in the process goes through this
// service; the chat and payment services only read or request changes.
package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/amica/internal/app"
	"github.com/oggyb/amica/internal/db"
	"github.com/oggyb/amica/internal/repository"
)

// Service implements the match state machine on top of the repository
// and the latest-match cache.
type Service struct {
	appCtx *app.AppContext
	repo   *repository.MatchRepository
}

// NewService creates a match service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		repo:   repository.NewMatchRepository(appCtx.DB),
	}
}

// CreateMatchInput carries one sympathy notification from the main bot.
type CreateMatchInput struct {
	MaleID         string
	FemaleID       string
	Mutual         bool
	MaleUsername   string
	FemaleUsername string
}

// CreateMatch records a sympathy notification as a new match row.
//
// Behavior:
//   - Always inserts; no dedup against earlier rows for the same pair.
//     The latest-id lookup makes the newest notification win.
//   - Mutual arrives from the notifying system and is stored as-is.
func (s *Service) CreateMatch(ctx context.Context, in CreateMatchInput) (uint64, error) {
	if in.MaleID == "" || in.FemaleID == "" {
		return 0, fmt.Errorf("male_id and female_id required")
	}

	id, err := s.repo.Create(ctx, &db.Match{
		MaleID:         in.MaleID,
		FemaleID:       in.FemaleID,
		Mutual:         in.Mutual,
		MaleUsername:   in.MaleUsername,
		FemaleUsername: in.FemaleUsername,
	})
	if err != nil {
		return 0, err
	}

	s.invalidate(ctx, in.MaleID, in.FemaleID)

	s.appCtx.Logger.Info("match created",
		"match_id", id, "male_id", in.MaleID, "female_id", in.FemaleID, "mutual", in.Mutual)
	return id, nil
}

// LatestForUser returns the user's newest match, or nil when they have
// none. Cache-first:
//  1. Attempts to read the snapshot from Redis (match:latest:userID).
//  2. On miss, falls back to the DB and refills the cache with a 1h TTL.
func (s *Service) LatestForUser(ctx context.Context, userID string) (*db.Match, error) {
	if cached, ok, _ := s.appCtx.RedisCache.GetLatestMatch(ctx, userID); ok {
		var m db.Match
		if err := json.Unmarshal([]byte(cached), &m); err == nil {
			return &m, nil
		}
	}

	m, err := s.repo.LatestForUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(m); err == nil {
		_ = s.appCtx.RedisCache.SetLatestMatch(ctx, userID, string(payload))
	}
	return m, nil
}

// ListForUser returns the user's matches, newest first, optionally
// restricted to mutual ones.
func (s *Service) ListForUser(ctx context.Context, userID string, onlyMutual bool) ([]db.Match, error) {
	return s.repo.ListForUser(ctx, userID, onlyMutual)
}

// GetByID fetches one match row.
func (s *Service) GetByID(ctx context.Context, matchID uint64) (*db.Match, error) {
	return s.repo.GetByID(ctx, matchID)
}

// SetInvoiceURL records the invoice on a match. Idempotent overwrite; an
// invoice, once set, is never cleared by this system.
func (s *Service) SetInvoiceURL(ctx context.Context, matchID uint64, url string) error {
	m, err := s.repo.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if err := s.repo.SetInvoiceURL(ctx, matchID, url); err != nil {
		return err
	}
	s.invalidate(ctx, m.MaleID, m.FemaleID)
	return nil
}

// MarkPaid transitions a match to mutual-paid. Safe to call twice; the
// first confirmation's paid_at survives redelivery.
func (s *Service) MarkPaid(ctx context.Context, matchID uint64) error {
	m, err := s.repo.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkPaid(ctx, matchID); err != nil {
		return err
	}
	s.invalidate(ctx, m.MaleID, m.FemaleID)

	s.appCtx.Logger.Info("match marked paid", "match_id", matchID)
	return nil
}

// invalidate drops both parties' cached latest-match snapshots after a
// mutation. Cache errors are non-fatal: the TTL bounds staleness.
func (s *Service) invalidate(ctx context.Context, userIDs ...string) {
	if err := s.appCtx.RedisCache.InvalidateLatestMatch(ctx, userIDs...); err != nil {
		s.appCtx.Logger.Warn("failed to invalidate match cache", "err", err)
	}
}

// ContactDecision is the outcome of an access-control check for one user
// against their latest match.
type ContactDecision struct {
	// Disclose is true when the counterpart's handle may be revealed now.
	Disclose bool

	// Handle is the counterpart's username. May be empty even when
	// Disclose is true (handles are optional and can be stale).
	Handle string

	// NeedsPayment is true for the male party of a mutual-unpaid match.
	NeedsPayment bool

	// InvoiceURL is set when an invoice already exists for the match.
	InvoiceURL string
}

// DecideContact evaluates the asymmetric disclosure rule:
//   - female party, mutual match: male handle is free, paid or not;
//   - male party, mutual match: female handle only after payment,
//     otherwise a payment prompt;
//   - no mutual match: nothing.
//
// The one-side-free asymmetry is the business rule, not an oversight.
func DecideContact(m *db.Match, userID string) ContactDecision {
	if m == nil || !m.Mutual || !m.Involves(userID) {
		return ContactDecision{}
	}

	if m.FemaleID == userID {
		return ContactDecision{Disclose: true, Handle: m.MaleUsername}
	}

	if m.Paid {
		return ContactDecision{Disclose: true, Handle: m.FemaleUsername}
	}
	return ContactDecision{NeedsPayment: true, InvoiceURL: m.InvoiceURL}
}
