package repository

import (
	"context"
	"time"

	"github.com/oggyb/amica/internal/db"
	"gorm.io/gorm"
)

// MatchRepository provides data access methods for the Match model.
// The matches table is an append-only event log: rows are inserted and
// flagged, never deleted, and the newest row per user wins.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// Create inserts a new match row and returns its id.
//
// Behavior:
//   - Always inserts; repeated notifications for the same pair stack up
//     and the latest-id lookup resolves to the newest.
//   - Mutual is recorded as delivered by the notifying system, never
//     computed here.
func (r *MatchRepository) Create(ctx context.Context, m *db.Match) (uint64, error) {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return 0, err
	}
	return m.ID, nil
}

// GetByID fetches a single match row.
func (r *MatchRepository) GetByID(ctx context.Context, matchID uint64) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).First(&m, matchID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// LatestForUser returns the highest-id match where the user is either
// party, or gorm.ErrRecordNotFound if none exists.
func (r *MatchRepository) LatestForUser(ctx context.Context, userID string) (*db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("male_id = ? OR female_id = ?", userID, userID).
		Order("id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForUser returns all matches for a user, newest first, optionally
// filtered to mutual ones.
func (r *MatchRepository) ListForUser(ctx context.Context, userID string, onlyMutual bool) ([]db.Match, error) {
	var matches []db.Match
	query := r.db.WithContext(ctx).
		Where("male_id = ? OR female_id = ?", userID, userID)
	if onlyMutual {
		query = query.Where("mutual = ?", true)
	}
	if err := query.Order("id DESC").Find(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}

// SetInvoiceURL records the invoice on a match. Idempotent overwrite:
// writing the same url twice leaves the row unchanged.
func (r *MatchRepository) SetInvoiceURL(ctx context.Context, matchID uint64, url string) error {
	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ?", matchID).
		Update("invoice_url", url).Error
}

// MarkPaid flips the match to paid and stamps paid_at once.
//
// Behavior:
//   - The paid=false guard keeps a second confirmation from rewriting
//     paid_at, so the first confirmation's timestamp survives redelivery.
//   - Calling twice is safe (at-least-once webhook delivery).
func (r *MatchRepository) MarkPaid(ctx context.Context, matchID uint64) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ? AND paid = ?", matchID, false).
		Updates(map[string]interface{}{"paid": true, "paid_at": now}).Error
}
