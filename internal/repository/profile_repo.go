package repository

import (
	"context"

	"github.com/oggyb/amica/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository provides data access methods for the Profile model.
// Profiles are owned by the main bot; the assistant reads them for prompt
// context and only writes through the upsert webhook.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get returns a user's profile, or gorm.ErrRecordNotFound.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByNumber looks a profile up by its questionnaire number in the channel.
func (r *ProfileRepository) FindByNumber(ctx context.Context, number int) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, "profile_number = ?", number).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns profiles ordered by last update, newest first.
func (r *ProfileRepository) List(ctx context.Context, limit, offset int) ([]db.Profile, error) {
	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Upsert inserts or replaces a profile snapshot pushed by the main bot.
//
// Behavior:
//   - Primary key (user_id) conflict replaces every pushed column, so the
//     newest snapshot from the main bot always wins.
func (r *ProfileRepository) Upsert(ctx context.Context, p *db.Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"username", "gender", "bio", "attributes", "profile_number", "updated_at",
			}),
		}).
		Create(p).Error
}
