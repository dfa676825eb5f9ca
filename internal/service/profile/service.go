// Package profile exposes the questionnaire boundary: read endpoints for
// debugging and the upsert webhook the main bot pushes snapshots through.
// The assistant core itself only ever reads profiles.
package profile

import (
	"context"

	"github.com/oggyb/amica/internal/app"
	"github.com/oggyb/amica/internal/db"
	"github.com/oggyb/amica/internal/repository"
)

// Service wraps the profile repository.
type Service struct {
	appCtx *app.AppContext
	repo   *repository.ProfileRepository
}

// NewService creates a profile service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		repo:   repository.NewProfileRepository(appCtx.DB),
	}
}

// Get returns a user's profile.
func (s *Service) Get(ctx context.Context, userID string) (*db.Profile, error) {
	return s.repo.Get(ctx, userID)
}

// FindByNumber looks a profile up by its questionnaire number.
func (s *Service) FindByNumber(ctx context.Context, number int) (*db.Profile, error) {
	return s.repo.FindByNumber(ctx, number)
}

// List returns profiles by last update, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]db.Profile, error) {
	return s.repo.List(ctx, limit, offset)
}

// Upsert stores a snapshot pushed by the main bot.
func (s *Service) Upsert(ctx context.Context, p *db.Profile) error {
	return s.repo.Upsert(ctx, p)
}
