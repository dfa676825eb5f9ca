package repository

import (
	"context"

	"github.com/oggyb/amica/internal/db"
	"gorm.io/gorm"
)

// DialogueRepository provides data access methods for the append-only
// message log. Turns are immutable once written; the bounded window
// returned by Recent is the assistant's entire memory.
type DialogueRepository struct {
	db *gorm.DB
}

// NewDialogueRepository creates a new repository bound to the given DB connection.
func NewDialogueRepository(database *gorm.DB) *DialogueRepository {
	return &DialogueRepository{db: database}
}

// Append writes one dialogue turn for a user.
func (r *DialogueRepository) Append(ctx context.Context, userID string, role db.Role, content string) error {
	msg := db.Message{
		UserID:  userID,
		Role:    role,
		Content: content,
	}
	return r.db.WithContext(ctx).Create(&msg).Error
}

// Recent returns up to limit of the user's newest turns in chronological
// order (oldest first), ready to hand to the generation backend.
//
// Behavior:
//   - Fetches newest-first by id, then reverses in memory, matching the
//     bounded-window read the prompt builder expects.
func (r *DialogueRepository) Recent(ctx context.Context, userID string, limit int) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	// reverse newest-first into chronological order
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
