package db

import (
	"time"

	"gorm.io/datatypes"
)

// Role tags a dialogue turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Phase is the derived lifecycle state of a match.
type Phase string

const (
	PhasePending      Phase = "pending"       // mutual=false, record-keeping only
	PhaseMutualUnpaid Phase = "mutual-unpaid" // mutual=true, paid=false
	PhaseMutualPaid   Phase = "mutual-paid"   // terminal
)

// Match is one row of the append-only match log. Repeated sympathy
// notifications for the same pair produce repeated rows; the current
// match for a user is always the highest-id row they appear in.
//
// Indexes:
//   - idx_matches_male(male_id), idx_matches_female(female_id)
//     Optimize the "latest match for user" lookup on either side.
//
// Invariants:
//   - PaidAt is non-nil iff Paid is true.
//   - Mutual and Paid are never unset once true; rows are never deleted.
type Match struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement"`
	MaleID         string     `gorm:"size:64;not null;index:idx_matches_male"`
	FemaleID       string     `gorm:"size:64;not null;index:idx_matches_female"`
	MaleUsername   string     `gorm:"size:64"`
	FemaleUsername string     `gorm:"size:64"`
	Mutual         bool       `gorm:"not null;default:false"`
	Paid           bool       `gorm:"not null;default:false"`
	InvoiceURL     string     `gorm:"size:512"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	PaidAt         *time.Time
}

// Phase derives the access-control state from the stored flags.
func (m *Match) Phase() Phase {
	switch {
	case m.Mutual && m.Paid:
		return PhaseMutualPaid
	case m.Mutual:
		return PhaseMutualUnpaid
	default:
		return PhasePending
	}
}

// Involves reports whether the user is either party of the match.
func (m *Match) Involves(userID string) bool {
	return m.MaleID == userID || m.FemaleID == userID
}

// Message is one immutable dialogue turn. Rows are append-only; the
// autoincrement id doubles as the chronological order.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"size:64;not null;index:idx_messages_user"`
	Role      Role      `gorm:"size:16;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Profile is the per-user questionnaire pushed by the main bot. The
// assistant only reads it, as opaque context for prompt construction.
type Profile struct {
	UserID        string `gorm:"primaryKey;size:64"`
	Username      string `gorm:"size:64"`
	Gender        string `gorm:"size:16"`
	Bio           string `gorm:"type:text"`
	Attributes    datatypes.JSONMap
	ProfileNumber *int
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}
