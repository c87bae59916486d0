package domain

import "time"

// Cycle Model. Created exactly once per successful cycle advancement and
// never mutated afterward. The unique index blocks a second advancement of
// the same cycle number from ever committing.
type Cycle struct {
	ID           uint      `gorm:"primaryKey"`                         // Primary key
	GroupID      uint      `gorm:"uniqueIndex:idx_cycle_group_number"` // Foreign key to Group
	CycleNumber  int       `gorm:"uniqueIndex:idx_cycle_group_number"` // Rotation index being paid, starting at 1
	PayoutUserID uint      `gorm:"index;not null"`                     // Foreign key to the recipient User
	PaidOut      bool      `gorm:"not null"`                           // Whether the payout was issued
	PayoutAmount float64   `gorm:"not null"`                           // contribution_amount x member_count
	PayoutDate   time.Time // When the payout was issued
}
