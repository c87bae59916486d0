package domain

// Ledger movement values
const (
	MovementContribution = "contribution" // Member paid into the pool
	MovementPayout       = "payout"       // Pool paid out to a member
)

// LedgerEntry Model. Append-only record of every contribution and payout per
// group, cycle and user; the system of record for "has user X contributed to
// cycle N" and "has user X ever received a payout from this group". The
// composite unique index is the atomic guard against duplicate contributions
// for the same (group, user, cycle) under concurrent requests.
type LedgerEntry struct {
	ID          uint    `gorm:"primaryKey"`                           // Primary key
	GroupID     uint    `gorm:"uniqueIndex:idx_ledger_entry"`         // Foreign key to Group
	UserID      uint    `gorm:"uniqueIndex:idx_ledger_entry"`         // Foreign key to User
	CycleNumber int     `gorm:"uniqueIndex:idx_ledger_entry"`         // Cycle the movement belongs to
	Movement    string  `gorm:"uniqueIndex:idx_ledger_entry;size:16"` // Movement: contribution or payout
	Amount      float64 `gorm:"not null"`                             // Amount moved
	CreatedAt   int64   `gorm:"autoCreateTime:milli"`                 // Timestamp of creation in milliseconds
}
