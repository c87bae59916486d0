package domain

// Transaction type values
const (
	TransactionCredit = "credit" // Balance increase
	TransactionDebit  = "debit"  // Balance decrease
)

// Transaction Model. One row is appended per wallet balance mutation, in the
// same database transaction as the balance update.
type Transaction struct {
	ID          uint    `gorm:"primaryKey"`       // Primary key
	UserID      uint    `gorm:"index;not null"`   // Foreign key to User
	Type        string  `gorm:"size:16;not null"` // Transaction type: credit or debit
	Amount      float64 `gorm:"not null"`         // Amount of the transaction, always positive
	Description string  // Human-readable description of the movement
	Reference   string  `gorm:"uniqueIndex;size:64"`  // Unique reference token
	CreatedAt   int64   `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
