package domain

// Wallet Model
type Wallet struct {
	ID        uint    `gorm:"primaryKey"`           // Primary key
	UserID    uint    `gorm:"uniqueIndex"`          // Foreign key to User, one wallet per user
	Balance   float64 `gorm:"not null;default:0"`   // Wallet balance, never negative
	UpdatedAt int64   `gorm:"autoUpdateTime:milli"` // Timestamp of last update in milliseconds
}
