package domain

// KYC status values
const (
	KYCUnverified = "unverified" // Default status for new accounts
	KYCPending    = "pending"    // User submitted KYC, awaiting admin review
	KYCVerified   = "verified"   // Admin approved, user may create Ajo groups
)

// User Model
type User struct {
	ID        uint   `gorm:"primaryKey"`      // Primary key
	Email     string `gorm:"unique;not null"` // Unique email, stored lowercase
	Password  string `gorm:"not null"`        // Hashed password
	FullName  string // Display name
	Phone     string // Contact phone number
	Country   string // Country of residence
	Role      string `gorm:"default:user"`                                   // Role: user or admin
	KYCStatus string `gorm:"default:unverified"`                             // KYC status: unverified, pending or verified
	Wallet    Wallet `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"` // One-to-one relationship with Wallet
	CreatedAt int64  `gorm:"autoCreateTime:milli"`                           // Timestamp of creation in milliseconds
	UpdatedAt int64  `gorm:"autoUpdateTime:milli"`                           // Timestamp of last update in milliseconds
}
