package domain

import "time"

// Group status values
const (
	GroupDraft     = "draft"     // Members may still join or leave
	GroupActive    = "active"    // Rotation in progress, membership frozen
	GroupCompleted = "completed" // Every member has been paid out once
)

// Contribution frequency values (informational only, no scheduler acts on them)
const (
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Group Model. One rotating savings circle.
type Group struct {
	ID                 uint      `gorm:"primaryKey"`      // Primary key
	OwnerID            uint      `gorm:"index;not null"`  // Foreign key to the owning User
	Title              string    `gorm:"not null"`        // Display title
	ContributionAmount float64   `gorm:"not null"`        // Fixed amount each member pays per cycle
	Frequency          string    `gorm:"default:monthly"` // Contribution frequency: weekly or monthly
	StartDate          time.Time // Planned start date
	Status             string    `gorm:"default:draft"`        // Status: draft, active or completed
	CurrentCycle       int       `gorm:"not null;default:0"`   // Number of cycles fully paid out so far
	CreatedAt          int64     `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
	UpdatedAt          int64     `gorm:"autoUpdateTime:milli"` // Timestamp of last update in milliseconds
}
