package domain

// Member Model. Positions are assigned in join order starting at 1 (the owner
// always holds position 1) and are never renumbered after a leave, so gaps
// can exist. Rotation only needs the relative order.
type Member struct {
	ID        uint  `gorm:"primaryKey"`                        // Primary key
	GroupID   uint  `gorm:"uniqueIndex:idx_member_group_user"` // Foreign key to Group
	UserID    uint  `gorm:"uniqueIndex:idx_member_group_user"` // Foreign key to User, unique per group
	Position  int   `gorm:"not null"`                          // Payout rank within the group
	CreatedAt int64 `gorm:"autoCreateTime:milli"`              // Timestamp of creation in milliseconds
}
