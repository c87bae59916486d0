package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ajo_system/internal/domain"

	"gorm.io/gorm"
)

// GroupLifecycle governs the group state machine: draft -> active ->
// completed. No transition skips a state and none go backward.
type GroupLifecycle struct {
	db       *gorm.DB         // Database handle
	verifier IdentityVerifier // External KYC gate, consulted only in CreateGroup
}

// NewGroupLifecycle creates a group lifecycle service
func NewGroupLifecycle(db *gorm.DB, verifier IdentityVerifier) *GroupLifecycle {
	return &GroupLifecycle{db: db, verifier: verifier}
}

// CreateGroup creates a draft group owned by a KYC-verified user. The owner
// auto-joins at position 1 in the same transaction as the group row.
func (l *GroupLifecycle) CreateGroup(ctx context.Context, ownerID uint, title string, amount float64, frequency string, startDate time.Time) (*domain.Group, error) {
	if amount <= 0 {
		return nil, &Error{Kind: KindInvalidAmount, Message: "contribution amount must be positive", UserID: ownerID}
	}
	verified, err := l.verifier.IsVerified(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, &Error{Kind: KindKYCRequired, Message: "KYC verification required to create Ajo groups", UserID: ownerID}
	}
	group := &domain.Group{
		OwnerID:            ownerID,           // Owning user
		Title:              title,             // Display title
		ContributionAmount: amount,            // Fixed per-cycle contribution
		Frequency:          frequency,         // Informational frequency
		StartDate:          startDate,         // Planned start date
		Status:             domain.GroupDraft, // Groups always begin in draft
		CurrentCycle:       0,                 // No cycles paid out yet
	}
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		// Seed the owner as the first member
		owner := &domain.Member{GroupID: group.ID, UserID: ownerID, Position: 1}
		if err := tx.Create(owner).Error; err != nil {
			return fmt.Errorf("seed owner member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// StartGroup flips a draft group to active, the single irrevocable gate that
// freezes membership. Only the owner may start, and the member count is
// re-checked under the same row lock that flips the status, so a leave racing
// the start cannot produce an active group below the minimum.
func (l *GroupLifecycle) StartGroup(ctx context.Context, groupID, requesterID uint) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := lockGroup(tx, groupID)
		if err != nil {
			return err
		}
		if group.OwnerID != requesterID {
			return &Error{Kind: KindNotOwner, Message: "only the group owner can start the group", GroupID: groupID, UserID: requesterID}
		}
		if group.Status != domain.GroupDraft {
			return &Error{Kind: KindAlreadyStarted, Message: "group has already been started", GroupID: groupID}
		}
		var count int64
		if err := tx.Model(&domain.Member{}).Where("group_id = ?", groupID).Count(&count).Error; err != nil {
			return fmt.Errorf("count members: %w", err)
		}
		if count < 2 {
			return &Error{Kind: KindInsufficientMembers, Message: "group needs at least 2 members to start", GroupID: groupID}
		}
		if err := tx.Model(group).Update("status", domain.GroupActive).Error; err != nil {
			return fmt.Errorf("activate group: %w", err)
		}
		return nil
	})
}

// Complete marks a group completed. Idempotent: completing an already
// completed group is a no-op, not an error. tx may be a transaction handle so
// the cycle engine can fold completion into its own atomic unit.
func (l *GroupLifecycle) Complete(tx *gorm.DB, groupID uint) error {
	if err := tx.Model(&domain.Group{}).Where("id = ?", groupID).Update("status", domain.GroupCompleted).Error; err != nil {
		return fmt.Errorf("complete group: %w", err)
	}
	return nil
}

// GetGroup returns a group by id
func (l *GroupLifecycle) GetGroup(ctx context.Context, groupID uint) (*domain.Group, error) {
	var group domain.Group
	if err := l.db.WithContext(ctx).First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &Error{Kind: KindNotFound, Message: fmt.Sprintf("group %d not found", groupID), GroupID: groupID}
		}
		return nil, fmt.Errorf("load group: %w", err)
	}
	return &group, nil
}

// ListUserGroups returns every group the user owns or is a member of
func (l *GroupLifecycle) ListUserGroups(ctx context.Context, userID uint) ([]domain.Group, error) {
	memberOf := l.db.Model(&domain.Member{}).Select("group_id").Where("user_id = ?", userID)
	var groups []domain.Group
	if err := l.db.WithContext(ctx).Where("owner_id = ? OR id IN (?)", userID, memberOf).
		Order("created_at desc").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}
