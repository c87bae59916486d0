package service

import (
	"context"
	"errors"
	"fmt"

	"ajo_system/internal/domain"

	"gorm.io/gorm"
)

// MembershipRegistry tracks group membership and position assignment. Joins
// and leaves are only valid while the group is still in draft status; once a
// group is started the member list is frozen.
type MembershipRegistry struct {
	db *gorm.DB // Database handle
}

// NewMembershipRegistry creates a membership registry
func NewMembershipRegistry(db *gorm.DB) *MembershipRegistry {
	return &MembershipRegistry{db: db}
}

// AddMember joins a user to a draft group at the next position. Positions are
// assigned in join order: max existing position plus one, never reusing the
// slot of a member who left.
func (m *MembershipRegistry) AddMember(ctx context.Context, groupID, userID uint) (*domain.Member, error) {
	var member *domain.Member
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The row lock serializes joins against each other and against
		// StartGroup, so the status check and position assignment are stable
		group, err := lockGroup(tx, groupID)
		if err != nil {
			return err
		}
		if group.Status != domain.GroupDraft {
			return &Error{Kind: KindGroupNotJoinable, Message: "cannot join a group that has already started", GroupID: groupID, UserID: userID}
		}
		var count int64
		if err := tx.Model(&domain.Member{}).Where("group_id = ? AND user_id = ?", groupID, userID).Count(&count).Error; err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if count > 0 {
			return &Error{Kind: KindAlreadyMember, Message: "user is already a member of this group", GroupID: groupID, UserID: userID}
		}
		var maxPos int
		if err := tx.Model(&domain.Member{}).Where("group_id = ?", groupID).
			Select("COALESCE(MAX(position), 0)").Scan(&maxPos).Error; err != nil {
			return fmt.Errorf("next position: %w", err)
		}
		member = &domain.Member{GroupID: groupID, UserID: userID, Position: maxPos + 1}
		if err := tx.Create(member).Error; err != nil {
			// Unique (group_id, user_id) index backs the membership check
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &Error{Kind: KindAlreadyMember, Message: "user is already a member of this group", GroupID: groupID, UserID: userID}
			}
			return fmt.Errorf("add member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember removes a non-owner member from a draft group. Remaining
// positions are not renumbered; position is a join-order tag, not a dense
// index.
func (m *MembershipRegistry) RemoveMember(ctx context.Context, groupID, userID uint) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		group, err := lockGroup(tx, groupID)
		if err != nil {
			return err
		}
		if group.Status != domain.GroupDraft {
			return &Error{Kind: KindGroupNotJoinable, Message: "cannot leave a group that has already started", GroupID: groupID, UserID: userID}
		}
		if group.OwnerID == userID {
			return &Error{Kind: KindOwnerCannotLeave, Message: "group owner cannot leave the group", GroupID: groupID, UserID: userID}
		}
		res := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&domain.Member{})
		if res.Error != nil {
			return fmt.Errorf("remove member: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &Error{Kind: KindNotAMember, Message: "user is not a member of this group", GroupID: groupID, UserID: userID}
		}
		return nil
	})
}

// ListMembers returns the group's members ordered by position ascending
func (m *MembershipRegistry) ListMembers(ctx context.Context, groupID uint) ([]domain.Member, error) {
	var members []domain.Member
	if err := m.db.WithContext(ctx).Where("group_id = ?", groupID).Order("position asc").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// MemberCount returns the number of members in the group
func (m *MembershipRegistry) MemberCount(ctx context.Context, groupID uint) (int64, error) {
	var count int64
	if err := m.db.WithContext(ctx).Model(&domain.Member{}).Where("group_id = ?", groupID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

// IsMember reports whether the user holds a member row in the group
func (m *MembershipRegistry) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	var count int64
	if err := m.db.WithContext(ctx).Model(&domain.Member{}).Where("group_id = ? AND user_id = ?", groupID, userID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return count > 0, nil
}
