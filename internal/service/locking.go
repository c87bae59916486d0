package service

import (
	"errors"
	"fmt"

	"ajo_system/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate adds an exclusive row lock to a query. SQLite (the test
// backend) has no SELECT ... FOR UPDATE; its single writer serializes
// transactions instead, so the clause is skipped there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockGroup loads a group under an exclusive row lock. Status checks and
// membership or cycle mutations happen while the lock is held, so racing
// operations on the same group serialize on its row.
func lockGroup(tx *gorm.DB, groupID uint) (*domain.Group, error) {
	var group domain.Group
	if err := lockForUpdate(tx).First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &Error{Kind: KindNotFound, Message: fmt.Sprintf("group %d not found", groupID), GroupID: groupID}
		}
		return nil, fmt.Errorf("load group %d: %w", groupID, err)
	}
	return &group, nil
}
