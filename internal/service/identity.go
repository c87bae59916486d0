package service

import (
	"context"
	"errors"
	"fmt"

	"ajo_system/internal/domain"

	"gorm.io/gorm"
)

// IdentityVerifier is the narrow KYC gate the group lifecycle consults before
// allowing group creation.
type IdentityVerifier interface {
	IsVerified(ctx context.Context, userID uint) (bool, error)
}

// KYCVerifier answers the KYC gate from the stored user profile.
type KYCVerifier struct {
	db *gorm.DB // Database handle
}

// NewKYCVerifier creates a profile-backed identity verifier
func NewKYCVerifier(db *gorm.DB) *KYCVerifier {
	return &KYCVerifier{db: db}
}

// IsVerified reports whether the user's KYC status is verified
func (v *KYCVerifier) IsVerified(ctx context.Context, userID uint) (bool, error) {
	var user domain.User
	if err := v.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, &Error{Kind: KindNotFound, Message: fmt.Sprintf("user %d not found", userID), UserID: userID}
		}
		return false, fmt.Errorf("load user %d: %w", userID, err)
	}
	return user.KYCStatus == domain.KYCVerified, nil
}
