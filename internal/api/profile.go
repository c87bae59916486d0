package api

import (
	"net/http" // HTTP status codes

	"ajo_system/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// ProfileResponse represents the profile data returned to the user
type ProfileResponse struct {
	ID        uint   `json:"id"`         // User ID
	Email     string `json:"email"`      // Email address
	FullName  string `json:"full_name"`  // Display name
	Phone     string `json:"phone"`      // Contact phone
	Country   string `json:"country"`    // Country of residence
	KYCStatus string `json:"kyc_status"` // KYC status
}

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	FullName string `json:"full_name"` // New display name, optional
	Phone    string `json:"phone"`     // New phone, optional
	Country  string `json:"country"`   // New country, optional
}

// GetProfileHandler returns the authenticated user's profile
func GetProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var user domain.User // Fetch user from database
		if err := db.First(&user, userID).Error; err != nil {
			// If user not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		// Return profile data
		c.JSON(http.StatusOK, gin.H{"profile": ProfileResponse{
			ID:        user.ID,        // User ID
			Email:     user.Email,     // Email address
			FullName:  user.FullName,  // Display name
			Phone:     user.Phone,     // Contact phone
			Country:   user.Country,   // Country of residence
			KYCStatus: user.KYCStatus, // KYC status
		}})
	}
}

// UpdateProfileHandler updates the authenticated user's profile fields
func UpdateProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var req UpdateProfileRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Only overwrite the fields that were provided
		updates := map[string]any{}
		if req.FullName != "" {
			updates["full_name"] = req.FullName // New display name
		}
		if req.Phone != "" {
			updates["phone"] = req.Phone // New phone
		}
		if req.Country != "" {
			updates["country"] = req.Country // New country
		}
		if len(updates) == 0 {
			// Nothing to update
			c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
			return
		}
		// Apply the update
		if err := db.Model(&domain.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
	}
}

// SubmitKYCHandler moves the user's KYC status from unverified to pending
func SubmitKYCHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var user domain.User // Fetch user from database
		if err := db.First(&user, userID).Error; err != nil {
			// If user not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		// Verified accounts have nothing to submit
		if user.KYCStatus == domain.KYCVerified {
			c.JSON(http.StatusBadRequest, gin.H{"error": "KYC already verified"})
			return
		}
		// Move status to pending for admin review
		if err := db.Model(&user).Update("kyc_status", domain.KYCPending).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit KYC"})
			return
		}
		// Log the submission for the review trail
		logrus.WithFields(logrus.Fields{
			"user_id": userID, // Submitting user
		}).Info("KYC submitted")
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "KYC submitted for review"})
	}
}
