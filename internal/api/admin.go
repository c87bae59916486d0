package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time durations

	"ajo_system/internal/domain" // Importing domain models
	"ajo_system/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID        uint          `json:"id"`         // User ID
	Email     string        `json:"email"`      // Email address
	FullName  string        `json:"full_name"`  // Display name
	Country   string        `json:"country"`    // Country of residence
	Role      string        `json:"role"`       // User role
	KYCStatus string        `json:"kyc_status"` // KYC status
	Wallet    domain.Wallet `json:"wallet"`     // Associated wallet
}

// pageParams reads page and page_size query parameters with defaults
func pageParams(c *gin.Context) (int, int) {
	page := 1      // Default page number
	pageSize := 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// Check and set page size within limits
	if ps := c.Query("page_size"); ps != "" {
		// If valid, set page size
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size
		}
	}
	return page, pageSize
}

// ListUsersHandler returns all users with their wallet and KYC info
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Use background context for Redis
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + c.DefaultQuery("page", "1") + ":size=" + c.DefaultQuery("page_size", "20")
		// Try to get cached response
		var cached struct {
			Users      []UserAdminResponse `json:"users"`       // List of users
			Page       int                 `json:"page"`        // Current page
			PageSize   int                 `json:"page_size"`   // Page size
			Total      int64               `json:"total"`       // Total number of users
			TotalPages int                 `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,      // List of users
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of users
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		page, pageSize := pageParams(c) // Pagination parameters
		offset := (page - 1) * pageSize // Calculate offset for pagination
		var total int64                 // Total user count
		// Fetch total user count and paginated users with wallet info
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"}) // Return on error
			return
		}
		var users []domain.User // Slice to hold users
		// Preload Wallet relation, apply offset and limit for pagination
		if err := db.Preload("Wallet").Order("created_at desc").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"}) // Return on error
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize // Calculate total pages
		// Prepare response data
		resp := make([]UserAdminResponse, len(users))
		// Map users to response format
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:        u.ID,        // User ID
				Email:     u.Email,     // Email address
				FullName:  u.FullName,  // Display name
				Country:   u.Country,   // Country of residence
				Role:      u.Role,      // User role
				KYCStatus: u.KYCStatus, // KYC status
				Wallet:    u.Wallet,    // Associated wallet
			}
		}
		// Prepare final response data
		respData := gin.H{
			"users":       resp,       // List of users
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of users
			"total_pages": totalPages, // Total pages
			"cached":      false,      // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// ListTransactionsHandler returns all transactions, with optional filtering by user, type, or date
func ListTransactionsHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		// Build cache key from all query params
		var keyParts []string // Parts of the cache key
		// Append each query parameter to the key parts
		for _, k := range []string{"user_id", "type", "from", "to", "page", "page_size"} {
			keyParts = append(keyParts, k+"="+c.DefaultQuery(k, "")) // Append key-value pair
		}
		// Join key parts to form the final cache key
		cacheKey := "admin:txs:" + strings.Join(keyParts, ":")
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total number of transactions
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}

		// If cached data found, return it
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // List of transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total number of transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,                // Indicate response is from cache
			})
			return
		}
		page, pageSize := pageParams(c)          // Pagination parameters
		offset := (page - 1) * pageSize          // Calculate offset for pagination
		query := db.Model(&domain.Transaction{}) // Start building the query
		if userID := c.Query("user_id"); userID != "" {
			query = query.Where("user_id = ?", userID) // Filter by user ID
		}
		if txType := c.Query("type"); txType != "" {
			query = query.Where("type = ?", txType) // Filter by transaction type
		}
		if from := c.Query("from"); from != "" {
			query = query.Where("created_at >= ?", from) // Filter by start date
		}
		if to := c.Query("to"); to != "" {
			query = query.Where("created_at <= ?", to) // Filter by end date
		}
		var total int64 // Total transaction count
		// Get total count of transactions matching the filters
		if err := query.Count(&total).Error; err != nil {
			// If error occurs, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		var txs []domain.Transaction // Slice to hold transactions
		// Fetch paginated transactions with filters applied
		if err := query.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&txs).Error; err != nil {
			// If error occurs, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		respData := gin.H{
			"transactions": txs,        // List of transactions
			"page":         page,       // Current page
			"page_size":    pageSize,   // Page size
			"total":        total,      // Total number of transactions
			"total_pages":  totalPages, // Total pages
			"cached":       false,      // Indicate response is not from cache
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData) // Return the response
	}
}

// PendingKYCHandler returns users awaiting KYC review, oldest update last
func PendingKYCHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []domain.User // Slice to hold pending users
		// Fetch users with pending KYC status
		if err := db.Where("kyc_status = ?", domain.KYCPending).Order("updated_at desc").Find(&users).Error; err != nil {
			// If error occurs, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pending KYC"})
			return
		}
		// Map users to response format without password hashes
		resp := make([]ProfileResponse, len(users))
		for i, u := range users {
			resp[i] = ProfileResponse{
				ID:        u.ID,        // User ID
				Email:     u.Email,     // Email address
				FullName:  u.FullName,  // Display name
				Phone:     u.Phone,     // Contact phone
				Country:   u.Country,   // Country of residence
				KYCStatus: u.KYCStatus, // KYC status
			}
		}
		c.JSON(http.StatusOK, gin.H{"pending": resp}) // Return pending users
	}
}

// KYCDecisionRequest identifies the user a KYC decision applies to
type KYCDecisionRequest struct {
	UserID uint `json:"user_id" binding:"required"` // Reviewed user
}

// ApproveKYCHandler marks a user's KYC as verified
func ApproveKYCHandler(db *gorm.DB) gin.HandlerFunc {
	return kycDecisionHandler(db, domain.KYCVerified, "KYC approved")
}

// RejectKYCHandler sends a user's KYC back to unverified
func RejectKYCHandler(db *gorm.DB) gin.HandlerFunc {
	return kycDecisionHandler(db, domain.KYCUnverified, "KYC rejected")
}

// kycDecisionHandler applies an admin KYC decision to a user
func kycDecisionHandler(db *gorm.DB, status, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req KYCDecisionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}
		// Apply the decision
		res := db.Model(&domain.User{}).Where("id = ?", req.UserID).Update("kyc_status", status)
		if res.Error != nil {
			// If error occurs, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update KYC status"})
			return
		}
		if res.RowsAffected == 0 {
			// If user not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		// Log the decision for the review trail
		logrus.WithFields(logrus.Fields{
			"user_id": req.UserID, // Reviewed user
			"status":  status,     // Decision applied
		}).Info(message)
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}

// GroupAdminResponse represents a group with its member count for management
type GroupAdminResponse struct {
	domain.Group       // The group itself
	MemberCount  int64 `json:"member_count"` // Number of members
}

// AdminListGroupsHandler returns all groups with member counts for management
func AdminListGroupsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pageParams(c) // Pagination parameters
		offset := (page - 1) * pageSize // Calculate offset for pagination
		var total int64                 // Total group count
		// Count all groups
		if err := db.Model(&domain.Group{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count groups"})
			return
		}
		var groups []GroupAdminResponse // Slice to hold groups with counts
		// Fetch groups with a member count subquery
		if err := db.Model(&domain.Group{}).
			Select("groups.*, (SELECT COUNT(*) FROM members WHERE members.group_id = groups.id) AS member_count").
			Order("groups.created_at desc").Offset(offset).Limit(pageSize).
			Find(&groups).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
			return
		}
		// The total number of pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		c.JSON(http.StatusOK, gin.H{
			"groups":      groups,     // List of groups
			"page":        page,       // Current page
			"page_size":   pageSize,   // Page size
			"total":       total,      // Total number of groups
			"total_pages": totalPages, // Total pages
		})
	}
}
