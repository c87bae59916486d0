package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation
	"time"     // Time parsing and durations

	"ajo_system/internal/domain"  // Importing domain models
	"ajo_system/internal/service" // Core services
	"ajo_system/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// CreateGroupRequest represents a group creation request
type CreateGroupRequest struct {
	Title              string  `json:"title" binding:"required"`                          // Group title
	ContributionAmount float64 `json:"contribution_amount" binding:"required,gt=0"`       // Per-cycle amount
	Frequency          string  `json:"frequency" binding:"required,oneof=weekly monthly"` // weekly or monthly
	StartDate          string  `json:"start_date" binding:"required"`                     // Planned start date (YYYY-MM-DD)
}

// AddMemberRequest represents an owner inviting a user by email
type AddMemberRequest struct {
	Email string `json:"email" binding:"required"` // Invitee email
}

// groupIDParam parses the :id path parameter
func groupIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64) // Parse group ID
	if err != nil {
		// If invalid, return bad request
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group id"})
		return 0, false
	}
	return uint(id), true
}

// CreateGroupHandler creates a draft Ajo group owned by the caller
func CreateGroupHandler(lifecycle *service.GroupLifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var req CreateGroupRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Parse the start date
		startDate, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date, expected YYYY-MM-DD"})
			return
		}
		// Create the group; the KYC gate and owner seeding live in the core
		group, err := lifecycle.CreateGroup(c.Request.Context(), userID, req.Title, req.ContributionAmount, req.Frequency, startDate)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		// Log group creation
		logrus.WithFields(logrus.Fields{
			"group_id": group.ID, // New group
			"owner_id": userID,   // Owning user
		}).Info("Group created")
		// Return the new group
		c.JSON(http.StatusCreated, gin.H{"group": group})
	}
}

// ListGroupsHandler returns every group the caller owns or belongs to
func ListGroupsHandler(lifecycle *service.GroupLifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		groups, err := lifecycle.ListUserGroups(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		c.JSON(http.StatusOK, gin.H{"groups": groups}) // Return the groups
	}
}

// GroupDetailsResponse bundles a group with its members, cycles and ledger
type GroupDetailsResponse struct {
	Group   domain.Group         `json:"group"`   // The group itself
	Members []domain.Member      `json:"members"` // Members ordered by position
	Cycles  []domain.Cycle       `json:"cycles"`  // Paid cycles in order
	Ledger  []domain.LedgerEntry `json:"ledger"`  // Movements, newest first
}

// GetGroupHandler returns a group with its members, cycles and ledger
func GetGroupHandler(lifecycle *service.GroupLifecycle, members *service.MembershipRegistry, engine *service.CycleEngine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, ok := groupIDParam(c) // Parse group ID
		if !ok {
			return
		}
		ctx := context.Background()                       // Context for Redis operations
		cacheKey := "group:" + strconv.Itoa(int(groupID)) // Cache key for group details
		var cached GroupDetailsResponse                   // Cached details
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"data": cached, "cached": true})
			return
		}
		// Load each piece through the core read accessors
		group, err := lifecycle.GetGroup(c.Request.Context(), groupID)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		memberList, err := members.ListMembers(c.Request.Context(), groupID)
		if err != nil {
			respondError(c, err)
			return
		}
		cycles, err := engine.ListCycles(c.Request.Context(), groupID)
		if err != nil {
			respondError(c, err)
			return
		}
		ledger, err := engine.ListLedger(c.Request.Context(), groupID)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := GroupDetailsResponse{
			Group:   *group,     // The group itself
			Members: memberList, // Members ordered by position
			Cycles:  cycles,     // Paid cycles in order
			Ledger:  ledger,     // Movements, newest first
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 30*time.Second) // Cache for 30 seconds
		c.JSON(http.StatusOK, gin.H{"data": resp, "cached": false})  // Return group details
	}
}

// JoinGroupHandler adds the caller to a draft group at the next position
func JoinGroupHandler(members *service.MembershipRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		groupID, ok := groupIDParam(c) // Parse group ID
		if !ok {
			return
		}
		member, err := members.AddMember(c.Request.Context(), groupID, userID)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		// Invalidate group detail cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			utils.InvalidateGroupCache(context.Background(), rdb, groupID)
		}
		// Return the new membership
		c.JSON(http.StatusCreated, gin.H{"member": member})
	}
}

// LeaveGroupHandler removes the caller from a draft group
func LeaveGroupHandler(members *service.MembershipRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		groupID, ok := groupIDParam(c) // Parse group ID
		if !ok {
			return
		}
		if err := members.RemoveMember(c.Request.Context(), groupID, userID); err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		// Invalidate group detail cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			utils.InvalidateGroupCache(context.Background(), rdb, groupID)
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Left group"})
	}
}

// AddMemberHandler lets the group owner invite a user by email while the
// group is still in draft
func AddMemberHandler(db *gorm.DB, lifecycle *service.GroupLifecycle, members *service.MembershipRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		groupID, ok := groupIDParam(c) // Parse group ID
		if !ok {
			return
		}
		var req AddMemberRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Only the owner may invite
		group, err := lifecycle.GetGroup(c.Request.Context(), groupID)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		if group.OwnerID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the group owner can add members"})
			return
		}
		// Find the invitee by email
		var invitee domain.User
		if err := db.Where("email = ?", strings.ToLower(req.Email)).First(&invitee).Error; err != nil {
			// If user not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		member, err := members.AddMember(c.Request.Context(), groupID, invitee.ID)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		// Invalidate group detail cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			utils.InvalidateGroupCache(context.Background(), rdb, groupID)
		}
		// Return the new membership
		c.JSON(http.StatusCreated, gin.H{"member": member})
	}
}

// StartGroupHandler flips a draft group to active, freezing membership
func StartGroupHandler(lifecycle *service.GroupLifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		groupID, ok := groupIDParam(c) // Parse group ID
		if !ok {
			return
		}
		if err := lifecycle.StartGroup(c.Request.Context(), groupID, userID); err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		// Log group activation
		logrus.WithFields(logrus.Fields{
			"group_id": groupID, // Activated group
			"owner_id": userID,  // Requesting owner
		}).Info("Group started")
		// Invalidate group detail cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			utils.InvalidateGroupCache(context.Background(), rdb, groupID)
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Group started"})
	}
}

// ContributeHandler collects the caller's contribution for the pending cycle
func ContributeHandler(engine *service.CycleEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		groupID, ok := groupIDParam(c) // Parse group ID
		if !ok {
			return
		}
		entry, err := engine.Contribute(c.Request.Context(), groupID, userID)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		// Invalidate wallet and group caches after the money moved
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			ctx := context.Background()                   // Context for Redis operations
			utils.InvalidateWalletCache(ctx, rdb, userID) // Contributor's wallet changed
			utils.InvalidateGroupCache(ctx, rdb, groupID) // Group ledger changed
		}
		// Return the ledger entry
		c.JSON(http.StatusCreated, gin.H{"entry": entry})
	}
}

// AdvanceCycleHandler pays out the pending cycle to the next member in the
// rotation; only the group owner may call it
func AdvanceCycleHandler(engine *service.CycleEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		groupID, ok := groupIDParam(c) // Parse group ID
		if !ok {
			return
		}
		cycle, err := engine.AdvanceCycle(c.Request.Context(), groupID, userID)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		// Invalidate wallet and group caches after the payout
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			ctx := context.Background()                               // Context for Redis operations
			utils.InvalidateWalletCache(ctx, rdb, cycle.PayoutUserID) // Recipient's wallet changed
			utils.InvalidateGroupCache(ctx, rdb, groupID)             // Group state changed
		}
		// Return the payout details
		c.JSON(http.StatusOK, gin.H{
			"cycle":         cycle,              // The paid cycle record
			"recipient":     cycle.PayoutUserID, // Payout recipient
			"payout_amount": cycle.PayoutAmount, // Pool paid out
		})
	}
}

// ListCyclesHandler returns the group's paid cycles in rotation order
func ListCyclesHandler(engine *service.CycleEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, ok := groupIDParam(c) // Parse group ID
		if !ok {
			return
		}
		cycles, err := engine.ListCycles(c.Request.Context(), groupID)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		c.JSON(http.StatusOK, gin.H{"cycles": cycles}) // Return the cycles
	}
}

// ListLedgerHandler returns the group's ledger entries, newest first
func ListLedgerHandler(engine *service.CycleEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, ok := groupIDParam(c) // Parse group ID
		if !ok {
			return
		}
		entries, err := engine.ListLedger(c.Request.Context(), groupID)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		c.JSON(http.StatusOK, gin.H{"ledger": entries}) // Return the ledger
	}
}
