package api

import (
	"net/http" // HTTP status codes

	"ajo_system/internal/service" // Core services

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// respondError translates a core service error into an HTTP response. Every
// business error kind maps to a client status; anything else is a storage
// failure and reported as a 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	switch kind {
	case service.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case service.KindUnauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case service.KindNotOwner, service.KindKYCRequired:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case service.KindAlreadyStarted, service.KindAlreadyMember,
		service.KindAlreadyContributed, service.KindAlreadyAdvanced,
		service.KindWalletExists:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case service.KindInvalidAmount, service.KindInsufficientMembers,
		service.KindGroupNotJoinable, service.KindOwnerCannotLeave,
		service.KindGroupNotActive, service.KindNotAMember,
		service.KindIncompleteCycle, service.KindInsufficientFunds:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		// Not a business error: log it and hide the detail
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Which endpoint failed
			"error": err.Error(),  // Underlying failure
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// currentUserID extracts the authenticated user ID set by the JWT middleware
func currentUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("userID") // Get userID from context
	if !exists {
		// If not, return unauthorized
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID.(uint), true
}
