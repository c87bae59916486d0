package api

import (
	"context" // Context for Redis operations
	"net/http"
	"strconv" // String conversion
	"time"    // Time durations

	"ajo_system/internal/domain"  // Importing domain models
	"ajo_system/internal/service" // Core services
	"ajo_system/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client

	"github.com/sirupsen/logrus" // Logging library
)

// AmountRequest represents a fund or withdraw request
type AmountRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"` // Amount to move
}

// CreateWalletHandler creates a wallet for a user (one wallet per user)
func CreateWalletHandler(wallets *service.WalletLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		// Open a zero-balance wallet
		wallet, err := wallets.CreateWallet(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		// Log successful wallet creation
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,    // User ID
			"wallet_id": wallet.ID, // Wallet ID
		}).Info("Wallet created")
		// Invalidate wallet cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			utils.InvalidateWalletCache(context.Background(), rdb, userID)
		}
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "Wallet created", "wallet": wallet})
	}
}

// GetWalletHandler returns wallet info for the authenticated user
func GetWalletHandler(wallets *service.WalletLedger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		ctx := context.Background()                               // Context for Redis operations
		cacheKey := "wallet:user:" + strconv.Itoa(int(userID))    // Cache key for wallet
		var wallet domain.Wallet                                  // Wallet struct to hold data
		found, err := utils.GetCache(ctx, rdb, cacheKey, &wallet) // Try to get from cache
		// If found in cache, return it
		if err == nil && found {
			// Return cached wallet
			c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": true})
			return
		}
		// If not in cache, fetch through the ledger
		w, err := wallets.GetWallet(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, w, 60*time.Second)  // Cache the wallet for 60 seconds
		c.JSON(http.StatusOK, gin.H{"wallet": w, "cached": false}) // Return wallet info
	}
}

// FundWalletHandler credits the authenticated user's own wallet
func FundWalletHandler(wallets *service.WalletLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var req AmountRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		// Credit the wallet and append the transaction atomically
		txn, err := wallets.Credit(c.Request.Context(), userID, req.Amount, "Wallet funding")
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		// Log successful funding
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,        // User ID
			"amount":    req.Amount,    // Funded amount
			"reference": txn.Reference, // Transaction reference
		}).Info("Wallet funded")
		// Invalidate wallet and transaction history cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			utils.InvalidateWalletCache(context.Background(), rdb, userID)
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Wallet funded", "transaction": txn})
	}
}

// WithdrawWalletHandler debits the authenticated user's own wallet
func WithdrawWalletHandler(wallets *service.WalletLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var req AmountRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		// Debit the wallet and append the transaction atomically; the funds
		// check is part of the same unit so an overdraft can never commit
		txn, err := wallets.Debit(c.Request.Context(), userID, req.Amount, "Wallet withdrawal")
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		// Log successful withdrawal
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,        // User ID
			"amount":    req.Amount,    // Withdrawn amount
			"reference": txn.Reference, // Transaction reference
		}).Info("Wallet withdrawal")
		// Invalidate wallet and transaction history cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			utils.InvalidateWalletCache(context.Background(), rdb, userID)
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Withdrawal successful", "transaction": txn})
	}
}

// GetTransactionHistoryHandler returns the authenticated user's transactions
func GetTransactionHistoryHandler(wallets *service.WalletLedger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		// If page exists in query
		if p := c.Query("page"); p != "" {
			// Convert page to integer
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// If page_size exists in query
		if ps := c.Query("page_size"); ps != "" {
			// Convert page_size to integer
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size if valid
			}
		}
		// Redis cache key
		cacheKey := "txhistory:user:" + strconv.Itoa(int(userID)) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		ctx := context.Background() // Context for Redis operations
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total transactions
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}
		// Try to get from cache
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,
			})
			return
		}
		// Fetch through the ledger, newest first
		txns, total, err := wallets.ListTransactions(c.Request.Context(), userID, page, pageSize)
		if err != nil {
			respondError(c, err) // Translate core error to HTTP
			return
		}
		// Calculate total pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"transactions": txns,       // List of transactions
			"page":         page,       // Current page
			"page_size":    pageSize,   // Page size
			"total":        total,      // Total transactions
			"total_pages":  totalPages, // Total pages
			"cached":       false,      // Not from cache
		}
		// Cache the result for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp) // Return transaction history
	}
}
