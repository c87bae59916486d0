package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"ajo_system/internal/api"        // Custom package for API handlers
	"ajo_system/internal/config"     // Custom package for configuration
	"ajo_system/internal/db"         // Custom package for database access
	"ajo_system/internal/middleware" // Custom package for middleware
	"ajo_system/internal/service"    // Custom package for the core services

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	gormDB, err := db.Open(dsn)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Build the core services
	wallets := service.NewWalletLedger(gormDB)                   // Wallet ledger
	members := service.NewMembershipRegistry(gormDB)             // Membership registry
	verifier := service.NewKYCVerifier(gormDB)                   // KYC gate
	lifecycle := service.NewGroupLifecycle(gormDB, verifier)     // Group state machine
	engine := service.NewCycleEngine(gormDB, wallets, lifecycle) // Cycle orchestrator

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(gormDB))            // Registration endpoint
	r.GET("/user", api.LoginHandler(gormDB, cfg.JWTSecret)) // Login endpoint

	// Middleware that injects the Redis client into the request context
	withRedis := func(c *gin.Context) {
		c.Set("redisClient", redisClient)
		c.Next()
	}

	// Profile routes (protected by JWT)
	profileGroup := r.Group("/profile")
	profileGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	profileGroup.GET("", api.GetProfileHandler(gormDB))     // Get profile endpoint
	profileGroup.PUT("", api.UpdateProfileHandler(gormDB))  // Update profile endpoint
	profileGroup.POST("/kyc", api.SubmitKYCHandler(gormDB)) // Submit KYC endpoint

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	// Protect wallet routes with JWT middleware and inject Redis client into context
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), withRedis)
	walletGroup.POST("", api.CreateWalletHandler(wallets))                                   // Create wallet endpoint
	walletGroup.GET("", api.GetWalletHandler(wallets, redisClient))                          // Get wallet endpoint
	walletGroup.POST("/fund", api.FundWalletHandler(wallets))                                // Fund endpoint
	walletGroup.POST("/withdraw", api.WithdrawWalletHandler(wallets))                        // Withdraw endpoint
	walletGroup.GET("/transactions", api.GetTransactionHistoryHandler(wallets, redisClient)) // Transaction history endpoint

	// Ajo group routes (protected by JWT)
	ajoGroup := r.Group("/groups")
	// Protect group routes with JWT middleware and inject Redis client into context
	ajoGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), withRedis)
	ajoGroup.POST("", api.CreateGroupHandler(lifecycle))                               // Create group endpoint
	ajoGroup.GET("", api.ListGroupsHandler(lifecycle))                                 // List own groups endpoint
	ajoGroup.GET("/:id", api.GetGroupHandler(lifecycle, members, engine, redisClient)) // Group details endpoint
	ajoGroup.POST("/:id/join", api.JoinGroupHandler(members))                          // Join endpoint
	ajoGroup.POST("/:id/leave", api.LeaveGroupHandler(members))                        // Leave endpoint
	ajoGroup.POST("/:id/members", api.AddMemberHandler(gormDB, lifecycle, members))    // Owner invite endpoint
	ajoGroup.POST("/:id/start", api.StartGroupHandler(lifecycle))                      // Start endpoint
	ajoGroup.POST("/:id/contribute", api.ContributeHandler(engine))                    // Contribute endpoint
	ajoGroup.POST("/:id/advance", api.AdvanceCycleHandler(engine))                     // Advance cycle endpoint
	ajoGroup.GET("/:id/cycles", api.ListCyclesHandler(engine))                         // Cycle history endpoint
	ajoGroup.GET("/:id/ledger", api.ListLedgerHandler(engine))                         // Ledger endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	// Protect admin routes with JWT and AdminOnly middleware
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(gormDB, cfg.AdminEmail))
	adminGroup.GET("/users", api.ListUsersHandler(gormDB, redisClient))               // List users endpoint
	adminGroup.GET("/transactions", api.ListTransactionsHandler(gormDB, redisClient)) // List transactions endpoint
	adminGroup.GET("/groups", api.AdminListGroupsHandler(gormDB))                     // List groups endpoint
	adminGroup.GET("/kyc/pending", api.PendingKYCHandler(gormDB))                     // Pending KYC endpoint
	adminGroup.POST("/kyc/approve", api.ApproveKYCHandler(gormDB))                    // Approve KYC endpoint
	adminGroup.POST("/kyc/reject", api.RejectKYCHandler(gormDB))                      // Reject KYC endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
