package db

import (
	"ajo_system/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
)

// Open connects to the database. TranslateError is on so unique-index
// violations surface as gorm.ErrDuplicatedKey, which the service layer relies
// on for its atomic duplicate guards.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
}

// Migrate performs automatic migration for the database schema
func Migrate(dsn string) {
	db, err := Open(dsn) // Open a connection to the database
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	err = db.AutoMigrate(
		&domain.User{},        // Accounts and KYC status
		&domain.Wallet{},      // Per-user balances
		&domain.Transaction{}, // Wallet movement log
		&domain.Group{},       // Ajo groups
		&domain.Member{},      // Group membership and positions
		&domain.Cycle{},       // Payout records
		&domain.LedgerEntry{}, // Group contribution/payout ledger
	)
	if err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
	logrus.Info("Migration completed.") // Log successful migration
}
