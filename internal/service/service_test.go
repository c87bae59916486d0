package service

import (
	"context"
	"testing"
	"time"

	"ajo_system/internal/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory SQLite database. TranslateError is on
// so unique-index violations surface as gorm.ErrDuplicatedKey, matching the
// production MySQL setup. The connection pool is capped at one so concurrent
// test goroutines serialize the way SQLite's single writer would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.User{},
		&domain.Wallet{},
		&domain.Transaction{},
		&domain.Group{},
		&domain.Member{},
		&domain.Cycle{},
		&domain.LedgerEntry{},
	))
	return db
}

// newTestUser creates a user with the given KYC status and a funded wallet
func newTestUser(t *testing.T, db *gorm.DB, email, kycStatus string, balance float64) *domain.User {
	t.Helper()
	user := &domain.User{Email: email, Password: "x", FullName: email, KYCStatus: kycStatus}
	require.NoError(t, db.Create(user).Error)
	wallets := NewWalletLedger(db)
	_, err := wallets.CreateWallet(context.Background(), user.ID)
	require.NoError(t, err)
	if balance > 0 {
		_, err = wallets.Credit(context.Background(), user.ID, balance, "test funding")
		require.NoError(t, err)
	}
	return user
}

// newTestGroup creates a draft group through the lifecycle service
func newTestGroup(t *testing.T, db *gorm.DB, ownerID uint, amount float64) *domain.Group {
	t.Helper()
	lifecycle := NewGroupLifecycle(db, NewKYCVerifier(db))
	group, err := lifecycle.CreateGroup(context.Background(), ownerID, "Test Ajo", amount, domain.FrequencyMonthly, time.Now())
	require.NoError(t, err)
	return group
}

// balanceOf reads a user's wallet balance directly
func balanceOf(t *testing.T, db *gorm.DB, userID uint) float64 {
	t.Helper()
	var wallet domain.Wallet
	require.NoError(t, db.Where("user_id = ?", userID).First(&wallet).Error)
	return wallet.Balance
}
