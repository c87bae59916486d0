package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ajo_system/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WalletLedger owns per-user balances and the append-only transaction log
// backing them. Every balance change commits together with its Transaction
// row or not at all, and a debit can never drive a balance negative, even
// under concurrent calls: the sufficient-funds check and the decrement are a
// single conditional UPDATE guarded by the stored balance.
type WalletLedger struct {
	db    *gorm.DB                   // Database handle
	refFn func(prefix string) string // Unique reference generator for Transaction rows
}

// NewWalletLedger creates a wallet ledger with a UUID-based reference generator
func NewWalletLedger(db *gorm.DB) *WalletLedger {
	return &WalletLedger{
		db: db,
		refFn: func(prefix string) string {
			return prefix + "-" + strings.ToUpper(uuid.NewString())
		},
	}
}

// CreateWallet opens a zero-balance wallet for a user (one wallet per user)
func (w *WalletLedger) CreateWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	wallet := domain.Wallet{UserID: userID, Balance: 0}
	if err := w.db.WithContext(ctx).Create(&wallet).Error; err != nil {
		// The unique index on user_id rejects a second wallet
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &Error{Kind: KindWalletExists, Message: "wallet already exists", UserID: userID}
		}
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	return &wallet, nil
}

// GetWallet returns the user's wallet
func (w *WalletLedger) GetWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	if err := w.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &Error{Kind: KindNotFound, Message: "wallet not found", UserID: userID}
		}
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	return &wallet, nil
}

// GetBalance returns the user's current balance
func (w *WalletLedger) GetBalance(ctx context.Context, userID uint) (float64, error) {
	wallet, err := w.GetWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

// Credit atomically increases the balance and appends a credit Transaction
func (w *WalletLedger) Credit(ctx context.Context, userID uint, amount float64, description string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, &Error{Kind: KindInvalidAmount, Message: "amount must be positive", UserID: userID}
	}
	var txn *domain.Transaction
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = w.credit(tx, userID, amount, description, "FUND")
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Debit atomically decreases the balance and appends a debit Transaction.
// Fails with InsufficientFunds when the amount exceeds the current balance.
func (w *WalletLedger) Debit(ctx context.Context, userID uint, amount float64, description string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, &Error{Kind: KindInvalidAmount, Message: "amount must be positive", UserID: userID}
	}
	var txn *domain.Transaction
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		txn, err = w.debit(tx, userID, amount, description, "WITHDRAW")
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactions returns the user's transactions, newest first, paginated
func (w *WalletLedger) ListTransactions(ctx context.Context, userID uint, page, pageSize int) ([]domain.Transaction, int64, error) {
	var total int64
	query := w.db.WithContext(ctx).Model(&domain.Transaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}
	var txns []domain.Transaction
	offset := (page - 1) * pageSize // Calculate offset for pagination
	if err := query.Order("created_at desc, id desc").Offset(offset).Limit(pageSize).Find(&txns).Error; err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return txns, total, nil
}

// credit applies a balance increase inside the caller's transaction. The
// reference prefix names the kind of movement in the transaction log.
func (w *WalletLedger) credit(tx *gorm.DB, userID uint, amount float64, description, refPrefix string) (*domain.Transaction, error) {
	res := tx.Model(&domain.Wallet{}).Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return nil, fmt.Errorf("credit wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &Error{Kind: KindNotFound, Message: "wallet not found", UserID: userID}
	}
	txn := &domain.Transaction{
		UserID:      userID,                   // Wallet owner
		Type:        domain.TransactionCredit, // Credit movement
		Amount:      amount,                   // Amount credited
		Description: description,              // Why the money moved
		Reference:   w.refFn(refPrefix),       // Unique reference token
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("record credit: %w", err)
	}
	return txn, nil
}

// debit applies a balance decrease inside the caller's transaction. The
// guard "balance >= amount" is part of the UPDATE itself, so two racing
// debits cannot both pass the funds check against a stale balance.
func (w *WalletLedger) debit(tx *gorm.DB, userID uint, amount float64, description, refPrefix string) (*domain.Transaction, error) {
	res := tx.Model(&domain.Wallet{}).Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return nil, fmt.Errorf("debit wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Zero rows means either no wallet or not enough money; look at the
		// wallet to report the right kind
		var count int64
		if err := tx.Model(&domain.Wallet{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("debit wallet: %w", err)
		}
		if count == 0 {
			return nil, &Error{Kind: KindNotFound, Message: "wallet not found", UserID: userID}
		}
		return nil, &Error{Kind: KindInsufficientFunds, Message: "insufficient funds", UserID: userID}
	}
	txn := &domain.Transaction{
		UserID:      userID,                  // Wallet owner
		Type:        domain.TransactionDebit, // Debit movement
		Amount:      amount,                  // Amount debited
		Description: description,             // Why the money moved
		Reference:   w.refFn(refPrefix),      // Unique reference token
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("record debit: %w", err)
	}
	return txn, nil
}
