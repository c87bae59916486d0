package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"ajo_system/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestCreateWalletOnePerUser(t *testing.T) {
	db := newTestDB(t)
	wallets := NewWalletLedger(db)

	user := &domain.User{Email: "a@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	wallet, err := wallets.CreateWallet(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, float64(0), wallet.Balance)

	_, err = wallets.CreateWallet(context.Background(), user.ID)
	require.True(t, IsKind(err, KindWalletExists))
}

func TestCreditAndDebit(t *testing.T) {
	db := newTestDB(t)
	wallets := NewWalletLedger(db)
	user := newTestUser(t, db, "a@example.com", domain.KYCUnverified, 0)

	txn, err := wallets.Credit(context.Background(), user.ID, 500, "top up")
	require.NoError(t, err)
	require.Equal(t, domain.TransactionCredit, txn.Type)
	require.True(t, strings.HasPrefix(txn.Reference, "FUND-"))

	balance, err := wallets.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, float64(500), balance)

	txn, err = wallets.Debit(context.Background(), user.ID, 200, "spend")
	require.NoError(t, err)
	require.Equal(t, domain.TransactionDebit, txn.Type)
	require.True(t, strings.HasPrefix(txn.Reference, "WITHDRAW-"))

	balance, err = wallets.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, float64(300), balance)
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	wallets := NewWalletLedger(db)
	user := newTestUser(t, db, "a@example.com", domain.KYCUnverified, 100)

	for _, amount := range []float64{0, -10} {
		_, err := wallets.Credit(context.Background(), user.ID, amount, "bad")
		require.True(t, IsKind(err, KindInvalidAmount))
		_, err = wallets.Debit(context.Background(), user.ID, amount, "bad")
		require.True(t, IsKind(err, KindInvalidAmount))
	}
	// Balance untouched by rejected calls
	require.Equal(t, float64(100), balanceOf(t, db, user.ID))
}

func TestDebitInsufficientFunds(t *testing.T) {
	db := newTestDB(t)
	wallets := NewWalletLedger(db)
	user := newTestUser(t, db, "a@example.com", domain.KYCUnverified, 100)

	_, err := wallets.Debit(context.Background(), user.ID, 150, "too much")
	require.True(t, IsKind(err, KindInsufficientFunds))
	require.Equal(t, float64(100), balanceOf(t, db, user.ID))

	// A failed debit must not leave a transaction row behind
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).
		Where("user_id = ? AND type = ?", user.ID, domain.TransactionDebit).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestDebitWalletNotFound(t *testing.T) {
	db := newTestDB(t)
	wallets := NewWalletLedger(db)

	_, err := wallets.Debit(context.Background(), 999, 10, "ghost")
	require.True(t, IsKind(err, KindNotFound))
}

func TestConcurrentDebitsCannotOverdraw(t *testing.T) {
	db := newTestDB(t)
	wallets := NewWalletLedger(db)
	user := newTestUser(t, db, "a@example.com", domain.KYCUnverified, 1000)

	// Two debits of 600 against 1000: exactly one may succeed, the guard in
	// the conditional update rejects the other against the decremented balance
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = wallets.Debit(context.Background(), user.ID, 600, "race")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, IsKind(err, KindInsufficientFunds))
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, float64(400), balanceOf(t, db, user.ID))
}

func TestEveryBalanceChangeHasATransaction(t *testing.T) {
	db := newTestDB(t)
	wallets := NewWalletLedger(db)
	user := newTestUser(t, db, "a@example.com", domain.KYCUnverified, 0)

	_, err := wallets.Credit(context.Background(), user.ID, 300, "one")
	require.NoError(t, err)
	_, err = wallets.Debit(context.Background(), user.ID, 100, "two")
	require.NoError(t, err)

	var txns []domain.Transaction
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&txns).Error)
	require.Len(t, txns, 2)

	// Signed sum of the log reconciles with the stored balance
	var sum float64
	for _, txn := range txns {
		if txn.Type == domain.TransactionCredit {
			sum += txn.Amount
		} else {
			sum -= txn.Amount
		}
	}
	require.Equal(t, sum, balanceOf(t, db, user.ID))
}

func TestListTransactionsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	wallets := NewWalletLedger(db)
	user := newTestUser(t, db, "a@example.com", domain.KYCUnverified, 0)

	for _, desc := range []string{"first", "second", "third"} {
		_, err := wallets.Credit(context.Background(), user.ID, 10, desc)
		require.NoError(t, err)
	}

	txns, total, err := wallets.ListTransactions(context.Background(), user.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, txns, 3)
	require.Equal(t, "third", txns[0].Description)
	require.Equal(t, "first", txns[2].Description)

	// Pagination is restartable: page 2 with size 2 holds the oldest entry
	txns, total, err = wallets.ListTransactions(context.Background(), user.ID, 2, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, txns, 1)
	require.Equal(t, "first", txns[0].Description)
}
