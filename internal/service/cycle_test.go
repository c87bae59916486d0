package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"ajo_system/internal/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestEngine(db *gorm.DB) (*WalletLedger, *GroupLifecycle, *CycleEngine) {
	wallets := NewWalletLedger(db)
	lifecycle := NewGroupLifecycle(db, NewKYCVerifier(db))
	return wallets, lifecycle, NewCycleEngine(db, wallets, lifecycle)
}

// totalBalance sums every wallet, used to check money conservation
func totalBalance(t *testing.T, db *gorm.DB) float64 {
	t.Helper()
	var sum float64
	require.NoError(t, db.Model(&domain.Wallet{}).Select("COALESCE(SUM(balance), 0)").Scan(&sum).Error)
	return sum
}

func TestTwoMemberGroupFullRotation(t *testing.T) {
	db := newTestDB(t)
	_, lifecycle, engine := newTestEngine(db)
	members := NewMembershipRegistry(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner@example.com", domain.KYCVerified, 5000)
	friend := newTestUser(t, db, "friend@example.com", domain.KYCUnverified, 5000)

	group := newTestGroup(t, db, owner.ID, 1000)
	_, err := members.AddMember(ctx, group.ID, friend.ID)
	require.NoError(t, err)
	require.NoError(t, lifecycle.StartGroup(ctx, group.ID, owner.ID))

	before := totalBalance(t, db)

	// Cycle 1: both contribute, owner (position 1) receives the pool
	_, err = engine.Contribute(ctx, group.ID, owner.ID)
	require.NoError(t, err)
	_, err = engine.Contribute(ctx, group.ID, friend.ID)
	require.NoError(t, err)

	cycle, err := engine.AdvanceCycle(ctx, group.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, 1, cycle.CycleNumber)
	require.Equal(t, owner.ID, cycle.PayoutUserID)
	require.Equal(t, float64(2000), cycle.PayoutAmount)
	require.True(t, cycle.PaidOut)

	// Owner paid 1000 in and got 2000 back, friend paid 1000 in
	require.Equal(t, float64(6000), balanceOf(t, db, owner.ID))
	require.Equal(t, float64(4000), balanceOf(t, db, friend.ID))

	// Cycle 2: friend is the first unpaid member by position
	_, err = engine.Contribute(ctx, group.ID, owner.ID)
	require.NoError(t, err)
	_, err = engine.Contribute(ctx, group.ID, friend.ID)
	require.NoError(t, err)

	cycle, err = engine.AdvanceCycle(ctx, group.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, 2, cycle.CycleNumber)
	require.Equal(t, friend.ID, cycle.PayoutUserID)

	// Everyone has been paid once, so the group retires
	reloaded, err := lifecycle.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, domain.GroupCompleted, reloaded.Status)
	require.Equal(t, 2, reloaded.CurrentCycle)

	// current_cycle matches the number of paid-out cycle rows
	cycles, err := engine.ListCycles(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, cycles, reloaded.CurrentCycle)

	// Contributions and payouts cancel out: no money minted or destroyed
	require.Equal(t, before, totalBalance(t, db))
	require.Equal(t, float64(5000), balanceOf(t, db, owner.ID))
	require.Equal(t, float64(5000), balanceOf(t, db, friend.ID))

	// 4 contributions + 2 payouts in the group ledger
	entries, err := engine.ListLedger(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, entries, 6)
}

func TestPrematureAdvanceLeavesNoTrace(t *testing.T) {
	db := newTestDB(t)
	_, lifecycle, engine := newTestEngine(db)
	members := NewMembershipRegistry(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner@example.com", domain.KYCVerified, 5000)
	friend := newTestUser(t, db, "friend@example.com", domain.KYCUnverified, 5000)
	group := newTestGroup(t, db, owner.ID, 1000)
	_, err := members.AddMember(ctx, group.ID, friend.ID)
	require.NoError(t, err)
	require.NoError(t, lifecycle.StartGroup(ctx, group.ID, owner.ID))

	// Only the owner contributes
	_, err = engine.Contribute(ctx, group.ID, owner.ID)
	require.NoError(t, err)

	_, err = engine.AdvanceCycle(ctx, group.ID, owner.ID)
	require.True(t, IsKind(err, KindIncompleteCycle))

	// No cycle row, no payout, no balance change, counter untouched
	cycles, err := engine.ListCycles(ctx, group.ID)
	require.NoError(t, err)
	require.Empty(t, cycles)

	var payouts int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).
		Where("group_id = ? AND movement = ?", group.ID, domain.MovementPayout).Count(&payouts).Error)
	require.Equal(t, int64(0), payouts)

	require.Equal(t, float64(4000), balanceOf(t, db, owner.ID))
	require.Equal(t, float64(5000), balanceOf(t, db, friend.ID))

	reloaded, err := lifecycle.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, 0, reloaded.CurrentCycle)
	require.Equal(t, domain.GroupActive, reloaded.Status)
}

func TestOverdraftContributionLeavesNoEntry(t *testing.T) {
	db := newTestDB(t)
	_, lifecycle, engine := newTestEngine(db)
	members := NewMembershipRegistry(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner@example.com", domain.KYCVerified, 5000)
	broke := newTestUser(t, db, "broke@example.com", domain.KYCUnverified, 300)
	group := newTestGroup(t, db, owner.ID, 1000)
	_, err := members.AddMember(ctx, group.ID, broke.ID)
	require.NoError(t, err)
	require.NoError(t, lifecycle.StartGroup(ctx, group.ID, owner.ID))

	_, err = engine.Contribute(ctx, group.ID, broke.ID)
	require.True(t, IsKind(err, KindInsufficientFunds))

	// The error names the group and cycle the failed contribution was for
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, group.ID, se.GroupID)
	require.Equal(t, broke.ID, se.UserID)
	require.Equal(t, 1, se.Cycle)

	// The failed debit rolled back: no ledger entry, no transaction, balance kept
	entries, err := engine.ListLedger(ctx, group.ID)
	require.NoError(t, err)
	require.Empty(t, entries)

	var txns int64
	require.NoError(t, db.Model(&domain.Transaction{}).
		Where("user_id = ? AND type = ?", broke.ID, domain.TransactionDebit).Count(&txns).Error)
	require.Equal(t, int64(0), txns)
	require.Equal(t, float64(300), balanceOf(t, db, broke.ID))
}

func TestDuplicateContributionRejected(t *testing.T) {
	db := newTestDB(t)
	_, lifecycle, engine := newTestEngine(db)
	members := NewMembershipRegistry(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner@example.com", domain.KYCVerified, 5000)
	friend := newTestUser(t, db, "friend@example.com", domain.KYCUnverified, 5000)
	group := newTestGroup(t, db, owner.ID, 1000)
	_, err := members.AddMember(ctx, group.ID, friend.ID)
	require.NoError(t, err)
	require.NoError(t, lifecycle.StartGroup(ctx, group.ID, owner.ID))

	_, err = engine.Contribute(ctx, group.ID, owner.ID)
	require.NoError(t, err)
	_, err = engine.Contribute(ctx, group.ID, owner.ID)
	require.True(t, IsKind(err, KindAlreadyContributed))

	// Only the first debit landed
	require.Equal(t, float64(4000), balanceOf(t, db, owner.ID))
}

func TestCycleMovementsCarryOwnReferences(t *testing.T) {
	db := newTestDB(t)
	_, lifecycle, engine := newTestEngine(db)
	members := NewMembershipRegistry(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner@example.com", domain.KYCVerified, 5000)
	friend := newTestUser(t, db, "friend@example.com", domain.KYCUnverified, 5000)
	group := newTestGroup(t, db, owner.ID, 1000)
	_, err := members.AddMember(ctx, group.ID, friend.ID)
	require.NoError(t, err)
	require.NoError(t, lifecycle.StartGroup(ctx, group.ID, owner.ID))

	for _, userID := range []uint{owner.ID, friend.ID} {
		_, err = engine.Contribute(ctx, group.ID, userID)
		require.NoError(t, err)
	}
	_, err = engine.AdvanceCycle(ctx, group.ID, owner.ID)
	require.NoError(t, err)

	// Contribution debits and payout credits are distinguishable from plain
	// wallet fund/withdraw movements by their reference prefix
	var debits []domain.Transaction
	require.NoError(t, db.Where("type = ?", domain.TransactionDebit).Find(&debits).Error)
	require.Len(t, debits, 2)
	for _, txn := range debits {
		require.True(t, strings.HasPrefix(txn.Reference, "CONTRIB-"), txn.Reference)
	}

	var payout domain.Transaction
	require.NoError(t, db.Where("user_id = ? AND type = ? AND amount = ?",
		owner.ID, domain.TransactionCredit, float64(2000)).First(&payout).Error)
	require.True(t, strings.HasPrefix(payout.Reference, "PAYOUT-"), payout.Reference)
}

func TestContributeRequiresActiveGroup(t *testing.T) {
	db := newTestDB(t)
	_, _, engine := newTestEngine(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner@example.com", domain.KYCVerified, 5000)
	group := newTestGroup(t, db, owner.ID, 1000)

	// Group is still in draft
	_, err := engine.Contribute(ctx, group.ID, owner.ID)
	require.True(t, IsKind(err, KindGroupNotActive))
	require.Equal(t, float64(5000), balanceOf(t, db, owner.ID))
}

func TestContributeRequiresMembership(t *testing.T) {
	db := newTestDB(t)
	_, lifecycle, engine := newTestEngine(db)
	members := NewMembershipRegistry(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner@example.com", domain.KYCVerified, 5000)
	friend := newTestUser(t, db, "friend@example.com", domain.KYCUnverified, 5000)
	stranger := newTestUser(t, db, "stranger@example.com", domain.KYCUnverified, 5000)
	group := newTestGroup(t, db, owner.ID, 1000)
	_, err := members.AddMember(ctx, group.ID, friend.ID)
	require.NoError(t, err)
	require.NoError(t, lifecycle.StartGroup(ctx, group.ID, owner.ID))

	_, err = engine.Contribute(ctx, group.ID, stranger.ID)
	require.True(t, IsKind(err, KindNotAMember))
}

func TestAdvanceCycleOnlyOwner(t *testing.T) {
	db := newTestDB(t)
	_, lifecycle, engine := newTestEngine(db)
	members := NewMembershipRegistry(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner@example.com", domain.KYCVerified, 5000)
	friend := newTestUser(t, db, "friend@example.com", domain.KYCUnverified, 5000)
	group := newTestGroup(t, db, owner.ID, 1000)
	_, err := members.AddMember(ctx, group.ID, friend.ID)
	require.NoError(t, err)
	require.NoError(t, lifecycle.StartGroup(ctx, group.ID, owner.ID))

	for _, userID := range []uint{owner.ID, friend.ID} {
		_, err = engine.Contribute(ctx, group.ID, userID)
		require.NoError(t, err)
	}

	_, err = engine.AdvanceCycle(ctx, group.ID, friend.ID)
	require.True(t, IsKind(err, KindNotOwner))
}

func TestRotationFollowsPositionsWithGaps(t *testing.T) {
	db := newTestDB(t)
	_, lifecycle, engine := newTestEngine(db)
	members := NewMembershipRegistry(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner@example.com", domain.KYCVerified, 10000)
	second := newTestUser(t, db, "second@example.com", domain.KYCUnverified, 10000)
	third := newTestUser(t, db, "third@example.com", domain.KYCUnverified, 10000)
	fourth := newTestUser(t, db, "fourth@example.com", domain.KYCUnverified, 10000)

	group := newTestGroup(t, db, owner.ID, 500)
	for _, u := range []*domain.User{second, third} {
		_, err := members.AddMember(ctx, group.ID, u.ID)
		require.NoError(t, err)
	}
	// Position 2 leaves in draft, leaving positions 1, 3; the late joiner
	// takes position 4, so the rotation runs owner, third, fourth
	require.NoError(t, members.RemoveMember(ctx, group.ID, second.ID))
	_, err := members.AddMember(ctx, group.ID, fourth.ID)
	require.NoError(t, err)
	require.NoError(t, lifecycle.StartGroup(ctx, group.ID, owner.ID))

	wantOrder := []uint{owner.ID, third.ID, fourth.ID}
	for i, want := range wantOrder {
		for _, u := range []*domain.User{owner, third, fourth} {
			_, err := engine.Contribute(ctx, group.ID, u.ID)
			require.NoError(t, err)
		}
		cycle, err := engine.AdvanceCycle(ctx, group.ID, owner.ID)
		require.NoError(t, err)
		require.Equal(t, i+1, cycle.CycleNumber)
		require.Equal(t, want, cycle.PayoutUserID)
	}

	// One payout per member over the whole rotation, then the group retires
	var recipients int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).
		Where("group_id = ? AND movement = ?", group.ID, domain.MovementPayout).
		Distinct("user_id").Count(&recipients).Error)
	require.Equal(t, int64(3), recipients)

	reloaded, err := lifecycle.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, domain.GroupCompleted, reloaded.Status)
}

func TestConcurrentAdvanceExactlyOnePayout(t *testing.T) {
	db := newTestDB(t)
	_, lifecycle, engine := newTestEngine(db)
	members := NewMembershipRegistry(db)
	ctx := context.Background()

	owner := newTestUser(t, db, "owner@example.com", domain.KYCVerified, 5000)
	friend := newTestUser(t, db, "friend@example.com", domain.KYCUnverified, 5000)
	group := newTestGroup(t, db, owner.ID, 1000)
	_, err := members.AddMember(ctx, group.ID, friend.ID)
	require.NoError(t, err)
	require.NoError(t, lifecycle.StartGroup(ctx, group.ID, owner.ID))

	for _, userID := range []uint{owner.ID, friend.ID} {
		_, err = engine.Contribute(ctx, group.ID, userID)
		require.NoError(t, err)
	}

	// Two racing advances: exactly one pays out cycle 1, the loser is turned
	// away either by the re-read counter or the unique cycle index
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.AdvanceCycle(ctx, group.ID, owner.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, IsKind(err, KindAlreadyAdvanced) || IsKind(err, KindIncompleteCycle),
				"unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)

	// One cycle row, one payout entry, one credit
	cycles, err := engine.ListCycles(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, cycles, 1)

	var payouts int64
	require.NoError(t, db.Model(&domain.LedgerEntry{}).
		Where("group_id = ? AND movement = ?", group.ID, domain.MovementPayout).Count(&payouts).Error)
	require.Equal(t, int64(1), payouts)

	require.Equal(t, float64(6000), balanceOf(t, db, owner.ID))

	reloaded, err := lifecycle.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.CurrentCycle)
}
