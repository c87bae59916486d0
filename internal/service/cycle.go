package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ajo_system/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CycleEngine orchestrates one rotation of an active group: contribution
// collection, completeness checking, payout-recipient selection, payout
// execution and cycle-counter advancement. It is the only component that
// touches the wallet ledger, the membership registry, the lifecycle and the
// group ledger together, and every call commits as one unit or not at all.
type CycleEngine struct {
	db        *gorm.DB         // Database handle
	wallets   *WalletLedger    // Funds contributions, receives payouts
	lifecycle *GroupLifecycle  // Flips the group to completed
	nowFn     func() time.Time // Clock for payout dates, injectable in tests
}

// NewCycleEngine creates a cycle engine over the given collaborators
func NewCycleEngine(db *gorm.DB, wallets *WalletLedger, lifecycle *GroupLifecycle) *CycleEngine {
	return &CycleEngine{db: db, wallets: wallets, lifecycle: lifecycle, nowFn: time.Now}
}

// Contribute debits the member's wallet by the group's contribution amount
// and appends a contribution ledger entry for the pending cycle. The debit
// and the ledger append commit together: a failed debit never produces an
// entry, and a duplicate entry rolls the debit back.
func (e *CycleEngine) Contribute(ctx context.Context, groupID, userID uint) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group domain.Group
		if err := tx.First(&group, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &Error{Kind: KindNotFound, Message: fmt.Sprintf("group %d not found", groupID), GroupID: groupID}
			}
			return fmt.Errorf("load group: %w", err)
		}
		if group.Status != domain.GroupActive {
			return &Error{Kind: KindGroupNotActive, Message: "group is not active", GroupID: groupID}
		}
		var isMember int64
		if err := tx.Model(&domain.Member{}).Where("group_id = ? AND user_id = ?", groupID, userID).Count(&isMember).Error; err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if isMember == 0 {
			return &Error{Kind: KindNotAMember, Message: "you are not a member of this group", GroupID: groupID, UserID: userID}
		}
		target := group.CurrentCycle + 1 // The cycle contributions are being collected for
		var existing int64
		if err := tx.Model(&domain.LedgerEntry{}).
			Where("group_id = ? AND user_id = ? AND cycle_number = ? AND movement = ?",
				groupID, userID, target, domain.MovementContribution).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("check contribution: %w", err)
		}
		if existing > 0 {
			return &Error{Kind: KindAlreadyContributed, Message: "you have already contributed to this cycle", GroupID: groupID, UserID: userID, Cycle: target}
		}
		// Debit first so a failed debit never produces a ledger entry
		description := fmt.Sprintf("Ajo contribution to %s - Cycle %d", group.Title, target)
		if _, err := e.wallets.debit(tx, userID, group.ContributionAmount, description, "CONTRIB"); err != nil {
			// The wallet only knows the user; fill in which group and cycle
			// the failed contribution was for
			var se *Error
			if errors.As(err, &se) {
				se.GroupID = groupID
				se.Cycle = target
			}
			return err
		}
		entry = &domain.LedgerEntry{
			GroupID:     groupID,                     // Group receiving the contribution
			UserID:      userID,                      // Contributing member
			CycleNumber: target,                      // Pending cycle
			Movement:    domain.MovementContribution, // Money into the pool
			Amount:      group.ContributionAmount,    // Fixed per-cycle amount
		}
		if err := tx.Create(entry).Error; err != nil {
			// The composite unique index is the atomic guard: the losing half
			// of a concurrent duplicate rolls back here, debit included
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &Error{Kind: KindAlreadyContributed, Message: "you have already contributed to this cycle", GroupID: groupID, UserID: userID, Cycle: target}
			}
			return fmt.Errorf("record contribution: %w", err)
		}
		// Re-validate the cycle counter at commit time. If an advancement
		// slipped in after the status read, this contribution would land on a
		// cycle that was already paid out, so the whole unit rolls back. The
		// guarded update takes the group's row lock and re-reads the latest
		// committed counter.
		res := tx.Model(&domain.Group{}).
			Where("id = ? AND current_cycle = ?", groupID, group.CurrentCycle).
			Update("updated_at", e.nowFn().UnixMilli())
		if res.Error != nil {
			return fmt.Errorf("revalidate cycle: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &Error{Kind: KindAlreadyAdvanced, Message: "cycle advanced while contributing, retry", GroupID: groupID, UserID: userID, Cycle: target}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"group_id": groupID, // Group contributed to
		"user_id":  userID,  // Contributing member
		"cycle":    entry.CycleNumber,
		"amount":   entry.Amount, // Amount moved into the pool
	}).Info("Contribution recorded")
	return entry, nil
}

// AdvanceCycle pays out the pending cycle once every member has contributed.
// Only the owner may advance. Recipient selection is FIFO by position: the
// first member in ascending position order with no prior payout from this
// group. Creating the cycle row, appending the payout entry, crediting the
// recipient, bumping the counter and possibly completing the group all commit
// as one unit per group.
func (e *CycleEngine) AdvanceCycle(ctx context.Context, groupID, requesterID uint) (*domain.Cycle, error) {
	var cycle *domain.Cycle
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Exclusive lock on the group row serializes advancement per group
		group, err := lockGroup(tx, groupID)
		if err != nil {
			return err
		}
		if group.OwnerID != requesterID {
			return &Error{Kind: KindNotOwner, Message: "only the group owner can advance cycles", GroupID: groupID, UserID: requesterID}
		}
		if group.Status != domain.GroupActive {
			return &Error{Kind: KindGroupNotActive, Message: "group is not active", GroupID: groupID}
		}
		target := group.CurrentCycle + 1 // The cycle being paid out

		var members []domain.Member
		if err := tx.Where("group_id = ?", groupID).Order("position asc").Find(&members).Error; err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		if len(members) == 0 {
			return &Error{Kind: KindIncompleteCycle, Message: "group has no members", GroupID: groupID, Cycle: target}
		}
		var contributorIDs []uint
		if err := tx.Model(&domain.LedgerEntry{}).
			Where("group_id = ? AND cycle_number = ? AND movement = ?", groupID, target, domain.MovementContribution).
			Pluck("user_id", &contributorIDs).Error; err != nil {
			return fmt.Errorf("list contributions: %w", err)
		}
		// Set difference, not a count comparison: every current member must
		// have a contribution entry for the target cycle
		contributed := make(map[uint]bool, len(contributorIDs))
		for _, id := range contributorIDs {
			contributed[id] = true
		}
		for _, m := range members {
			if !contributed[m.UserID] {
				return &Error{Kind: KindIncompleteCycle, Message: "not all members have contributed to this cycle", GroupID: groupID, UserID: m.UserID, Cycle: target}
			}
		}

		// FIFO rotation: first member by position with no payout yet
		var paidIDs []uint
		if err := tx.Model(&domain.LedgerEntry{}).
			Where("group_id = ? AND movement = ?", groupID, domain.MovementPayout).
			Pluck("user_id", &paidIDs).Error; err != nil {
			return fmt.Errorf("list payouts: %w", err)
		}
		paid := make(map[uint]bool, len(paidIDs))
		for _, id := range paidIDs {
			paid[id] = true
		}
		recipient := members[0]
		for _, m := range members {
			if !paid[m.UserID] {
				recipient = m
				break
			}
		}

		payoutAmount := group.ContributionAmount * float64(len(members))
		cycle = &domain.Cycle{
			GroupID:      groupID,          // Group being advanced
			CycleNumber:  target,           // Rotation index paid
			PayoutUserID: recipient.UserID, // FIFO recipient
			PaidOut:      true,             // Payout issued in this same unit
			PayoutAmount: payoutAmount,     // contribution_amount x member_count
			PayoutDate:   e.nowFn(),        // Clock, injectable in tests
		}
		if err := tx.Create(cycle).Error; err != nil {
			// Unique (group_id, cycle_number) index: a racer that slipped past
			// the lock can never commit a second payout for the same cycle
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &Error{Kind: KindAlreadyAdvanced, Message: "cycle has already been advanced", GroupID: groupID, Cycle: target}
			}
			return fmt.Errorf("create cycle: %w", err)
		}
		payout := &domain.LedgerEntry{
			GroupID:     groupID,               // Group paying out
			UserID:      recipient.UserID,      // Recipient member
			CycleNumber: target,                // Cycle paid
			Movement:    domain.MovementPayout, // Money out of the pool
			Amount:      payoutAmount,          // Full pool
		}
		if err := tx.Create(payout).Error; err != nil {
			return fmt.Errorf("record payout: %w", err)
		}
		description := fmt.Sprintf("Ajo payout from %s - Cycle %d", group.Title, target)
		if _, err := e.wallets.credit(tx, recipient.UserID, payoutAmount, description, "PAYOUT"); err != nil {
			return err
		}
		// Guarded counter bump re-validates current_cycle at commit time
		res := tx.Model(&domain.Group{}).
			Where("id = ? AND current_cycle = ?", groupID, group.CurrentCycle).
			Update("current_cycle", target)
		if res.Error != nil {
			return fmt.Errorf("advance counter: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &Error{Kind: KindAlreadyAdvanced, Message: "cycle has already been advanced", GroupID: groupID, Cycle: target}
		}
		// The group retires once every member has received exactly one payout
		var recipients int64
		if err := tx.Model(&domain.LedgerEntry{}).
			Where("group_id = ? AND movement = ?", groupID, domain.MovementPayout).
			Distinct("user_id").Count(&recipients).Error; err != nil {
			return fmt.Errorf("count payouts: %w", err)
		}
		if recipients >= int64(len(members)) {
			if err := e.lifecycle.Complete(tx, groupID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"group_id":  groupID,            // Group advanced
		"cycle":     cycle.CycleNumber,  // Cycle paid out
		"recipient": cycle.PayoutUserID, // Payout recipient
		"amount":    cycle.PayoutAmount, // Pool paid out
	}).Info("Cycle advanced")
	return cycle, nil
}

// ListCycles returns the group's cycles ordered by cycle number
func (e *CycleEngine) ListCycles(ctx context.Context, groupID uint) ([]domain.Cycle, error) {
	var cycles []domain.Cycle
	if err := e.db.WithContext(ctx).Where("group_id = ?", groupID).Order("cycle_number asc").Find(&cycles).Error; err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	return cycles, nil
}

// ListLedger returns the group's ledger entries, newest first
func (e *CycleEngine) ListLedger(ctx context.Context, groupID uint) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	if err := e.db.WithContext(ctx).Where("group_id = ?", groupID).Order("created_at desc, id desc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return entries, nil
}
