package service

import (
	"errors"
)

// Kind identifies one business-rule violation. The set is closed: every
// operation in this package fails with exactly one of these kinds, so callers
// can handle each case exhaustively instead of matching on message text.
type Kind string

// Business error kinds
const (
	KindInvalidAmount       Kind = "invalid_amount"       // Amount must be positive
	KindKYCRequired         Kind = "kyc_required"         // Owner is not KYC verified
	KindNotOwner            Kind = "not_owner"            // Operation reserved for the group owner
	KindAlreadyStarted      Kind = "already_started"      // Group has left draft status
	KindInsufficientMembers Kind = "insufficient_members" // Fewer than two members at start
	KindGroupNotJoinable    Kind = "group_not_joinable"   // Membership frozen outside draft status
	KindAlreadyMember       Kind = "already_member"       // User already holds a member row
	KindOwnerCannotLeave    Kind = "owner_cannot_leave"   // Owner may not leave their own group
	KindGroupNotActive      Kind = "group_not_active"     // Cycle operations need an active group
	KindNotAMember          Kind = "not_a_member"         // User is not in the group
	KindAlreadyContributed  Kind = "already_contributed"  // Duplicate contribution for the cycle
	KindAlreadyAdvanced     Kind = "already_advanced"     // Cycle was advanced by a concurrent call
	KindIncompleteCycle     Kind = "incomplete_cycle"     // Not every member has contributed
	KindInsufficientFunds   Kind = "insufficient_funds"   // Debit exceeds the wallet balance
	KindWalletExists        Kind = "wallet_exists"        // One wallet per user
	KindUnauthorized        Kind = "unauthorized"         // Caller identity missing or mismatched
	KindNotFound            Kind = "not_found"            // Referenced row does not exist
)

// Error is the typed error returned for every business-rule violation. It
// carries the group, user and cycle involved so callers can render an
// actionable message. Zero fields mean "not applicable".
type Error struct {
	Kind    Kind   // Which rule was violated
	Message string // Human-readable description
	GroupID uint   // Group involved, if any
	UserID  uint   // User involved, if any
	Cycle   int    // Cycle number involved, if any
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// KindOf extracts the Kind from err, or "" when err is not a business error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsKind reports whether err is a business error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
