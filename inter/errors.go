// Package inter defines the core shared types of the pool fundraising and
// governance engines. Everything here is consumed by several packages:
//
//   - the shared failure taxonomy (this file)
//   - fixed-point percentage arithmetic (pct.go)
//   - the block-height clock abstraction (clock.go)
//   - the re-entrancy guard used by every state-mutating entry point (guard.go)
//
// The types are deliberately small: each engine package (sale, governance,
// vesting, ledger) builds its own state machine on top of these primitives.

package inter

import "errors"

// Failure taxonomy shared by every engine. All failures are synchronous and
// atomic: an operation either completes its writes or performs none.
// Callers decide whether to resubmit; nothing is retried internally.
var (
	// ErrInvalidParameters rejects bad construction-time input. Nothing is
	// written when it is returned.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrNotWhitelisted rejects a purchase from an account outside a
	// non-empty sale whitelist.
	ErrNotWhitelisted = errors.New("account not whitelisted")

	// ErrWrongState rejects an operation attempted outside its valid
	// lifecycle state (e.g. purchasing into a finished sale, voting on a
	// decided proposal).
	ErrWrongState = errors.New("wrong lifecycle state")

	// ErrPurchaseBound rejects a purchase below the per-account minimum or
	// above the per-account/hardcap maximum.
	ErrPurchaseBound = errors.New("purchase bound violation")

	// ErrNothingToRedeem is the no-op guard of Redeem: the account has no
	// outstanding purchase to refund. Not a logic error.
	ErrNothingToRedeem = errors.New("nothing to redeem")

	// ErrClaimNotAvailable is the no-op guard of Claim: the releasable
	// amount equals what was already claimed. Not a logic error.
	ErrClaimNotAvailable = errors.New("claim not available")

	// ErrZeroVotes rejects a ballot whose snapshot weight resolves to zero.
	ErrZeroVotes = errors.New("zero votes")

	// ErrAlreadyVoted rejects a second ballot by the same voter on the same
	// proposal. Ballots are immutable once cast.
	ErrAlreadyVoted = errors.New("already voted")

	// ErrReentrant rejects a re-entrant call chain into a state-mutating
	// entry point that is still executing.
	ErrReentrant = errors.New("reentrant call")

	// ErrServicePaused rejects every mutating operation while the global
	// pause latch is set. No state is altered.
	ErrServicePaused = errors.New("service paused")

	// ErrUnauthorized rejects an actor lacking the capability an operation
	// requires.
	ErrUnauthorized = errors.New("unauthorized")
)
