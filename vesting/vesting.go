// Package vesting implements the per-beneficiary, per-event vesting ledger:
// a reserved token amount that is released over block time without counting
// as spendable or votable balance before release.
//
// Reserved amounts are not minted. Claim mints the newly releasable portion
// to the beneficiary, so supply and vote-weight checkpoints only ever see
// released balances.
package vesting

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pool-core/inter"
	"github.com/rony4d/go-pool-core/ledger"
)

// EventID identifies the sale event a vesting entry belongs to. Entries are
// keyed by (event, beneficiary).
type EventID uint64

// Schedule describes how a reserved total releases over block time: a cliff
// share after cliffBlocks, then N equal spans of spanShare each. Shares are
// fixed-point percentages of the entry total over inter.PctDenom.
type Schedule struct {
	CliffBlocks  idx.Block
	CliffShare   inter.Pct
	Spans        uint32
	SpanDuration idx.Block
	SpanShare    inter.Pct
}

// Validate checks the schedule's internal consistency: shares within range,
// cumulative shares never exceeding 100%, and spans with a positive duration.
func (s Schedule) Validate() error {
	if !s.CliffShare.Valid() || !s.SpanShare.Valid() {
		return fmt.Errorf("%w: vesting share out of range", inter.ErrInvalidParameters)
	}
	if s.Spans > 0 && s.SpanDuration == 0 {
		return fmt.Errorf("%w: vesting span duration is zero", inter.ErrInvalidParameters)
	}
	total := uint64(s.CliffShare) + uint64(s.Spans)*uint64(s.SpanShare)
	if total > inter.PctDenom {
		return fmt.Errorf("%w: cumulative vesting shares exceed 100%%", inter.ErrInvalidParameters)
	}
	return nil
}

// complete reports whether the schedule releases the full total once every
// cliff and span has elapsed.
func (s Schedule) complete() bool {
	return uint64(s.CliffShare)+uint64(s.Spans)*uint64(s.SpanShare) >= inter.PctDenom
}

// Entry is one beneficiary's reservation under one event.
type Entry struct {
	Total    *big.Int
	Claimed  *big.Int
	Start    idx.Block
	Schedule Schedule
}

// Outstanding returns the still-unclaimed part of the reservation.
func (e *Entry) Outstanding() *big.Int {
	return new(big.Int).Sub(e.Total, e.Claimed)
}

// eventState holds the per-event schedule and claim gate.
type eventState struct {
	schedule Schedule
	// gateOpen is a one-way latch: once true it never reverts. Events
	// configured without a gate condition start pre-satisfied.
	gateOpen bool
	entries  map[common.Address]*Entry
}

// Ledger tracks vesting entries across all events of one token.
type Ledger struct {
	log   logrus.FieldLogger
	clock inter.Clock
	token *ledger.Token

	events map[EventID]*eventState
}

// New creates an empty vesting ledger that mints released amounts on the
// given token.
func New(clock inter.Clock, log logrus.FieldLogger, token *ledger.Token) *Ledger {
	return &Ledger{
		log:    log.WithField("module", "vesting"),
		clock:  clock,
		token:  token,
		events: make(map[EventID]*eventState),
	}
}

// Configure registers an event's schedule. gated=true leaves the claim gate
// shut until OpenGate; gated=false (no gate condition) starts pre-satisfied.
// Configuring the same event twice is an error: mixing accounting strategies
// within one event would double-count reserved supply.
func (l *Ledger) Configure(ev EventID, sched Schedule, gated bool) error {
	if err := sched.Validate(); err != nil {
		return err
	}
	if _, ok := l.events[ev]; ok {
		return fmt.Errorf("%w: vesting already configured for event %d", inter.ErrInvalidParameters, ev)
	}
	l.events[ev] = &eventState{
		schedule: sched,
		gateOpen: !gated,
		entries:  make(map[common.Address]*Entry),
	}
	return nil
}

// Configured reports whether the event already carries a schedule.
func (l *Ledger) Configured(ev EventID) bool {
	_, ok := l.events[ev]
	return ok
}

// OpenGate sets the event's claim gate. The gate is a one-way latch; opening
// an already-open gate is a no-op.
func (l *Ledger) OpenGate(ev EventID) {
	if st, ok := l.events[ev]; ok && !st.gateOpen {
		st.gateOpen = true
		l.log.WithField("event", ev).Info("vesting claim gate opened")
	}
}

// GateOpen reports whether the event's claim gate is satisfied.
func (l *Ledger) GateOpen(ev EventID) bool {
	st, ok := l.events[ev]
	return ok && st.gateOpen
}

// Credit adds a vested remainder from a purchase to the beneficiary's entry,
// creating the entry on first credit. The schedule clock of an entry starts
// at its first credit.
func (l *Ledger) Credit(ev EventID, beneficiary common.Address, amount *big.Int) error {
	st, ok := l.events[ev]
	if !ok {
		return fmt.Errorf("%w: vesting not configured for event %d", inter.ErrInvalidParameters, ev)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive vesting credit", inter.ErrInvalidParameters)
	}
	e, ok := st.entries[beneficiary]
	if !ok {
		e = &Entry{
			Total:    new(big.Int),
			Claimed:  new(big.Int),
			Start:    l.clock.Current(),
			Schedule: st.schedule,
		}
		st.entries[beneficiary] = e
	}
	e.Total.Add(e.Total, amount)
	return nil
}

// Releasable returns how much of the entry is claimable at the current
// height: 0 while the claim gate is unmet regardless of elapsed blocks, then
// the cliff share once the cliff has elapsed plus one span share per full
// elapsed span, capped at the entry total. Holding Claimed constant, the
// result is non-decreasing in block height.
func (l *Ledger) Releasable(ev EventID, beneficiary common.Address) *big.Int {
	st, ok := l.events[ev]
	if !ok || !st.gateOpen {
		return new(big.Int)
	}
	e, ok := st.entries[beneficiary]
	if !ok {
		return new(big.Int)
	}
	return releasable(e, l.clock.Current())
}

func releasable(e *Entry, now idx.Block) *big.Int {
	s := e.Schedule
	if now < e.Start+s.CliffBlocks {
		return new(big.Int)
	}
	spansElapsed := uint64(s.Spans)
	if s.Spans > 0 {
		elapsed := uint64(now - e.Start - s.CliffBlocks)
		if n := elapsed / uint64(s.SpanDuration); n < spansElapsed {
			spansElapsed = n
		}
	}
	// fully elapsed complete schedules release the exact total, so floor
	// rounding of the share arithmetic never strands dust
	if spansElapsed == uint64(s.Spans) && s.complete() {
		return new(big.Int).Set(e.Total)
	}
	r := s.CliffShare.MulFloor(e.Total)
	if spansElapsed > 0 {
		per := s.SpanShare.MulFloor(e.Total)
		r.Add(r, new(big.Int).Mul(per, new(big.Int).SetUint64(spansElapsed)))
	}
	if r.Cmp(e.Total) > 0 {
		r.Set(e.Total)
	}
	return r
}

// Claim mints the newly releasable portion (releasable minus already claimed)
// to the beneficiary and returns it. It fails with ErrClaimNotAvailable when
// nothing new is releasable.
func (l *Ledger) Claim(ev EventID, beneficiary common.Address) (*big.Int, error) {
	st, ok := l.events[ev]
	if !ok {
		return nil, fmt.Errorf("%w: vesting not configured for event %d", inter.ErrInvalidParameters, ev)
	}
	e, ok := st.entries[beneficiary]
	if !ok {
		return nil, inter.ErrClaimNotAvailable
	}
	due := l.Releasable(ev, beneficiary)
	due.Sub(due, e.Claimed)
	if due.Sign() <= 0 {
		return nil, inter.ErrClaimNotAvailable
	}
	// ledger first, then the external mint
	e.Claimed.Add(e.Claimed, due)
	if err := l.token.Mint(beneficiary, due); err != nil {
		e.Claimed.Sub(e.Claimed, due)
		return nil, err
	}
	l.log.WithFields(logrus.Fields{
		"event":       ev,
		"beneficiary": beneficiary.Hex(),
		"amount":      due.String(),
	}).Info("vesting claim released")
	return due, nil
}

// Cancel zeroes the beneficiary's entry and returns the still-unclaimed
// total. Nothing is released to the beneficiary in token terms; the caller
// (redeem) refunds the returned amount in settlement-asset terms instead.
func (l *Ledger) Cancel(ev EventID, beneficiary common.Address) *big.Int {
	st, ok := l.events[ev]
	if !ok {
		return new(big.Int)
	}
	e, ok := st.entries[beneficiary]
	if !ok {
		return new(big.Int)
	}
	out := e.Outstanding()
	delete(st.entries, beneficiary)
	return out
}

// Outstanding returns the beneficiary's unclaimed reservation without
// mutating it.
func (l *Ledger) Outstanding(ev EventID, beneficiary common.Address) *big.Int {
	st, ok := l.events[ev]
	if !ok {
		return new(big.Int)
	}
	e, ok := st.entries[beneficiary]
	if !ok {
		return new(big.Int)
	}
	return e.Outstanding()
}
