// Package governance implements the proposal lifecycle: creation under an
// eligibility threshold, snapshot-weighted voting with quorum/decision
// evaluation and early-exit of mathematically decided votes, an execution
// delay, and all-or-nothing execution of a closed set of action variants.
//
// Vote weight is read from checkpointed token-ledger history at a fixed
// snapshot block (startBlock - 1), so balances moved after that block
// neither gain nor lose voting power on a proposal.
package governance

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-pool-core/inter"
)

// ProposalState is the resolved lifecycle state of a proposal.
type ProposalState uint8

const (
	// StateNone means no such proposal exists.
	StateNone ProposalState = iota
	// StateActive covers the voting window (including the pre-start delay).
	StateActive
	// StateFailed covers decided-Against and quorum failure.
	StateFailed
	// StateDelayed is decided-For, waiting out the execution delay.
	StateDelayed
	// StateAwaitingExecution is decided-For with the delay elapsed.
	StateAwaitingExecution
	// StateExecuted and StateCancelled are terminal; no further mutation is
	// permitted.
	StateExecuted
	StateCancelled
)

func (s ProposalState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	case StateDelayed:
		return "delayed"
	case StateAwaitingExecution:
		return "awaiting-execution"
	case StateExecuted:
		return "executed"
	case StateCancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

// Terminal reports whether the state permits no further mutation.
func (s ProposalState) Terminal() bool {
	return s == StateExecuted || s == StateCancelled
}

// Support is a ballot value.
type Support uint8

const (
	VoteNone Support = iota
	VoteAgainst
	VoteFor
)

// Ballot records one voter's cast on one proposal: the support value and the
// snapshot weight it carried. Ballots are immutable once cast.
type Ballot struct {
	Support Support
	Weight  *big.Int
}

// Category classifies a proposal for the execution-delay lookup.
type Category uint8

const (
	CategoryGeneral Category = iota
	CategoryFunding
	CategoryConfig
	CategorySale
)

func (c Category) String() string {
	switch c {
	case CategoryGeneral:
		return "general"
	case CategoryFunding:
		return "funding"
	case CategoryConfig:
		return "config"
	case CategorySale:
		return "sale"
	default:
		return "invalid"
	}
}

// Config is the governance configuration in force when a proposal is
// created. Each proposal copies the values it needs; later config changes
// never apply retroactively.
type Config struct {
	// ProposalThreshold is the minimum delegated/held vote weight an
	// account needs to propose (standing proposer privilege bypasses it).
	ProposalThreshold *big.Int

	// QuorumThreshold is the minimum fraction of the available-votes
	// snapshot that must participate for the vote to count.
	QuorumThreshold inter.Pct

	// DecisionThreshold is the minimum fraction of participating weight
	// that must be "for" to pass.
	DecisionThreshold inter.Pct

	// VotingStartDelay and VotingDuration bound the voting window in
	// blocks: start = now + delay, end = start + duration.
	VotingStartDelay idx.Block
	VotingDuration   idx.Block

	// ExecutionDelays maps proposal categories to the mandatory wait
	// between decided-For and execution eligibility. Missing categories
	// fall back to CategoryGeneral.
	ExecutionDelays map[Category]idx.Block
}

// Validate checks the configuration's internal consistency.
func (c Config) Validate() error {
	if c.ProposalThreshold == nil || c.ProposalThreshold.Sign() < 0 {
		return fmt.Errorf("%w: proposal threshold missing or negative", inter.ErrInvalidParameters)
	}
	if !c.QuorumThreshold.Valid() || !c.DecisionThreshold.Valid() {
		return fmt.Errorf("%w: governance threshold out of range", inter.ErrInvalidParameters)
	}
	if c.VotingDuration == 0 {
		return fmt.Errorf("%w: voting duration must be positive", inter.ErrInvalidParameters)
	}
	return nil
}

// DelayFor returns the execution delay for a category, falling back to
// CategoryGeneral.
func (c Config) DelayFor(cat Category) idx.Block {
	if d, ok := c.ExecutionDelays[cat]; ok {
		return d
	}
	return c.ExecutionDelays[CategoryGeneral]
}

// clone deep-copies the config.
func (c Config) clone() Config {
	out := c
	if c.ProposalThreshold != nil {
		out.ProposalThreshold = new(big.Int).Set(c.ProposalThreshold)
	}
	out.ExecutionDelays = make(map[Category]idx.Block, len(c.ExecutionDelays))
	for k, v := range c.ExecutionDelays {
		out.ExecutionDelays[k] = v
	}
	return out
}

// Proposal is one governed action list with its voting record. The
// thresholds and execution delay are the ones in force at creation.
type Proposal struct {
	ID       uint64
	Proposer common.Address
	Category Category
	Actions  []Action

	Description  string
	MetadataHash common.Hash

	QuorumThreshold   inter.Pct
	DecisionThreshold inter.Pct
	ExecutionDelay    idx.Block

	StartBlock idx.Block
	EndBlock   idx.Block

	// availableVotes is the total eligible weight at StartBlock-1. The
	// snapshot block may still be in the future at creation, so the value
	// resolves lazily on first read at or after StartBlock.
	availableVotes *big.Int

	ForVotes     *big.Int
	AgainstVotes *big.Int

	// lockedResult is the early-exit latch: VoteFor/VoteAgainst once the
	// undecided remainder can no longer flip the outcome.
	lockedResult Support

	executed  bool
	cancelled bool
}

// LockedResult returns the early-exit decision, or VoteNone while the
// outcome is still open.
func (p *Proposal) LockedResult() Support { return p.lockedResult }

// AvailableVotes returns the resolved snapshot of total eligible weight, or
// nil while the snapshot block has not been reached.
func (p *Proposal) AvailableVotes() *big.Int {
	if p.availableVotes == nil {
		return nil
	}
	return new(big.Int).Set(p.availableVotes)
}
