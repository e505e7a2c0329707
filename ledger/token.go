// Package ledger implements the fungible token ledger backing both engines:
// the sale engine mints and burns against it, transfers are gated by lockup
// guards installed by sale events, and the governance engine reads historical
// vote weight from its checkpoints.
//
// Vote accounting follows the checkpointed-delegation model: every account
// delegates its voting units (to itself by default), and every balance change
// appends a (block, votes) checkpoint for the affected delegatees plus a
// total-supply checkpoint. Historical queries binary-search the checkpoint
// lists, so VotesAt/TotalVotesAt answer for arbitrary past block heights.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pool-core/inter"
)

// ErrTransferLocked rejects a transfer blocked by an installed transfer
// guard (lockup window in force).
var ErrTransferLocked = errors.New("balance locked for transfer")

// TransferGuard is consulted before every Transfer. A sale event installs one
// for the duration of its lockup window; returning a non-nil error blocks the
// transfer atomically.
type TransferGuard func(from common.Address, amount *big.Int) error

// Checkpoint records a delegatee's vote weight (or the total supply) as of a
// block height. Lists of checkpoints are append-only and ordered by block.
type Checkpoint struct {
	Block idx.Block
	Votes *big.Int
}

// Token is an in-memory capped fungible token with checkpointed vote
// accounting. All mutations are atomic single-writer transactions ordered by
// the external block clock.
type Token struct {
	log   logrus.FieldLogger
	clock inter.Clock

	name   string
	symbol string
	cap    *big.Int

	totalSupply *big.Int
	balances    map[common.Address]*big.Int

	// delegation: missing entry means self-delegation
	delegates map[common.Address]common.Address

	ckpts      map[common.Address][]Checkpoint
	totalCkpts []Checkpoint

	guards []TransferGuard
}

// NewToken creates an empty token ledger with the given supply cap.
func NewToken(clock inter.Clock, log logrus.FieldLogger, name, symbol string, cap *big.Int) (*Token, error) {
	if cap == nil || cap.Sign() <= 0 {
		return nil, fmt.Errorf("%w: token cap must be positive", inter.ErrInvalidParameters)
	}
	return &Token{
		log:         log.WithField("token", symbol),
		clock:       clock,
		name:        name,
		symbol:      symbol,
		cap:         new(big.Int).Set(cap),
		totalSupply: new(big.Int),
		balances:    make(map[common.Address]*big.Int),
		delegates:   make(map[common.Address]common.Address),
		ckpts:       make(map[common.Address][]Checkpoint),
	}, nil
}

func (t *Token) Name() string   { return t.name }
func (t *Token) Symbol() string { return t.symbol }

// Cap returns the immutable maximum total supply.
func (t *Token) Cap() *big.Int {
	return new(big.Int).Set(t.cap)
}

// TotalSupply returns the current minted supply.
func (t *Token) TotalSupply() *big.Int {
	return new(big.Int).Set(t.totalSupply)
}

// BalanceOf returns the spendable balance of the account.
func (t *Token) BalanceOf(acc common.Address) *big.Int {
	if b, ok := t.balances[acc]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// AddTransferGuard installs a transfer guard. Guards cannot be removed: a
// guard that no longer applies must report itself satisfied.
func (t *Token) AddTransferGuard(g TransferGuard) {
	t.guards = append(t.guards, g)
}

// CanMint reports whether amount more units fit under the cap. The sale
// engine consults it before committing any purchase state.
func (t *Token) CanMint(amount *big.Int) bool {
	return new(big.Int).Add(t.totalSupply, amount).Cmp(t.cap) <= 0
}

// Mint credits newly issued units to an account. It fails without mutation
// when the cap would be exceeded.
func (t *Token) Mint(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive mint amount", inter.ErrInvalidParameters)
	}
	next := new(big.Int).Add(t.totalSupply, amount)
	if next.Cmp(t.cap) > 0 {
		return fmt.Errorf("%w: mint exceeds token cap", inter.ErrInvalidParameters)
	}
	t.totalSupply = next
	t.credit(to, amount)
	t.moveVotes(common.Address{}, t.DelegateOf(to), amount)
	t.writeTotalCheckpoint()
	return nil
}

// Burn destroys units held by an account. It fails without mutation when the
// balance is insufficient.
func (t *Token) Burn(from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive burn amount", inter.ErrInvalidParameters)
	}
	bal, ok := t.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: insufficient balance to burn", inter.ErrInvalidParameters)
	}
	bal.Sub(bal, amount)
	t.totalSupply.Sub(t.totalSupply, amount)
	t.moveVotes(t.DelegateOf(from), common.Address{}, amount)
	t.writeTotalCheckpoint()
	return nil
}

// Transfer moves units between accounts, subject to the installed transfer
// guards (lockup restrictions). Either every ledger write happens or none.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive transfer amount", inter.ErrInvalidParameters)
	}
	bal, ok := t.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: insufficient balance to transfer", inter.ErrInvalidParameters)
	}
	for _, g := range t.guards {
		if err := g(from, amount); err != nil {
			return err
		}
	}
	bal.Sub(bal, amount)
	t.credit(to, amount)
	t.moveVotes(t.DelegateOf(from), t.DelegateOf(to), amount)
	return nil
}

// Delegate points the account's voting units at a delegatee. Delegating moves
// the account's entire current balance worth of votes in one checkpointed
// step.
func (t *Token) Delegate(owner, delegatee common.Address) {
	prev := t.DelegateOf(owner)
	if prev == delegatee {
		return
	}
	t.delegates[owner] = delegatee
	t.moveVotes(prev, delegatee, t.BalanceOf(owner))
}

// DelegateOf returns the account's delegatee; accounts self-delegate by
// default.
func (t *Token) DelegateOf(owner common.Address) common.Address {
	if d, ok := t.delegates[owner]; ok {
		return d
	}
	return owner
}

// Votes returns the delegatee's current vote weight.
func (t *Token) Votes(acc common.Address) *big.Int {
	list := t.ckpts[acc]
	if len(list) == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(list[len(list)-1].Votes)
}

// VotesAt returns the delegatee's vote weight as of the given past block
// height. Heights before the first checkpoint resolve to zero.
func (t *Token) VotesAt(acc common.Address, block idx.Block) *big.Int {
	return lookup(t.ckpts[acc], block)
}

// TotalVotesAt returns the total outstanding vote weight (the minted supply)
// as of the given past block height. Unreleased vesting reservations are
// never minted, so they are naturally excluded.
func (t *Token) TotalVotesAt(block idx.Block) *big.Int {
	return lookup(t.totalCkpts, block)
}

func (t *Token) credit(acc common.Address, amount *big.Int) {
	cur, ok := t.balances[acc]
	if !ok {
		cur = new(big.Int)
		t.balances[acc] = cur
	}
	cur.Add(cur, amount)
}

// moveVotes shifts vote weight between delegatees, writing one checkpoint per
// affected side. The zero address stands for "nowhere" (mint/burn side).
func (t *Token) moveVotes(from, to common.Address, amount *big.Int) {
	if amount.Sign() == 0 || from == to {
		return
	}
	zero := common.Address{}
	if from != zero {
		next := new(big.Int).Sub(t.Votes(from), amount)
		t.writeCheckpoint(from, next)
	}
	if to != zero {
		next := new(big.Int).Add(t.Votes(to), amount)
		t.writeCheckpoint(to, next)
	}
}

// writeCheckpoint appends a checkpoint at the current height, overwriting the
// last entry when several mutations land in the same block.
func (t *Token) writeCheckpoint(acc common.Address, votes *big.Int) {
	now := t.clock.Current()
	list := t.ckpts[acc]
	if n := len(list); n > 0 && list[n-1].Block == now {
		list[n-1].Votes = votes
		return
	}
	t.ckpts[acc] = append(list, Checkpoint{Block: now, Votes: votes})
}

func (t *Token) writeTotalCheckpoint() {
	now := t.clock.Current()
	votes := new(big.Int).Set(t.totalSupply)
	if n := len(t.totalCkpts); n > 0 && t.totalCkpts[n-1].Block == now {
		t.totalCkpts[n-1].Votes = votes
		return
	}
	t.totalCkpts = append(t.totalCkpts, Checkpoint{Block: now, Votes: votes})
}

// lookup binary-searches for the latest checkpoint at or before block.
func lookup(list []Checkpoint, block idx.Block) *big.Int {
	// first index with Block > block; the answer is the entry before it
	i := sort.Search(len(list), func(i int) bool {
		return list[i].Block > block
	})
	if i == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(list[i-1].Votes)
}
