package governance

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-pool-core/ledger"
)

// WeightSource supplies point-in-time vote weight. It must answer for
// arbitrary past block heights; the engine never caches weights beyond a
// proposal's own snapshot.
type WeightSource interface {
	// VotesAt returns the account's delegated vote weight at the block.
	VotesAt(acc common.Address, block idx.Block) *big.Int
	// TotalVotesAt returns the total outstanding vote weight at the block.
	TotalVotesAt(block idx.Block) *big.Int
}

// LedgerWeights adapts the checkpointed token ledger to WeightSource. It is
// intentionally thin: unreleased vesting reservations are never minted, so
// the ledger's historical totals already exclude non-votable balance.
type LedgerWeights struct {
	token *ledger.Token
}

// NewLedgerWeights wraps a token ledger as a vote-weight source.
func NewLedgerWeights(token *ledger.Token) *LedgerWeights {
	return &LedgerWeights{token: token}
}

func (w *LedgerWeights) VotesAt(acc common.Address, block idx.Block) *big.Int {
	return w.token.VotesAt(acc, block)
}

func (w *LedgerWeights) TotalVotesAt(block idx.Block) *big.Int {
	return w.token.TotalVotesAt(block)
}
