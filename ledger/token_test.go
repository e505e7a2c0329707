package ledger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-pool-core/chaincore"
	"github.com/rony4d/go-pool-core/inter"
)

var (
	alice = common.HexToAddress("0x01")
	bob   = common.HexToAddress("0x02")
	carol = common.HexToAddress("0x03")
)

func newTestToken(t *testing.T, clock inter.Clock, cap int64) *Token {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	tok, err := NewToken(clock, log, "Test Equity", "TEQ", big.NewInt(cap))
	require.NoError(t, err)
	return tok
}

// TestTokenCap verifies the supply-cap invariant: mints beyond the cap fail
// without mutation, and CanMint predicts the outcome.
func TestTokenCap(t *testing.T) {
	clock := chaincore.NewClock(1)
	tok := newTestToken(t, clock, 1000)

	require.True(t, tok.CanMint(big.NewInt(1000)))
	require.False(t, tok.CanMint(big.NewInt(1001)))

	require.NoError(t, tok.Mint(alice, big.NewInt(600)))
	require.True(t, tok.CanMint(big.NewInt(400)))
	require.False(t, tok.CanMint(big.NewInt(401)))

	err := tok.Mint(bob, big.NewInt(401))
	require.ErrorIs(t, err, inter.ErrInvalidParameters)
	require.EqualValues(t, 600, tok.TotalSupply().Int64())
	require.EqualValues(t, 0, tok.BalanceOf(bob).Int64())
}

// TestTokenBurn verifies that burning reduces balance and supply, and that
// overdrafts fail atomically.
func TestTokenBurn(t *testing.T) {
	clock := chaincore.NewClock(1)
	tok := newTestToken(t, clock, 1000)
	require.NoError(t, tok.Mint(alice, big.NewInt(500)))

	require.NoError(t, tok.Burn(alice, big.NewInt(200)))
	require.EqualValues(t, 300, tok.BalanceOf(alice).Int64())
	require.EqualValues(t, 300, tok.TotalSupply().Int64())

	require.Error(t, tok.Burn(alice, big.NewInt(301)))
	require.EqualValues(t, 300, tok.BalanceOf(alice).Int64())
}

// TestTokenTransferGuards verifies that installed guards veto transfers
// atomically and that a satisfied guard lets transfers through.
func TestTokenTransferGuards(t *testing.T) {
	clock := chaincore.NewClock(1)
	tok := newTestToken(t, clock, 1000)
	require.NoError(t, tok.Mint(alice, big.NewInt(500)))

	locked := true
	tok.AddTransferGuard(func(from common.Address, amount *big.Int) error {
		if locked {
			return ErrTransferLocked
		}
		return nil
	})

	err := tok.Transfer(alice, bob, big.NewInt(100))
	require.ErrorIs(t, err, ErrTransferLocked)
	require.EqualValues(t, 500, tok.BalanceOf(alice).Int64())

	locked = false
	require.NoError(t, tok.Transfer(alice, bob, big.NewInt(100)))
	require.EqualValues(t, 400, tok.BalanceOf(alice).Int64())
	require.EqualValues(t, 100, tok.BalanceOf(bob).Int64())
}

// TestVotesFollowBalances verifies the default self-delegation: mint,
// transfer and burn all move current vote weight with the balance.
func TestVotesFollowBalances(t *testing.T) {
	clock := chaincore.NewClock(1)
	tok := newTestToken(t, clock, 1000)

	require.NoError(t, tok.Mint(alice, big.NewInt(300)))
	require.EqualValues(t, 300, tok.Votes(alice).Int64())

	clock.Advance(1)
	require.NoError(t, tok.Transfer(alice, bob, big.NewInt(100)))
	require.EqualValues(t, 200, tok.Votes(alice).Int64())
	require.EqualValues(t, 100, tok.Votes(bob).Int64())

	clock.Advance(1)
	require.NoError(t, tok.Burn(bob, big.NewInt(100)))
	require.EqualValues(t, 0, tok.Votes(bob).Int64())
}

// TestDelegation verifies explicit delegation: the full balance of the
// delegator moves to the delegatee's tally, and subsequent balance changes
// follow the delegation.
func TestDelegation(t *testing.T) {
	clock := chaincore.NewClock(1)
	tok := newTestToken(t, clock, 1000)
	require.NoError(t, tok.Mint(alice, big.NewInt(300)))

	require.Equal(t, alice, tok.DelegateOf(alice))
	tok.Delegate(alice, carol)
	require.Equal(t, carol, tok.DelegateOf(alice))
	require.EqualValues(t, 0, tok.Votes(alice).Int64())
	require.EqualValues(t, 300, tok.Votes(carol).Int64())

	// newly minted units accrue to the delegatee
	require.NoError(t, tok.Mint(alice, big.NewInt(50)))
	require.EqualValues(t, 350, tok.Votes(carol).Int64())

	// re-delegating to the same target is a no-op
	tok.Delegate(alice, carol)
	require.EqualValues(t, 350, tok.Votes(carol).Int64())
}

// TestVotesAtHistorical verifies the checkpoint binary search: weight queries
// at past heights return the weight as of that height, untouched by later
// transfers.
func TestVotesAtHistorical(t *testing.T) {
	clock := chaincore.NewClock(5)
	tok := newTestToken(t, clock, 1000)

	require.NoError(t, tok.Mint(alice, big.NewInt(100))) // block 5
	clock.AdvanceTo(10)
	require.NoError(t, tok.Mint(alice, big.NewInt(200))) // block 10
	clock.AdvanceTo(20)
	require.NoError(t, tok.Transfer(alice, bob, big.NewInt(250))) // block 20

	tests := []struct {
		block uint64
		want  int64
	}{
		{1, 0},    // before the first checkpoint
		{5, 100},  // exactly at the first checkpoint
		{7, 100},  // between checkpoints
		{10, 300}, // exactly at the second
		{19, 300}, // just before the transfer
		{20, 50},  // at the transfer
		{99, 50},  // after all checkpoints
	}

	for _, tt := range tests {
		got := tok.VotesAt(alice, idx.Block(tt.block))
		require.EqualValues(t, tt.want, got.Int64(), "VotesAt(alice, %d)", tt.block)
	}

	require.EqualValues(t, 0, tok.TotalVotesAt(idx.Block(4)).Int64())
	require.EqualValues(t, 100, tok.TotalVotesAt(idx.Block(5)).Int64())
	require.EqualValues(t, 300, tok.TotalVotesAt(idx.Block(15)).Int64())
}

// TestSameBlockCheckpointOverwrite verifies that several mutations within one
// block collapse into a single checkpoint holding the final value.
func TestSameBlockCheckpointOverwrite(t *testing.T) {
	clock := chaincore.NewClock(8)
	tok := newTestToken(t, clock, 1000)

	require.NoError(t, tok.Mint(alice, big.NewInt(100)))
	require.NoError(t, tok.Mint(alice, big.NewInt(100)))
	require.NoError(t, tok.Mint(alice, big.NewInt(100)))

	require.EqualValues(t, 300, tok.VotesAt(alice, idx.Block(8)).Int64())
	require.EqualValues(t, 0, tok.VotesAt(alice, idx.Block(7)).Int64())
}

// TestNewTokenValidation verifies constructor parameter checks.
func TestNewTokenValidation(t *testing.T) {
	clock := chaincore.NewClock(1)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	_, err := NewToken(clock, log, "X", "X", nil)
	require.True(t, errors.Is(err, inter.ErrInvalidParameters))
	_, err = NewToken(clock, log, "X", "X", big.NewInt(0))
	require.True(t, errors.Is(err, inter.ErrInvalidParameters))
}
