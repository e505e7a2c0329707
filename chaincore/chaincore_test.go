package chaincore

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// TestClockMonotonic verifies that the fake clock only moves forward.
func TestClockMonotonic(t *testing.T) {
	c := NewClock(10)
	require.EqualValues(t, 10, c.Current())

	c.Advance(5)
	require.EqualValues(t, 15, c.Current())

	c.AdvanceTo(20)
	require.EqualValues(t, 20, c.Current())

	// moving backwards is a no-op
	c.AdvanceTo(3)
	require.EqualValues(t, 20, c.Current())
}

// TestDeriveAddressDeterministic verifies that derived addresses are stable
// per (base, nonce) and distinct across nonces. The directory relies on this
// to register sale events at collision-free addresses.
func TestDeriveAddressDeterministic(t *testing.T) {
	base := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	a1 := DeriveAddress(base, 1)
	a2 := DeriveAddress(base, 2)
	require.Equal(t, a1, DeriveAddress(base, 1))
	require.NotEqual(t, a1, a2)
	require.NotEqual(t, a1, DeriveAddress(common.Address{}, 1))
}

// TestValueLedgerTransfer verifies the atomic transfer semantics: either the
// full amount moves, or nothing does.
func TestValueLedgerTransfer(t *testing.T) {
	v := NewValueLedger()
	alice := common.HexToAddress("0x01")
	bob := common.HexToAddress("0x02")

	ApplyFakeGenesis(v, map[common.Address]*big.Int{
		alice: big.NewInt(100),
	})
	require.EqualValues(t, 100, v.BalanceOf(alice).Int64())
	require.EqualValues(t, 0, v.BalanceOf(bob).Int64())

	require.NoError(t, v.Transfer(alice, bob, big.NewInt(40)))
	require.EqualValues(t, 60, v.BalanceOf(alice).Int64())
	require.EqualValues(t, 40, v.BalanceOf(bob).Int64())

	// overdraft fails without mutation
	require.Error(t, v.Transfer(alice, bob, big.NewInt(61)))
	require.EqualValues(t, 60, v.BalanceOf(alice).Int64())
	require.EqualValues(t, 40, v.BalanceOf(bob).Int64())

	// non-positive amounts are rejected
	require.Error(t, v.Transfer(alice, bob, big.NewInt(0)))
	require.Error(t, v.Transfer(alice, bob, big.NewInt(-1)))
}

// TestValueLedgerBalanceCopy verifies that BalanceOf returns a copy, not a
// window into ledger state.
func TestValueLedgerBalanceCopy(t *testing.T) {
	v := NewValueLedger()
	alice := common.HexToAddress("0x01")
	v.Credit(alice, big.NewInt(10))

	b := v.BalanceOf(alice)
	b.SetInt64(999)
	require.EqualValues(t, 10, v.BalanceOf(alice).Int64())
}
