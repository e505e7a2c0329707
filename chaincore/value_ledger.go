package chaincore

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/go-pool-core/inter"
)

// DeriveAddress returns a deterministic address for the nonce-th entity
// created under base. Pools use it to assign directory addresses to the sale
// events they create; tests and the launcher use it for synthetic accounts.
func DeriveAddress(base common.Address, nonce uint64) common.Address {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	return common.BytesToAddress(crypto.Keccak256(base.Bytes(), buf[:]))
}

// ValueLedger tracks native settlement-value balances per account. It is the
// abstract custody rail of the system: sale purchases, redemption refunds and
// treasury sweeps in native value all move through it.
//
// Every mutation is an atomic single-writer transaction; there is no partial
// transfer.
type ValueLedger struct {
	balances map[common.Address]*big.Int
}

// NewValueLedger returns an empty value ledger.
func NewValueLedger() *ValueLedger {
	return &ValueLedger{balances: make(map[common.Address]*big.Int)}
}

// BalanceOf returns the value balance of the account. The returned value is
// a copy.
func (v *ValueLedger) BalanceOf(acc common.Address) *big.Int {
	if b, ok := v.balances[acc]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Credit adds amount to the account balance. Used by genesis funding.
func (v *ValueLedger) Credit(acc common.Address, amount *big.Int) {
	if amount.Sign() <= 0 {
		return
	}
	cur, ok := v.balances[acc]
	if !ok {
		cur = new(big.Int)
		v.balances[acc] = cur
	}
	cur.Add(cur, amount)
}

// Transfer moves amount from one account to another. It fails without
// mutation when the source balance is insufficient or the amount is not
// positive.
func (v *ValueLedger) Transfer(from, to common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive transfer amount", inter.ErrInvalidParameters)
	}
	src, ok := v.balances[from]
	if !ok || src.Cmp(amount) < 0 {
		return fmt.Errorf("%w: insufficient value balance", inter.ErrInvalidParameters)
	}
	src.Sub(src, amount)
	v.Credit(to, amount)
	return nil
}

// ApplyFakeGenesis pre-funds the given accounts on the value ledger. This is
// the development/testing analog of a real genesis allocation: it lets
// scenarios run without any external funding rail.
func ApplyFakeGenesis(v *ValueLedger, balances map[common.Address]*big.Int) {
	for acc, balance := range balances {
		v.Credit(acc, balance)
	}
}
