package sale

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-pool-core/chaincore"
	"github.com/rony4d/go-pool-core/inter"
	"github.com/rony4d/go-pool-core/ledger"
	"github.com/rony4d/go-pool-core/registry"
)

// Settlement abstracts the value rail a sale event settles against: native
// value or a fungible unit-of-account token. The engine follows a strict
// checks-then-state-then-transfer ordering, so Pull/Pay are only invoked
// after CanPull/CanPay have been consulted; a settlement failure mid-flight
// would otherwise break purchase/redeem atomicity.
type Settlement interface {
	// Native reports whether payments are native value (exact-or-greater
	// payment attached) rather than a pulled token amount.
	Native() bool

	// ValidateRef verifies the settlement-asset reference is a legitimate
	// fungible unit per the directory. Checked once at event creation.
	ValidateRef(dir *registry.Directory) error

	// CanPull reports whether the payer can cover amount.
	CanPull(from common.Address, amount *big.Int) bool

	// Pull collects amount from the payer into the event's custody (or
	// forwards it, for native value).
	Pull(from common.Address, amount *big.Int) error

	// CanPay reports whether the reserve can cover amount.
	CanPay(amount *big.Int) bool

	// Pay moves amount from the event's custody/reserve to the recipient.
	Pay(to common.Address, amount *big.Int) error

	// Held returns the settlement balance still held by the event, i.e.
	// what TransferFunds can sweep.
	Held() *big.Int
}

// NativeSettlement settles in native value. Payments are forwarded to the
// designated receiver at purchase time rather than held by the event; the
// receiver account doubles as the reserve that redemption refunds draw from.
type NativeSettlement struct {
	values   *chaincore.ValueLedger
	receiver common.Address
}

// NewNativeSettlement returns a native-value settlement forwarding to (and
// refunding from) the given receiver.
func NewNativeSettlement(values *chaincore.ValueLedger, receiver common.Address) *NativeSettlement {
	return &NativeSettlement{values: values, receiver: receiver}
}

func (s *NativeSettlement) Native() bool { return true }

func (s *NativeSettlement) ValidateRef(*registry.Directory) error {
	// native value needs no directory record
	return nil
}

func (s *NativeSettlement) CanPull(from common.Address, amount *big.Int) bool {
	return s.values.BalanceOf(from).Cmp(amount) >= 0
}

func (s *NativeSettlement) Pull(from common.Address, amount *big.Int) error {
	return s.values.Transfer(from, s.receiver, amount)
}

func (s *NativeSettlement) CanPay(amount *big.Int) bool {
	return s.values.BalanceOf(s.receiver).Cmp(amount) >= 0
}

func (s *NativeSettlement) Pay(to common.Address, amount *big.Int) error {
	return s.values.Transfer(s.receiver, to, amount)
}

// Held is always zero for native settlement: funds were forwarded at
// purchase time, so there is nothing for TransferFunds to sweep.
func (s *NativeSettlement) Held() *big.Int {
	return new(big.Int)
}

// AssetSettlement settles in a fungible unit-of-account token. Payments are
// pulled into an escrow account and held until swept or refunded.
type AssetSettlement struct {
	asset     *ledger.Token
	assetAddr common.Address
	escrow    common.Address
}

// NewAssetSettlement returns a token settlement escrowed at the given
// account. assetAddr is the directory-registered address of the asset.
func NewAssetSettlement(asset *ledger.Token, assetAddr, escrow common.Address) *AssetSettlement {
	return &AssetSettlement{asset: asset, assetAddr: assetAddr, escrow: escrow}
}

func (s *AssetSettlement) Native() bool { return false }

func (s *AssetSettlement) ValidateRef(dir *registry.Directory) error {
	switch dir.TypeOf(s.assetAddr) {
	case registry.KindEquityToken, registry.KindUtilityToken:
		return nil
	default:
		return fmt.Errorf("%w: settlement asset is not a registered fungible unit", inter.ErrInvalidParameters)
	}
}

func (s *AssetSettlement) CanPull(from common.Address, amount *big.Int) bool {
	return s.asset.BalanceOf(from).Cmp(amount) >= 0
}

func (s *AssetSettlement) Pull(from common.Address, amount *big.Int) error {
	return s.asset.Transfer(from, s.escrow, amount)
}

func (s *AssetSettlement) CanPay(amount *big.Int) bool {
	return s.asset.BalanceOf(s.escrow).Cmp(amount) >= 0
}

func (s *AssetSettlement) Pay(to common.Address, amount *big.Int) error {
	return s.asset.Transfer(s.escrow, to, amount)
}

func (s *AssetSettlement) Held() *big.Int {
	return s.asset.BalanceOf(s.escrow)
}
