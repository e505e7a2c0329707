// Package sale implements the token-sale engine: a per-fundraising-round
// state machine that turns a time-boxed, capped offering into token-ledger
// mutations with deterministic success/failure semantics and fair
// redemption.
//
// Lifecycle: an event is created with immutable parameters, accepts
// purchases while Active, and resolves to Successful or Failed purely as a
// function of its ledger and the block clock (see State). Successful events
// accrue the protocol fee and sweep funds; failed events refund buyers via
// Redeem. A terminal event is never deleted, only read.
package sale

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pool-core/inter"
	"github.com/rony4d/go-pool-core/ledger"
	"github.com/rony4d/go-pool-core/registry"
	"github.com/rony4d/go-pool-core/utils/fixedpoint"
	"github.com/rony4d/go-pool-core/vesting"
)

// State is the resolved lifecycle state of a sale event.
type State uint8

const (
	StateActive State = iota
	StateSuccessful
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSuccessful:
		return "successful"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// EventConfig wires a new sale event to its collaborators. Every reference
// is passed explicitly; the event holds them for its lifetime.
type EventConfig struct {
	ID        vesting.EventID
	Addr      common.Address // directory address of the event
	TokenKind registry.ContractKind
	Primary   bool // first event ever created for this token
	Params    Params

	PoolTreasury common.Address

	Token      *ledger.Token
	Vesting    *vesting.Ledger
	Policy     *registry.Policy
	Directory  *registry.Directory
	Settlement Settlement
	Clock      inter.Clock
	Log        logrus.FieldLogger
}

// Event is one fundraising round. All mutating entry points are guarded
// against re-entrancy and fail fast while the service is paused.
type Event struct {
	log   logrus.FieldLogger
	clock inter.Clock

	id        vesting.EventID
	addr      common.Address
	kind      registry.ContractKind
	primary   bool
	params    Params
	createdAt idx.Block

	token        *ledger.Token
	vest         *vesting.Ledger
	policy       *registry.Policy
	dir          *registry.Directory
	settle       Settlement
	poolTreasury common.Address

	whitelist map[common.Address]bool

	purchased      map[common.Address]*big.Int
	vestedOf       map[common.Address]*big.Int
	totalPurchased *big.Int
	totalVested    *big.Int

	feeClaimed        bool
	vestingTVLReached bool
	lockupTVLReached  bool

	guard inter.Guard
}

// saleCreatedRecord is the RLP audit payload registered at creation.
type saleCreatedRecord struct {
	ID      uint64
	Primary bool
	Hardcap *big.Int
	Price   *big.Int
}

// NewEvent validates the parameters, registers the event with the directory
// and configures its vesting schedule. A validation or registration failure
// rejects creation synchronously with nothing written.
func NewEvent(cfg EventConfig) (*Event, error) {
	if err := cfg.Params.Validate(cfg.Primary); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.ValidateRef(cfg.Directory); err != nil {
		return nil, err
	}
	// a fee-bearing primary offering must leave fee headroom under the
	// token cap: hardcap + ceil(hardcap*fee) + already-minted supply
	if cfg.Primary && cfg.TokenKind.FeeBearing() {
		need := new(big.Int).Add(cfg.Params.Hardcap, cfg.Policy.FeePct().MulCeil(cfg.Params.Hardcap))
		need.Add(need, cfg.Token.TotalSupply())
		if need.Cmp(cfg.Token.Cap()) > 0 {
			return nil, fmt.Errorf("%w: hardcap leaves no room for protocol fee under token cap", inter.ErrInvalidParameters)
		}
	}
	if !cfg.Params.VestingPct.IsZero() && cfg.Vesting.Configured(cfg.ID) {
		return nil, fmt.Errorf("%w: event id %d already has a vesting schedule", inter.ErrInvalidParameters, cfg.ID)
	}

	// registration failures are fatal: no created-but-unregistered state
	if _, err := cfg.Directory.AddContractRecord(cfg.Addr, registry.KindSaleEvent); err != nil {
		return nil, err
	}
	if _, _, err := cfg.Directory.AddEventRecord("sale.created", cfg.Addr, saleCreatedRecord{
		ID:      uint64(cfg.ID),
		Primary: cfg.Primary,
		Hardcap: cfg.Params.Hardcap,
		Price:   cfg.Params.Price,
	}); err != nil {
		return nil, err
	}

	params := cfg.Params.clone()
	e := &Event{
		log:            cfg.Log.WithFields(logrus.Fields{"module": "sale", "event": cfg.ID}),
		clock:          cfg.Clock,
		id:             cfg.ID,
		addr:           cfg.Addr,
		kind:           cfg.TokenKind,
		primary:        cfg.Primary,
		params:         params,
		createdAt:      cfg.Clock.Current(),
		token:          cfg.Token,
		vest:           cfg.Vesting,
		policy:         cfg.Policy,
		dir:            cfg.Directory,
		settle:         cfg.Settlement,
		poolTreasury:   cfg.PoolTreasury,
		purchased:      make(map[common.Address]*big.Int),
		vestedOf:       make(map[common.Address]*big.Int),
		totalPurchased: new(big.Int),
		totalVested:    new(big.Int),
	}
	if len(params.Whitelist) > 0 {
		e.whitelist = make(map[common.Address]bool, len(params.Whitelist))
		for _, acc := range params.Whitelist {
			e.whitelist[acc] = true
		}
	}
	if !params.VestingPct.IsZero() {
		if err := e.vest.Configure(e.id, params.VestingSchedule, params.vestingGated()); err != nil {
			return nil, err
		}
	}
	if params.LockupBlocks > 0 {
		e.token.AddTransferGuard(e.lockupGuard)
	}
	e.log.WithFields(logrus.Fields{
		"primary": e.primary,
		"hardcap": params.Hardcap.String(),
		"blocks":  params.Duration,
	}).Info("sale event created")
	return e, nil
}

// ID returns the event identifier shared with the vesting ledger.
func (e *Event) ID() vesting.EventID { return e.id }

// Addr returns the event's directory address.
func (e *Event) Addr() common.Address { return e.addr }

// Primary reports whether this is the first event ever created for the
// token.
func (e *Event) Primary() bool { return e.primary }

// CreatedAt returns the creation block.
func (e *Event) CreatedAt() idx.Block { return e.createdAt }

// Params returns a copy of the immutable event parameters.
func (e *Event) Params() Params { return e.params.clone() }

// TotalPurchased returns the total units sold so far.
func (e *Event) TotalPurchased() *big.Int { return new(big.Int).Set(e.totalPurchased) }

// PurchasedOf returns the units the account has purchased.
func (e *Event) PurchasedOf(acc common.Address) *big.Int {
	if v, ok := e.purchased[acc]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// VestedOf returns the units reserved for vesting out of the account's
// purchases.
func (e *Event) VestedOf(acc common.Address) *big.Int {
	if v, ok := e.vestedOf[acc]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// FeeClaimed reports whether TransferFunds has already run. Once true it
// never reverts to false.
func (e *Event) FeeClaimed() bool { return e.feeClaimed }

// VestingTVLReached reports the vesting claim-gate latch.
func (e *Event) VestingTVLReached() bool { return e.vestingTVLReached }

// LockupTVLReached reports the lockup early-lift latch.
func (e *Event) LockupTVLReached() bool { return e.lockupTVLReached }

// State resolves the event's lifecycle state as a pure function of the
// ledger and the clock. Evaluation order is load-bearing:
//
//  1. hardcap fully filled wins over remaining time;
//  2. otherwise the event is Active until its duration elapses;
//  3. a secondary event with any sale at all succeeds, checked before the
//     softcap rule because secondary events carry no softcap value;
//  4. a primary event succeeds at or above its softcap (with at least one
//     sale);
//  5. everything else is Failed.
func (e *Event) State() State {
	switch {
	case e.totalPurchased.Cmp(e.params.Hardcap) == 0:
		return StateSuccessful
	case e.clock.Current() < e.createdAt+e.params.Duration:
		return StateActive
	case !e.primary && e.totalPurchased.Sign() > 0:
		return StateSuccessful
	case e.params.Softcap != nil && e.totalPurchased.Sign() > 0 &&
		e.totalPurchased.Cmp(e.params.Softcap) >= 0:
		return StateSuccessful
	default:
		return StateFailed
	}
}

// MaxPurchaseOf returns how much the account may still purchase:
// min(maxPurchase - purchasedOf, hardcap - totalPurchased).
func (e *Event) MaxPurchaseOf(acc common.Address) *big.Int {
	perAccount := new(big.Int).Sub(e.params.MaxPurchase, e.PurchasedOf(acc))
	remaining := new(big.Int).Sub(e.params.Hardcap, e.totalPurchased)
	if perAccount.Sign() < 0 {
		perAccount.SetUint64(0)
	}
	return fixedpoint.Min(perAccount, remaining)
}

// Cost returns the settlement cost of buying amount units, rounded up.
func (e *Event) Cost(amount *big.Int) *big.Int {
	return fixedpoint.CostCeil(amount, e.params.Price)
}

// Purchase sells amount units to the buyer against payment. For native
// settlement the attached payment must cover the cost (exact or greater, the
// whole payment is forwarded); for token settlement exactly the cost is
// pulled and payment is ignored. The purchase splits into an immediately
// minted portion and a vesting reservation by VestingPct (rounded up), and
// either all of its writes happen or none.
func (e *Event) Purchase(buyer common.Address, amount, payment *big.Int) error {
	release, err := e.guard.Enter()
	if err != nil {
		return err
	}
	defer release()
	if err := e.policy.Guard(); err != nil {
		return err
	}
	if e.State() != StateActive {
		return fmt.Errorf("%w: sale is not active", inter.ErrWrongState)
	}
	if e.whitelist != nil && !e.whitelist[buyer] {
		return inter.ErrNotWhitelisted
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive purchase amount", inter.ErrInvalidParameters)
	}
	if amount.Cmp(e.params.MinPurchase) < 0 {
		return fmt.Errorf("%w: amount below minimum purchase", inter.ErrPurchaseBound)
	}
	if amount.Cmp(e.MaxPurchaseOf(buyer)) > 0 {
		return fmt.Errorf("%w: amount above remaining allowance", inter.ErrPurchaseBound)
	}

	cost := e.Cost(amount)
	vested := e.params.VestingPct.MulCeil(amount)
	released := new(big.Int).Sub(amount, vested)

	// pre-flight every external effect so the writes below cannot fail
	if released.Sign() > 0 && !e.token.CanMint(released) {
		return fmt.Errorf("%w: token cap exhausted", inter.ErrInvalidParameters)
	}
	pull := cost
	if e.settle.Native() {
		if payment == nil || payment.Cmp(cost) < 0 {
			return fmt.Errorf("%w: insufficient payment", inter.ErrInvalidParameters)
		}
		pull = payment
	}
	if !e.settle.CanPull(buyer, pull) {
		return fmt.Errorf("%w: payer cannot cover cost", inter.ErrInvalidParameters)
	}

	if err := e.settle.Pull(buyer, pull); err != nil {
		return err
	}
	e.creditPurchase(buyer, amount, vested)
	if released.Sign() > 0 {
		if err := e.token.Mint(buyer, released); err != nil {
			// unreachable after CanMint; surface loudly if it ever trips
			e.log.WithError(err).Error("mint failed after pre-flight")
			return err
		}
	}
	if vested.Sign() > 0 {
		if err := e.vest.Credit(e.id, buyer, vested); err != nil {
			e.log.WithError(err).Error("vesting credit failed after pre-flight")
			return err
		}
	}

	e.log.WithFields(logrus.Fields{
		"buyer":  buyer.Hex(),
		"amount": amount.String(),
		"vested": vested.String(),
		"cost":   cost.String(),
	}).Info("purchase")
	return nil
}

// creditPurchase applies the purchase to the event ledger and latches the
// TVL gates.
func (e *Event) creditPurchase(buyer common.Address, amount, vested *big.Int) {
	p, ok := e.purchased[buyer]
	if !ok {
		p = new(big.Int)
		e.purchased[buyer] = p
	}
	p.Add(p, amount)
	e.totalPurchased.Add(e.totalPurchased, amount)
	if vested.Sign() > 0 {
		v, ok := e.vestedOf[buyer]
		if !ok {
			v = new(big.Int)
			e.vestedOf[buyer] = v
		}
		v.Add(v, vested)
		e.totalVested.Add(e.totalVested, vested)
	}
	if e.params.vestingGated() && !e.vestingTVLReached && e.totalPurchased.Cmp(e.params.VestingTVL) >= 0 {
		e.vestingTVLReached = true
		e.vest.OpenGate(e.id)
	}
	if e.params.lockupGated() && !e.lockupTVLReached && e.totalPurchased.Cmp(e.params.LockupTVL) >= 0 {
		e.lockupTVLReached = true
	}
}

// Redeem refunds a buyer of a failed sale: the outstanding vesting
// reservation is cancelled (never released) and the account's held tokens
// are burned up to what it purchased, defending against redemption of
// third-party-received tokens. The refund pays out ceil(refund*price/1e18)
// in the settlement asset. Ledger entries are zeroed before the external
// payment; a second call fails with ErrNothingToRedeem.
func (e *Event) Redeem(account common.Address) (*big.Int, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := e.policy.Guard(); err != nil {
		return nil, err
	}
	if e.State() != StateFailed {
		return nil, fmt.Errorf("%w: sale has not failed", inter.ErrWrongState)
	}

	outstanding := e.vest.Outstanding(e.id, account)
	purchased := e.PurchasedOf(account)
	remaining := new(big.Int).Sub(purchased, outstanding)
	burn := fixedpoint.Min(e.token.BalanceOf(account), remaining)
	refund := new(big.Int).Add(outstanding, burn)
	if refund.Sign() == 0 {
		return nil, inter.ErrNothingToRedeem
	}
	payout := e.Cost(refund)
	if !e.settle.CanPay(payout) {
		return nil, fmt.Errorf("%w: refund reserve underfunded", inter.ErrWrongState)
	}

	// zero the ledger entries before any external transfer
	e.vest.Cancel(e.id, account)
	e.totalPurchased.Sub(e.totalPurchased, purchased)
	delete(e.purchased, account)
	if v, ok := e.vestedOf[account]; ok {
		e.totalVested.Sub(e.totalVested, v)
		delete(e.vestedOf, account)
	}
	if burn.Sign() > 0 {
		if err := e.token.Burn(account, burn); err != nil {
			e.log.WithError(err).Error("burn failed after pre-flight")
			return nil, err
		}
	}
	if err := e.settle.Pay(account, payout); err != nil {
		e.log.WithError(err).Error("refund payment failed after pre-flight")
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"account": account.Hex(),
		"refund":  refund.String(),
		"payout":  payout.String(),
	}).Info("redeem")
	return payout, nil
}

// Claim releases the account's newly vested tokens. Failed events redeem
// instead of claim.
func (e *Event) Claim(account common.Address) (*big.Int, error) {
	release, err := e.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := e.policy.Guard(); err != nil {
		return nil, err
	}
	if e.State() == StateFailed {
		return nil, fmt.Errorf("%w: failed sale redeems instead of claiming", inter.ErrWrongState)
	}
	return e.vest.Claim(e.id, account)
}

// feesSweptRecord is the RLP audit payload of TransferFunds.
type feesSweptRecord struct {
	ID    uint64
	Fee   *big.Int
	Swept *big.Int
}

// TransferFunds finalizes a successful sale exactly once: it mints the
// protocol fee (ceil of totalPurchased * fee) to the protocol treasury for
// fee-bearing token kinds, then sweeps any held settlement balance to the
// pool treasury. Subsequent calls are no-ops via the feeClaimed latch.
func (e *Event) TransferFunds() error {
	release, err := e.guard.Enter()
	if err != nil {
		return err
	}
	defer release()
	if err := e.policy.Guard(); err != nil {
		return err
	}
	if e.State() != StateSuccessful {
		return fmt.Errorf("%w: sale is not successful", inter.ErrWrongState)
	}
	if e.feeClaimed || e.totalPurchased.Sign() == 0 {
		return nil
	}

	fee := new(big.Int)
	if e.kind.FeeBearing() && !e.policy.FeePct().IsZero() {
		fee = e.policy.FeePct().MulCeil(e.totalPurchased)
		if err := e.token.Mint(e.policy.FeeTreasury(), fee); err != nil {
			return err
		}
	}
	swept := e.settle.Held()
	if swept.Sign() > 0 {
		if err := e.settle.Pay(e.poolTreasury, swept); err != nil {
			return err
		}
	}
	e.feeClaimed = true

	if _, _, err := e.dir.AddEventRecord("sale.funds-transferred", e.addr, feesSweptRecord{
		ID:    uint64(e.id),
		Fee:   fee,
		Swept: swept,
	}); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{
		"fee":   fee.String(),
		"swept": swept.String(),
	}).Info("funds transferred")
	return nil
}

// lockupGuard restricts transfers of event-credited balances while the
// lockup window is in force. The locked amount is what the event has
// credited so far (purchased minus still-unreleased vesting); transfers may
// only spend the balance above it.
func (e *Event) lockupGuard(from common.Address, amount *big.Int) error {
	if !e.lockupActive() {
		return nil
	}
	locked := new(big.Int).Sub(e.PurchasedOf(from), e.vest.Outstanding(e.id, from))
	free := new(big.Int).Sub(e.token.BalanceOf(from), locked)
	if free.Cmp(amount) < 0 {
		return fmt.Errorf("%w: lockup in force until block %d", ledger.ErrTransferLocked,
			uint64(e.createdAt+e.params.LockupBlocks))
	}
	return nil
}

func (e *Event) lockupActive() bool {
	if e.params.LockupBlocks == 0 || e.lockupTVLReached {
		return false
	}
	return e.clock.Current() < e.createdAt+e.params.LockupBlocks
}
