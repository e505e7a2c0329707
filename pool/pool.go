package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-pool-core/chaincore"
	"github.com/rony4d/go-pool-core/governance"
	"github.com/rony4d/go-pool-core/inter"
	"github.com/rony4d/go-pool-core/ledger"
	"github.com/rony4d/go-pool-core/registry"
	"github.com/rony4d/go-pool-core/sale"
	"github.com/rony4d/go-pool-core/vesting"
)

// Config wires a new pool to its collaborators and rules.
type Config struct {
	Addr         common.Address
	GovernorAddr common.Address

	// Treasury is the pool treasury account: it receives swept settlement
	// funds and is the source of governance-ordered transfers. For native
	// settlement it is also the designated payment receiver and refund
	// reserve.
	Treasury common.Address

	Token     *ledger.Token
	TokenAddr common.Address
	TokenKind registry.ContractKind

	Values *chaincore.ValueLedger

	// UnitOfAccount, when set, switches the pool's sale events to token
	// settlement in this unit; nil means native-value settlement.
	UnitOfAccount *ledger.Token
	UnitAddr      common.Address

	Rules Rules

	Policy    *registry.Policy
	Directory *registry.Directory
	Auth      *registry.Authorizer
	Clock     inter.Clock
	Log       logrus.FieldLogger
}

// Pool is one self-funding, self-governing entity: a token, the sale events
// issuing it, and the governance engine voting with it.
//
// The first event ever created for the token is its primary sale. A pool
// only becomes self-governing once the primary sale succeeds; a failed
// primary permanently forecloses issuing the token again.
type Pool struct {
	log   logrus.FieldLogger
	clock inter.Clock

	addr     common.Address
	treasury common.Address

	token     *ledger.Token
	tokenAddr common.Address
	tokenKind registry.ContractKind

	values   *chaincore.ValueLedger
	unit     *ledger.Token
	unitAddr common.Address

	rules Rules

	policy *registry.Policy
	dir    *registry.Directory
	auth   *registry.Authorizer

	vest *vesting.Ledger
	gov  *governance.Engine

	events      []*sale.Event
	nextEventID vesting.EventID
}

// New validates the rules, registers the pool and its token with the
// directory, and constructs the vesting ledger and governance engine.
func New(cfg Config) (*Pool, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: bad pool rules", inter.ErrInvalidParameters)
	}
	if _, err := cfg.Directory.AddContractRecord(cfg.Addr, registry.KindPool); err != nil {
		return nil, err
	}
	if _, err := cfg.Directory.AddContractRecord(cfg.TokenAddr, cfg.TokenKind); err != nil {
		return nil, err
	}

	p := &Pool{
		log:         cfg.Log.WithField("pool", cfg.Addr.Hex()),
		clock:       cfg.Clock,
		addr:        cfg.Addr,
		treasury:    cfg.Treasury,
		token:       cfg.Token,
		tokenAddr:   cfg.TokenAddr,
		tokenKind:   cfg.TokenKind,
		values:      cfg.Values,
		unit:        cfg.UnitOfAccount,
		unitAddr:    cfg.UnitAddr,
		rules:       cfg.Rules,
		policy:      cfg.Policy,
		dir:         cfg.Directory,
		auth:        cfg.Auth,
		nextEventID: 1,
	}
	p.vest = vesting.New(cfg.Clock, cfg.Log, cfg.Token)

	gov, err := governance.NewEngine(governance.EngineConfig{
		Addr:      cfg.GovernorAddr,
		Config:    cfg.Rules.GovernanceConfig(),
		Weights:   governance.NewLedgerWeights(cfg.Token),
		Executor:  p,
		Policy:    cfg.Policy,
		Directory: cfg.Directory,
		Auth:      cfg.Auth,
		Clock:     cfg.Clock,
		Log:       cfg.Log,
		Ready:     p.governanceReady,
	})
	if err != nil {
		return nil, err
	}
	p.gov = gov
	return p, nil
}

// Addr returns the pool's directory address.
func (p *Pool) Addr() common.Address { return p.addr }

// Treasury returns the pool treasury account.
func (p *Pool) Treasury() common.Address { return p.treasury }

// Token returns the pool's token ledger.
func (p *Pool) Token() *ledger.Token { return p.token }

// Vesting returns the pool's vesting ledger.
func (p *Pool) Vesting() *vesting.Ledger { return p.vest }

// Governance returns the pool's governance engine.
func (p *Pool) Governance() *governance.Engine { return p.gov }

// Events returns the sale events created so far, oldest first.
func (p *Pool) Events() []*sale.Event {
	return append([]*sale.Event(nil), p.events...)
}

// PrimaryEvent returns the primary sale event, or nil before any event
// exists.
func (p *Pool) PrimaryEvent() *sale.Event {
	if len(p.events) == 0 {
		return nil
	}
	return p.events[0]
}

// SelfGoverning reports whether the pool governs itself: true once its
// primary sale has resolved Successful.
func (p *Pool) SelfGoverning() bool {
	primary := p.PrimaryEvent()
	return primary != nil && primary.State() == sale.StateSuccessful
}

// Foreclosed reports whether token issuance is permanently foreclosed by a
// failed primary sale.
func (p *Pool) Foreclosed() bool {
	primary := p.PrimaryEvent()
	return primary != nil && primary.State() == sale.StateFailed
}

func (p *Pool) governanceReady() error {
	if !p.SelfGoverning() {
		return fmt.Errorf("%w: pool is not self-governing until its primary sale succeeds", inter.ErrWrongState)
	}
	return nil
}

// CreateSaleEvent creates a sale event directly. Owner capability required;
// governance-authorized creation goes through ApplyAction instead.
func (p *Pool) CreateSaleEvent(actor common.Address, params sale.Params) (*sale.Event, error) {
	if err := p.policy.Guard(); err != nil {
		return nil, err
	}
	if err := p.auth.Authorize(actor, registry.CapOwner); err != nil {
		return nil, err
	}
	return p.createEvent(params)
}

// OpenVestingGate sets an event's vesting claim gate. Manager capability
// required; the gate is a one-way latch.
func (p *Pool) OpenVestingGate(actor common.Address, ev vesting.EventID) error {
	if err := p.policy.Guard(); err != nil {
		return err
	}
	if err := p.auth.Authorize(actor, registry.CapManager); err != nil {
		return err
	}
	p.vest.OpenGate(ev)
	return nil
}

// checkCreate validates everything createEvent would reject, without
// writing.
func (p *Pool) checkCreate(params sale.Params) error {
	if p.Foreclosed() {
		return fmt.Errorf("%w: primary sale failed, token issuance is foreclosed", inter.ErrWrongState)
	}
	if params.Duration < p.rules.Sale.MinDuration || params.Duration > p.rules.Sale.MaxDuration {
		return fmt.Errorf("%w: sale duration outside network bounds", inter.ErrInvalidParameters)
	}
	return params.Validate(len(p.events) == 0)
}

func (p *Pool) createEvent(params sale.Params) (*sale.Event, error) {
	if err := p.checkCreate(params); err != nil {
		return nil, err
	}
	id := p.nextEventID
	addr := chaincore.DeriveAddress(p.addr, uint64(id))

	var settle sale.Settlement
	if p.unit != nil {
		settle = sale.NewAssetSettlement(p.unit, p.unitAddr, addr)
	} else {
		settle = sale.NewNativeSettlement(p.values, p.treasury)
	}

	ev, err := sale.NewEvent(sale.EventConfig{
		ID:           id,
		Addr:         addr,
		TokenKind:    p.tokenKind,
		Primary:      len(p.events) == 0,
		Params:       params,
		PoolTreasury: p.treasury,
		Token:        p.token,
		Vesting:      p.vest,
		Policy:       p.policy,
		Directory:    p.dir,
		Settlement:   settle,
		Clock:        p.clock,
		Log:          p.log,
	})
	if err != nil {
		return nil, err
	}
	p.events = append(p.events, ev)
	p.nextEventID++
	return ev, nil
}

// CheckActions implements governance.Executor: it validates the action list
// against current state without applying anything. Transfer checks are
// cumulative, so a list whose transfers are individually covered but jointly
// overdraw the treasury is rejected whole.
func (p *Pool) CheckActions(actions []governance.Action) error {
	valueLeft := p.values.BalanceOf(p.treasury)
	tokenLeft := p.token.BalanceOf(p.treasury)
	for _, a := range actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %s: %w", a.Kind, err)
		}
		switch a.Kind {
		case governance.ActionTransferValue:
			if valueLeft.Cmp(a.Amount) < 0 {
				return fmt.Errorf("%w: treasury value balance insufficient for action list", inter.ErrInvalidParameters)
			}
			valueLeft = new(big.Int).Sub(valueLeft, a.Amount)
		case governance.ActionTransferAsset:
			if tokenLeft.Cmp(a.Amount) < 0 {
				return fmt.Errorf("%w: treasury token balance insufficient for action list", inter.ErrInvalidParameters)
			}
			tokenLeft = new(big.Int).Sub(tokenLeft, a.Amount)
		case governance.ActionSetConfig:
			if err := a.Config.Validate(); err != nil {
				return err
			}
		case governance.ActionCreateSale:
			if err := p.checkCreate(*a.SaleParams); err != nil {
				return err
			}
		}
	}
	return nil
}

// ApplyAction implements governance.Executor.
func (p *Pool) ApplyAction(a governance.Action) error {
	switch a.Kind {
	case governance.ActionTransferValue:
		return p.values.Transfer(p.treasury, a.To, a.Amount)
	case governance.ActionTransferAsset:
		return p.token.Transfer(p.treasury, a.To, a.Amount)
	case governance.ActionSetConfig:
		return p.gov.SetConfig(*a.Config)
	case governance.ActionCreateSale:
		_, err := p.createEvent(*a.SaleParams)
		return err
	default:
		return fmt.Errorf("%w: unknown action kind", inter.ErrInvalidParameters)
	}
}

// TreasuryValue returns the treasury's native value balance.
func (p *Pool) TreasuryValue() *big.Int {
	return p.values.BalanceOf(p.treasury)
}
