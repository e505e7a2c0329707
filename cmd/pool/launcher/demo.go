package launcher

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-pool-core/chaincore"
	"github.com/rony4d/go-pool-core/governance"
	"github.com/rony4d/go-pool-core/ledger"
	"github.com/rony4d/go-pool-core/pool"
	"github.com/rony4d/go-pool-core/registry"
	"github.com/rony4d/go-pool-core/sale"
	"github.com/rony4d/go-pool-core/vesting"
)

// demoAction runs a complete fundraise-then-govern scenario on a fake
// chain: genesis funding, a primary sale filled by several buyers, fund
// sweep with fee accrual, a vesting claim, and one governance round that
// pays a grant from the pool treasury.
func demoAction(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	log, err := makeLogger(cfg.Logging)
	if err != nil {
		return err
	}
	if cfg.Demo.Buyers < 1 {
		return fmt.Errorf("demo needs at least one buyer")
	}

	clock := chaincore.NewClock(1)
	values := chaincore.NewValueLedger()

	var seed common.Address
	owner := chaincore.DeriveAddress(seed, 1)
	feeTreasury := chaincore.DeriveAddress(seed, 2)
	poolTreasury := chaincore.DeriveAddress(seed, 3)
	buyers := make([]common.Address, cfg.Demo.Buyers)
	genesis := make(map[common.Address]*big.Int, len(buyers))
	for i := range buyers {
		buyers[i] = chaincore.DeriveAddress(seed, uint64(10+i))
		genesis[buyers[i]] = big.NewInt(1_000_000)
	}
	chaincore.ApplyFakeGenesis(values, genesis)

	auth := registry.NewAuthorizer()
	auth.Grant(owner, registry.CapOwner)
	auth.Grant(owner, registry.CapSecretary)
	auth.Grant(owner, registry.CapProposer)
	policy, err := registry.NewPolicy(log, auth, cfg.Rules.Fee.ProtocolFee, feeTreasury)
	if err != nil {
		return err
	}
	dir := registry.NewDirectory(clock, log)

	tokenCap := new(big.Int).Mul(new(big.Int).SetUint64(cfg.Demo.Hardcap), big.NewInt(2))
	token, err := ledger.NewToken(clock, log, "Demo Pool Equity", "DPEQ", tokenCap)
	if err != nil {
		return err
	}

	p, err := pool.New(pool.Config{
		Addr:         chaincore.DeriveAddress(seed, 4),
		GovernorAddr: chaincore.DeriveAddress(seed, 5),
		Treasury:     poolTreasury,
		Token:        token,
		TokenAddr:    chaincore.DeriveAddress(seed, 6),
		TokenKind:    registry.KindEquityToken,
		Values:       values,
		Rules:        cfg.Rules,
		Policy:       policy,
		Directory:    dir,
		Auth:         auth,
		Clock:        clock,
		Log:          log,
	})
	if err != nil {
		return err
	}

	// primary sale: 0.01 value units per token, 20% vesting behind a short
	// cliff-then-span schedule
	price := new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil)
	params := sale.Params{
		Price:       price,
		Hardcap:     new(big.Int).SetUint64(cfg.Demo.Hardcap),
		Softcap:     new(big.Int).SetUint64(cfg.Demo.Softcap),
		MinPurchase: big.NewInt(10),
		MaxPurchase: new(big.Int).SetUint64(cfg.Demo.Hardcap),
		Duration:    cfg.Demo.Duration,
		VestingPct:  200_000, // 20%
		VestingSchedule: vesting.Schedule{
			CliffBlocks:  5,
			CliffShare:   500_000, // 50%
			Spans:        1,
			SpanDuration: 5,
			SpanShare:    500_000, // 50%
		},
	}
	ev, err := p.CreateSaleEvent(owner, params)
	if err != nil {
		return err
	}

	perBuyer := new(big.Int).SetUint64(cfg.Demo.Softcap)
	if fair := cfg.Demo.Hardcap / uint64(cfg.Demo.Buyers); fair < cfg.Demo.Softcap {
		perBuyer.SetUint64(fair)
	}
	for _, buyer := range buyers {
		clock.Advance(1)
		payment := ev.Cost(perBuyer)
		if err := ev.Purchase(buyer, perBuyer, payment); err != nil {
			return err
		}
	}

	clock.AdvanceTo(ev.CreatedAt() + cfg.Demo.Duration)
	log.WithField("state", ev.State().String()).Info("sale window elapsed")
	if err := ev.TransferFunds(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"fee-treasury": token.BalanceOf(feeTreasury).String(),
		"treasury":     p.TreasuryValue().String(),
	}).Info("funds transferred")

	clock.Advance(10) // past the cliff and span
	if _, err := ev.Claim(buyers[0]); err != nil {
		return err
	}

	// governance round: pay a grant of 1 value unit from the treasury
	grant := governance.Action{
		Kind:   governance.ActionTransferValue,
		To:     buyers[0],
		Amount: big.NewInt(1),
	}
	id, err := p.Governance().Propose(owner, governance.CategoryFunding,
		[]governance.Action{grant}, "demo grant")
	if err != nil {
		return err
	}
	prop := p.Governance().Proposal(id)
	clock.AdvanceTo(prop.StartBlock)
	for _, buyer := range buyers {
		// enough votes may lock the outcome early and close the ballot box
		if p.Governance().ProposalState(id) != governance.StateActive {
			break
		}
		if err := p.Governance().CastVote(buyer, id, governance.VoteFor); err != nil {
			return err
		}
	}
	clock.AdvanceTo(prop.EndBlock + prop.ExecutionDelay)
	if err := p.Governance().Execute(owner, id); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"proposal":      id,
		"state":         p.Governance().ProposalState(id).String(),
		"audit-records": dir.EventCount(),
	}).Info("demo scenario complete")
	return nil
}
