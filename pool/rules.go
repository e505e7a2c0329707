// Package pool defines the network rules and the pool orchestrator tying
// the token ledger, the sale engine and the governance engine together.
//
// This package provides:
//   - Network identification constants (MainNet, TestNet, FakeNet)
//   - Fee rules (protocol fee percentage over the shared denominator)
//   - Sale rules (duration bounds for created events)
//   - Governance rules (thresholds, voting window, per-category delays)
//   - The Pool type: event creation, primary-sale gating of self-governance
//
// The Rules type is the central configuration structure handed to the
// launcher and presets; a given deployment constructs it once at bootstrap.
package pool

import (
	"encoding/json"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-pool-core/governance"
	"github.com/rony4d/go-pool-core/inter"
)

// Network identification constants
const (
	// MainNetworkID is the chain ID for the production pool network
	MainNetworkID uint64 = 0x1b58

	// TestNetworkID is the chain ID for the public test network
	TestNetworkID uint64 = 0x1b59

	// FakeNetworkID is the chain ID for local/fake networks used in testing
	FakeNetworkID uint64 = 0x1b5a
)

// FeeRules carries the protocol fee parameters.
type FeeRules struct {
	// ProtocolFee is the share of a successful fee-bearing sale minted to
	// the protocol treasury, over the shared 1,000,000 denominator.
	ProtocolFee inter.Pct
}

// SaleRules bounds the parameters of created sale events.
type SaleRules struct {
	// MinDuration / MaxDuration bound a sale window in blocks.
	MinDuration idx.Block
	MaxDuration idx.Block
}

// GovernanceRules is the governance configuration a fresh pool starts with.
type GovernanceRules struct {
	ProposalThreshold *big.Int
	QuorumThreshold   inter.Pct
	DecisionThreshold inter.Pct
	VotingStartDelay  idx.Block
	VotingDuration    idx.Block
	ExecutionDelays   map[governance.Category]idx.Block
}

// Rules describes the complete configuration of a pool network deployment.
type Rules struct {
	Name      string
	NetworkID uint64

	Fee        FeeRules
	Sale       SaleRules
	Governance GovernanceRules
}

// GovernanceConfig converts the rules into the engine's config type.
func (r Rules) GovernanceConfig() governance.Config {
	delays := make(map[governance.Category]idx.Block, len(r.Governance.ExecutionDelays))
	for k, v := range r.Governance.ExecutionDelays {
		delays[k] = v
	}
	return governance.Config{
		ProposalThreshold: new(big.Int).Set(r.Governance.ProposalThreshold),
		QuorumThreshold:   r.Governance.QuorumThreshold,
		DecisionThreshold: r.Governance.DecisionThreshold,
		VotingStartDelay:  r.Governance.VotingStartDelay,
		VotingDuration:    r.Governance.VotingDuration,
		ExecutionDelays:   delays,
	}
}

// Validate checks the rules' internal consistency.
func (r Rules) Validate() error {
	if !r.Fee.ProtocolFee.Valid() {
		return inter.ErrInvalidParameters
	}
	if r.Sale.MinDuration == 0 || r.Sale.MaxDuration < r.Sale.MinDuration {
		return inter.ErrInvalidParameters
	}
	return r.GovernanceConfig().Validate()
}

// String returns the JSON representation of the rules, used for config dumps
// in logs.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}

// MainNetRules returns the production network configuration with
// conservative parameters.
func MainNetRules() Rules {
	return Rules{
		Name:      "main",
		NetworkID: MainNetworkID,
		Fee: FeeRules{
			ProtocolFee: inter.PctFromPercent(2), // 2%
		},
		Sale: SaleRules{
			MinDuration: 300,     // ~5 minutes of blocks at 1s
			MaxDuration: 2592000, // ~30 days
		},
		Governance: GovernanceRules{
			ProposalThreshold: big.NewInt(1),
			QuorumThreshold:   inter.PctFromPercent(40),
			DecisionThreshold: inter.PctFromPercent(50),
			VotingStartDelay:  10,
			VotingDuration:    604800, // ~7 days of 1s blocks
			ExecutionDelays: map[governance.Category]idx.Block{
				governance.CategoryGeneral: 43200,  // ~12 hours
				governance.CategoryFunding: 86400,  // ~24 hours
				governance.CategoryConfig:  172800, // ~48 hours
				governance.CategorySale:    86400,
			},
		},
	}
}

// TestNetRules returns the public test network configuration: mainnet
// semantics with shortened windows.
func TestNetRules() Rules {
	r := MainNetRules()
	r.Name = "test"
	r.NetworkID = TestNetworkID
	r.Governance.VotingDuration = 1000
	r.Governance.ExecutionDelays = map[governance.Category]idx.Block{
		governance.CategoryGeneral: 100,
		governance.CategoryFunding: 200,
		governance.CategoryConfig:  400,
		governance.CategorySale:    200,
	}
	return r
}

// FakeNetRules returns the configuration for local development and tests:
// minimal windows so scenarios run in a handful of blocks.
func FakeNetRules() Rules {
	r := MainNetRules()
	r.Name = "fake"
	r.NetworkID = FakeNetworkID
	r.Sale.MinDuration = 1
	r.Governance.VotingStartDelay = 1
	r.Governance.VotingDuration = 10
	r.Governance.ExecutionDelays = map[governance.Category]idx.Block{
		governance.CategoryGeneral: 2,
		governance.CategoryFunding: 2,
		governance.CategoryConfig:  2,
		governance.CategorySale:    2,
	}
	return r
}
