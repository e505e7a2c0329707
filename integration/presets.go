// Package integration provides configuration presets and assembly helpers
// for bootstrapping a pool runtime. Presets bundle common fundraising and
// governance settings into named profiles (Seed, Standard, Institutional)
// so operators can spin up pools tuned for different raise sizes without
// tweaking dozens of flags.
//
// Usage:
//
//	rules := integration.SeedPreset().Rules      // small community raise
//	rules := integration.StandardPreset().Rules  // default profile
//	rules := integration.InstitutionalPreset().Rules
//
// Each preset returns a PresetConfig whose Rules can be merged into the
// launcher's main config during bootstrap.
package integration

import (
	"fmt"
	"math/big"

	"github.com/rony4d/go-pool-core/inter"
	"github.com/rony4d/go-pool-core/pool"
)

// PresetConfig captures the tunables that vary across preset profiles.
type PresetConfig struct {
	Name  string // human-readable identifier (e.g. "seed", "standard")
	Rules pool.Rules
}

// DefaultPreset returns the balanced baseline the named presets start from.
func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:  "default",
		Rules: pool.MainNetRules(),
	}
}

// SeedPreset tunes for small community raises: a minimal proposal threshold
// so early backers can govern, and a lower quorum so a sparse holder set can
// still decide.
func SeedPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "seed"
	cfg.Rules.Governance.ProposalThreshold = big.NewInt(1)
	cfg.Rules.Governance.QuorumThreshold = inter.PctFromPercent(25)
	return cfg
}

// StandardPreset is the mainnet profile unchanged, under its own name for
// explicit selection.
func StandardPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "standard"
	return cfg
}

// InstitutionalPreset tunes for large raises: a high proposal threshold and
// supermajority decisions, trading agility for capture resistance.
func InstitutionalPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "institutional"
	cfg.Rules.Governance.ProposalThreshold = big.NewInt(100000)
	cfg.Rules.Governance.QuorumThreshold = inter.PctFromPercent(50)
	cfg.Rules.Governance.DecisionThreshold = inter.PctFromPercent(66)
	return cfg
}

// GetPresetByName resolves a preset from its CLI name.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "", "default":
		return DefaultPreset(), nil
	case "seed":
		return SeedPreset(), nil
	case "standard":
		return StandardPreset(), nil
	case "institutional":
		return InstitutionalPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset %q", name)
	}
}
