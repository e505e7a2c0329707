// This file maps the CLI context to the launcher's config struct.

package launcher

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-pool-core/integration"
	"github.com/rony4d/go-pool-core/pool"
)

// Config aggregates every subsystem's configuration the launcher needs.
type Config struct {
	Rules   pool.Rules
	Logging LoggingConfig
	Demo    DemoConfig
}

// LoggingConfig controls logrus setup and the optional Sentry hook.
type LoggingConfig struct {
	Format    string
	Verbosity int
	SentryDSN string
}

// DemoConfig parameterizes the demo fundraise scenario.
type DemoConfig struct {
	Hardcap  uint64
	Softcap  uint64
	Duration idx.Block
	Buyers   int
}

// MakeAllConfigs merges network defaults, the selected preset, then CLI flag
// overrides.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	var cfg Config

	switch network := ctx.GlobalString("network"); network {
	case "main":
		cfg.Rules = pool.MainNetRules()
	case "test":
		cfg.Rules = pool.TestNetRules()
	case "fake":
		cfg.Rules = pool.FakeNetRules()
	default:
		return cfg, fmt.Errorf("unknown network %q", network)
	}

	if name := ctx.GlobalString("preset"); name != "" && name != "default" {
		preset, err := integration.GetPresetByName(name)
		if err != nil {
			return cfg, err
		}
		// presets override the governance profile only; network rules keep
		// the fee and sale bounds
		cfg.Rules.Governance.ProposalThreshold = preset.Rules.Governance.ProposalThreshold
		cfg.Rules.Governance.QuorumThreshold = preset.Rules.Governance.QuorumThreshold
		cfg.Rules.Governance.DecisionThreshold = preset.Rules.Governance.DecisionThreshold
	}

	cfg.Logging = LoggingConfig{
		Format:    ctx.GlobalString("log.format"),
		Verbosity: ctx.GlobalInt("log.verbosity"),
		SentryDSN: ctx.GlobalString("sentry.dsn"),
	}
	cfg.Demo = DemoConfig{
		Hardcap:  ctx.Uint64("demo.hardcap"),
		Softcap:  ctx.Uint64("demo.softcap"),
		Duration: idx.Block(ctx.Uint64("demo.duration")),
		Buyers:   int(ctx.Uint64("demo.buyers")),
	}

	if err := cfg.Rules.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid rules after overrides: %v", err)
	}
	return cfg, nil
}
