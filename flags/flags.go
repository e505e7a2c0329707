// Package flags defines the CLI flag sets shared across pool commands.
package flags

import (
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

// NewApp returns the base CLI application for the pool binary.
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "pool"
	app.Usage = "Pool fundraising and governance runtime"
	app.Version = "0.1.0"
	app.Writer = os.Stdout
	return app
}

// CommonFlags returns the base set of CLI flags shared across commands.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Network rules to run with (main|test|fake)",
			Value: "fake",
		},
		cli.StringFlag{
			Name:  "preset",
			Usage: "Governance/fee preset (default|seed|standard|institutional)",
			Value: "default",
		},
		cli.StringFlag{
			Name:  "log.format",
			Usage: "Log output format (text|json)",
			Value: "text",
		},
		cli.IntFlag{
			Name:  "log.verbosity",
			Usage: "Logging verbosity (0=panic ... 4=info, 5=debug)",
			Value: 4,
		},
		cli.StringFlag{
			Name:  "sentry.dsn",
			Usage: "Sentry DSN for error reporting (empty disables the hook)",
		},
	}
}

// DemoFlags returns the flags of the demo scenario command.
func DemoFlags() []cli.Flag {
	return []cli.Flag{
		cli.Uint64Flag{
			Name:  "demo.hardcap",
			Usage: "Hardcap of the demo primary sale (token units)",
			Value: 5000,
		},
		cli.Uint64Flag{
			Name:  "demo.softcap",
			Usage: "Softcap of the demo primary sale (token units)",
			Value: 1000,
		},
		cli.Uint64Flag{
			Name:  "demo.duration",
			Usage: "Demo sale duration in blocks",
			Value: 20,
		},
		cli.Uint64Flag{
			Name:  "demo.buyers",
			Usage: "Number of funded demo buyers",
			Value: 3,
		},
	}
}
