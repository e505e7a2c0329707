// Package launcher assembles and runs the pool CLI: flag parsing, logging
// setup (logrus, optional Sentry hook), and the demo scenario command.
package launcher

import (
	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-pool-core/flags"
)

// Launch parses flags and dispatches to the selected command.
func Launch(args []string) error {
	app := flags.NewApp()
	app.Flags = flags.CommonFlags()
	app.Commands = []cli.Command{
		{
			Name:   "demo",
			Usage:  "Run a seeded end-to-end fundraise-then-govern scenario",
			Flags:  flags.DemoFlags(),
			Action: demoAction,
		},
	}
	app.Action = func(ctx *cli.Context) error {
		return cli.ShowAppHelp(ctx)
	}
	return app.Run(args)
}

// makeLogger configures a logrus logger from the logging config, attaching
// the Sentry hook when a DSN is provided.
func makeLogger(cfg LoggingConfig) (*logrus.Logger, error) {
	log := logrus.New()
	if cfg.Format == "json" {
		log.Formatter = &logrus.JSONFormatter{}
	} else {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}
	switch {
	case cfg.Verbosity <= 0:
		log.SetLevel(logrus.PanicLevel)
	case cfg.Verbosity == 1:
		log.SetLevel(logrus.FatalLevel)
	case cfg.Verbosity == 2:
		log.SetLevel(logrus.ErrorLevel)
	case cfg.Verbosity == 3:
		log.SetLevel(logrus.WarnLevel)
	case cfg.Verbosity == 4:
		log.SetLevel(logrus.InfoLevel)
	default:
		log.SetLevel(logrus.DebugLevel)
	}
	if cfg.SentryDSN != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.SentryDSN, []logrus.Level{
			logrus.PanicLevel,
			logrus.FatalLevel,
			logrus.ErrorLevel,
		})
		if err != nil {
			return nil, err
		}
		log.Hooks.Add(hook)
	}
	return log, nil
}
