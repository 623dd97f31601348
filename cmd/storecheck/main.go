package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	internalcli "github.com/themizzi/storecheck/internal/cli"
	"github.com/themizzi/storecheck/internal/config"
	. "github.com/themizzi/storecheck/internal/logging"
	"github.com/themizzi/storecheck/internal/services"
)

var version = "0.1.0"

var suiteFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "suite",
		Aliases: []string{"s"},
		Usage:   "YAML suite file layered under the environment",
		EnvVars: []string{"STORECHECK_SUITE"},
	},
	&cli.StringSliceFlag{
		Name:  "scenario",
		Usage: "run only the named scenario (repeatable)",
	},
}

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the demo storefront",
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("missing required server configuration: %w", err)
			}

			deps, err := internalcli.BuildServerDependencies(c.Context, cfg)
			if err != nil {
				return err
			}

			return internalcli.RunServe(deps)
		},
	}
}

// RunCommand returns the run command
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the acceptance scenarios once",
		Flags: suiteFlags,
		Action: func(c *cli.Context) error {
			deps, err := internalcli.BuildSuiteDependencies(os.Getenv, c.String("suite"), c.StringSlice("scenario"))
			if err != nil {
				return err
			}
			defer deps.Close()

			_, err = internalcli.RunSuite(c.Context, deps.Runner(), deps.Scenarios, c.App.Writer)
			if errors.Is(err, internalcli.ErrSuiteFailed) {
				return cli.Exit(err.Error(), 1)
			}
			return err
		},
	}
}

// WatchCommand returns the watch command
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Run the acceptance scenarios on a schedule",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "serve suite metrics on this address, e.g. :9102",
				EnvVars: []string{"STORECHECK_METRICS_ADDR"},
			},
		}, suiteFlags...),
		Action: func(c *cli.Context) error {
			deps, err := internalcli.BuildSuiteDependencies(os.Getenv, c.String("suite"), c.StringSlice("scenario"))
			if err != nil {
				return err
			}
			defer deps.Close()

			return internalcli.RunWatch(c.Context, deps, c.String("metrics-addr"), c.App.Writer)
		},
	}
}

// ResultsCommand returns the results command
func ResultsCommand() *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "List recorded suite runs, or the attempts of one run",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "run", Usage: "suite run id to show attempts for"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "number of runs to list"},
		},
		Action: func(c *cli.Context) error {
			store, closeStore, err := internalcli.OpenPersistedResultStore(os.Getenv)
			if err != nil {
				return err
			}
			defer closeStore()

			return internalcli.PrintResults(services.NewResultService(store), c.String("run"), c.Int("limit"), c.App.Writer)
		},
	}
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		L_debug("no .env file, using environment variables")
	}

	app := &cli.App{
		Name:    "storecheck",
		Usage:   "Acceptance checks for an OpenCart style storefront",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"STORECHECK_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg := DefaultConfig()
			cfg.Level = ParseLevel(c.String("log-level"))
			Init(cfg)
			return nil
		},
		Commands: []*cli.Command{
			ServeCommand(),
			RunCommand(),
			WatchCommand(),
			ResultsCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		L_error("storecheck failed", "error", err)
		stop()
		os.Exit(1)
	}
}
