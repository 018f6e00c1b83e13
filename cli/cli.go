package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/perfgo/citriage/config"
	"github.com/perfgo/citriage/history"
)

const AppName = "citriage"

const envConfig = "CITRIAGE_CONFIG"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
	cfg    *config.Config
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cfg:    config.Default(),
	}
	app.cli = &cli.App{
		Name:  AppName,
		Usage: "Triage go test failures from CI logs",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose (debug) logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				EnvVars: []string{envConfig},
				Value:   AppName + ".yaml",
			},
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			cfg, err := config.Load(ctx.String("config"))
			if err != nil {
				return err
			}
			app.cfg = cfg
			return nil
		},
	}

	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "parse",
		Usage:     "Parse go test log files and triage the failures",
		ArgsUsage: "LOG_FILE...",
		Action:    app.parse,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "job-url",
				Usage: "Browser URL of the CI job the logs belong to (https://github.com/<owner>/<repo>/actions/runs/<run>/job/<job>)",
			},
			&cli.StringFlag{
				Name:  "job-name",
				Usage: "Name of the CI job, shown in summaries",
			},
			&cli.IntFlag{
				Name:  "step",
				Usage: "Index of the log step within the job, used for deep links",
			},
			&cli.StringFlag{
				Name:  "package",
				Usage: "Package pattern for the printed rerun command",
				Value: "./...",
			},
			&cli.BoolFlag{
				Name:  "record",
				Usage: "Record the triage in the history so the failures are known next time",
			},
			&cli.StringFlag{
				Name:  "metrics",
				Usage: "Write Prometheus metrics in text format to this file",
			},
			&cli.StringFlag{
				Name:  "profile",
				Usage: "Write a pprof profile of test durations to this file",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "fetch",
		Usage:  "Download the logs of recent GitHub Actions workflow runs",
		Action: app.fetch,
		Flags: []cli.Flag{
			sinceFlag(24 * time.Hour),
			&cli.IntFlag{
				Name:  "max-downloads",
				Usage: "Maximum number of runs to download (overrides config)",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "summary",
		Usage:  "Summarize test results across downloaded logs",
		Action: app.summary,
		Flags: []cli.Flag{
			sinceFlag(7 * 24 * time.Hour),
			&cli.BoolFlag{
				Name:  "fetch",
				Usage: "Download new logs before summarizing",
			},
			&cli.StringFlag{
				Name:  "step-name",
				Usage: "Name of the log step holding the test output (overrides config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the detailed markdown summary to this directory",
			},
			&cli.StringSliceFlag{
				Name:  "expected",
				Usage: "Test names expected in the logs, missing ones are reported as skipped",
			},
			&cli.StringFlag{
				Name:  "metrics",
				Usage: "Write Prometheus metrics in text format to this file",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "list",
		Usage:  "List previous triage runs",
		Action: app.list,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "job",
				Aliases: []string{"j"},
				Usage:   "Filter by job name substring",
			},
			&cli.BoolFlag{
				Name:  "failed",
				Usage: "Only show entries with failures",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:            "view",
		Usage:           "View a triage run from history",
		ArgsUsage:       "[ID|INDEX]",
		Action:          app.view,
		SkipFlagParsing: true,
		Description: `View a triage run from history.

Arguments:
  0           View last triage run (default)
  -1          View 2nd last triage run
  -2          View 3rd last triage run
  <hex-id>    View triage run matching the hex ID prefix

Any further arguments are passed to "go tool pprof" together with the
duration profile of the run.

Examples:
  citriage view                # View last triage run
  citriage view -1             # View 2nd last triage run
  citriage view abc123         # View triage run with ID starting with abc123
  citriage view 0 -- -top      # Show the slowest tests of the last run`,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:  "schema",
		Usage: "Terraform provider schema tooling",
		Subcommands: []*cli.Command{
			{
				Name:   "apply",
				Usage:  "Apply the schema extensions to a provider code spec",
				Action: app.schemaApply,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "schema-config",
						Usage:    "YAML file with resource and data source extensions",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "spec",
						Usage:    "Provider code spec JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the modified spec here (default: overwrite --spec)",
					},
					&cli.StringFlag{
						Name:  "generator-config",
						Usage: "Also write the generator config for the configured resources to this file",
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Provider name used in the generator config",
						Value: "mongodbatlas",
					},
				},
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:  "hcl",
		Usage: "Terraform HCL tooling",
		Subcommands: []*cli.Command{
			{
				Name:      "describe",
				Usage:     "Set the descriptions of variable blocks",
				ArgsUsage: "TF_FILE",
				Action:    app.hclDescribe,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "descriptions",
						Usage:    "YAML file mapping variable names to descriptions",
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "write",
						Aliases: []string{"w"},
						Usage:   "Rewrite the file in place instead of printing it",
					},
					&cli.StringFlag{
						Name:  "existing",
						Usage: "Write the previous descriptions as YAML to this file",
					},
				},
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:  "build",
		Usage: "Copy shared files into a package tree before building it",
		Subcommands: []*cli.Command{
			{
				Name:      "copy",
				Usage:     "Copy the configured files",
				ArgsUsage: "[PATH...]",
				Action:    app.buildCopy,
				Flags:     buildFlags(),
			},
			{
				Name:      "clean",
				Usage:     "Remove the copied files again",
				ArgsUsage: "[PATH...]",
				Action:    app.buildClean,
				Flags:     buildFlags(),
			},
		},
	})
	return app
}

func sinceFlag(value time.Duration) cli.Flag {
	return &cli.DurationFlag{
		Name:  "since",
		Usage: "Only consider workflow runs created within this duration",
		Value: value,
	}
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && len(commit) >= 8 {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

func (a *App) historyRoot() (string, error) {
	return history.Root(a.cfg.HistoryDir)
}

// logsDir falls back to a logs directory next to the history.
func (a *App) logsDir() (string, error) {
	if a.cfg.LogsDir != "" {
		return a.cfg.LogsDir, nil
	}
	root, err := a.historyRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "logs"), nil
}
