package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dropxhq/dropx/client"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "dropx",
		Usage: "Solana wallet console CLI",
		Description: `A command-line tool for driving and debugging the dropx wallet console.

Use this CLI to inspect the wallet, move SOL and SPL tokens, and browse
the operation archive.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// Wallet state commands
			{
				Name:  "wallet",
				Usage: "Wallet state commands",
				Subcommands: []*cli.Command{
					statusCommand(),
					balanceCommand(),
					tokensCommand(),
					historyCommand(),
				},
			},
			// Chain-mutating operations
			airdropCommand(),
			sendCommand(),
			sendTokenCommand(),
			// Network selection
			networkCommand(),
			// Operation archive
			operationsCommand(),
			// Server utility commands
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Server URL for health checks",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// serverFlag is the per-command console address flag.
func serverFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Value:   "http://localhost:8080",
		Usage:   "HTTP server URL",
		EnvVars: []string{"DROPX_SERVER_URL"},
	}
}

// jsonFlag toggles machine-readable output.
func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "json",
		Aliases: []string{"j"},
		Usage:   "Output as JSON",
	}
}

// newAPIClient builds a console client that logs only errors to stderr,
// keeping stdout clean for command output.
func newAPIClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return client.NewClient(c.String("server"), nil, logger)
}
