package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

const divider = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:    "status",
		Aliases: []string{"st"},
		Usage:   "Show the wallet account, active network, and busy state",
		Flags: []cli.Flag{
			serverFlag(),
			jsonFlag(),
		},
		Action: func(c *cli.Context) error {
			cl := newAPIClient(c)

			status, err := cl.Status(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get wallet status: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(status, "", "  ")
				fmt.Println(string(data))
			} else {
				fmt.Println(divider)
				fmt.Println("Wallet Status")
				fmt.Println(divider)
				if status.Account == "" {
					fmt.Printf("Account: (disconnected)\n")
				} else {
					fmt.Printf("Account: %s\n", status.Account)
				}
				fmt.Printf("Network: %s\n", status.Network)
				fmt.Printf("Busy:    %v\n", status.Busy)
				fmt.Println(divider)
			}

			return nil
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:    "balance",
		Aliases: []string{"bal"},
		Usage:   "Show the SOL balance",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.BoolFlag{
				Name:    "refresh",
				Aliases: []string{"r"},
				Usage:   "Re-read the balance from the chain instead of the cache",
			},
			jsonFlag(),
		},
		Action: func(c *cli.Context) error {
			cl := newAPIClient(c)

			balance, err := cl.Balance(context.Background(), c.Bool("refresh"))
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.Marshal(map[string]string{"balance": balance})
				fmt.Println(string(data))
			} else if balance == "" {
				fmt.Println("Balance: (unavailable)")
			} else {
				fmt.Printf("Balance: %s SOL\n", balance)
			}

			return nil
		},
	}
}

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "List SPL token holdings (outputs JSON by default)",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.BoolFlag{
				Name:    "refresh",
				Aliases: []string{"r"},
				Usage:   "Re-read holdings from the chain instead of the cache",
			},
			&cli.BoolFlag{
				Name:    "table",
				Aliases: []string{"t"},
				Usage:   "Output as human-readable table instead of JSON",
			},
		},
		Action: func(c *cli.Context) error {
			cl := newAPIClient(c)

			holdings, err := cl.Tokens(context.Background(), c.Bool("refresh"))
			if err != nil {
				return fmt.Errorf("failed to list tokens: %w", err)
			}

			// Default to JSON output
			if !c.Bool("table") {
				data, _ := json.MarshalIndent(holdings, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			if len(holdings) == 0 {
				fmt.Println("No token holdings")
				return nil
			}

			fmt.Printf("Found %d token(s):\n\n", len(holdings))
			for _, h := range holdings {
				fmt.Println(divider)
				fmt.Printf("[%d] %s (%s)\n", h.ID, h.Name, h.Symbol)
				fmt.Printf("    Mint:    %s\n", h.Mint)
				fmt.Printf("    Balance: %s\n", h.Balance)
			}
			fmt.Println(divider)

			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"hist"},
		Usage:   "Show the reconstructed transaction history (outputs JSON by default)",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.BoolFlag{
				Name:    "refresh",
				Aliases: []string{"r"},
				Usage:   "Re-read history from the chain instead of the cache",
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Aliases: []string{"jq"},
				Usage:   "jq filter expression that must evaluate to true (can be specified multiple times, all must match)",
			},
			&cli.BoolFlag{
				Name:    "table",
				Aliases: []string{"t"},
				Usage:   "Output as human-readable table instead of JSON",
			},
		},
		Action: func(c *cli.Context) error {
			cl := newAPIClient(c)

			entries, err := cl.History(context.Background(), c.Bool("refresh"))
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}

			if filters := c.StringSlice("must-jq"); len(filters) > 0 {
				entries, err = filterHistory(entries, filters)
				if err != nil {
					return err
				}
			}

			// Default to JSON output
			if !c.Bool("table") {
				data, _ := json.MarshalIndent(entries, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			if len(entries) == 0 {
				fmt.Println("No history entries")
				return nil
			}

			fmt.Printf("Found %d entry(ies):\n\n", len(entries))
			for i, e := range entries {
				fmt.Printf("[%d] %s\n", i+1, e.Signature)
				if e.Type != "" {
					fmt.Printf("    Type:         %s\n", e.Type)
				}
				if e.Counterparty != "" {
					fmt.Printf("    Counterparty: %s\n", e.Counterparty)
				}
				if e.SolAmount != "" {
					fmt.Printf("    Amount:       %s SOL\n", e.SolAmount)
				}
				if e.TokenAmount != "" {
					symbol := e.TokenMetadata.Symbol
					if symbol == "" {
						symbol = e.Mint
					}
					fmt.Printf("    Amount:       %s %s\n", e.TokenAmount, symbol)
				}
				if e.OccurredAt != "" {
					fmt.Printf("    Time:         %s\n", e.OccurredAt)
				}
				fmt.Println()
			}

			return nil
		},
	}
}

func networkCommand() *cli.Command {
	return &cli.Command{
		Name:      "network",
		Aliases:   []string{"net"},
		Usage:     "Show or switch the active network",
		ArgsUsage: "[NETWORK]",
		Flags: []cli.Flag{
			serverFlag(),
			jsonFlag(),
		},
		Action: func(c *cli.Context) error {
			cl := newAPIClient(c)

			// With no argument, report the active network.
			if c.NArg() == 0 {
				network, err := cl.Network(context.Background())
				if err != nil {
					return fmt.Errorf("failed to get network: %w", err)
				}
				if c.Bool("json") {
					data, _ := json.Marshal(map[string]string{"network": network})
					fmt.Println(string(data))
				} else {
					fmt.Printf("Network: %s\n", network)
				}
				return nil
			}

			target := c.Args().Get(0)
			if err := cl.SwitchNetwork(context.Background(), target); err != nil {
				return fmt.Errorf("failed to switch network: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.Marshal(map[string]string{"network": target, "status": "switched"})
				fmt.Println(string(data))
			} else {
				fmt.Printf("✓ Switched to %s\n", target)
			}

			return nil
		},
	}
}
