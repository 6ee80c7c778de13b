package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/dropxhq/dropx/service/wallet"
)

func operationsCommand() *cli.Command {
	return &cli.Command{
		Name:    "operations",
		Aliases: []string{"ops"},
		Usage:   "List archived operations (outputs JSON by default)",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Value:   50,
				Usage:   "Maximum number of operations to retrieve (1-1000)",
			},
			&cli.IntFlag{
				Name:    "offset",
				Aliases: []string{"o"},
				Value:   0,
				Usage:   "Number of operations to skip",
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
			limit := c.Int("limit")
			offset := c.Int("offset")
			jqFilters := c.StringSlice("must-jq")

			if limit < 1 || limit > 1000 {
				return fmt.Errorf("limit must be between 1 and 1000")
			}
			if offset < 0 {
				return fmt.Errorf("offset cannot be negative")
			}

			compiledJQFilters, err := compileFilters(jqFilters)
			if err != nil {
				return err
			}

			cl := newAPIClient(c)

			ops, err := cl.Operations(context.Background(), limit, offset)
			if err != nil {
				return fmt.Errorf("failed to list operations: %w", err)
			}

			if len(compiledJQFilters) > 0 {
				ops, err = filterOperations(ops, compiledJQFilters)
				if err != nil {
					return err
				}
			}

			if !c.Bool("table") {
				data, _ := json.MarshalIndent(ops, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			if len(ops) == 0 {
				fmt.Println("No operations found")
				return nil
			}

			fmt.Printf("Found %d operation(s):\n\n", len(ops))
			for i, op := range ops {
				fmt.Printf("[%d] %s on %s\n", i+1, op.Kind, op.Network)
				fmt.Printf("    Outcome:   %s\n", op.Outcome)
				fmt.Printf("    Attempts:  %d\n", op.Attempts)
				if op.Amount != "" {
					fmt.Printf("    Amount:    %s\n", op.Amount)
				}
				if op.Recipient != "" {
					fmt.Printf("    Recipient: %s\n", op.Recipient)
				}
				if op.Signature != "" {
					fmt.Printf("    Signature: %s\n", op.Signature)
				}
				fmt.Printf("    At:        %s\n", op.OccurredAt)
				fmt.Println()
			}

			return nil
		},
	}
}

// compileFilters parses and compiles a list of jq expressions.
func compileFilters(filters []string) ([]*gojq.Code, error) {
	compiled := make([]*gojq.Code, len(filters))
	for i, filter := range filters {
		query, err := gojq.Parse(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
		}
	}
	return compiled, nil
}

// filterOperations keeps the records for which every compiled jq filter
// evaluates truthy. Records are passed to jq as generic JSON documents.
func filterOperations(ops []wallet.OperationRecord, filters []*gojq.Code) ([]wallet.OperationRecord, error) {
	kept := make([]wallet.OperationRecord, 0, len(ops))
	for _, op := range ops {
		doc, err := recordDocument(op)
		if err != nil {
			return nil, err
		}
		if matchesAll(doc, filters) {
			kept = append(kept, op)
		}
	}
	return kept, nil
}

// filterHistory keeps the entries for which every jq filter evaluates
// truthy.
func filterHistory(entries []wallet.HistoryEntry, filters []string) ([]wallet.HistoryEntry, error) {
	compiled, err := compileFilters(filters)
	if err != nil {
		return nil, err
	}
	kept := make([]wallet.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		doc, err := recordDocument(e)
		if err != nil {
			return nil, err
		}
		if matchesAll(doc, compiled) {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

// recordDocument round-trips a value through JSON so gojq sees the same
// field names the API emits.
func recordDocument(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return doc, nil
}

// matchesAll runs each filter against the document. All must return a
// truthy first result.
func matchesAll(doc interface{}, filters []*gojq.Code) bool {
	for _, code := range filters {
		iter := code.Run(doc)
		v, ok := iter.Next()
		if !ok {
			return false
		}
		if _, isErr := v.(error); isErr {
			return false
		}
		if !isTruthy(v) {
			return false
		}
	}
	return true
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	// Everything else (numbers, strings, objects, arrays) is truthy
	return true
}
