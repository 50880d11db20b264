package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the seed dataset into the store once and exit",
		Long: `Fetch the product transaction dataset from SEED_URL and bulk insert it.
Seeding is additive: running it twice stores every record twice.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			result, err := a.commands.SeedTransactions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d transactions (batch %s) from %s\n", result.Inserted, result.BatchID, result.Source)
			return nil
		},
	}
}
