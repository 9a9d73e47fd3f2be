package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley/internal/adapters/file"
	"github.com/aretw0/parley/internal/adapters/postgres"
	"github.com/aretw0/parley/internal/config"
)

var loadCmd = &cobra.Command{
	Use:   "load <graph.yaml>",
	Short: "Seed a graph file into the database",
	Long: `Loads exchanges, keywords, and tangents from a YAML graph file
into Postgres (DATABASE_URL). Seeding is idempotent; running it again
with the same file replaces rows instead of duplicating them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}

		ctx := cmd.Context()
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pg.Close()

		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}

		g, err := file.LoadAndSeed(ctx, pg.Stores(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Seeded %d exchanges and %d tangents from %s\n",
			len(g.Exchanges), len(g.Tangents), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
