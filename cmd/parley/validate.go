package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley/internal/adapters/file"
	"github.com/aretw0/parley/internal/adapters/memory"
	"github.com/aretw0/parley/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph.yaml>",
	Short: "Check a graph file for mistakes",
	Long: `Loads a YAML graph file and reports dangling destinations,
missing name-capture branches, and unreachable exchanges. Warnings are
printed but only errors fail the command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stores := memory.NewStores()
		if _, err := file.LoadAndSeed(ctx, stores, args[0]); err != nil {
			return err
		}

		issues, err := validator.ValidateGraph(ctx, stores)
		if err != nil {
			return err
		}

		for _, issue := range issues {
			fmt.Println(issue)
		}
		if err := validator.Summarize(issues); err != nil {
			return err
		}

		fmt.Printf("%s is valid (%d warnings)\n", args[0], len(issues))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
