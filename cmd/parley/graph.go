package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley/internal/adapters/file"
	"github.com/aretw0/parley/internal/adapters/memory"
	"github.com/aretw0/parley/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph <graph.yaml>",
	Short: "Render a graph file as a Mermaid diagram",
	Long: `Prints Mermaid flowchart syntax for a YAML graph file. Paste the
output into a Mermaid renderer (or a Markdown file) to see the
conversation flow.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		stores := memory.NewStores()
		if _, err := file.LoadAndSeed(ctx, stores, args[0]); err != nil {
			return err
		}

		exchanges, err := stores.Prompts.List(ctx)
		if err != nil {
			return err
		}
		keywords := make(map[string]map[string]string, len(exchanges))
		for _, ex := range exchanges {
			kw, err := stores.Keywords.Mapping(ctx, ex.Name)
			if err != nil {
				return err
			}
			if len(kw) > 0 {
				keywords[ex.Name] = kw
			}
		}

		fmt.Print(graph.GenerateMermaid(exchanges, keywords, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
