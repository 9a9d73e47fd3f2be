package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley is a scripted conversational agent",
	Long: `Parley walks a directed graph of exchanges with keyword-triggered
transitions and holds one persisted session per remote party. It serves
conversations over HTTP, pushes out-of-band messages over NATS, and
keeps its graph in Postgres, sessions in Redis, or everything in memory.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
