package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley"
	fileadapter "github.com/aretw0/parley/internal/adapters/file"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/ports"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a graph locally",
	Long: `Runs an interactive conversation against a YAML graph file.
Session state persists under the data directory, so quitting and
resuming continues the same conversation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		graphFile, _ := cmd.Flags().GetString("graph")
		sessionID, _ := cmd.Flags().GetString("session")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		plain, _ := cmd.Flags().GetBool("plain")

		ctx := cmd.Context()

		render := tui.PlainRenderer()
		if !plain {
			render = tui.NewRenderer()
		}

		// Autofollow pushes land on stdout like any other reply.
		echo := ports.DelivererFunc(func(ctx context.Context, sessionID, text string) error {
			fmt.Println(render(text))
			return nil
		})

		bot, err := parley.New(
			parley.WithLogger(logging.New(logging.ParseLevel(os.Getenv("LOG_LEVEL")))),
			parley.WithStores(ports.Stores{
				Sessions: fileadapter.NewStore(filepath.Join(dataDir, "sessions")),
			}),
			parley.WithDeliverer(echo),
		)
		if err != nil {
			return err
		}

		if _, err := fileadapter.LoadAndSeed(ctx, bot.Stores(), graphFile); err != nil {
			return err
		}

		if !plain {
			tui.PrintBanner()
		}
		fmt.Printf("Chatting as %q against %s. Type 'exit' to quit.\n", sessionID, graphFile)

		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Print("> ")
			line, err := reader.ReadString('\n')
			if err != nil {
				fmt.Println()
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "exit" || line == "quit" {
				fmt.Println("Bye!")
				return nil
			}
			if line == "" {
				continue
			}

			reply, ok, err := bot.Converse(ctx, sessionID, line)
			if err != nil {
				return err
			}
			if ok {
				fmt.Println(render(reply))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("graph", "g", "graph.yaml", "YAML graph file to load")
	chatCmd.Flags().StringP("session", "s", "local", "Session ID to converse as")
	chatCmd.Flags().String("data-dir", ".parley", "Directory for persisted sessions")
	chatCmd.Flags().Bool("plain", false, "Disable markdown rendering")
}
