package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/data-autopilot/internal/config"
	"github.com/jonathan/data-autopilot/internal/loader"
	"github.com/jonathan/data-autopilot/internal/observability"
	"github.com/jonathan/data-autopilot/internal/session"
)

var chatCommand = &cobra.Command{
	Use:   "chat <file>",
	Short: "Open an interactive session over a data file",
	Long: `Loads the file and reads plain-language requests from stdin. Each request
is turned into a program, executed in the sandbox, and answered with the
result. Type "revert" to undo the autopilot transformations, "report" to
print the current run report, and "exit" to quit.`,
	Args: cobra.ExactArgs(1),
	RunE: runChatCmd,
}

var (
	chatConfigPath string
	chatAPIKey     string
	chatAutopilot  bool
)

func init() {
	chatCommand.Flags().StringVar(&chatConfigPath, "config", "", "Path to config.json file")
	chatCommand.Flags().StringVar(&chatAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	chatCommand.Flags().BoolVar(&chatAutopilot, "autopilot", false, "Run the autopilot pipeline before the first prompt")
	rootCmd.AddCommand(chatCommand)
}

func runChatCmd(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(config.Config{APIKey: chatAPIKey}, chatConfigPath)
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required for chat")
	}

	ds, err := loader.Load(args[0])
	if err != nil {
		return err
	}

	client, err := buildClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	sess := session.New(args[0], ds, client, buildExecutor(cfg), session.WithPilotOptions(pilotOptions(cfg)))
	printer := observability.NewPrinter(os.Stdout)

	fmt.Printf("Loaded %s: %d rows, %d columns\n", args[0], ds.RowCount(), ds.ColumnCount())

	if chatAutopilot {
		report, err := sess.RunAutopilot(ctx)
		if report != nil {
			printer.PrintRunReport(report)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Autopilot stopped early: %v\n", err)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "revert":
			if err := sess.Revert(); err != nil {
				fmt.Fprintf(os.Stderr, "Revert failed: %v\n", err)
				continue
			}
			fmt.Println("All transformations undone.")
			continue
		case "report":
			if report := sess.Report(); report != nil {
				printer.PrintRunReport(report)
			} else {
				fmt.Println("No run report yet.")
			}
			continue
		}

		msg, err := sess.Chat(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Println(msg.Content)
		for _, chart := range msg.Charts {
			printer.PrintChart(chart)
		}
	}
	return scanner.Err()
}
