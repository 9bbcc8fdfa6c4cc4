package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/data-autopilot/internal/autopilot"
	"github.com/jonathan/data-autopilot/internal/config"
	"github.com/jonathan/data-autopilot/internal/gallery"
	"github.com/jonathan/data-autopilot/internal/loader"
	"github.com/jonathan/data-autopilot/internal/observability"
	"github.com/jonathan/data-autopilot/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run [file]",
	Short: "Run the full autopilot pipeline over a data file",
	Long: `Loads the file, audits every column, applies the cleanup and feature
engineering transformations the detector is confident about, and asks the
model to build a dashboard. The finished run is saved to the gallery when
one is configured.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAutopilotCmd,
}

var (
	runConfigPath  string
	runGalleryPath string
	runDatabaseURL string
	runAPIKey      string
	runTimeoutSec  int
	runMaxCells    int
	runConfidence  float64
	runDropTags    bool
	runVerbose     bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	runCommand.Flags().StringVar(&runGalleryPath, "gallery", "", "Path to the SQLite gallery file")
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL gallery URL (optional, defaults to DATABASE_URL env var)")
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	runCommand.Flags().IntVar(&runTimeoutSec, "sandbox-timeout", 0, "Wall-clock budget per generated program, in seconds")
	runCommand.Flags().IntVar(&runMaxCells, "max-cells", 0, "Dataset growth budget (rows x columns)")
	runCommand.Flags().Float64Var(&runConfidence, "confidence", 0, "Minimum detection confidence for automatic transformation")
	runCommand.Flags().BoolVar(&runDropTags, "drop-tag-columns", false, "Drop original multi-value columns after exploding them")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed progress")

	rootCmd.AddCommand(runCommand)
}

func runAutopilotCmd(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg := config.Config{
		Gallery:           runGalleryPath,
		DatabaseURL:       runDatabaseURL,
		APIKey:            runAPIKey,
		SandboxTimeoutSec: runTimeoutSec,
		SandboxMaxCells:   runMaxCells,
		AcceptConfidence:  runConfidence,
		DropTagColumns:    runDropTags,
		Verbose:           runVerbose,
	}
	if len(args) > 0 {
		cfg.Source = args[0]
	}

	cfg, err := resolveConfig(cfg, runConfigPath)
	if err != nil {
		return err
	}
	if cfg.Source == "" {
		return fmt.Errorf("a data file is required (as an argument or via config)")
	}

	ds, err := loader.Load(cfg.Source)
	if err != nil {
		return err
	}

	client, err := buildClient(ctx, cfg)
	if err != nil {
		return err
	}
	if client != nil {
		defer client.Close()
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	pilot := autopilot.New(ds, client, buildExecutor(cfg), pilotOptions(cfg))
	report, runErr := pilot.Run(ctx)

	printer := observability.NewPrinter(os.Stdout)
	if cfg.Verbose {
		printer.PrintProfiles(report.Profiles)
	}
	printer.PrintRunReport(report)
	if dash, ok := report.Phases[types.PhaseDashboard]; ok {
		for _, chart := range dash.Charts {
			printer.PrintChart(chart)
		}
	}

	if store != nil {
		if err := persistReport(ctx, store, cfg.Source, report); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save run to gallery: %v\n", err)
		}
	}

	return runErr
}

// persistReport saves a finished run and its dashboard charts.
func persistReport(ctx context.Context, store gallery.Store, source string, report *types.RunReport) error {
	runID, err := store.CreateRun(ctx, source)
	if err != nil {
		return err
	}
	if err := store.CompleteRun(ctx, runID, report); err != nil {
		return err
	}
	if dash, ok := report.Phases[types.PhaseDashboard]; ok {
		for _, chart := range dash.Charts {
			if err := store.SaveChart(ctx, runID, chart); err != nil {
				return err
			}
		}
	}
	return nil
}
