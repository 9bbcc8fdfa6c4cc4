package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/data-autopilot/internal/config"
	"github.com/jonathan/data-autopilot/internal/gallery"
	"github.com/jonathan/data-autopilot/internal/observability"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Inspect saved runs and their charts",
}

var galleryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE:  runGalleryList,
}

var galleryShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a saved run's report and charts",
	Args:  cobra.ExactArgs(1),
	RunE:  runGalleryShow,
}

var galleryDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a saved run and its charts",
	Args:  cobra.ExactArgs(1),
	RunE:  runGalleryDelete,
}

var (
	galleryConfigPath  string
	galleryPath        string
	galleryDatabaseURL string
	galleryListLimit   int
)

func init() {
	galleryCmd.PersistentFlags().StringVar(&galleryConfigPath, "config", "", "Path to config.json file")
	galleryCmd.PersistentFlags().StringVar(&galleryPath, "gallery", "", "Path to the SQLite gallery file")
	galleryCmd.PersistentFlags().StringVar(&galleryDatabaseURL, "db-url", "", "PostgreSQL gallery URL (optional, defaults to DATABASE_URL env var)")
	galleryListCmd.Flags().IntVar(&galleryListLimit, "limit", 20, "Maximum number of runs to list")

	galleryCmd.AddCommand(galleryListCmd)
	galleryCmd.AddCommand(galleryShowCmd)
	galleryCmd.AddCommand(galleryDeleteCmd)
	rootCmd.AddCommand(galleryCmd)
}

// galleryStore opens the configured backend, failing when none is configured.
func galleryStore(ctx context.Context) (gallery.Store, error) {
	cfg, err := resolveConfig(config.Config{
		Gallery:     galleryPath,
		DatabaseURL: galleryDatabaseURL,
	}, galleryConfigPath)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("no gallery configured: set --gallery, --db-url, or DATABASE_URL")
	}
	return store, nil
}

func runGalleryList(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	store, err := galleryStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, galleryListLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No saved runs.")
		return nil
	}
	for _, run := range runs {
		fmt.Printf("%s  %-9s  %-19s  %s\n",
			run.ID, run.Status, run.CreatedAt.Format(time.DateTime), run.Source)
	}
	return nil
}

func runGalleryShow(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run ID: %w", err)
	}

	store, err := galleryStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := store.GetReport(ctx, runID)
	if err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("run %s not found", runID)
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintRunReport(report)

	charts, err := store.ListCharts(ctx, runID)
	if err != nil {
		return err
	}
	for _, chart := range charts {
		printer.PrintChart(chart)
	}
	return nil
}

func runGalleryDelete(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run ID: %w", err)
	}

	store, err := galleryStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteRun(ctx, runID); err != nil {
		return err
	}
	fmt.Printf("Deleted run %s\n", runID)
	return nil
}
