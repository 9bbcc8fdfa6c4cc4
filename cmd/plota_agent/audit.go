package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/data-autopilot/internal/detect"
	"github.com/jonathan/data-autopilot/internal/loader"
	"github.com/jonathan/data-autopilot/internal/observability"
)

var auditCommand = &cobra.Command{
	Use:   "audit <file>",
	Short: "Profile a data file without changing it",
	Long:  `Loads the file and prints the detected semantic type, confidence, and missing-value share of every column. No transformations are applied and nothing is persisted.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditCmd,
}

func init() {
	rootCmd.AddCommand(auditCommand)
}

func runAuditCmd(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	ds, err := loader.Load(args[0])
	if err != nil {
		return err
	}

	det := detect.New(detect.DefaultConfig())
	profiles, err := det.ProfileDataset(ctx, ds)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d rows, %d columns\n", args[0], ds.RowCount(), ds.ColumnCount())
	observability.NewPrinter(os.Stdout).PrintProfiles(profiles)
	return nil
}
