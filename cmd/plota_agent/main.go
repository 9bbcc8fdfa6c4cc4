// Package main provides the entry point for the data autopilot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "plota_agent",
	Short: "Data autopilot for tabular files",
	Long:  "Plota loads a tabular data file, detects the semantic type of every column, cleans and enriches the data through reversible transformations, and builds dashboards from plain-language requests.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
