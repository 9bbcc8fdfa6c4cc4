package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonathan/data-autopilot/internal/config"
	"github.com/jonathan/data-autopilot/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes session, autopilot, chat, and gallery endpoints.`,
	RunE:  runServe,
}

var (
	serveConfigPath  string
	serveAddr        string
	serveAPIKey      string
	serveGallery     string
	serveDatabaseURL string
)

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default :8080)")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	serveCmd.Flags().StringVar(&serveGallery, "gallery", "", "Path to the SQLite gallery file")
	serveCmd.Flags().StringVar(&serveDatabaseURL, "db-url", "", "PostgreSQL gallery URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := resolveConfig(config.Config{
		ListenAddr:  serveAddr,
		APIKey:      serveAPIKey,
		Gallery:     serveGallery,
		DatabaseURL: serveDatabaseURL,
	}, serveConfigPath)
	if err != nil {
		return err
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	client, err := buildClient(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:     cfg.ListenAddr,
		Client:   client,
		Store:    store,
		Executor: buildExecutor(cfg),
		Pilot:    pilotOptions(cfg),
	})
	return srv.Start()
}
