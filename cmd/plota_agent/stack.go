package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/data-autopilot/internal/autopilot"
	"github.com/jonathan/data-autopilot/internal/config"
	"github.com/jonathan/data-autopilot/internal/gallery"
	"github.com/jonathan/data-autopilot/internal/llm"
	"github.com/jonathan/data-autopilot/internal/sandbox"
)

// resolveConfig loads an optional config file and fills unset fields from
// defaults. Flag overrides are applied by each command before calling this.
func resolveConfig(cfg config.Config, configPath string) (config.Config, error) {
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		// Flag values win over the file.
		cfg = cfg.MergeWithDefaults(*loaded)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return cfg, cfg.Validate()
}

// buildClient creates the model client, or returns nil when no API key is
// configured. Without a client the deterministic phases still run.
func buildClient(ctx context.Context, cfg config.Config) (llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}
	modelCfg := llm.DefaultGeminiConfig()
	if cfg.ModelLite != "" {
		modelCfg = modelCfg.WithModel(llm.TierLite, cfg.ModelLite)
	}
	if cfg.ModelStandard != "" {
		modelCfg = modelCfg.WithModel(llm.TierStandard, cfg.ModelStandard)
	}
	if cfg.ModelAdvanced != "" {
		modelCfg = modelCfg.WithModel(llm.TierAdvanced, cfg.ModelAdvanced)
	}
	return llm.NewClient(ctx, modelCfg, cfg.APIKey)
}

// pilotOptions maps the merged config onto the autopilot run policy.
func pilotOptions(cfg config.Config) autopilot.Options {
	opts := autopilot.DefaultOptions()
	if cfg.AcceptConfidence > 0 {
		opts.AcceptConfidence = cfg.AcceptConfidence
	}
	opts.DropTagColumns = cfg.DropTagColumns
	opts.MaxAttempts = cfg.MaxAttempts
	return opts
}

// buildExecutor creates a sandbox with the configured budgets.
func buildExecutor(cfg config.Config) *sandbox.Executor {
	limits := sandbox.Limits{}
	if cfg.SandboxTimeoutSec > 0 {
		limits.Timeout = time.Duration(cfg.SandboxTimeoutSec) * time.Second
	}
	if cfg.SandboxMaxCells > 0 {
		limits.MaxCells = cfg.SandboxMaxCells
	}
	return sandbox.New(limits)
}

// openStore opens the configured gallery backend. PostgreSQL wins over the
// SQLite file; with neither configured the store is nil and nothing persists.
func openStore(ctx context.Context, cfg config.Config) (gallery.Store, error) {
	if cfg.DatabaseURL != "" {
		return gallery.ConnectPostgres(ctx, cfg.DatabaseURL)
	}
	if cfg.Gallery != "" {
		return gallery.OpenSQLite(ctx, cfg.Gallery)
	}
	return nil, nil
}
