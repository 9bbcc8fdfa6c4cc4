package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/data-autopilot/internal/autopilot"
	"github.com/jonathan/data-autopilot/internal/config"
)

func TestResolveConfig_FlagsWinOverFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api_key": "file-key",
		"sandbox_timeout_sec": 30,
		"gallery": "file-gallery.db"
	}`), 0o644))

	cfg, err := resolveConfig(config.Config{APIKey: "flag-key"}, path)
	require.NoError(t, err)
	assert.Equal(t, "flag-key", cfg.APIKey)
	assert.Equal(t, 30, cfg.SandboxTimeoutSec)
	assert.Equal(t, "file-gallery.db", cfg.Gallery)
}

func TestResolveConfig_EnvFillsAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("DATABASE_URL", "")

	cfg, err := resolveConfig(config.Config{}, "")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey)
}

func TestResolveConfig_MissingFile(t *testing.T) {
	_, err := resolveConfig(config.Config{}, "no-such-config.json")
	assert.Error(t, err)
}

func TestPilotOptions_CarriesConfiguredKnobs(t *testing.T) {
	opts := pilotOptions(config.Config{
		AcceptConfidence: 0.8,
		MaxAttempts:      5,
		DropTagColumns:   true,
	})

	assert.Equal(t, 0.8, opts.AcceptConfidence)
	assert.Equal(t, 5, opts.MaxAttempts)
	assert.True(t, opts.DropTagColumns)

	opts = pilotOptions(config.Config{})
	assert.Equal(t, autopilot.DefaultOptions(), opts)
}

func TestBuildClient_WithoutKeyIsNil(t *testing.T) {
	client, err := buildClient(context.Background(), config.Config{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestOpenStore_UnconfiguredIsNil(t *testing.T) {
	store, err := openStore(context.Background(), config.Config{})
	require.NoError(t, err)
	assert.Nil(t, store)
}

func TestOpenStore_SQLitePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.db")
	store, err := openStore(context.Background(), config.Config{Gallery: path})
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = store.ListRuns(context.Background(), 5)
	assert.NoError(t, err)
}

func TestRunCommand_DeterministicEndToEnd(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")

	source := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(source,
		[]byte("product,revenue\nwidget,120\ngadget,45\n"), 0o644))
	galleryPath := filepath.Join(t.TempDir(), "gallery.db")

	rootCmd.SetArgs([]string{"run", source, "--gallery", galleryPath})
	require.NoError(t, rootCmd.Execute())

	store, err := openStore(context.Background(), config.Config{Gallery: galleryPath})
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, source, runs[0].Source)
}
