package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Plex.URL == "" {
		t.Error("default config should include a plex URL")
	}
	if config.Sync.BatchSize != 1000 {
		t.Errorf("expected default batch size 1000, got %d", config.Sync.BatchSize)
	}
	if config.Sync.StaleAfterHrs != 24 {
		t.Errorf("expected default staleness threshold 24h, got %d", config.Sync.StaleAfterHrs)
	}
	if len(config.LLM.Pricing) == 0 {
		t.Error("default config should include a pricing table")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("ValidFile", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")

		content := `
[plex]
url = "http://plex.local:32400"
token = "abc123"
music_library = "Tunes"

[sync]
batch_size = 250
stale_after_hours = 12
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Plex.URL != "http://plex.local:32400" {
			t.Errorf("unexpected plex URL: %s", config.Plex.URL)
		}
		if config.Plex.MusicLibrary != "Tunes" {
			t.Errorf("unexpected library name: %s", config.Plex.MusicLibrary)
		}
		if config.Sync.BatchSize != 250 {
			t.Errorf("unexpected batch size: %d", config.Sync.BatchSize)
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("InvalidTOML", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.toml")
		if err := os.WriteFile(path, []byte("not [valid toml"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := LoadConfig(path); err == nil {
			t.Error("expected error for invalid TOML")
		}
	})
}

func TestCreateConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := CreateConfigFile(path); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	if _, err := LoadConfig(path); err != nil {
		t.Errorf("created config should be loadable: %v", err)
	}

	if err := CreateConfigFile(path); err == nil {
		t.Error("expected error when config already exists")
	}
}
