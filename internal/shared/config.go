package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Plex     PlexConfig     `toml:"plex"`
	LLM      LLMConfig      `toml:"llm"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Sync     SyncConfig     `toml:"sync"`
}

// PlexConfig contains media server connection settings.
type PlexConfig struct {
	URL          string `toml:"url"`
	Token        string `toml:"token"`
	MusicLibrary string `toml:"music_library"`
}

// LLMConfig contains LLM gateway settings and per-model pricing.
type LLMConfig struct {
	BaseURL         string               `toml:"base_url"`
	APIKey          string               `toml:"api_key"`
	ModelGeneration string               `toml:"model_generation"`
	MaxTracksToAI   int                  `toml:"max_tracks_to_ai"`
	Pricing         map[string]ModelCost `toml:"pricing"`
}

// ModelCost holds USD prices per million input/output tokens for one model.
type ModelCost struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SyncConfig contains library sync tuning knobs.
type SyncConfig struct {
	BatchSize      int     `toml:"batch_size"`
	StaleAfterHrs  int     `toml:"stale_after_hours"`
	BatchTimeoutMS int     `toml:"batch_timeout_ms"`
	RateLimit      float64 `toml:"rate_limit"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidInput)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
