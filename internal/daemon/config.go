// Package daemon manages the engine lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all engine configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Store     StoreConfig     `toml:"store"`
	AI        AIConfig        `toml:"ai"`
	Jobs      JobsConfig      `toml:"jobs"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StoreConfig controls persistent storage.
type StoreConfig struct {
	Dir string `toml:"dir"`
}

// AIConfig controls the text-generation collaborator. An empty BaseURL
// disables AI entirely; the engine runs on deterministic fallbacks.
type AIConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// JobsConfig controls the recurring background jobs.
type JobsConfig struct {
	GenerationHourUTC   int `toml:"generation_hour_utc"`
	GenerationMinuteUTC int `toml:"generation_minute_utc"`
	RecomputeHours      int `toml:"recompute_hours"`
}

// TelemetryConfig controls observability surfaces.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8480,
		},
		Store: StoreConfig{
			Dir: engineHome(),
		},
		AI: AIConfig{
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 5,
		},
		Jobs: JobsConfig{
			GenerationHourUTC: 6, // daily challenge drop at 06:00 UTC
			RecomputeHours:    6,
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from ~/.coverquest/config.toml, falling back to
// defaults. AI credentials may also come from the environment (or a .env
// file): COVERQUEST_AI_BASE_URL, COVERQUEST_AI_API_KEY, COVERQUEST_AI_MODEL.
// Environment values win over file values so secrets stay out of the TOML.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	path := filepath.Join(engineHome(), "config.toml")

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := os.Getenv("COVERQUEST_AI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("COVERQUEST_AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("COVERQUEST_AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}

	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = 5
	}
	if cfg.Jobs.RecomputeHours <= 0 {
		cfg.Jobs.RecomputeHours = 6
	}

	return cfg, nil
}

// SaveConfig writes the config to ~/.coverquest/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(engineHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// engineHome returns the engine data directory.
func engineHome() string {
	if env := os.Getenv("COVERQUEST_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".coverquest")
}

// EngineHome is exported for use by other packages.
func EngineHome() string {
	return engineHome()
}
