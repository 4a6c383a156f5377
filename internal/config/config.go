// Package config loads the party room server configuration from a JSON
// file with environment overrides.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strconv"
)

// CurrentSchemaVersion is the current config schema version.
const CurrentSchemaVersion = 1

// Environment variable names for config overrides.
// Priority: Environment > Config File > Default
const (
	EnvPort          = "PARTY_PORT"
	EnvLanEnabled    = "PARTY_LAN_ENABLED"
	EnvDBPath        = "PARTY_DB_PATH"
	EnvLogPath       = "PARTY_LOG_PATH"
	EnvRateWindowSec = "PARTY_RATE_WINDOW_SEC"
	EnvRateMaxHits   = "PARTY_RATE_MAX_HITS"
)

// Config holds the server configuration.
type Config struct {
	SchemaVersion int    `json:"schema_version"`
	Port          int    `json:"port"`
	LanEnabled    bool   `json:"lan_enabled"`
	DBPath        string `json:"db_path"`
	LogPath       string `json:"log_path"`

	// Per-player trigger admission (fixed window).
	RateWindowSec int `json:"rate_window_sec"`
	RateMaxHits   int `json:"rate_max_hits"`

	// Spawn placement.
	SpawnMargin   float64 `json:"spawn_margin"`
	SpawnMinDist  float64 `json:"spawn_min_dist"`
	SpawnMaxTries int     `json:"spawn_max_tries"`

	// CORS allowlist; empty allows any origin.
	AllowedOrigins []string `json:"allowed_origins"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SchemaVersion: CurrentSchemaVersion,
		Port:          8080,
		LanEnabled:    false,
		DBPath:        "partyroom.sqlite",
		LogPath:       "partyroom.log",
		RateWindowSec: 10,
		RateMaxHits:   4,
		SpawnMargin:   0.12,
		SpawnMinDist:  0.10,
		SpawnMaxTries: 40,
	}
}

// Load reads config from the given path and applies environment
// overrides. A missing or corrupt file falls back to defaults with a
// warning (non-fatal).
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: failed to read config file: %v, using defaults", err)
		}
		return applyEnvOverrides(cfg), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cfg); err != nil {
		log.Printf("Warning: config file is corrupt: %v, using defaults", err)
		return applyEnvOverrides(DefaultConfig()), nil
	}

	if cfg.SchemaVersion != CurrentSchemaVersion {
		log.Printf("Warning: config schema version mismatch (got %d, expected %d), using defaults",
			cfg.SchemaVersion, CurrentSchemaVersion)
		return applyEnvOverrides(DefaultConfig()), nil
	}

	return applyEnvOverrides(normalize(cfg)), nil
}

func applyEnvOverrides(cfg Config) Config {
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			cfg.Port = port
		}
	}
	if v := os.Getenv(EnvLanEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.LanEnabled = enabled
		}
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvLogPath); v != "" {
		cfg.LogPath = v
	}
	if v := os.Getenv(EnvRateWindowSec); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.RateWindowSec = sec
		}
	}
	if v := os.Getenv(EnvRateMaxHits); v != "" {
		if hits, err := strconv.Atoi(v); err == nil && hits > 0 {
			cfg.RateMaxHits = hits
		}
	}
	return cfg
}

// normalize pulls out-of-range values back to defaults.
func normalize(cfg Config) Config {
	def := DefaultConfig()

	if cfg.Port <= 0 || cfg.Port >= 65536 {
		cfg.Port = def.Port
	}
	if cfg.DBPath == "" {
		cfg.DBPath = def.DBPath
	}
	if cfg.RateWindowSec <= 0 {
		cfg.RateWindowSec = def.RateWindowSec
	}
	if cfg.RateMaxHits <= 0 {
		cfg.RateMaxHits = def.RateMaxHits
	}
	if cfg.SpawnMargin <= 0 || cfg.SpawnMargin >= 0.5 {
		cfg.SpawnMargin = def.SpawnMargin
	}
	if cfg.SpawnMinDist <= 0 {
		cfg.SpawnMinDist = def.SpawnMinDist
	}
	if cfg.SpawnMaxTries <= 0 {
		cfg.SpawnMaxTries = def.SpawnMaxTries
	}
	return cfg
}
