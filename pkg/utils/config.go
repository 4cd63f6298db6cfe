package utils

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, read from SHINY_* environment variables.
type Config struct {
	Addr           string        `env:"SHINY_ADDR"            envDefault:":8080"`
	TrustedProxies []string      `env:"SHINY_TRUSTED_PROXIES" envDefault:"127.0.0.1" envSeparator:","`
	LogLevel       string        `env:"SHINY_LOG_LEVEL"       envDefault:"info"`
	LogPretty      bool          `env:"SHINY_LOG_PRETTY"      envDefault:"false"`
	ShutdownGrace  time.Duration `env:"SHINY_SHUTDOWN_GRACE"  envDefault:"10s"`

	Upstream UpstreamConfig

	// SnapshotPath enables the SQLite snapshot. Empty keeps the catalog in memory only.
	SnapshotPath string `env:"SHINY_SNAPSHOT_PATH"`

	// HuntingMethodsPath points at an optional JSON file of extra hunting methods.
	HuntingMethodsPath string `env:"SHINY_HUNTING_METHODS"`
}

// UpstreamConfig describes how the importer talks to PokeAPI.
type UpstreamConfig struct {
	BaseURL      string        `env:"SHINY_UPSTREAM_URL"     envDefault:"https://pokeapi.co/api/v2"`
	SpeciesLimit int           `env:"SHINY_SPECIES_LIMIT"    envDefault:"1025"`
	Timeout      time.Duration `env:"SHINY_UPSTREAM_TIMEOUT" envDefault:"15s"`
	UserAgent    string        `env:"SHINY_USER_AGENT"       envDefault:"TheShinyArchives/1.0"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Upstream.SpeciesLimit <= 0 {
		return Config{}, fmt.Errorf("SHINY_SPECIES_LIMIT must be positive, got %d", cfg.Upstream.SpeciesLimit)
	}
	return cfg, nil
}
