package config

import (
	"errors"
	"os"
	"strings"
)

// Config holds forum service settings beyond the shared platform config.
type Config struct {
	// JWTSecret verifies bearer tokens issued by the identity provider.
	// Required. Set via JWT_SECRET env var.
	JWTSecret string
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store.
	DatabaseURL string
	// NATSURL is the NATS server URL for event publishing. Empty disables
	// publishing.
	NATSURL string
	// SeedDevData loads sample users and posts into the in-memory store.
	SeedDevData bool
}

func Load() (Config, error) {
	cfg := Config{
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		NATSURL:     strings.TrimSpace(os.Getenv("NATS_URL")),
		SeedDevData: os.Getenv("SEED_DEV_DATA") == "true",
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}
