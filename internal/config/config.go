package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultPort = "8080"

// Config holds process-level settings read from the environment.
// Tenant workflow settings (approval threshold, tax rate) are not here: they live in the
// settings table and are loaded per company.
type Config struct {
	DatabaseURL    string
	Port           string
	JWTSecret      string
	AllowedOrigins string
	CompanyCode    string
	MigrateOnStart bool
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Port:           strings.TrimSpace(os.Getenv("SERVER_PORT")),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		CompanyCode:    strings.TrimSpace(os.Getenv("COMPANY_CODE")),
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if v := strings.TrimSpace(os.Getenv("MIGRATE_ON_START")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("MIGRATE_ON_START: %w", err)
		}
		cfg.MigrateOnStart = b
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return cfg, nil
}
