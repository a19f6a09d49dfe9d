package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultEnv      = "development"
	defaultDBPath   = "./dev.db"
	defaultPort     = "8080"
	defaultNextMode = NextStepGated
	defaultEnvFile  = ".env"
)

// Next step policies.
const (
	NextStepGated      = "gated"
	NextStepPermissive = "permissive"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv          string
	AdminEmail      string
	AdminPassword   string
	SessionSecret   string
	DBPath          string
	Port            string
	RatesFile       string
	HoursPerSubject float64
	NextStepMode    string
	SeedDemo        bool
}

// Load reads the .env file of the working directory, if any, then the environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	return load(defaultEnvFile)
}

func load(envFile string) (Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Config{
		AppEnv:        strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV"))),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		DBPath:        os.Getenv("DB_PATH"),
		Port:          os.Getenv("PORT"),
		RatesFile:     os.Getenv("RATES_FILE"),
		NextStepMode:  strings.ToLower(strings.TrimSpace(os.Getenv("NEXT_STEP_MODE"))),
	}

	if cfg.AppEnv == "" {
		cfg.AppEnv = defaultEnv
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.NextStepMode == "" {
		cfg.NextStepMode = defaultNextMode
	}
	if cfg.NextStepMode != NextStepGated && cfg.NextStepMode != NextStepPermissive {
		return Config{}, fmt.Errorf("NEXT_STEP_MODE must be %q or %q, got %q", NextStepGated, NextStepPermissive, cfg.NextStepMode)
	}

	if raw := strings.TrimSpace(os.Getenv("HOURS_PER_SUBJECT")); raw != "" {
		hours, err := strconv.ParseFloat(raw, 64)
		if err != nil || hours <= 0 {
			return Config{}, fmt.Errorf("HOURS_PER_SUBJECT must be a positive number, got %q", raw)
		}
		cfg.HoursPerSubject = hours
	}

	if raw := strings.TrimSpace(os.Getenv("SEED_DEMO")); raw != "" {
		demo, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("SEED_DEMO must be a boolean, got %q", raw)
		}
		cfg.SeedDemo = demo
	} else {
		cfg.SeedDemo = cfg.IsDev()
	}

	if cfg.SessionSecret == "" && !cfg.IsDev() {
		return Config{}, fmt.Errorf("SESSION_SECRET is required when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// IsDev reports whether the application runs in a development environment.
func (c Config) IsDev() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "local"
}

// PermissiveNext reports whether the wizard may advance past an invalid step.
func (c Config) PermissiveNext() bool {
	return c.NextStepMode == NextStepPermissive
}

// Warnings lists settings that are missing but tolerated. An empty SESSION_SECRET is
// only tolerated in development.
func (c Config) Warnings() []string {
	var out []string
	if c.AdminEmail == "" {
		out = append(out, "ADMIN_EMAIL is not set")
	}
	if c.AdminPassword == "" {
		out = append(out, "ADMIN_PASSWORD is not set")
	}
	if c.SessionSecret == "" {
		out = append(out, "SESSION_SECRET is not set")
	}
	return out
}
