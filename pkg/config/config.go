package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string `env:"DUEL_ADDR" envDefault:"127.0.0.1:8080"`
	StartSolver     string `env:"DUEL_START_SOLVER" envDefault:"pow"`
	StartDifficulty uint32 `env:"DUEL_START_DIFFICULTY" envDefault:"4"`

	PoWLabel       string `env:"POW_LABEL" envDefault:"duel-pow"`
	PoWMaxAttempts uint64 `env:"POW_MAX_ATTEMPTS" envDefault:"500000000"`
	PoWWorkers     int    `env:"POW_WORKERS" envDefault:"0"`

	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownWait      time.Duration `env:"SHUTDOWN_WAIT" envDefault:"5s"`
	DialTimeout       time.Duration `env:"DIAL_TIMEOUT" envDefault:"10s"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL" envDefault:"0s"`
	MetricsAddr       string        `env:"METRICS_ADDR"`
}

// Parse reads the process environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ParseFrom reads cfg from the given variables instead of the process
// environment.
func ParseFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from path without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
