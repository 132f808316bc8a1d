package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultFile is read when no --config flag is given.
const DefaultFile = "ntdsinspect.env"

// Config holds the defaults a command falls back to when the matching flag
// is not set.
type Config struct {
	Format      string
	MaxDepth    int
	SDCacheSize int
	PostgresDSN string
	LogLevel    string
}

func defaults() Config {
	return Config{
		Format:   "csv",
		MaxDepth: 4,
	}
}

// LoadEnvConfig loads configName into the process environment, when it
// exists, and reads the NTDS_* variables. Variables already set in the
// environment win over the file.
func LoadEnvConfig(configName string) (Config, error) {
	if err := godotenv.Load(configName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading %s: %w", configName, err)
	}

	cfg := defaults()
	if v := os.Getenv("NTDS_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("NTDS_PG_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("NTDS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	var err error
	if cfg.MaxDepth, err = intVar("NTDS_MAX_DEPTH", cfg.MaxDepth); err != nil {
		return Config{}, err
	}
	if cfg.SDCacheSize, err = intVar("NTDS_SD_CACHE_SIZE", cfg.SDCacheSize); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func intVar(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return n, nil
}
