package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"browser-replay/internal/application/port/output"

	"github.com/joho/godotenv"
)

const defaultAppEnv = "dev"

// AppEnv returns APP_ENV, defaulting to dev.
func AppEnv() string {
	if v := os.Getenv("APP_ENV"); v != "" {
		return v
	}
	return defaultAppEnv
}

// Load reads dir/.env and then dir/.env.<APP_ENV>. Values in .env never
// replace variables already present in the process environment, while the
// environment specific file overrides both. Missing files are skipped.
// It returns the files that were applied.
func Load(dir string, logger output.LoggerPort) ([]string, error) {
	appEnv := AppEnv()
	var loaded []string

	base := filepath.Join(dir, ".env")
	if err := godotenv.Load(base); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return loaded, fmt.Errorf("load %s: %w", base, err)
		}
		logger.Debug("No .env file found", "path", base)
	} else {
		loaded = append(loaded, base)
	}

	specific := filepath.Join(dir, ".env."+appEnv)
	if err := godotenv.Overload(specific); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return loaded, fmt.Errorf("load %s: %w", specific, err)
		}
		logger.Debug("No environment file found", "path", specific)
	} else {
		loaded = append(loaded, specific)
	}

	logger.Info("Environment loaded", "app_env", appEnv, "files", len(loaded))
	return loaded, nil
}
