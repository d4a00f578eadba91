// Package config contains everything related to configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	// APIBaseURL is the origin of the image-generation backend.
	APIBaseURL string

	// StorePath is the location of the local SQLite store.
	StorePath string

	// GalleryDir is where saved result images are placed.
	GalleryDir string

	// APIKeyFile, when set, is watched for externally written API keys.
	APIKeyFile string

	// LogFile receives structured logs while the TUI owns the terminal.
	LogFile string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string

	HTTPTimeout time.Duration
}

// Default values
const (
	defaultAPIBaseURL  = "http://localhost:8000"
	defaultHTTPTimeout = 120 * time.Second
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		APIBaseURL:         getEnvString("API_BASE_URL", defaultAPIBaseURL),
		StorePath:          getEnvString("STORE_PATH", getDefaultStorePath()),
		GalleryDir:         getEnvString("GALLERY_DIR", getDefaultGalleryDir()),
		APIKeyFile:         getEnvString("API_KEY_FILE", ""),
		LogFile:            getEnvString("LOG_FILE", getDefaultLogPath()),
		GoogleClientID:     getEnvString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnvString("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken: getEnvString("GOOGLE_REFRESH_TOKEN", ""),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", defaultHTTPTimeout),
	}

	// Ensure store directory exists
	if err := ensureDir(filepath.Dir(cfg.StorePath)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "outfit-studio", ".env"),
			filepath.Join(home, ".outfit-studio", ".env"),
		)
	}

	return paths
}

// getDefaultStorePath returns the default path for the SQLite store.
func getDefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "outfit-studio.db"
	}
	return filepath.Join(home, ".config", "outfit-studio", "outfit-studio.db")
}

// getDefaultGalleryDir returns the default directory for saved results.
func getDefaultGalleryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gallery"
	}
	return filepath.Join(home, "Pictures", "OutfitStudio")
}

// getDefaultLogPath returns the default log file path.
func getDefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "outfit-studio.log"
	}
	return filepath.Join(home, ".config", "outfit-studio", "outfit-studio.log")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
