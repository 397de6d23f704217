package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"vectoria/internal/index"
)

// Config holds all configuration for the application.
type Config struct {
	APIHost string
	APIPort string

	// SnapshotPath enables durable snapshots when non-empty.
	SnapshotPath string

	// DefaultIndexKind is assigned to newly created libraries.
	DefaultIndexKind index.Kind

	// LSH tuning. Hashes 0 means derive from the dataset size at build time.
	LSHHashes int
	LSHBands  int
	LSHSeed   int64
	LSHStrict bool

	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingAPIKey    string
	// EmbeddingVectorSize 0 skips response size validation.
	EmbeddingVectorSize int

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// A .env file in the current directory, or in the nearest of up to four parent
// directories, is loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to the nearest directory holding a .env file
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIHost:            getEnv("API_HOST", "0.0.0.0"),
		APIPort:            getEnv("API_PORT", "9000"),
		SnapshotPath:       getEnv("SNAPSHOT_PATH", ""),
		DefaultIndexKind:   index.Kind(getEnv("DEFAULT_INDEX_KIND", string(index.KindLinear))),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", "dummy-key"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	if !cfg.DefaultIndexKind.Valid() {
		return nil, fmt.Errorf("DEFAULT_INDEX_KIND must be one of linear, kdtree, lsh; got %q", cfg.DefaultIndexKind)
	}

	cfg.LSHHashes, err = getEnvInt("LSH_HASHES", 0)
	if err != nil {
		return nil, err
	}
	if cfg.LSHHashes < 0 {
		return nil, fmt.Errorf("LSH_HASHES must not be negative")
	}
	cfg.LSHBands, err = getEnvInt("LSH_BANDS", index.DefaultLSHBands)
	if err != nil {
		return nil, err
	}
	if cfg.LSHBands <= 0 {
		return nil, fmt.Errorf("LSH_BANDS must be greater than 0")
	}
	seed, err := getEnvInt("LSH_SEED", 0)
	if err != nil {
		return nil, err
	}
	cfg.LSHSeed = int64(seed)
	cfg.LSHStrict = getEnv("LSH_STRICT", "false") == "true"

	cfg.EmbeddingVectorSize, err = getEnvInt("EMBEDDING_VECTOR_SIZE", 0)
	if err != nil {
		return nil, err
	}
	if cfg.EmbeddingVectorSize < 0 {
		return nil, fmt.Errorf("EMBEDDING_VECTOR_SIZE must not be negative")
	}

	if cfg.SnapshotPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.SnapshotPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	return cfg, nil
}

// LSH returns the index-layer view of the LSH settings.
func (c *Config) LSH() index.LSHConfig {
	return index.LSHConfig{
		Hashes: c.LSHHashes,
		Bands:  c.LSHBands,
		Seed:   c.LSHSeed,
		Strict: c.LSHStrict,
	}
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return c.APIHost + ":" + c.APIPort
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}
