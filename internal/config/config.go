package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all configuration values from environment.
type Config struct {
	AppPort string

	// Cache settings
	CacheDir         string
	CacheBackend     string // "json" or "sqlite"
	CacheCompression bool

	// File storage settings
	FilesDir     string
	SecondaryDir string // local secondary tier, ignored when MinIO is configured
	WriteTo      string // "primary", "secondary" or "both"

	// Registry settings
	BlacklistPath string
	PostponedPath string

	// MinIO secondary tier, enabled when MinioEndpoint is set
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSSL       bool
}

// MinioEnabled reports whether a MinIO secondary tier is configured.
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != ""
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	compression := false
	if env := os.Getenv("CACHE_COMPRESSION"); env != "" {
		val, err := strconv.ParseBool(env)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_COMPRESSION value: %v", err)
		}
		compression = val
	}
	minioSSL := false
	if env := os.Getenv("MINIO_SSL"); env != "" {
		val, err := strconv.ParseBool(env)
		if err != nil {
			return nil, fmt.Errorf("invalid MINIO_SSL value: %v", err)
		}
		minioSSL = val
	}

	cfg := &Config{
		AppPort:          envOr("APP_PORT", "8080"),
		CacheDir:         envOr("CACHE_DIR", filepath.Join("~", ".cache", "papercache")),
		CacheBackend:     envOr("CACHE_BACKEND", "json"),
		CacheCompression: compression,
		FilesDir:         envOr("FILES_DIR", "./files"),
		SecondaryDir:     envOr("SECONDARY_DIR", "./files_secondary"),
		WriteTo:          envOr("WRITE_TO", "primary"),
		BlacklistPath:    envOr("BLACKLIST_PATH", "./problem_papers.json"),
		PostponedPath:    envOr("POSTPONED_PATH", "./postponed.db"),
		MinioEndpoint:    os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:   os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:   os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:      os.Getenv("MINIO_BUCKET"),
		MinioSSL:         minioSSL,
	}

	// Basic validation for required fields
	if cfg.CacheBackend != "json" && cfg.CacheBackend != "sqlite" {
		return nil, fmt.Errorf("CACHE_BACKEND must be \"json\" or \"sqlite\", got %q", cfg.CacheBackend)
	}
	if cfg.WriteTo != "primary" && cfg.WriteTo != "secondary" && cfg.WriteTo != "both" {
		return nil, fmt.Errorf("WRITE_TO must be \"primary\", \"secondary\" or \"both\", got %q", cfg.WriteTo)
	}
	if cfg.MinioEnabled() {
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
			return nil, fmt.Errorf("minio configuration is incomplete")
		}
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
