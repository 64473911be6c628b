// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/aristath/quantfolio/internal/domain"
)

// Optimizer defaults. Risk aversion is moderate (0 = pure return chasing,
// 1 = most risk-averse); cardinality defaults to a 2-4 asset portfolio.
const (
	DefaultBudget       = 10000.0
	DefaultRiskAversion = 0.5
	DefaultMinAssets    = 2
	DefaultMaxAssets    = 4
	DefaultLayers       = 3
	DefaultIterations   = 100
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// Market data
	Tickers         []string // Default universe for scheduled runs
	DataSource      string   // yahoo, brapi, alpha_vantage, or auto
	Period          string   // History range, e.g. 1y
	AlphaVantageKey string   // Optional, only needed for the alpha_vantage source

	// Optimizer defaults (overridable per run via the API)
	Budget       float64
	RiskAversion float64
	MinAssets    int
	MaxAssets    int
	Strategy     domain.SolverStrategy
	Layers       int
	Iterations   int

	// Off-site snapshot backups (disabled unless fully configured)
	Backup *BackupConfig
}

// BackupConfig holds S3-compatible storage settings for database snapshots.
type BackupConfig struct {
	Endpoint      string // Custom endpoint (e.g. Cloudflare R2); empty = AWS
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	RetentionDays int // Backups older than this are rotated out
}

// Enabled reports whether backups are fully configured.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != "" && b.AccessKey != "" && b.SecretKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QUANTFOLIO_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Tickers:         getEnvAsList("TICKERS", []string{"PETR4", "VALE3", "ITUB4", "BBDC4", "WEGE3"}),
		DataSource:      getEnv("DATA_SOURCE", "auto"),
		Period:          getEnv("DATA_PERIOD", "1y"),
		AlphaVantageKey: getEnv("ALPHA_VANTAGE_KEY", ""),

		Budget:       getEnvAsFloat("BUDGET", DefaultBudget),
		RiskAversion: getEnvAsFloat("RISK_AVERSION", DefaultRiskAversion),
		MinAssets:    getEnvAsInt("MIN_ASSETS", DefaultMinAssets),
		MaxAssets:    getEnvAsInt("MAX_ASSETS", DefaultMaxAssets),
		Strategy:     domain.SolverStrategy(getEnv("SOLVER_STRATEGY", string(domain.StrategyExhaustive))),
		Layers:       getEnvAsInt("SOLVER_LAYERS", DefaultLayers),
		Iterations:   getEnvAsInt("SOLVER_ITERATIONS", DefaultIterations),

		Backup: loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks parameter ranges and combinations.
// Violations are reported as domain.ConfigurationError so they carry
// structured context to the API surface.
func (c *Config) Validate() error {
	if c.Budget <= 0 {
		return &domain.ConfigurationError{Field: "budget", Reason: "must be positive"}
	}
	if c.RiskAversion < 0 || c.RiskAversion > 1 {
		return &domain.ConfigurationError{Field: "risk_aversion", Reason: "must be in [0, 1]"}
	}
	if c.MinAssets < 1 {
		return &domain.ConfigurationError{Field: "min_assets", Reason: "must be at least 1"}
	}
	if c.MinAssets > c.MaxAssets {
		return &domain.ConfigurationError{Field: "min_assets", Reason: "must not exceed max_assets"}
	}
	if c.Strategy != domain.StrategyExhaustive && c.Strategy != domain.StrategyHeuristic {
		return &domain.ConfigurationError{
			Field:  "solver_strategy",
			Reason: fmt.Sprintf("unknown strategy %q (want exhaustive or heuristic)", c.Strategy),
		}
	}
	if c.Layers < 1 {
		return &domain.ConfigurationError{Field: "layers", Reason: "must be positive"}
	}
	if c.Iterations < 1 {
		return &domain.ConfigurationError{Field: "iterations", Reason: "must be positive"}
	}
	switch c.DataSource {
	case "yahoo", "brapi", "alpha_vantage", "auto":
	default:
		return &domain.ConfigurationError{
			Field:  "data_source",
			Reason: fmt.Sprintf("unknown source %q", c.DataSource),
		}
	}
	return nil
}

// RunParams returns the configured optimizer defaults as per-run parameters.
func (c *Config) RunParams() domain.RunParams {
	return domain.RunParams{
		Budget:       c.Budget,
		RiskAversion: c.RiskAversion,
		MinAssets:    c.MinAssets,
		MaxAssets:    c.MaxAssets,
		Strategy:     c.Strategy,
		Layers:       c.Layers,
		Iterations:   c.Iterations,
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// loadBackupConfig loads snapshot backup settings. Returns a config even
// when incomplete; callers check Enabled().
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
		Region:        getEnv("BACKUP_S3_REGION", "auto"),
		Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
		AccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
		RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}
