package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the ImageUpLift service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Signals    SignalsConfig    `yaml:"signals"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	CORS       CORSConfig       `yaml:"cors"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AuthConfig holds the accepted Bearer keys. An empty list disables authentication.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int64 `yaml:"max_upload_mb"`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // sqlite, postgres (default: sqlite)
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// CacheConfig holds the Redis/Valkey connection used for classification
// caching and budget counters. No addrs disables the cache.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// ClassifierConfig holds semantic classifier settings.
type ClassifierConfig struct {
	Provider   string        `yaml:"provider"` // openai, heuristic (default: heuristic)
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	MaxSide    int           `yaml:"max_side"`
	TimeoutSec int           `yaml:"timeout_sec"`
	Breaker    BreakerConfig `yaml:"breaker"`
	Budget     BudgetConfig  `yaml:"budget"`
}

// BreakerConfig holds circuit breaker settings for the classifier.
type BreakerConfig struct {
	MaxFailures      uint32 `yaml:"max_failures"`
	OpenTimeoutSec   int    `yaml:"open_timeout_sec"`
	HalfOpenRequests uint32 `yaml:"half_open_requests"`
}

// BudgetConfig holds paid classifier call limits.
type BudgetConfig struct {
	DailyLimit   int64  `yaml:"daily_limit"`   // 0 = unlimited
	MonthlyLimit int64  `yaml:"monthly_limit"` // 0 = unlimited
	Action       string `yaml:"action"`        // "reject" | "warn" (default)
}

// SignalsConfig selects the pixel statistics backend.
type SignalsConfig struct {
	Backend string `yaml:"backend"` // go, opencv (default: go)
	// MaxPixels rejects images whose declared width*height is larger,
	// before decoding. Default 40000000.
	MaxPixels int `yaml:"max_pixels"`
}

// PipelineConfig holds the external conversion tool settings.
type PipelineConfig struct {
	VtracerBin    string `yaml:"vtracer_bin"`
	PotraceBin    string `yaml:"potrace_bin"`
	RealESRGANBin string `yaml:"realesrgan_bin"`
	ModelDir      string `yaml:"model_dir"`
	GPU           bool   `yaml:"gpu"`
	GPUID         *int   `yaml:"gpu_id"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	WorkDir       string `yaml:"work_dir"`
}

// CORSConfig holds cross-origin settings for the web front end.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds per-client request limits. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 25
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "file:imageuplift.db?_foreign_keys=on"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 7 * 24 * 3600
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Classifier.Provider == "" {
		c.Classifier.Provider = "heuristic"
	}
	if c.Classifier.TimeoutSec <= 0 {
		c.Classifier.TimeoutSec = 30
	}
	if c.Classifier.Budget.Action == "" {
		c.Classifier.Budget.Action = "warn"
	}
	if c.Signals.Backend == "" {
		c.Signals.Backend = "go"
	}
	if c.Signals.MaxPixels == 0 {
		c.Signals.MaxPixels = 40_000_000
	}
	if c.Pipeline.TimeoutSec <= 0 {
		c.Pipeline.TimeoutSec = 600
	}
	if c.Pipeline.GPUID == nil {
		none := -1
		c.Pipeline.GPUID = &none
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pg":
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"postgres\", got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
	}
	switch c.Classifier.Provider {
	case "heuristic":
	case "openai":
		if c.Classifier.Model == "" {
			return fmt.Errorf("classifier.model is required for provider \"openai\"")
		}
		if c.Classifier.APIKey == "" && c.Classifier.BaseURL == "" {
			return fmt.Errorf("classifier.api_key or classifier.base_url is required for provider \"openai\"")
		}
	default:
		return fmt.Errorf("classifier.provider must be \"openai\" or \"heuristic\", got %q", c.Classifier.Provider)
	}
	switch c.Classifier.Budget.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf(
			"classifier.budget.action must be \"warn\" or \"reject\", got %q", c.Classifier.Budget.Action,
		)
	}
	switch c.Signals.Backend {
	case "go", "opencv":
	default:
		return fmt.Errorf("signals.backend must be \"go\" or \"opencv\", got %q", c.Signals.Backend)
	}
	if c.Signals.MaxPixels < 0 {
		return fmt.Errorf("signals.max_pixels must not be negative, got %d", c.Signals.MaxPixels)
	}
	if len(c.Auth.APIKeys) > 0 && !hasKey(c.Auth.APIKeys) {
		return fmt.Errorf("auth.api_keys lists only empty keys; remove the list to disable authentication")
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must not be negative, got %d", c.RateLimit.RequestsPerMinute)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
// Values are pasted into the YAML source unescaped: quote the scalar when a
// value may contain ": ", a trailing colon, "#" or a leading special character.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

func hasKey(keys []string) bool {
	for _, k := range keys {
		if strings.TrimSpace(k) != "" {
			return true
		}
	}
	return false
}
