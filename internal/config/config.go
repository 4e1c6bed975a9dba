// Package config provides configuration loading and validation for the
// matching service. It uses koanf to merge environment variables with
// optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the matching service binaries.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (rate limiting; optional, falls back to in-memory limits)
	RedisAddr string `koanf:"redis_addr"`

	// Profile change feed consumed by the ingest worker
	ProfileFeedURL string `koanf:"profile_feed_url"`

	// Internal bearer token protecting operational endpoints
	InternalToken string `koanf:"internal_token"`

	// Scoring
	CalibrationPath  string  `koanf:"calibration_path"`
	ProximityDecayKm float64 `koanf:"proximity_decay_km"`

	// Pair score cache
	CacheCapacity   int `koanf:"cache_capacity"`
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// Candidate pool size fetched per ranking request
	CandidatePoolSize int `koanf:"candidate_pool_size"`

	// Browser origins allowed to call the API; CORS is disabled when empty
	AllowedOrigins []string `koanf:"allowed_origins"`

	// Expose pprof endpoints (development only)
	ProfilingEnabled bool `koanf:"profiling_enabled"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL    = errors.New("DATABASE_URL is required")
	ErrMissingProfileFeedURL = errors.New("PROFILE_FEED_URL is required")
	ErrInvalidPort           = errors.New("PORT must be a valid integer")
	ErrInvalidDecay          = errors.New("PROXIMITY_DECAY_KM must be positive")
	ErrInvalidPoolSize       = errors.New("CANDIDATE_POOL_SIZE must be positive")
)

// Default values for non-secret configuration.
const (
	DefaultPort              = 8080
	DefaultEnv               = "development"
	DefaultProximityDecayKm  = 500.0
	DefaultCacheCapacity     = 4096
	DefaultCacheTTLSeconds   = 900
	DefaultCandidatePoolSize = 500
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if
// valid). If a config file path is provided and the file cannot be
// loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefaultMulti([]string{"AFFINITY_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	decayKm, decayErr := getEnvFloatOrDefault("PROXIMITY_DECAY_KM", k.Float64("proximity_decay_km"), DefaultProximityDecayKm)
	if decayErr != nil {
		loadErrs = append(loadErrs, decayErr)
	}

	cacheCapacity, capErr := getEnvIntOrDefault("CACHE_CAPACITY", k.Int("cache_capacity"), DefaultCacheCapacity)
	if capErr != nil {
		loadErrs = append(loadErrs, capErr)
	}

	cacheTTL, ttlErr := getEnvIntOrDefault("CACHE_TTL_SECONDS", k.Int("cache_ttl_seconds"), DefaultCacheTTLSeconds)
	if ttlErr != nil {
		loadErrs = append(loadErrs, ttlErr)
	}

	poolSize, poolErr := getEnvIntOrDefault("CANDIDATE_POOL_SIZE", k.Int("candidate_pool_size"), DefaultCandidatePoolSize)
	if poolErr != nil {
		loadErrs = append(loadErrs, poolErr)
	}

	cfg := &Config{
		Port:              port,
		Env:               getEnvOrDefaultMulti([]string{"AFFINITY_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:       getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisAddr:         getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		ProfileFeedURL:    getEnvOrKoanf("PROFILE_FEED_URL", k, "profile_feed_url"),
		InternalToken:     getEnvOrKoanf("INTERNAL_TOKEN", k, "internal_token"),
		CalibrationPath:   getEnvOrKoanf("CALIBRATION_PATH", k, "calibration_path"),
		ProximityDecayKm:  decayKm,
		CacheCapacity:     cacheCapacity,
		CacheTTLSeconds:   cacheTTL,
		CandidatePoolSize: poolSize,
		AllowedOrigins:    getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "allowed_origins"),
		ProfilingEnabled:  getEnvBoolOrKoanf("PROFILING_ENABLED", k, "profiling_enabled"),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// CacheTTL returns the configured pair cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvListOrKoanf returns the environment variable split on commas if
// set, otherwise the koanf string list.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	if val := os.Getenv(envKey); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return k.Strings(koanfKey)
}

// getEnvBoolOrKoanf returns the environment variable as bool if set,
// otherwise the koanf value. Unparseable values read as false.
func getEnvBoolOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) bool {
	if val := os.Getenv(envKey); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return false
		}
		return b
	}
	return k.Bool(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set,
// otherwise the koanf value, or default. Returns an error if the
// environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or
// default. Returns an error if any environment variable is set but cannot be
// parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set,
// otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present and
// numeric knobs are in range. Returns a slice of validation errors
// (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.ProfileFeedURL == "" {
		errs = append(errs, ErrMissingProfileFeedURL)
	}
	if c.ProximityDecayKm <= 0 {
		errs = append(errs, ErrInvalidDecay)
	}
	if c.CandidatePoolSize <= 0 {
		errs = append(errs, ErrInvalidPoolSize)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// Secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                fmt.Sprintf("%d", c.Port),
		"env":                 c.Env,
		"database_url":        maskDatabaseURL(c.DatabaseURL),
		"redis_addr":          c.RedisAddr,
		"profile_feed_url":    c.ProfileFeedURL,
		"internal_token":      maskSecret(c.InternalToken),
		"calibration_path":    c.CalibrationPath,
		"proximity_decay_km":  fmt.Sprintf("%g", c.ProximityDecayKm),
		"cache_capacity":      fmt.Sprintf("%d", c.CacheCapacity),
		"cache_ttl_seconds":   fmt.Sprintf("%d", c.CacheTTLSeconds),
		"candidate_pool_size": fmt.Sprintf("%d", c.CandidatePoolSize),
		"allowed_origins":     strings.Join(c.AllowedOrigins, ","),
		"profiling_enabled":   fmt.Sprintf("%t", c.ProfilingEnabled),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters
// followed by ****. If the secret is shorter than 8 characters, it's
// fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
