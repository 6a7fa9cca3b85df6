package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName             = "MyiBot"
	defaultAppEnv              = "development"
	defaultPort                = "3001"
	defaultLogLevel            = "info"
	defaultShutdownDelay       = 10 * time.Second
	defaultIdempotencyTTL      = 24 * time.Hour
	defaultBadgerPath          = "data/sessions"
	defaultDemoPIN             = "222"
	defaultRecipientCodeLength = 8
	defaultDemoBalanceCents    = 1275
	idemTTLSecondsEnvVar       = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar           = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar      = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar     = "SHUTDOWN_TIMEOUT"
)

// Session backends.
const (
	SessionBackendRedis  = "redis"
	SessionBackendBadger = "badger"
	SessionBackendMemory = "memory"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	BaseURL        string
	DatabaseURL    string
	RedisURL       string
	SessionBackend string
	BadgerPath     string
	SessionTTL     time.Duration
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	// TwilioAuthToken enables webhook signature validation when set.
	TwilioAuthToken string
	// DemoPIN is the bypass credential. Empty unless IVR_DEMO_BYPASS is on.
	DemoPIN             string
	RecipientCodeLength int
	DemoBalanceCents    int64
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		BadgerPath:     getEnv("BADGER_PATH", defaultBadgerPath),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,

		TwilioAuthToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		RecipientCodeLength: defaultRecipientCodeLength,
		DemoBalanceCents:    defaultDemoBalanceCents,
	}
	cfg.BaseURL = strings.TrimRight(getEnv("BASE_URL", "http://localhost"+cfg.Address()), "/")

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("invalid SESSION_TTL %q", v)
		}
		cfg.SessionTTL = d
	}

	if v := os.Getenv("IVR_RECIPIENT_CODE_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid IVR_RECIPIENT_CODE_LENGTH %q", v)
		}
		cfg.RecipientCodeLength = n
	}
	if v := os.Getenv("IVR_DEMO_BALANCE_CENTS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid IVR_DEMO_BALANCE_CENTS %q", v)
		}
		cfg.DemoBalanceCents = n
	}

	bypass, err := boolEnv("IVR_DEMO_BYPASS")
	if err != nil {
		return Config{}, err
	}
	if bypass {
		if cfg.AppEnv == "production" {
			return Config{}, fmt.Errorf("IVR_DEMO_BYPASS must not be enabled when APP_ENV=production")
		}
		cfg.DemoPIN = getEnv("IVR_DEMO_PIN", defaultDemoPIN)
	}

	cfg.SessionBackend = strings.ToLower(os.Getenv("SESSION_BACKEND"))
	if cfg.SessionBackend == "" {
		cfg.SessionBackend = SessionBackendMemory
		if cfg.RedisURL != "" {
			cfg.SessionBackend = SessionBackendRedis
		}
	}
	switch cfg.SessionBackend {
	case SessionBackendRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when SESSION_BACKEND=redis")
		}
	case SessionBackendBadger, SessionBackendMemory:
	default:
		return Config{}, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether the service may run without external stores.
func (c Config) IsDevelopment() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func boolEnv(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
