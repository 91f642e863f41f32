package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/usercenter/pkg/observability"
	"github.com/platinummonkey/usercenter/pkg/session"
	"github.com/platinummonkey/usercenter/pkg/sso"
	"github.com/platinummonkey/usercenter/pkg/storage"
)

// EnvConfigFile names the optional YAML configuration file
const EnvConfigFile = "USERCENTER_CONFIG_FILE"

// Backends shared by sessions and rate limiting
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Storage configuration
	Storage storage.Config `yaml:"storage"`

	Session   SessionConfig   `yaml:"session"`
	Accounts  AccountsConfig  `yaml:"accounts"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// SSO configures the third-party identity provider; disabled by default
	SSO sso.ProviderConfig `yaml:"sso"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// APIDocs serves /openapi.yaml, /openapi.json and /swagger-ui
	APIDocs bool `yaml:"api_docs"`

	// Health/metrics server (separate port for k8s health checks)
	HealthPort string `yaml:"health_port"`
}

// SessionConfig holds session cookie and store settings
type SessionConfig struct {
	Store      string        `yaml:"store"` // "memory" or "redis"
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
	// SweepSchedule is the cron spec for evicting expired in-memory sessions
	SweepSchedule string `yaml:"sweep_schedule"`
}

// AccountsConfig holds account service settings
type AccountsConfig struct {
	Salt              string        `yaml:"salt"`
	MaxPublicPageSize int64         `yaml:"max_public_page_size"`
	PublicCacheSize   int           `yaml:"public_cache_size"`
	PublicCacheTTL    time.Duration `yaml:"public_cache_ttl"`
}

// RateLimitConfig holds the register and login rate limit
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Backend           string        `yaml:"backend"` // "memory" or "redis"
	RequestsPerWindow int           `yaml:"requests_per_window"`
	WindowDuration    time.Duration `yaml:"window"`
	BurstSize         int           `yaml:"burst"`
	FailOpen          bool          `yaml:"fail_open"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"` // Use insecure gRPC connection
	// OTelSampleRatio is the fraction of traces kept; 0 or 1 keeps all
	OTelSampleRatio float64 `yaml:"otel_sample_ratio"`
}

// Level returns the parsed log level
func (c ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(c.LogLevel)
}

// OTel returns the tracing settings
func (c ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Insecure:       c.OTelInsecure,
		SampleRatio:    c.OTelSampleRatio,
	}
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			HealthPort:      "9090",
			APIDocs:         true,
		},
		Storage: storage.DefaultConfig(),
		Session: SessionConfig{
			Store:         BackendMemory,
			CookieName:    session.DefaultCookieName,
			TTL:           30 * time.Minute,
			SweepSchedule: "@every 1m",
		},
		Accounts: AccountsConfig{
			MaxPublicPageSize: 20,
			PublicCacheSize:   1024,
			PublicCacheTTL:    30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			Backend:           BackendMemory,
			RequestsPerWindow: 20,
			WindowDuration:    time.Minute,
			BurstSize:         5,
			FailOpen:          true,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "usercenter",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads configuration from the file named by USERCENTER_CONFIG_FILE,
// if any, and then from environment variables
func LoadConfig() (*Config, error) {
	return Load(os.Getenv(EnvConfigFile))
}

// Load applies defaults, the YAML file at path (skipped when empty) and
// environment overrides, in that order, and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// applyEnv overrides values with USERCENTER_* environment variables
func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("USERCENTER_HOST", s.Host)
	s.Port = getEnv("USERCENTER_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("USERCENTER_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("USERCENTER_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("USERCENTER_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("USERCENTER_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = getEnvInt64("USERCENTER_MAX_BODY_BYTES", s.MaxBodyBytes)
	s.CORSOrigins = getEnvList("USERCENTER_CORS_ORIGINS", s.CORSOrigins)
	s.APIDocs = getEnvBool("USERCENTER_API_DOCS", s.APIDocs)
	s.HealthPort = getEnv("USERCENTER_HEALTH_PORT", s.HealthPort)

	st := &c.Storage
	st.Type = getEnv("USERCENTER_STORAGE_TYPE", st.Type)
	st.PostgresURL = getEnv("USERCENTER_POSTGRES_URL", st.PostgresURL)
	st.PostgresReplicaURLs = getEnv("USERCENTER_POSTGRES_REPLICA_URLS", st.PostgresReplicaURLs)
	st.PostgresMaxConns = getEnvInt("USERCENTER_POSTGRES_MAX_CONNS", st.PostgresMaxConns)
	st.PostgresMinConns = getEnvInt("USERCENTER_POSTGRES_MIN_CONNS", st.PostgresMinConns)
	st.PostgresTimeout = getEnvDuration("USERCENTER_POSTGRES_TIMEOUT", st.PostgresTimeout)
	st.SQLitePath = getEnv("USERCENTER_SQLITE_PATH", st.SQLitePath)
	st.RedisURL = getEnv("USERCENTER_REDIS_URL", st.RedisURL)
	st.RedisPassword = getEnv("USERCENTER_REDIS_PASSWORD", st.RedisPassword)
	st.RedisDB = getEnvInt("USERCENTER_REDIS_DB", st.RedisDB)
	st.RedisMaxRetries = getEnvInt("USERCENTER_REDIS_MAX_RETRIES", st.RedisMaxRetries)
	st.RedisPoolSize = getEnvInt("USERCENTER_REDIS_POOL_SIZE", st.RedisPoolSize)

	se := &c.Session
	se.Store = getEnv("USERCENTER_SESSION_STORE", se.Store)
	se.CookieName = getEnv("USERCENTER_SESSION_COOKIE", se.CookieName)
	se.TTL = getEnvDuration("USERCENTER_SESSION_TTL", se.TTL)
	se.Secure = getEnvBool("USERCENTER_SESSION_SECURE", se.Secure)
	se.SweepSchedule = getEnv("USERCENTER_SESSION_SWEEP_SCHEDULE", se.SweepSchedule)

	a := &c.Accounts
	a.Salt = getEnv("USERCENTER_SALT", a.Salt)
	a.MaxPublicPageSize = getEnvInt64("USERCENTER_MAX_PUBLIC_PAGE_SIZE", a.MaxPublicPageSize)
	a.PublicCacheSize = getEnvInt("USERCENTER_PUBLIC_CACHE_SIZE", a.PublicCacheSize)
	a.PublicCacheTTL = getEnvDuration("USERCENTER_PUBLIC_CACHE_TTL", a.PublicCacheTTL)

	rl := &c.RateLimit
	rl.Enabled = getEnvBool("USERCENTER_RATE_LIMIT_ENABLED", rl.Enabled)
	rl.Backend = getEnv("USERCENTER_RATE_LIMIT_BACKEND", rl.Backend)
	rl.RequestsPerWindow = getEnvInt("USERCENTER_RATE_LIMIT_REQUESTS", rl.RequestsPerWindow)
	rl.WindowDuration = getEnvDuration("USERCENTER_RATE_LIMIT_WINDOW", rl.WindowDuration)
	rl.BurstSize = getEnvInt("USERCENTER_RATE_LIMIT_BURST", rl.BurstSize)
	rl.FailOpen = getEnvBool("USERCENTER_RATE_LIMIT_FAIL_OPEN", rl.FailOpen)

	c.applySSOEnv()

	o := &c.Observability
	o.LogLevel = getEnv("USERCENTER_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("USERCENTER_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("USERCENTER_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("USERCENTER_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("USERCENTER_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("USERCENTER_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("USERCENTER_OTEL_INSECURE", o.OTelInsecure)
}

// applySSOEnv selects a preset provider with USERCENTER_SSO_PROVIDER and fills
// in the client credentials. Values from the YAML file are kept unless overridden.
func (c *Config) applySSOEnv() {
	if name := getEnv("USERCENTER_SSO_PROVIDER", ""); name != "" {
		if preset, err := sso.GetPresetConfig(sso.ProviderName(name)); err == nil {
			preset.Enabled = true
			c.SSO = *preset
		}
	}

	clientID := getEnv("USERCENTER_SSO_CLIENT_ID", "")
	secret := getEnv("USERCENTER_SSO_CLIENT_SECRET", "")
	redirect := getEnv("USERCENTER_SSO_REDIRECT_URL", "")

	switch c.SSO.ProviderType {
	case sso.ProviderTypeOAuth2:
		if c.SSO.OAuth2Config == nil {
			c.SSO.OAuth2Config = &sso.OAuth2Config{}
		}
		oc := c.SSO.OAuth2Config
		oc.ClientID = orDefault(clientID, oc.ClientID)
		oc.ClientSecret = orDefault(secret, oc.ClientSecret)
		oc.RedirectURL = orDefault(redirect, oc.RedirectURL)
	case sso.ProviderTypeOIDC:
		if c.SSO.OIDCConfig == nil {
			c.SSO.OIDCConfig = &sso.OIDCConfig{}
		}
		oc := c.SSO.OIDCConfig
		oc.ClientID = orDefault(clientID, oc.ClientID)
		oc.ClientSecret = orDefault(secret, oc.ClientSecret)
		oc.RedirectURL = orDefault(redirect, oc.RedirectURL)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate storage config based on type
	switch c.Storage.Type {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, sqlite, or postgres)", c.Storage.Type)
	}

	if err := c.validateBackend("session store", c.Session.Store); err != nil {
		return err
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Accounts.MaxPublicPageSize <= 0 {
		return fmt.Errorf("max public page size must be positive")
	}

	if c.RateLimit.Enabled {
		if err := c.validateBackend("rate limit backend", c.RateLimit.Backend); err != nil {
			return err
		}
		if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.WindowDuration <= 0 {
			return fmt.Errorf("rate limit requests and window must be positive")
		}
	}

	if c.SSO.Enabled {
		switch c.SSO.ProviderType {
		case sso.ProviderTypeOAuth2, sso.ProviderTypeOIDC:
		default:
			return fmt.Errorf("invalid sso provider type: %q", c.SSO.ProviderType)
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if r := c.Observability.OTelSampleRatio; r < 0 || r > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	return nil
}

func (c *Config) validateBackend(what, backend string) error {
	switch backend {
	case BackendMemory:
		return nil
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis %s", what)
		}
		return nil
	default:
		return fmt.Errorf("invalid %s: %s (must be memory or redis)", what, backend)
	}
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
