package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/ssogate/pkg/observability"
	"github.com/platinummonkey/ssogate/pkg/orgs"
	"github.com/platinummonkey/ssogate/pkg/ratelimit"
	"github.com/platinummonkey/ssogate/pkg/routing"
	"github.com/robfig/cron/v3"
)

// Directory backends
const (
	DirectoryPostgres = "postgres"
	DirectorySQLite   = "sqlite"
	DirectoryFile     = "file"
)

// Config holds all application configuration
type Config struct {
	Server          ServerConfig
	Directory       DirectoryConfig
	Cache           CacheConfig
	CredentialStore CredentialStoreConfig
	Routing         RoutingConfig
	RateLimit       RateLimitConfig
	Observability   ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server on its own port for k8s liveness and readiness
	HealthPort string
}

// DirectoryConfig selects and configures the organization directory
type DirectoryConfig struct {
	Type string

	// SQL backends
	DSN          string
	MaxOpenConns int
	AutoMigrate  bool

	// File backend
	FilePath string
	Watch    bool

	// Duplicate domain audit; empty disables it
	AuditSchedule string
}

// CacheConfig configures the directory cache
type CacheConfig struct {
	Enabled     bool
	Size        int
	TTL         time.Duration
	NegativeTTL time.Duration

	// Optional shared tier
	RedisURL string
}

// CredentialStoreConfig configures the credential store client
type CredentialStoreConfig struct {
	URL         string
	APIKey      string
	AccessToken string
}

// RoutingConfig configures the login routing controller
type RoutingConfig struct {
	SSORedirectTo     string
	LookupTimeout     time.Duration
	CredentialTimeout time.Duration
	NormalizeDomains  bool
}

// RateLimitConfig throttles the login and signup forms per client IP. The
// limiter shares the cache's Redis when one is configured.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
	// TrustedProxies lists the addresses and CIDR ranges of load balancers
	// whose forwarding headers name the client. Empty keys on the peer.
	TrustedProxies []string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
	Environment        string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:          loadServerConfig(),
		Directory:       loadDirectoryConfig(),
		Cache:           loadCacheConfig(),
		CredentialStore: loadCredentialStoreConfig(),
		Routing:         loadRoutingConfig(),
		RateLimit:       loadRateLimitConfig(),
		Observability:   loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SSOGATE_HOST", "0.0.0.0"),
		Port:            getEnv("SSOGATE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SSOGATE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SSOGATE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SSOGATE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SSOGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SSOGATE_HEALTH_PORT", "9090"),
	}
}

func loadDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		Type:          strings.ToLower(getEnv("SSOGATE_DIRECTORY", DirectoryPostgres)),
		DSN:           getEnv("SSOGATE_DIRECTORY_DSN", ""),
		MaxOpenConns:  getEnvInt("SSOGATE_DIRECTORY_MAX_CONNS", 10),
		AutoMigrate:   getEnvBool("SSOGATE_DIRECTORY_AUTO_MIGRATE", false),
		FilePath:      getEnv("SSOGATE_DIRECTORY_FILE", ""),
		Watch:         getEnvBool("SSOGATE_DIRECTORY_WATCH", true),
		AuditSchedule: getEnv("SSOGATE_AUDIT_SCHEDULE", orgs.DefaultAuditSchedule),
	}
}

func loadCacheConfig() CacheConfig {
	defaults := orgs.DefaultCacheConfig()
	return CacheConfig{
		Enabled:     getEnvBool("SSOGATE_CACHE_ENABLED", true),
		Size:        getEnvInt("SSOGATE_CACHE_SIZE", defaults.Size),
		TTL:         getEnvDuration("SSOGATE_CACHE_TTL", defaults.TTL),
		NegativeTTL: getEnvDuration("SSOGATE_CACHE_NEGATIVE_TTL", defaults.NegativeTTL),
		RedisURL:    getEnv("SSOGATE_REDIS_URL", ""),
	}
}

func loadCredentialStoreConfig() CredentialStoreConfig {
	return CredentialStoreConfig{
		URL:         getEnv("SSOGATE_CREDSTORE_URL", ""),
		APIKey:      getEnv("SSOGATE_CREDSTORE_API_KEY", ""),
		AccessToken: getEnv("SSOGATE_CREDSTORE_ACCESS_TOKEN", ""),
	}
}

func loadRoutingConfig() RoutingConfig {
	defaults := routing.DefaultOptions()
	return RoutingConfig{
		SSORedirectTo:     getEnv("SSOGATE_SSO_REDIRECT_TO", ""),
		LookupTimeout:     getEnvDuration("SSOGATE_LOOKUP_TIMEOUT", defaults.LookupTimeout),
		CredentialTimeout: getEnvDuration("SSOGATE_CREDENTIAL_TIMEOUT", defaults.CredentialTimeout),
		NormalizeDomains:  getEnvBool("SSOGATE_NORMALIZE_DOMAINS", defaults.NormalizeDomains),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	defaults := ratelimit.DefaultConfig()
	return RateLimitConfig{
		Enabled:           getEnvBool("SSOGATE_RATE_LIMIT_ENABLED", true),
		RequestsPerWindow: getEnvInt("SSOGATE_RATE_LIMIT_REQUESTS", defaults.RequestsPerWindow),
		Window:            getEnvDuration("SSOGATE_RATE_LIMIT_WINDOW", defaults.Window),
		Burst:             getEnvInt("SSOGATE_RATE_LIMIT_BURST", defaults.Burst),
		TrustedProxies:    getEnvList("SSOGATE_TRUSTED_PROXIES"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("SSOGATE_LOG_LEVEL", "info")),
		OTelEnabled:        getEnvBool("SSOGATE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SSOGATE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SSOGATE_OTEL_SERVICE_NAME", "ssogate"),
		OTelServiceVersion: getEnv("SSOGATE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SSOGATE_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("SSOGATE_OTEL_SAMPLE_RATIO", 1),
		Environment:        getEnv("SSOGATE_ENV", "development"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Directory.Type {
	case DirectoryPostgres, DirectorySQLite:
		if c.Directory.DSN == "" {
			return fmt.Errorf("directory DSN is required for %s directory", c.Directory.Type)
		}
	case DirectoryFile:
		if c.Directory.FilePath == "" {
			return fmt.Errorf("directory file path is required for file directory")
		}
	default:
		return fmt.Errorf("invalid directory type: %s (must be postgres, sqlite, or file)", c.Directory.Type)
	}
	if c.Directory.AuditSchedule != "" {
		if _, err := cron.ParseStandard(c.Directory.AuditSchedule); err != nil {
			return fmt.Errorf("invalid audit schedule %q: %w", c.Directory.AuditSchedule, err)
		}
	}

	if c.Cache.Enabled {
		if c.Cache.Size <= 0 {
			return fmt.Errorf("cache size must be positive")
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache TTL must be positive")
		}
		if c.Cache.NegativeTTL < 0 {
			return fmt.Errorf("cache negative TTL must not be negative")
		}
	}

	if c.CredentialStore.URL == "" {
		return fmt.Errorf("credential store URL is required")
	}
	if u, err := url.Parse(c.CredentialStore.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("credential store URL must be absolute: %q", c.CredentialStore.URL)
	}
	if c.CredentialStore.APIKey == "" {
		return fmt.Errorf("credential store API key is required")
	}

	if c.Routing.LookupTimeout <= 0 {
		return fmt.Errorf("lookup timeout must be positive")
	}
	if c.Routing.CredentialTimeout <= 0 {
		return fmt.Errorf("credential timeout must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerWindow <= 0 {
			return fmt.Errorf("rate limit requests must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
		if c.RateLimit.Burst < 0 {
			return fmt.Errorf("rate limit burst must not be negative")
		}
		if _, err := ratelimit.ParseTrustedProxies(c.RateLimit.TrustedProxies); err != nil {
			return err
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	return nil
}

// Options returns the routing controller options
func (c RoutingConfig) Options() routing.Options {
	return routing.Options{
		SSORedirectTo:     c.SSORedirectTo,
		LookupTimeout:     c.LookupTimeout,
		CredentialTimeout: c.CredentialTimeout,
		NormalizeDomains:  c.NormalizeDomains,
	}
}

// DirectoryCache returns the directory cache settings
func (c CacheConfig) DirectoryCache() orgs.CacheConfig {
	cfg := orgs.DefaultCacheConfig()
	cfg.Size = c.Size
	cfg.TTL = c.TTL
	cfg.NegativeTTL = c.NegativeTTL
	return cfg
}

// OTel returns the OpenTelemetry settings
func (c ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Environment:    c.Environment,
		Insecure:       c.OTelInsecure,
		SampleRatio:    c.OTelSampleRatio,
	}
}

// Limits returns the rate limiter settings
func (c RateLimitConfig) Limits() (ratelimit.Config, error) {
	trusted, err := ratelimit.ParseTrustedProxies(c.TrustedProxies)
	if err != nil {
		return ratelimit.Config{}, err
	}
	return ratelimit.Config{
		RequestsPerWindow: c.RequestsPerWindow,
		Window:            c.Window,
		Burst:             c.Burst,
		TrustedProxies:    trusted,
	}, nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated environment variable
func getEnvList(key string) []string {
	var values []string
	for _, value := range strings.Split(os.Getenv(key), ",") {
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}
	return values
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

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
