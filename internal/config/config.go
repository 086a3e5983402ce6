// Package config provides configuration management for papernet.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Ledger backends.
const (
	LedgerBackendPostgres = "postgres"
	LedgerBackendMemory   = "memory"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "PAPERNET"

// Config holds all configuration for papernet.
type Config struct {
	// Server contains HTTP API server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Temporal contains Temporal workflow orchestration settings.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Redis contains the shared response cache settings.
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka contains the slow call alert publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Crossref contains metadata service client settings.
	Crossref CrossrefConfig `mapstructure:"crossref"`
	// OpenCitations contains citation index client settings.
	OpenCitations OpenCitationsConfig `mapstructure:"opencitations"`
	// Limiter contains the outbound request pacing settings.
	Limiter LimiterConfig `mapstructure:"limiter"`
	// Scheduler contains the periodic sweep settings.
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port" validate:"min=1,max=65535"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host" validate:"required"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password, read from PAPERNET_DATABASE_PASSWORD only.
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name" validate:"required"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns" validate:"min=1"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns" validate:"min=0"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationAutoRun applies embedded migrations on worker startup.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port" validate:"required"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace" validate:"required"`
	// TaskQueue is the task queue ingestion workflows run on.
	TaskQueue string `mapstructure:"task_queue" validate:"required"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format" validate:"oneof=json console"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// RedisConfig holds the shared response cache settings. When disabled the
// worker caches responses in memory.
type RedisConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Address is host:port of the Redis server.
	Address string `mapstructure:"address"`
	// Password is read from PAPERNET_REDIS_PASSWORD only.
	Password string `mapstructure:"-"`
	DB       int    `mapstructure:"db" validate:"min=0"`
	// KeyPrefix namespaces cached responses.
	KeyPrefix string `mapstructure:"key_prefix"`
}

// KafkaConfig holds the slow call alert publisher settings.
type KafkaConfig struct {
	// Enabled controls whether slow call alerts are published.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic receives slow call events.
	Topic string `mapstructure:"topic"`
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CrossrefConfig holds metadata service client settings.
type CrossrefConfig struct {
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	// Mailto is the contact address sent with every request.
	Mailto string `mapstructure:"mailto" validate:"omitempty,email"`
	// ProjectURL is advertised in the User-Agent.
	ProjectURL string `mapstructure:"project_url"`
	// Rows is the default page size for listings.
	Rows int `mapstructure:"rows" validate:"min=1,max=1000"`
	// Timeout bounds each call.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the token bucket ceiling in requests per second.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gt=0"`
	// BurstSize is the token bucket burst.
	BurstSize int `mapstructure:"burst_size" validate:"min=1"`
	// CacheTTL is how long successful responses are reused.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// OpenCitationsConfig holds citation index client settings.
type OpenCitationsConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

// LimiterConfig holds the reactive limiter thresholds and the ledger backend.
type LimiterConfig struct {
	// MaxRequestLength is the call duration above which the next call waits.
	MaxRequestLength time.Duration `mapstructure:"max_request_length"`
	// AlertRequestLength is the call duration above which an alert fires.
	AlertRequestLength time.Duration `mapstructure:"alert_request_length"`
	// MinWait is the minimum pause after a slow call.
	MinWait time.Duration `mapstructure:"min_wait"`
	// Ledger selects where calls are recorded (postgres, memory).
	Ledger string `mapstructure:"ledger" validate:"oneof=postgres memory"`
	// LockKey is the advisory lock key serializing calls across workers.
	LockKey int64 `mapstructure:"lock_key"`
}

// SchedulerConfig holds the missing reference sweep settings.
type SchedulerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// SweepSchedule is a cron expression or @every descriptor.
	SweepSchedule string `mapstructure:"sweep_schedule"`
	// SweepLimit is the number of missing DOIs fetched per sweep.
	SweepLimit int `mapstructure:"sweep_limit" validate:"min=1"`
	// PruneSchedule is when request ledger entries older than
	// LedgerRetention are deleted. Empty disables pruning.
	PruneSchedule   string        `mapstructure:"prune_schedule"`
	LedgerRetention time.Duration `mapstructure:"ledger_retention"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// UserAgent builds the User-Agent sent to upstream services.
func (c *CrossrefConfig) UserAgent(version string) string {
	if c.Mailto == "" {
		return fmt.Sprintf("papernet/%s (%s)", version, c.ProjectURL)
	}
	return fmt.Sprintf("papernet/%s (%s; mailto:%s)", version, c.ProjectURL, c.Mailto)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/papernet")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")
	cfg.Redis.Password = os.Getenv(EnvPrefix + "_REDIS_PASSWORD")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "papernet")
	v.SetDefault("database.name", "papernet")
	// Use PAPERNET_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "papernet-ingestion")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "papernet:response:")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "papernet.alerts.slow_calls")
	v.SetDefault("kafka.write_timeout", "2s")

	v.SetDefault("crossref.base_url", "https://api.crossref.org")
	v.SetDefault("crossref.mailto", "")
	v.SetDefault("crossref.project_url", "https://github.com/camrobjones/papernet")
	v.SetDefault("crossref.rows", 20)
	v.SetDefault("crossref.timeout", "30s")
	v.SetDefault("crossref.rate_limit", 10.0)
	v.SetDefault("crossref.burst_size", 10)
	v.SetDefault("crossref.cache_ttl", "720h")

	v.SetDefault("opencitations.base_url", "https://w3id.org/oc/index/coci/api/v1")

	v.SetDefault("limiter.max_request_length", "4s")
	v.SetDefault("limiter.alert_request_length", "8s")
	v.SetDefault("limiter.min_wait", "2s")
	v.SetDefault("limiter.ledger", LedgerBackendPostgres)
	v.SetDefault("limiter.lock_key", 7311)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.sweep_schedule", "@every 6h")
	v.SetDefault("scheduler.sweep_limit", 50)
	v.SetDefault("scheduler.prune_schedule", "@daily")
	v.SetDefault("scheduler.ledger_retention", "720h")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: %v (%s)", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Limiter.AlertRequestLength < c.Limiter.MaxRequestLength {
		return fmt.Errorf("alert_request_length (%s) must be >= max_request_length (%s)",
			c.Limiter.AlertRequestLength, c.Limiter.MaxRequestLength)
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka brokers and topic are required when kafka is enabled")
	}
	if c.Scheduler.Enabled && c.Scheduler.SweepSchedule == "" {
		return fmt.Errorf("sweep schedule is required when the scheduler is enabled")
	}
	if c.Scheduler.PruneSchedule != "" && c.Scheduler.LedgerRetention <= 0 {
		return fmt.Errorf("ledger_retention must be positive when prune_schedule is set")
	}

	return nil
}
