package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"municipality/internal/models"
)

// Config represents the application configuration
type Config struct {
	Environment   string              `mapstructure:"environment"`
	Debug         bool                `mapstructure:"debug"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Payments      PaymentsConfig      `mapstructure:"payments"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

// ServerConfig contains HTTP and gRPC server settings
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	// Driver is "postgres", "sqlite" or "memory"
	Driver             string        `mapstructure:"driver"`
	Path               string        `mapstructure:"path"`
	URL                string        `mapstructure:"url"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Name               string        `mapstructure:"name"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	MaxOpenConnections int           `mapstructure:"max_open_connections"`
	MaxIdleConnections int           `mapstructure:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `mapstructure:"connection_max_lifetime"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
}

// DSN returns the URL when set, otherwise a key/value connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Name, d.SSLMode)
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	Database    int           `mapstructure:"database"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	PoolSize    int           `mapstructure:"pool_size"`
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Brokers  []string          `mapstructure:"brokers"`
	ClientID string            `mapstructure:"client_id"`
	Topics   KafkaTopicsConfig `mapstructure:"topics"`
}

// KafkaTopicsConfig contains Kafka topic names
type KafkaTopicsConfig struct {
	Requests      string `mapstructure:"requests"`
	Payments      string `mapstructure:"payments"`
	Complaints    string `mapstructure:"complaints"`
	Notifications string `mapstructure:"notifications"`
}

// AuthConfig contains token and login settings
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	Issuer          string        `mapstructure:"issuer"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	MaxFailedLogins int           `mapstructure:"max_failed_logins"`
	LockoutDuration time.Duration `mapstructure:"lockout_duration"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`
}

// FeeConfig is one row of the fee table
type FeeConfig struct {
	RequestType string  `mapstructure:"request_type"`
	Amount      float64 `mapstructure:"amount"`
}

// PaymentsConfig contains fee and gateway settings
type PaymentsConfig struct {
	Fees         []FeeConfig             `mapstructure:"fees"`
	DefaultFee   float64                 `mapstructure:"default_fee"`
	MaxAttempts  int                     `mapstructure:"max_attempts"`
	Gateway      GatewayConfig           `mapstructure:"gateway"`
	Municipality models.MunicipalityInfo `mapstructure:"municipality"`
}

// GatewayConfig selects and tunes the payment gateway
type GatewayConfig struct {
	// Mode is "simulated" or "http"
	Mode        string        `mapstructure:"mode"`
	URL         string        `mapstructure:"url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RetryCount  int           `mapstructure:"retry_count"`
	Delay       time.Duration `mapstructure:"delay"`
	SuccessRate float64       `mapstructure:"success_rate"`
}

// StorageConfig contains attachment storage settings
type StorageConfig struct {
	Root        string `mapstructure:"root"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
}

// NotificationsConfig contains notification delivery settings
type NotificationsConfig struct {
	StatsCacheTTL   time.Duration `mapstructure:"stats_cache_ttl"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	BurstSize         int  `mapstructure:"burst_size"`
}

// SchedulerConfig contains background job settings
type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ReminderSpec string `mapstructure:"reminder_spec"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from an optional file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Set environment variable prefix
	v.SetEnvPrefix("MUNICIPALITY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.Wrap(err, "failed to read config file")
			}
		}
	}

	overrideWithEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail at runtime
func (c *Config) Validate() error {
	if c.Server.HTTPPort == 0 {
		return errors.New("HTTP port not configured")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be set")
	}
	if c.Environment == "production" && c.Auth.JWTSecret == defaultJWTSecret {
		return errors.New("auth.jwt_secret must be changed in production")
	}
	if c.Payments.MaxAttempts < 1 {
		return errors.New("payments.max_attempts must be positive")
	}
	if c.Payments.Gateway.SuccessRate < 0 || c.Payments.Gateway.SuccessRate > 1 {
		return errors.New("payments.gateway.success_rate must be between 0 and 1")
	}
	switch c.Payments.Gateway.Mode {
	case "simulated":
	case "http":
		if c.Payments.Gateway.URL == "" {
			return errors.New("payments.gateway.url is required in http mode")
		}
	default:
		return errors.Errorf("unknown payment gateway mode %q", c.Payments.Gateway.Mode)
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	default:
		return errors.Errorf("unknown database driver %q", c.Database.Driver)
	}
	return nil
}

const defaultJWTSecret = "change-me-in-production"

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("debug", false)

	// Server defaults
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("server.grpc_port", 9000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_header_bytes", 1048576)

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.path", "municipality.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "municipality_db")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_connections", 25)
	v.SetDefault("database.max_idle_connections", 10)
	v.SetDefault("database.connection_max_lifetime", "5m")
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.pool_size", 10)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "municipality")
	v.SetDefault("kafka.topics.requests", "municipality.requests")
	v.SetDefault("kafka.topics.payments", "municipality.payments")
	v.SetDefault("kafka.topics.complaints", "municipality.complaints")
	v.SetDefault("kafka.topics.notifications", "municipality.notifications")

	// Auth defaults
	v.SetDefault("auth.jwt_secret", defaultJWTSecret)
	v.SetDefault("auth.issuer", "municipality")
	v.SetDefault("auth.token_ttl", "30m")
	v.SetDefault("auth.max_failed_logins", 5)
	v.SetDefault("auth.lockout_duration", "30m")
	v.SetDefault("auth.bcrypt_cost", 10)

	// Payment defaults
	v.SetDefault("payments.fees", []map[string]interface{}{
		{"request_type": string(models.RequestTypeBuildingPermit), "amount": 500.0},
		{"request_type": string(models.RequestTypeBusinessLicense), "amount": 300.0},
		{"request_type": string(models.RequestTypeBirthCertificate), "amount": 50.0},
		{"request_type": string(models.RequestTypeMarriageCertificate), "amount": 75.0},
		{"request_type": string(models.RequestTypeResidencyCertificate), "amount": 40.0},
		{"request_type": string(models.RequestTypeTaxClearance), "amount": 100.0},
		{"request_type": string(models.RequestTypeLandRegistry), "amount": 1000.0},
		{"request_type": string(models.RequestTypeOther), "amount": 100.0},
	})
	v.SetDefault("payments.default_fee", 100.0)
	v.SetDefault("payments.max_attempts", 3)
	v.SetDefault("payments.gateway.mode", "simulated")
	v.SetDefault("payments.gateway.timeout", "10s")
	v.SetDefault("payments.gateway.retry_count", 0)
	v.SetDefault("payments.gateway.delay", "1s")
	v.SetDefault("payments.gateway.success_rate", 0.9)
	v.SetDefault("payments.municipality.name", "City Municipality")
	v.SetDefault("payments.municipality.address", "123 Main Street, City Center")
	v.SetDefault("payments.municipality.phone", "+1-555-0100")
	v.SetDefault("payments.municipality.email", "payments@municipality.gov")

	// Storage defaults
	v.SetDefault("storage.root", "uploads")
	v.SetDefault("storage.max_file_size", 10*1024*1024)

	// Notification defaults
	v.SetDefault("notifications.stats_cache_ttl", "1m")
	v.SetDefault("notifications.read_buffer_size", 1024)
	v.SetDefault("notifications.write_buffer_size", 1024)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 120)
	v.SetDefault("rate_limit.burst_size", 20)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.reminder_spec", "0 9 * * *")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("logging.compress", true)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// overrideWithEnvVars applies the conventional unprefixed variables
func overrideWithEnvVars(v *viper.Viper) {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		v.Set("environment", env)
	}

	// Database environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		v.Set("database.url", url)
	}
	if password := os.Getenv("DATABASE_PASSWORD"); password != "" {
		v.Set("database.password", password)
	}

	// Redis environment variables
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		v.Set("redis.addr", addr)
		v.Set("redis.enabled", true)
	}

	// Kafka environment variables
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		v.Set("kafka.brokers", strings.Split(brokers, ","))
		v.Set("kafka.enabled", true)
	}

	// Security environment variables
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		v.Set("auth.jwt_secret", jwtSecret)
	}
}
