package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"

	StatusPolicyOpen  = "open"
	StatusPolicyOwner = "owner"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Reviews    ReviewsConfig    `yaml:"reviews"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Driver string       `yaml:"driver"`
	Path   string       `yaml:"path"`
	Mongo  MongoConfig  `yaml:"mongo"`
	Backup BackupConfig `yaml:"backup"`
}

// BackupConfig applies to the sqlite driver only.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	StoragePath   string `yaml:"storage_path"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Name           string        `yaml:"name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Port          int   `yaml:"port"`
	MaxUploadSize int64 `yaml:"max_upload_size"`
}

type APIAuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BookingConfig holds the policy points of the booking ledger.
type BookingConfig struct {
	SerializePerProperty *bool         `yaml:"serialize_per_property"`
	RejectOverlapping    *bool         `yaml:"reject_overlapping"`
	StatusPolicy         string        `yaml:"status_policy"`
	LockTTL              time.Duration `yaml:"lock_ttl"`
	Admins               []string      `yaml:"admins"`
}

type ReviewsConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен: переменные могут прийти из окружения контейнера
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required for the sqlite driver")
		}
	case DriverMongo:
		if c.Database.Mongo.URI == "" {
			return errors.New("mongo uri is required for the mongo driver")
		}
		if c.Database.Mongo.Name == "" {
			return errors.New("mongo database name is required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.API.Auth.JWTSecret == "" {
		return errors.New("api auth jwt_secret is required")
	}

	switch c.Booking.StatusPolicy {
	case StatusPolicyOpen, StatusPolicyOwner:
	default:
		return fmt.Errorf("unknown booking status_policy %q", c.Booking.StatusPolicy)
	}

	return nil
}

func (c *Config) applyDefaults() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Mongo.ConnectTimeout == 0 {
		c.Database.Mongo.ConnectTimeout = 10 * time.Second
	}
	if c.Database.Backup.Enabled && c.Database.Backup.StoragePath == "" {
		c.Database.Backup.StoragePath = "backups"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.MaxUploadSize == 0 {
		c.API.HTTP.MaxUploadSize = 32 << 20
	}
	if len(c.API.CORS.AllowedOrigins) == 0 {
		c.API.CORS.AllowedOrigins = []string{"*"}
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 10 * time.Minute
	}

	// Booking defaults
	if c.Booking.SerializePerProperty == nil {
		c.Booking.SerializePerProperty = boolPtr(true)
	}
	if c.Booking.RejectOverlapping == nil {
		c.Booking.RejectOverlapping = boolPtr(true)
	}
	c.Booking.StatusPolicy = strings.ToLower(strings.TrimSpace(c.Booking.StatusPolicy))
	if c.Booking.StatusPolicy == "" {
		c.Booking.StatusPolicy = StatusPolicyOpen
	}
	if c.Booking.LockTTL == 0 {
		c.Booking.LockTTL = 10 * time.Second
	}

	if c.Reviews.MaxRetries == 0 {
		c.Reviews.MaxRetries = 3
	}
	if c.Reviews.InitialDelay == 0 {
		c.Reviews.InitialDelay = 20 * time.Millisecond
	}
}

func boolPtr(v bool) *bool {
	return &v
}
