package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Log            LogConfig
	HTTP           HTTPConfig
	Import         ImportConfig
	Reconciliation ReconciliationConfig
	Source         SourceConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ImportConfig holds import pipeline settings
type ImportConfig struct {
	BatchSize      int
	Concurrency    int
	RetryCount     int
	RetryDelay     time.Duration
	PageSize       int
	FingerprintTTL time.Duration
	DedupEnabled   bool
}

// ReconciliationConfig holds reconciliation matcher settings
type ReconciliationConfig struct {
	AmountTolerance  float64
	AutoThreshold    float64
	MaxGroupSize     int
	BootstrapMinimum int
	WindowDays       int
}

// SourceConfig configures the external bookkeeping source adapter
type SourceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FINCORE_ prefix (e.g., FINCORE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("FINCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
		},
		Import: ImportConfig{
			BatchSize:      v.GetInt("import.batch_size"),
			Concurrency:    v.GetInt("import.concurrency"),
			RetryCount:     v.GetInt("import.retry_count"),
			RetryDelay:     v.GetDuration("import.retry_delay"),
			PageSize:       v.GetInt("import.page_size"),
			FingerprintTTL: v.GetDuration("import.fingerprint_ttl"),
			DedupEnabled:   v.GetBool("import.dedup_enabled"),
		},
		Reconciliation: ReconciliationConfig{
			AmountTolerance:  v.GetFloat64("reconciliation.amount_tolerance"),
			AutoThreshold:    v.GetFloat64("reconciliation.auto_threshold"),
			MaxGroupSize:     v.GetInt("reconciliation.max_group_size"),
			BootstrapMinimum: v.GetInt("reconciliation.bootstrap_minimum"),
			WindowDays:       v.GetInt("reconciliation.window_days"),
		},
		Source: SourceConfig{
			BaseURL: v.GetString("source.base_url"),
			APIKey:  v.GetString("source.api_key"),
			Timeout: v.GetDuration("source.timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fincore-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "fincore"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.Import.BatchSize == 0 {
		cfg.Import.BatchSize = 50
	}
	if cfg.Import.Concurrency == 0 {
		cfg.Import.Concurrency = 5
	}
	if cfg.Import.RetryCount == 0 {
		cfg.Import.RetryCount = 3
	}
	if cfg.Import.RetryDelay == 0 {
		cfg.Import.RetryDelay = time.Second
	}
	if cfg.Import.PageSize == 0 {
		cfg.Import.PageSize = 100
	}
	if cfg.Import.FingerprintTTL == 0 {
		cfg.Import.FingerprintTTL = 30 * 24 * time.Hour
	}
	if cfg.Reconciliation.AmountTolerance == 0 {
		cfg.Reconciliation.AmountTolerance = 0.01
	}
	if cfg.Reconciliation.AutoThreshold == 0 {
		cfg.Reconciliation.AutoThreshold = 0.90
	}
	if cfg.Reconciliation.MaxGroupSize == 0 {
		cfg.Reconciliation.MaxGroupSize = 3
	}
	if cfg.Reconciliation.BootstrapMinimum == 0 {
		cfg.Reconciliation.BootstrapMinimum = 5
	}
	if cfg.Reconciliation.WindowDays == 0 {
		cfg.Reconciliation.WindowDays = 90
	}
	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = "http://localhost:9090"
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Import.BatchSize < 1 {
		return fmt.Errorf("import.batch_size must be at least 1")
	}
	if c.Import.Concurrency < 1 {
		return fmt.Errorf("import.concurrency must be at least 1")
	}
	if c.Import.RetryCount < 0 {
		return fmt.Errorf("import.retry_count cannot be negative")
	}

	if c.Reconciliation.AutoThreshold <= 0 || c.Reconciliation.AutoThreshold > 1 {
		return fmt.Errorf("reconciliation.auto_threshold must be in (0, 1], got %f", c.Reconciliation.AutoThreshold)
	}
	if c.Reconciliation.AmountTolerance < 0 {
		return fmt.Errorf("reconciliation.amount_tolerance cannot be negative")
	}
	if c.Reconciliation.MaxGroupSize < 1 {
		return fmt.Errorf("reconciliation.max_group_size must be at least 1")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
