package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Log        LogConfig        `yaml:"log"`
	SendGrid   SendGridConfig   `yaml:"sendgrid"`
	Push       PushConfig       `yaml:"push"`
	Accounting AccountingConfig `yaml:"accounting"`
	Events     EventsConfig     `yaml:"events"`
	Board      BoardConfig      `yaml:"board"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// ServerConfig contains listener settings. Port serves gRPC health, HTTPPort the API.
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	HTTPPort int    `yaml:"http_port"`
}

// DatabaseConfig selects the store. Driver is "postgres" or "memory".
type DatabaseConfig struct {
	Driver      string `yaml:"driver"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"ssl_mode"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SendGridConfig enables email notifications when APIKey is set.
type SendGridConfig struct {
	APIKey   string `yaml:"api_key"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
	OpsEmail string `yaml:"ops_email"`
}

type PushConfig struct {
	Enabled         bool   `yaml:"enabled"`
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	Topic           string `yaml:"topic"`
}

type AccountingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Region      string `yaml:"region"`
	QueueURL    string `yaml:"queue_url"`
	MaxAttempts int    `yaml:"max_attempts"`
	BackoffMs   int    `yaml:"backoff_ms"`
}

type EventsConfig struct {
	// AsyncDispatch returns from transitions without waiting for handlers.
	AsyncDispatch bool `yaml:"async_dispatch"`
}

// BoardConfig lists the browser origins allowed to open the dispatch board
// websocket. Empty means same-origin only.
type BoardConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	FlagOverdueReturns      string `yaml:"flag_overdue_returns"`
	RemindUnassignedPickups string `yaml:"remind_unassigned_pickups"`
	PickupLookaheadHours    int    `yaml:"pickup_lookahead_hours"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory, if present, is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	envString("SERVER_HOST", &c.Server.Host)
	envInt("SERVER_PORT", &c.Server.Port)
	envInt("HTTP_PORT", &c.Server.HTTPPort)

	envString("DB_DRIVER", &c.Database.Driver)
	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)
	envBool("DB_AUTO_MIGRATE", &c.Database.AutoMigrate)

	envString("JWT_SECRET", &c.JWT.Secret)

	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	envString("SENDGRID_API_KEY", &c.SendGrid.APIKey)
	envString("SENDGRID_FROM", &c.SendGrid.From)
	envString("OPS_EMAIL", &c.SendGrid.OpsEmail)

	envBool("PUSH_ENABLED", &c.Push.Enabled)
	envString("FIREBASE_PROJECT_ID", &c.Push.ProjectID)
	envString("GOOGLE_APPLICATION_CREDENTIALS", &c.Push.CredentialsFile)

	envBool("ACCOUNTING_ENABLED", &c.Accounting.Enabled)
	envString("AWS_REGION", &c.Accounting.Region)
	envString("ACCOUNTING_QUEUE_URL", &c.Accounting.QueueURL)

	envBool("EVENTS_ASYNC_DISPATCH", &c.Events.AsyncDispatch)

	if val := os.Getenv("BOARD_ALLOWED_ORIGINS"); val != "" {
		c.Board.AllowedOrigins = strings.Split(val, ",")
	}
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = c.Server.Port + 1
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.SendGrid.APIKey != "" {
		if c.SendGrid.From == "" || c.SendGrid.OpsEmail == "" {
			return fmt.Errorf("sendgrid from and ops_email are required when api_key is set")
		}
		if c.SendGrid.FromName == "" {
			c.SendGrid.FromName = "Dispatch"
		}
	}

	if c.Push.Enabled {
		if c.Push.ProjectID == "" {
			return fmt.Errorf("push project_id is required when push is enabled")
		}
		if c.Push.Topic == "" {
			c.Push.Topic = "dispatch"
		}
	}

	if c.Accounting.Enabled {
		if c.Accounting.QueueURL == "" {
			return fmt.Errorf("accounting queue_url is required when accounting is enabled")
		}
		if c.Accounting.Region == "" {
			return fmt.Errorf("accounting region is required when accounting is enabled")
		}
	}
	if c.Accounting.MaxAttempts == 0 {
		c.Accounting.MaxAttempts = 3
	}
	if c.Accounting.BackoffMs == 0 {
		c.Accounting.BackoffMs = 500
	}

	if c.Scheduler.FlagOverdueReturns == "" {
		c.Scheduler.FlagOverdueReturns = "0 */15 * * * *" // every 15 minutes
	}
	if c.Scheduler.RemindUnassignedPickups == "" {
		c.Scheduler.RemindUnassignedPickups = "0 0 8,17 * * *" // 8 AM and 5 PM UTC
	}
	if c.Scheduler.PickupLookaheadHours == 0 {
		c.Scheduler.PickupLookaheadHours = 24
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpiry) * time.Minute
}

func (c *Config) AccountingBackoff() time.Duration {
	return time.Duration(c.Accounting.BackoffMs) * time.Millisecond
}

func (c *Config) PickupLookahead() time.Duration {
	return time.Duration(c.Scheduler.PickupLookaheadHours) * time.Hour
}
