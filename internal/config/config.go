package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	StoreTypePostgres = "postgres"
	StoreTypeMemory   = "memory"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Store     StoreConfig     `yaml:"store"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host            string `yaml:"host" env:"SERVER_HOST"`
	Port            int    `yaml:"port" env:"SERVER_PORT"`
	GRPCPort        int    `yaml:"grpc_port" env:"GRPC_PORT"`
	ShutdownSeconds int    `yaml:"shutdown_timeout_seconds" env:"SHUTDOWN_TIMEOUT_SECONDS"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host          string `yaml:"host" env:"DB_HOST"`
	Port          int    `yaml:"port" env:"DB_PORT"`
	User          string `yaml:"user" env:"DB_USER"`
	Password      string `yaml:"password" env:"DB_PASSWORD"`
	Database      string `yaml:"database" env:"DB_NAME"`
	SSLMode       string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	MaxOpenConns  int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	RunMigrations bool   `yaml:"run_migrations" env:"DB_RUN_MIGRATIONS"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Type string `yaml:"type" env:"STORE_TYPE"` // "postgres" or "memory"
}

// JWTConfig contains bearer-token verification settings
type JWTConfig struct {
	Secret string `yaml:"secret" env:"JWT_SECRET"`
	Issuer string `yaml:"issuer" env:"JWT_ISSUER"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	MarkOverdueReservations string `yaml:"mark_overdue_reservations" env:"SCHEDULE_MARK_OVERDUE_RESERVATIONS"`
}

// Load reads configuration from a YAML file, applies environment overrides
// and validates the result. An empty path skips the file.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate fills defaults and checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}
	if c.Server.GRPCPort != 0 && c.Server.GRPCPort == c.Server.Port {
		return fmt.Errorf("gRPC port must differ from server port")
	}
	if c.Server.ShutdownSeconds <= 0 {
		c.Server.ShutdownSeconds = 10
	}

	c.Store.Type = strings.ToLower(c.Store.Type)
	if c.Store.Type == "" {
		c.Store.Type = StoreTypePostgres
	}
	switch c.Store.Type {
	case StoreTypePostgres:
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
		if c.Database.MaxOpenConns <= 0 {
			c.Database.MaxOpenConns = 25
		}
	case StoreTypeMemory:
	default:
		return fmt.Errorf("unknown store type: %q", c.Store.Type)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Scheduler.MarkOverdueReservations == "" {
		c.Scheduler.MarkOverdueReservations = "0 0 2 * * *" // 2 AM UTC
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Scheduler.MarkOverdueReservations); err != nil {
		return fmt.Errorf("invalid mark_overdue_reservations schedule: %w", err)
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

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC listen address, or "" when gRPC is disabled
func (c *Config) GetGRPCAddress() string {
	if c.Server.GRPCPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
