package config

import (
	"fmt"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// SQLiteMemory as Path keeps the whole database in process memory.
	SQLiteMemory = ":memory:"
)

// DatabaseConfig selects the relational store. PostgreSQL is the production
// driver; SQLite (Path) serves local runs and tests.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnectRetries  int           `yaml:"connect_retries"`
}

// DriverName defaults an empty Driver to PostgreSQL.
func (c *DatabaseConfig) DriverName() string {
	if c.Driver == "" {
		return DriverPostgres
	}
	return c.Driver
}

func (c *DatabaseConfig) validate() error {
	switch c.DriverName() {
	case DriverPostgres:
		if c.Host == "" {
			return fmt.Errorf("database.host is required")
		}
	case DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Driver)
	}
	if c.ConnectRetries < 0 {
		return fmt.Errorf("database.connect_retries must not be negative")
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

const defaultConnectTimeout = 10 * time.Second

// MongoConfig points at the document store that keeps user notifications.
type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// RedisConfig is optional. An empty Addr disables realtime fan-out.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}
