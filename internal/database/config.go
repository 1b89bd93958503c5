package database

import (
	"fmt"
	"time"

	"github.com/lawnchairsociety/cardcrawl/internal/config"
)

// Config holds database connection configuration.
type Config struct {
	// Driver specifies which database to use: "sqlite" or "postgres"
	Driver string

	// SQLite configuration
	SQLitePath string

	// PostgreSQL configuration
	Postgres PostgresConfig
}

// PostgresConfig holds PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config with sensible defaults for SQLite.
func DefaultConfig(sqlitePath string) Config {
	return Config{
		Driver:     string(DialectSQLite),
		SQLitePath: sqlitePath,
		Postgres:   DefaultPostgresConfig(),
	}
}

// DefaultPostgresConfig returns PostgresConfig with recommended pool settings.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "cardcrawl",
		Database:        "cardcrawl",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DSN is the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// FromSettings maps the file and environment settings onto a Config,
// keeping the default pool sizes.
func FromSettings(s config.DatabaseConfig) Config {
	cfg := DefaultConfig(s.SQLitePath)
	if s.Driver != "" {
		cfg.Driver = s.Driver
	}
	p := &cfg.Postgres
	p.Host = s.PostgresHost
	p.Port = s.PostgresPort
	p.User = s.PostgresUser
	p.Password = s.PostgresPassword
	p.Database = s.PostgresDatabase
	p.SSLMode = s.PostgresSSLMode
	return cfg
}
