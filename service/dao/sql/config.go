// Package sql provides relational stores for the resource inventory, request
// queue and allocation ledger backed by MySQL through sqlx.
package sql

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

const driverName = "mysql"

// Config holds database connection settings
type Config struct {
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Database string `json:"database" yaml:"database"`
	// MaxOpenConns limits the connection pool, zero keeps the driver default.
	MaxOpenConns int `json:"maxOpenConns,omitempty" yaml:"maxOpenConns,omitempty"`
}

// DSN returns the MySQL data source name, timestamps are parsed in UTC.
func (c *Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	port := c.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("mysql host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("mysql database is required")
	}
	return nil
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, config *Config) (*sqlx.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	db, err := sqlx.ConnectContext(ctx, driverName, config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s@%s: %w", config.Database, config.Host, err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	return db, nil
}
