package postgres

import (
	"fmt"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "prefer", "require", "verify-ca", "verify-full"
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "prefer"
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		SSLMode: DefaultSSLMode(),
	}

	host, ok := datasource.ParamString(config, "host")
	if !ok {
		return nil, fmt.Errorf("host is required")
	}
	cfg.Host = host

	port, err := datasource.ParamInt(config, "port", DefaultPort())
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	user, ok := datasource.ParamString(config, "user")
	if !ok {
		return nil, fmt.Errorf("user is required")
	}
	cfg.User = user

	cfg.Password, _ = datasource.ParamString(config, "password")

	database, ok := datasource.ParamString(config, "database", "name")
	if !ok {
		return nil, fmt.Errorf("database is required")
	}
	cfg.Database = database

	if sslMode, ok := datasource.ParamString(config, "ssl_mode"); ok {
		cfg.SSLMode = sslMode
	}

	return cfg, nil
}
