package mssql

import (
	"fmt"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
)

// Config contains SQL Server connection options. Only SQL authentication is supported.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Encrypt is "true", "false", "strict" or "disable".
	Encrypt                string
	TrustServerCertificate bool
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Encrypt: "true",
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
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", port)
	}
	cfg.Port = port

	database, ok := datasource.ParamString(config, "database", "name")
	if !ok {
		return nil, fmt.Errorf("database is required")
	}
	cfg.Database = database

	username, ok := datasource.ParamString(config, "username", "user")
	if !ok {
		return nil, fmt.Errorf("username is required for SQL authentication")
	}
	cfg.Username = username
	cfg.Password, _ = datasource.ParamString(config, "password")

	// ssl_mode is the shared domain setting; encrypt is the native name.
	if enc, ok := datasource.ParamString(config, "encrypt", "ssl_mode"); ok {
		switch enc {
		case "true", "false", "strict", "disable":
			cfg.Encrypt = enc
		case "require", "verify-full":
			cfg.Encrypt = "true"
		case "prefer", "allow":
			cfg.Encrypt = "false"
		default:
			return nil, fmt.Errorf("invalid encrypt setting %q", enc)
		}
	} else if enc, ok := config["encrypt"].(bool); ok {
		cfg.Encrypt = fmt.Sprintf("%t", enc)
	}
	if trust, ok := config["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	return cfg, nil
}
