package mysql

import (
	"fmt"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
)

// Config contains MySQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// TLS is the driver's tls parameter: "false", "true", "skip-verify" or "preferred".
	TLS string
}

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{TLS: "preferred"}

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

	user, ok := datasource.ParamString(config, "user", "username")
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

	// ssl_mode uses postgres vocabulary so one setting works across engines.
	if mode, ok := datasource.ParamString(config, "tls", "ssl_mode"); ok {
		switch mode {
		case "disable", "false":
			cfg.TLS = "false"
		case "require", "true", "verify-full":
			cfg.TLS = "true"
		case "skip-verify", "verify-ca":
			cfg.TLS = "skip-verify"
		case "prefer", "preferred", "allow":
			cfg.TLS = "preferred"
		default:
			return nil, fmt.Errorf("invalid tls setting %q", mode)
		}
	}

	return cfg, nil
}
