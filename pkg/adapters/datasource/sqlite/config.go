package sqlite

import (
	"fmt"
	"net/url"
	"time"

	"github.com/desa-digital/portal-engine/pkg/adapters/datasource"
)

// Config contains sqlite-specific connection options.
type Config struct {
	Path        string
	BusyTimeout time.Duration
	JournalMode string // "WAL", "DELETE", ...
	ForeignKeys bool
}

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		BusyTimeout: 5 * time.Second,
		JournalMode: "WAL",
		ForeignKeys: true,
	}

	path, ok := datasource.ParamString(config, "path", "file", "database")
	if !ok {
		return nil, fmt.Errorf("path is required")
	}
	cfg.Path = path

	if mode, ok := datasource.ParamString(config, "journal_mode"); ok {
		cfg.JournalMode = mode
	}
	if fk, ok := config["foreign_keys"].(bool); ok {
		cfg.ForeignKeys = fk
	}
	ms, err := datasource.ParamInt(config, "busy_timeout_ms", int(cfg.BusyTimeout/time.Millisecond))
	if err != nil {
		return nil, err
	}
	cfg.BusyTimeout = time.Duration(ms) * time.Millisecond

	return cfg, nil
}

// InMemory reports whether the database lives only in process memory.
func (c *Config) InMemory() bool {
	return c.Path == MemoryPath
}

// DSN renders the driver data source name with per-connection pragmas.
func (c *Config) DSN() string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.ForeignKeys {
		q.Add("_pragma", "foreign_keys(1)")
	}
	if c.JournalMode != "" && !c.InMemory() {
		q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", c.JournalMode))
	}
	q.Set("_time_format", "sqlite")
	return c.Path + "?" + q.Encode()
}
