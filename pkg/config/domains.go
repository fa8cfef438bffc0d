package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/desa-digital/portal-engine/pkg/apperrors"
)

const (
	DomainMain     = "main"
	DomainUMKM     = "umkm"
	DomainAdmin    = "admin"
	DomainLocation = "location"
)

const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"
	EngineMySQL    = "mysql"
	EngineMSSQL    = "mssql"
)

// SupportedEngines lists every engine name a domain may be configured with.
var SupportedEngines = []string{EngineSQLite, EnginePostgres, EngineMySQL, EngineMSSQL}

// IsSupportedEngine reports whether engine is one of SupportedEngines.
func IsSupportedEngine(engine string) bool {
	return slices.Contains(SupportedEngines, engine)
}

// DomainConfig is the resolved configuration of one logical database domain.
type DomainConfig struct {
	Name        string         `json:"name"`
	Port        int            `json:"port"`
	Description string         `json:"description"`
	Engine      string         `json:"engine"`
	Params      map[string]any `json:"-"` // engine-specific, may carry credentials
}

// Clone returns a copy whose Params map is not shared with the receiver.
func (d DomainConfig) Clone() DomainConfig {
	d.Params = maps.Clone(d.Params)
	return d
}

var defaultDomains = []DomainConfig{
	{Name: DomainMain, Port: 5000, Description: "Main portal database (users, news, announcements)", Engine: EngineSQLite},
	{Name: DomainUMKM, Port: 5001, Description: "UMKM business directory database", Engine: EngineSQLite},
	{Name: DomainAdmin, Port: 5002, Description: "Village officials database", Engine: EngineSQLite},
	{Name: DomainLocation, Port: 5003, Description: "Locations and tourism spots database", Engine: EngineSQLite},
}

// domainConfigs overlays the settings from c onto the built-in defaults.
func (c *Config) domainConfigs() []DomainConfig {
	out := make([]DomainConfig, 0, len(defaultDomains))
	for _, def := range defaultDomains {
		s := c.settings(def.Name)
		dc := def
		if s.Port != 0 {
			dc.Port = s.Port
		}
		if s.Description != "" {
			dc.Description = s.Description
		}
		if s.Engine != "" {
			dc.Engine = s.Engine
		}
		dc.Params = engineParams(dc.Name, dc.Engine, s, c.DataDir)
		out = append(out, dc)
	}
	return out
}

func engineParams(domain, engine string, s DomainSettings, dataDir string) map[string]any {
	if engine == EngineSQLite {
		path := s.Path
		if path == "" {
			path = filepath.Join(dataDir, domain+".db")
		}
		return map[string]any{"path": path}
	}

	params := map[string]any{}
	set := func(key, value string) {
		if value != "" {
			params[key] = value
		}
	}
	set("host", s.Host)
	set("user", s.User)
	set("password", s.Password)
	set("database", s.Database)
	set("ssl_mode", s.SSLMode)
	if s.DBPort != 0 {
		params["port"] = s.DBPort
	}
	return params
}

// Resolver maps a domain name to its DomainConfig. The table is fixed at
// construction; configuration is the only way to change it.
type Resolver struct {
	domains map[string]DomainConfig
	order   []string
}

// NewResolver builds a Resolver from loaded configuration.
func NewResolver(cfg *Config) *Resolver {
	r := &Resolver{domains: make(map[string]DomainConfig)}
	for _, dc := range cfg.domainConfigs() {
		r.domains[dc.Name] = dc
		r.order = append(r.order, dc.Name)
	}
	return r
}

// Resolve returns the configuration for name, or an error wrapping
// apperrors.ErrUnknownDomain.
func (r *Resolver) Resolve(name string) (DomainConfig, error) {
	dc, ok := r.domains[name]
	if !ok {
		return DomainConfig{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownDomain, name)
	}
	return dc.Clone(), nil
}

// Known returns every configured domain name in declaration order.
func (r *Resolver) Known() []string {
	return slices.Clone(r.order)
}
