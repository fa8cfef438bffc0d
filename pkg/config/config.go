package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigFile is read when present; otherwise configuration comes from the environment only.
const DefaultConfigFile = "config.yaml"

// Config holds all configuration for a portal backend process.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (database passwords, the seed password) must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// DataDir holds sqlite files for domains that do not set an explicit path.
	DataDir string `yaml:"data_dir" env:"DATA_DIR" env-default:"data"`

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	Main     DomainSettings `yaml:"main" env-prefix:"MAIN_"`
	UMKM     DomainSettings `yaml:"umkm" env-prefix:"UMKM_"`
	Admin    DomainSettings `yaml:"admin" env-prefix:"ADMIN_"`
	Location DomainSettings `yaml:"location" env-prefix:"LOCATION_"`

	Datasource DatasourceConfig `yaml:"datasource"`
	Seed       SeedConfig       `yaml:"seed"`
	CORS       CORSConfig       `yaml:"cors"`
}

// DomainSettings overrides the built-in defaults for one domain.
// Zero values mean "keep the default".
type DomainSettings struct {
	Port        int    `yaml:"port" env:"PORT"`
	Description string `yaml:"description" env:"DESCRIPTION"`
	Engine      string `yaml:"engine" env:"DB_ENGINE"`
	Path        string `yaml:"path" env:"DB_PATH"`
	Host        string `yaml:"host" env:"DB_HOST"`
	DBPort      int    `yaml:"db_port" env:"DB_PORT"`
	User        string `yaml:"user" env:"DB_USER"`
	Password    string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	Database    string `yaml:"database" env:"DB_NAME"`
	SSLMode     string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
}

// DatasourceConfig holds connection management settings shared by every domain.
type DatasourceConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"DATASOURCE_CONNECT_TIMEOUT" env-default:"5s"`
	QueryTimeout   time.Duration `yaml:"query_timeout" env:"DATASOURCE_QUERY_TIMEOUT" env-default:"5s"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" env:"DATASOURCE_PROBE_TIMEOUT" env-default:"2s"`
	// ConnectionTTLMinutes is how long idle pooled connections are kept alive.
	ConnectionTTLMinutes int   `yaml:"connection_ttl_minutes" env:"DATASOURCE_CONNECTION_TTL_MINUTES" env-default:"5"`
	PoolMaxConns         int32 `yaml:"pool_max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"10"`
	PoolMinConns         int32 `yaml:"pool_min_conns" env:"DATASOURCE_POOL_MIN_CONNS" env-default:"1"`

	RetryAttempts     int           `yaml:"retry_attempts" env:"DATASOURCE_RETRY_ATTEMPTS" env-default:"3"`
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay" env:"DATASOURCE_RETRY_INITIAL_DELAY" env-default:"100ms"`
	RetryMaxDelay     time.Duration `yaml:"retry_max_delay" env:"DATASOURCE_RETRY_MAX_DELAY" env-default:"2s"`
	RetryMultiplier   float64       `yaml:"retry_multiplier" env:"DATASOURCE_RETRY_MULTIPLIER" env-default:"2"`
}

// SeedConfig controls the administrative account created on first start of the main domain.
type SeedConfig struct {
	AdminUsername string `yaml:"admin_username" env:"ADMIN_SEED_USERNAME" env-default:"admin"`
	AdminPassword string `yaml:"-" env:"ADMIN_SEED_PASSWORD"` // Secret - not in YAML
	AdminFullName string `yaml:"admin_full_name" env:"ADMIN_SEED_FULL_NAME" env-default:"Administrator"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// Load reads configuration from config.yaml (when present) with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultConfigFile, version)
}

// LoadFrom is Load with an explicit YAML path. A missing file is not an error.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}
	if err := cfg.validateDatasource(); err != nil {
		return nil, fmt.Errorf("invalid datasource configuration: %w", err)
	}
	if err := cfg.validateDomains(); err != nil {
		return nil, fmt.Errorf("invalid domain configuration: %w", err)
	}

	return cfg, nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

func (c *Config) validateDatasource() error {
	d := c.Datasource
	if d.ConnectTimeout <= 0 || d.QueryTimeout <= 0 || d.ProbeTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if d.PoolMaxConns < 1 {
		return fmt.Errorf("pool_max_conns must be at least 1")
	}
	if d.PoolMinConns < 0 || d.PoolMinConns > d.PoolMaxConns {
		return fmt.Errorf("pool_min_conns must be between 0 and pool_max_conns")
	}
	return nil
}

// validateDomains checks engine names and that no two domains share a port.
func (c *Config) validateDomains() error {
	seen := make(map[int]string)
	for _, dc := range c.domainConfigs() {
		if !IsSupportedEngine(dc.Engine) {
			return fmt.Errorf("domain %s: unsupported engine %q (want one of %s)",
				dc.Name, dc.Engine, strings.Join(SupportedEngines, ", "))
		}
		if dc.Port <= 0 || dc.Port > 65535 {
			return fmt.Errorf("domain %s: port %d out of range", dc.Name, dc.Port)
		}
		if other, ok := seen[dc.Port]; ok {
			return fmt.Errorf("domains %s and %s share port %d", other, dc.Name, dc.Port)
		}
		seen[dc.Port] = dc.Name
	}
	return nil
}

func (c *Config) settings(domain string) DomainSettings {
	switch domain {
	case DomainMain:
		return c.Main
	case DomainUMKM:
		return c.UMKM
	case DomainAdmin:
		return c.Admin
	case DomainLocation:
		return c.Location
	}
	return DomainSettings{}
}
