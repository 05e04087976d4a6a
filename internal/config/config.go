package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "graph-migrate.yaml"

const (
	LedgerBackendGraph    = "graph"
	LedgerBackendPostgres = "postgres"
	LedgerBackendSQLite   = "sqlite"
)

var ErrProfileNotFound = errors.New("profile not found")

// Config is the contents of graph-migrate.yaml.
type Config struct {
	Schema        string             `yaml:"schema"`
	MigrationPath string             `yaml:"migrationPath"`
	Profiles      map[string]Profile `yaml:"profiles"`
	Ledger        Ledger             `yaml:"ledger"`

	// dir is the directory of the file the config was read from.
	dir string
}

// Profile holds the graph options used when the schema is created.
type Profile struct {
	Options map[string]string `yaml:"options"`
}

type Ledger struct {
	Backend  string `yaml:"backend"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"`
	Table    string `yaml:"table"`
}

// Env holds the settings that may come from the process environment.
type Env struct {
	LogLevel  string `env:"GRAPHMIGRATE_LOG_LEVEL" envDefault:"info"`
	Username  string `env:"GRAPHMIGRATE_USERNAME"`
	Password  string `env:"GRAPHMIGRATE_PASSWORD"`
	LedgerDSN string `env:"GRAPHMIGRATE_LEDGER_DSN"`
}

func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %s: %w", path, err)
	}
	cfg.dir = filepath.Dir(abs)
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Schema) == "" {
		return fmt.Errorf("schema is required")
	}
	if strings.TrimSpace(c.MigrationPath) == "" {
		return fmt.Errorf("migrationPath is required")
	}

	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	switch c.Ledger.Backend {
	case "":
		c.Ledger.Backend = LedgerBackendGraph
	case LedgerBackendGraph, LedgerBackendPostgres:
	case LedgerBackendSQLite:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	return nil
}

// MigrationDir returns migrationPath resolved against the config file's
// directory.
func (c *Config) MigrationDir() string {
	return c.resolve(c.MigrationPath)
}

// LedgerPath returns the sqlite ledger file resolved like MigrationDir.
func (c *Config) LedgerPath() string {
	return c.resolve(c.Ledger.Path)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.dir, p)
}

// ProfileOptions returns the schema options of the named profile. Without a
// name the first profile by name is used; without profiles there are no
// options.
func (c *Config) ProfileOptions(name string) (map[string]string, error) {
	if name != "" {
		profile, ok := c.Profiles[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
		}
		return profile.Options, nil
	}

	if len(c.Profiles) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(c.Profiles))
	for n := range c.Profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return c.Profiles[names[0]].Options, nil
}
