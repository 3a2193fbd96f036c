// Package config loads sqlstage configuration from file, environment
// and flags using koanf.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	// CacheDir is the root of the asset cache (archives, extracted
	// bundles, staged sql, staged questions, schema snapshots).
	CacheDir string `koanf:"cache_dir"`

	// DatasetsDir holds downloaded question-set JSON files and the
	// analysis manifest.
	DatasetsDir string `koanf:"datasets_dir"`

	// StatePath is the run-history SQLite database.
	StatePath string `koanf:"state_path"`

	// Engines and Datasets select the bootstrap matrix.
	Engines  []string `koanf:"engines"`
	Datasets []string `koanf:"datasets"`

	Verbose bool `koanf:"verbose"`

	// Root passwords per engine; sourced from MYSQL_ROOT_PASSWORD and
	// MARIADB_ROOT_PASSWORD when set. Opaque to the pipeline.
	MySQLRootPassword   string `koanf:"mysql_root_password"`
	MariaDBRootPassword string `koanf:"mariadb_root_password"`
}

// Default configuration values.
const (
	DefaultCacheDir     = "data"
	DefaultDatasetsDir  = "datasets_source"
	DefaultStateFile    = ".sqlstage/state.db"
	DefaultRootPassword = "root123"
)

// DefaultEngines are bootstrapped when the user selects none.
var DefaultEngines = []string{"mysql", "mariadb"}

// Credentials returns the per-engine administrative credentials.
func (c *Config) Credentials() map[string]core.Credentials {
	return map[string]core.Credentials{
		"mysql":   {RootPassword: c.MySQLRootPassword},
		"mariadb": {RootPassword: c.MariaDBRootPassword},
	}
}

// Load loads configuration. Precedence (highest to lowest):
// flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"cache_dir":             DefaultCacheDir,
		"datasets_dir":          DefaultDatasetsDir,
		"state_path":            DefaultStateFile,
		"engines":               DefaultEngines,
		"datasets":              []string{},
		"verbose":               false,
		"mysql_root_password":   DefaultRootPassword,
		"mariadb_root_password": DefaultRootPassword,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// 2. Config file (sqlstage.yaml unless overridden).
	if cfgFile == "" {
		for _, name := range []string{"sqlstage.yaml", "sqlstage.yml"} {
			if _, err := os.Stat(name); err == nil {
				cfgFile = name
				break
			}
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	}

	// 3. Environment (SQLSTAGE_CACHE_DIR -> cache_dir).
	if err := k.Load(env.Provider("SQLSTAGE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SQLSTAGE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	// The engine root passwords keep their conventional names.
	overrides := map[string]interface{}{}
	if v := os.Getenv("MYSQL_ROOT_PASSWORD"); v != "" {
		overrides["mysql_root_password"] = v
	}
	if v := os.Getenv("MARIADB_ROOT_PASSWORD"); v != "" {
		overrides["mariadb_root_password"] = v
	}
	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("loading credential env vars: %w", err)
		}
	}

	// 4. Flags (highest priority, only those explicitly set).
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

type configKey struct{}

// NewContext stores cfg in ctx.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored in ctx, or a default-loaded one
// when absent.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey{}).(*Config); ok {
		return cfg
	}
	cfg, _ := Load("", nil)
	return cfg
}
