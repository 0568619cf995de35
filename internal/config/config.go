// Package config loads module parameters, pool definitions and resource
// mappings from an optional webform.yaml and WEBFORM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"webform-store/internal/catalog"
	"webform-store/internal/datastore"
	"webform-store/internal/store"
	"webform-store/internal/webform"
)

const (
	configFileName = "webform"
	configFileType = "yaml"
	envPrefix      = "WEBFORM"

	// Keys.
	KeyDBPool      = store.ParamDBPool
	KeyDialect     = "dialect"
	KeyCatalogFile = "catalog-file"
	KeyDriver      = "driver"
	KeyDSN         = "dsn"
	KeyPools       = "pools"
	KeyResources   = "resources"
	KeyLogLevel    = "log-level"

	defaultPool   = "default"
	defaultDriver = "postgresql"
	defaultDSN    = "postgres://localhost:5432/postgres?sslmode=disable"
)

// Resource maps a resource path to its identifier.
type Resource struct {
	Path string `mapstructure:"path"`
	ID   string `mapstructure:"id"`
}

// Config is the loaded configuration.
type Config struct {
	v *viper.Viper
}

// Load reads webform.yaml from configDir when present. An empty configDir
// or a missing file leaves defaults and environment only.
func Load(configDir string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyDBPool, defaultPool)
	v.SetDefault(KeyDriver, defaultDriver)
	v.SetDefault(KeyDSN, defaultDSN)
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	// DB_CONN_STRING also sets the dsn.
	if err := v.BindEnv(KeyDSN, envPrefix+"_DSN", "DB_CONN_STRING"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if configDir != "" {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, &webform.ConfigurationError{Item: "config file", Reason: err.Error()}
			}
		}
	}
	return &Config{v: v}, nil
}

// Parameter returns a module parameter and whether it is set.
func (c *Config) Parameter(name string) (string, bool) {
	if !c.v.IsSet(name) {
		return "", false
	}
	return c.v.GetString(name), true
}

// Set overrides a key, typically from a command line flag.
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// File returns the config file in use, or "" when none was read.
func (c *Config) File() string {
	return c.v.ConfigFileUsed()
}

// DBPool returns the name of the pool the store uses.
func (c *Config) DBPool() string {
	return strings.TrimSpace(c.v.GetString(KeyDBPool))
}

// Pools returns every pool definition. The pool named by db-pool is
// described by the top-level driver and dsn keys unless pools lists it.
func (c *Config) Pools() (map[string]datastore.Config, error) {
	out := make(map[string]datastore.Config)

	for name := range c.v.GetStringMap(KeyPools) {
		prefix := KeyPools + "." + name + "."
		t, err := ParseType(c.v.GetString(prefix + KeyDriver))
		if err != nil {
			return nil, &webform.ConfigurationError{Item: prefix + KeyDriver, Reason: err.Error()}
		}
		out[name] = datastore.Config{
			Type:             t,
			ConnectionString: c.v.GetString(prefix + KeyDSN),
			MaxOpenConns:     c.v.GetInt(prefix + "max-open-conns"),
		}
	}

	pool := c.DBPool()
	if _, ok := out[pool]; !ok && pool != "" {
		t, err := ParseType(c.v.GetString(KeyDriver))
		if err != nil {
			return nil, &webform.ConfigurationError{Item: KeyDriver, Reason: err.Error()}
		}
		out[pool] = datastore.Config{Type: t, ConnectionString: c.v.GetString(KeyDSN)}
	}
	return out, nil
}

// Dialect returns the configured dialect, or the one matching the driver of
// the active pool.
func (c *Config) Dialect() (string, error) {
	if d := strings.ToLower(strings.TrimSpace(c.v.GetString(KeyDialect))); d != "" {
		return d, nil
	}
	pools, err := c.Pools()
	if err != nil {
		return "", err
	}
	switch pools[c.DBPool()].Type {
	case datastore.SQLiteStore:
		return catalog.DialectSQLite, nil
	default:
		return catalog.DialectPostgres, nil
	}
}

// Catalog loads catalog-file when set, otherwise the embedded catalog of
// the dialect.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	if path := c.v.GetString(KeyCatalogFile); path != "" {
		return catalog.Load(path)
	}
	dialect, err := c.Dialect()
	if err != nil {
		return nil, err
	}
	return catalog.ForDialect(dialect)
}

// Resources returns the configured path to identifier table.
func (c *Config) Resources() (store.StaticResolver, error) {
	var list []Resource
	if err := c.v.UnmarshalKey(KeyResources, &list); err != nil {
		return nil, &webform.ConfigurationError{Item: KeyResources, Reason: err.Error()}
	}
	out := make(store.StaticResolver, len(list))
	for _, r := range list {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, &webform.ConfigurationError{Item: KeyResources, Reason: fmt.Sprintf("%s: %v", r.Path, err)}
		}
		out[r.Path] = id
	}
	return out, nil
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.v.GetString(KeyLogLevel))); err != nil {
		return slog.LevelInfo, &webform.ConfigurationError{Item: KeyLogLevel, Reason: err.Error()}
	}
	return level, nil
}

// Keys lists every key with a value, sorted.
func (c *Config) Keys() []string {
	keys := c.v.AllKeys()
	sort.Strings(keys)
	return keys
}

// ParseType maps a driver name to a datastore type.
func ParseType(driver string) (datastore.Type, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgresql", "postgres", "pq":
		return datastore.PostgreSQLStore, nil
	case "sqlite", "sqlite3":
		return datastore.SQLiteStore, nil
	default:
		return "", &datastore.UnsupportedStoreTypeError{Type: driver}
	}
}
