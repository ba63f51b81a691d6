// Package config loads catsim run settings from defaults, an optional
// YAML file, CATSIM_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/catsim/internal/engine"
	"github.com/roach88/catsim/internal/source"
	"github.com/roach88/catsim/internal/store"
)

// EnvPrefix prefixes every environment variable (CATSIM_CHUNK_SIZE, ...).
const EnvPrefix = "CATSIM"

// Config holds run settings.
type Config struct {
	ChunkSize    int    `mapstructure:"chunk_size"`
	Workers      int    `mapstructure:"workers"`
	Database     string `mapstructure:"database"`
	Driver       string `mapstructure:"driver"`
	AllOrNothing bool   `mapstructure:"all_or_nothing"`
	Compress     bool   `mapstructure:"compress"`
	OutDir       string `mapstructure:"out_dir"`
	WriteIDs     bool   `mapstructure:"write_ids"`
}

// keys maps each config key to the command-line flag that overrides it.
var keys = map[string]string{
	"chunk_size":     "chunk-size",
	"workers":        "workers",
	"database":       "db",
	"driver":         "driver",
	"all_or_nothing": "all-or-nothing",
	"compress":       "compress",
	"out_dir":        "out-dir",
	"write_ids":      "write-ids",
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		ChunkSize: source.DefaultChunkSize,
		Workers:   engine.DefaultWorkers,
		Driver:    store.DriverSQLite,
		OutDir:    ".",
	}
}

// Load resolves the configuration.
//
// path names a YAML config file; if empty, ./catsim.yaml is read when it
// exists. flags may be nil; only flags the user actually set override
// lower layers.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault("chunk_size", d.ChunkSize)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("database", d.Database)
	v.SetDefault("driver", d.Driver)
	v.SetDefault("all_or_nothing", d.AllOrNothing)
	v.SetDefault("compress", d.Compress)
	v.SetDefault("out_dir", d.OutDir)
	v.SetDefault("write_ids", d.WriteIDs)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("catsim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range keys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var problems []string
	if c.ChunkSize <= 0 {
		problems = append(problems, fmt.Sprintf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.Workers <= 0 {
		problems = append(problems, fmt.Sprintf("workers must be positive, got %d", c.Workers))
	}
	switch c.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		problems = append(problems, fmt.Sprintf("driver must be %q or %q, got %q", store.DriverSQLite, store.DriverPostgres, c.Driver))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

// EngineOptions returns the coordinator options these settings imply.
func (c *Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithChunkSize(c.ChunkSize),
		engine.WithWorkers(c.Workers),
		engine.WithAllOrNothing(c.AllOrNothing),
	}
}
