package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
)

type builder struct {
	configs []*Config
	err     error
}

func (b *builder) withEnv() *builder {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("error getting env configs: %w", err))
		return b
	}
	b.configs = append(b.configs, cfg)
	return b
}

func (b *builder) withFlags(flags *Config) *builder {
	if flags != nil {
		b.configs = append(b.configs, flags)
	}
	return b
}

// build merges sources in order; non-zero values of later sources win
func (b *builder) build(validate func(*Config) error) (*Config, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occurred during building config: %w", b.err)
	}

	cfg := new(Config)
	for _, src := range b.configs {
		if err := mergo.Merge(cfg, src, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("error merging configs: %w", err)
		}
	}
	return cfg, validate(cfg)
}

// Load reads the environment, overlays flags and validates the result.
// flags may be nil.
func Load(flags *Config) (*Config, error) {
	b := &builder{}
	return b.withEnv().withFlags(flags).build((*Config).Validate)
}

// LoadStorage is Load for commands that only touch the database
func LoadStorage(flags *Config) (*Config, error) {
	b := &builder{}
	return b.withEnv().withFlags(flags).build((*Config).ValidateStorage)
}

// BindFlags registers the overridable settings on cmd and returns the
// struct the parsed values land in. Unset flags stay zero and do not
// override the environment.
func BindFlags(cmd *cobra.Command) *Config {
	cfg := &Config{}
	fs := cmd.Flags()
	fs.StringVarP(&cfg.Server.Address, "addr", "a", "", "listen address (SERVER_ADDRESS)")
	fs.StringVar(&cfg.Storage.Driver, "storage", "", "storage driver: postgres or memory (STORAGE_DRIVER)")
	fs.StringVarP(&cfg.Storage.DSN, "database-url", "d", "", "postgres connection string (STORAGE_DATABASE_URL)")
	fs.IntVar(&cfg.Sync.MaxBatch, "max-batch", 0, "max items per push (SYNC_MAX_BATCH)")
	fs.BoolVar(&cfg.Sync.ParallelKinds, "parallel-kinds", false, "push entity kinds concurrently (SYNC_PARALLEL_KINDS)")
	fs.DurationVar(&cfg.Sync.SweepInterval, "sweep-interval", 0, "tombstone sweep interval, 0 disables (SYNC_TOMBSTONE_SWEEP_INTERVAL)")
	fs.BoolVar(&cfg.Storage.AutoMigrate, "auto-migrate", false, "apply migrations before serving (STORAGE_AUTO_MIGRATE)")
	fs.BoolVar(&cfg.Auth.DevMode, "dev", false, "accept X-Debug-Sub in place of a token (AUTH_DEV_MODE)")
	fs.StringVar(&cfg.App.LogLevel, "log-level", "", "zerolog level (APP_LOG_LEVEL)")
	return cfg
}
