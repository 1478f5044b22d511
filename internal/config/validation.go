package config

import "fmt"

// Validate checks the merged configuration before startup
func (cfg *Config) Validate() error {
	if cfg.Server.Address == "" || cfg.Server.RequestTimeout <= 0 || cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: address, request timeout and body limit are required", ErrInvalidServerConfigs)
	}

	if err := cfg.ValidateStorage(); err != nil {
		return err
	}

	if cfg.Auth.HS256Secret == "" && !cfg.Auth.DevMode {
		return fmt.Errorf("%w: AUTH_JWT_HS256_SECRET is required outside dev mode", ErrInvalidAuthConfigs)
	}

	if cfg.Sync.MaxBatch <= 0 {
		return fmt.Errorf("%w: max batch must be positive", ErrInvalidSyncConfigs)
	}
	if cfg.Sync.TombstoneRetention <= 0 || cfg.Sync.SweepInterval < 0 {
		return fmt.Errorf("%w: tombstone retention must be positive", ErrInvalidSyncConfigs)
	}

	return nil
}

// ValidateStorage checks only what the storage commands need
func (cfg *Config) ValidateStorage() error {
	switch cfg.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("%w: STORAGE_DATABASE_URL is required for postgres", ErrInvalidStorageConfigs)
		}
	default:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidStorageConfigs, cfg.Storage.Driver)
	}
	if cfg.Storage.MaxConns < 0 || cfg.Storage.MinConns < 0 {
		return fmt.Errorf("%w: pool sizes must not be negative", ErrInvalidStorageConfigs)
	}
	return nil
}
