package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsFromEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("AUTH_DEV_MODE", "true")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 500, cfg.Sync.MaxBatch)
	assert.Equal(t, 720*time.Hour, cfg.Sync.TombstoneRetention)
	assert.Equal(t, "finsync-api", cfg.App.Service)
	assert.False(t, cfg.App.IsDev())
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("STORAGE_DATABASE_URL", "postgres://env")
	t.Setenv("AUTH_JWT_HS256_SECRET", "s3cret")
	t.Setenv("SYNC_MAX_BATCH", "100")

	cmd := &cobra.Command{Use: "serve"}
	flags := BindFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--addr", ":9999", "--max-batch", "50", "-d", "postgres://flag"}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, 50, cfg.Sync.MaxBatch)
	assert.Equal(t, "postgres://flag", cfg.Storage.DSN)
	assert.Equal(t, "s3cret", cfg.Auth.HS256Secret, "unset flags keep env values")
}

func TestLoadStorageSkipsAuth(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("STORAGE_DATABASE_URL", "postgres://env")
	t.Setenv("AUTH_JWT_HS256_SECRET", "")
	t.Setenv("AUTH_DEV_MODE", "false")

	_, err := Load(nil)
	assert.ErrorIs(t, err, ErrInvalidAuthConfigs)

	cfg, err := LoadStorage(nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", cfg.Storage.DSN)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("SERVER_REQUEST_TIMEOUT", "forever")
	_, err := Load(nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  Server{Address: ":8080", RequestTimeout: time.Second, MaxBodyBytes: 1024},
			Storage: Storage{Driver: DriverPostgres, DSN: "postgres://x"},
			Auth:    Auth{HS256Secret: "k"},
			Sync:    Sync{MaxBatch: 10, TombstoneRetention: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "memory needs no dsn", mutate: func(c *Config) { c.Storage = Storage{Driver: DriverMemory} }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Storage.DSN = "" }, wantErr: ErrInvalidStorageConfigs},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }, wantErr: ErrInvalidStorageConfigs},
		{name: "negative pool", mutate: func(c *Config) { c.Storage.MaxConns = -1 }, wantErr: ErrInvalidStorageConfigs},
		{name: "no secret", mutate: func(c *Config) { c.Auth.HS256Secret = "" }, wantErr: ErrInvalidAuthConfigs},
		{name: "dev mode without secret", mutate: func(c *Config) { c.Auth = Auth{DevMode: true} }},
		{name: "zero batch", mutate: func(c *Config) { c.Sync.MaxBatch = 0 }, wantErr: ErrInvalidSyncConfigs},
		{name: "zero retention", mutate: func(c *Config) { c.Sync.TombstoneRetention = 0 }, wantErr: ErrInvalidSyncConfigs},
		{name: "no timeout", mutate: func(c *Config) { c.Server.RequestTimeout = 0 }, wantErr: ErrInvalidServerConfigs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
