// Package config loads server configuration from environment variables and
// command-line flags. Flags override env; the merged result is validated.
package config

import "time"

// Config is the top-level server configuration.
//
// Struct tags:
//   - envPrefix: prefix applied to nested env lookups (caarlos0/env)
//   - env: variable name for scalar fields
type Config struct {
	App     App     `envPrefix:"APP_"`
	Server  Server  `envPrefix:"SERVER_"`
	Storage Storage `envPrefix:"STORAGE_"`
	Auth    Auth    `envPrefix:"AUTH_"`
	Sync    Sync    `envPrefix:"SYNC_"`
}

// App holds process-level settings
type App struct {
	// Env selects log formatting; "dev" enables the console writer.
	// Env: APP_ENV
	Env string `env:"ENV" envDefault:"prod"`

	// Env: APP_SERVICE
	Service string `env:"SERVICE" envDefault:"finsync-api"`

	// Env: APP_VERSION
	Version string `env:"VERSION" envDefault:"dev"`

	// LogLevel is a zerolog level name.
	// Env: APP_LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// IsDev reports whether the process runs in local development mode
func (a App) IsDev() bool { return a.Env == "dev" }

// Server holds listener and timeout settings
type Server struct {
	// Env: SERVER_ADDRESS
	Address string `env:"ADDRESS" envDefault:":8080"`

	// RequestTimeout bounds one handler invocation.
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"120s"`

	// MaxBodyBytes caps a push request body.
	// Env: SERVER_MAX_BODY_BYTES
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"10485760"`
}

// Storage selects and sizes the persistence backend
type Storage struct {
	// Driver is "postgres" or "memory".
	// Env: STORAGE_DRIVER
	Driver string `env:"DRIVER" envDefault:"postgres"`

	// Env: STORAGE_DATABASE_URL
	DSN string `env:"DATABASE_URL"`

	MaxConns int32 `env:"MAX_CONNS"`
	MinConns int32 `env:"MIN_CONNS"`

	// AutoMigrate applies pending migrations when serve starts.
	// Env: STORAGE_AUTO_MIGRATE
	AutoMigrate bool `env:"AUTO_MIGRATE"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Auth holds bearer token settings
type Auth struct {
	// Env: AUTH_JWT_HS256_SECRET
	HS256Secret string `env:"JWT_HS256_SECRET"`
	Issuer      string `env:"JWT_ISSUER"`
	Audience    string `env:"JWT_AUDIENCE"`

	// DevMode accepts the X-Debug-Sub header in place of a token.
	// Env: AUTH_DEV_MODE
	DevMode bool `env:"DEV_MODE"`
}

// Sync tunes the sync engine
type Sync struct {
	// Env: SYNC_MAX_BATCH
	MaxBatch int `env:"MAX_BATCH" envDefault:"500"`

	// Env: SYNC_PARALLEL_KINDS
	ParallelKinds bool `env:"PARALLEL_KINDS"`

	// Env: SYNC_TOMBSTONE_RETENTION
	TombstoneRetention time.Duration `env:"TOMBSTONE_RETENTION" envDefault:"720h"`

	// SweepInterval runs tombstone pruning in serve; zero disables it.
	// Env: SYNC_TOMBSTONE_SWEEP_INTERVAL
	SweepInterval time.Duration `env:"TOMBSTONE_SWEEP_INTERVAL"`
}
