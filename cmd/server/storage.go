package main

import (
	"context"
	"fmt"

	"github.com/erauner12/finsync-api/internal/auth"
	"github.com/erauner12/finsync-api/internal/config"
	"github.com/erauner12/finsync-api/internal/db"
	"github.com/erauner12/finsync-api/internal/store"
	"github.com/erauner12/finsync-api/internal/store/memstore"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// storage is implemented by both the Postgres and the in-memory store
type storage interface {
	syncengine.CursorStore
	syncengine.TombstoneLog
	syncengine.ActivityLog
	auth.SubjectResolver
	Adapters() syncengine.Adapters
}

func openPool(ctx context.Context, cfg config.Storage) (*pgxpool.Pool, error) {
	return db.Open(ctx, cfg.DSN, db.PoolOptions{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
}

// openStorage returns the configured store and a func releasing it
func openStorage(ctx context.Context, cfg config.Storage) (storage, func(), error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn().Msg("using in-memory storage: data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if cfg.AutoMigrate {
		if err := db.MigratePool(pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info().Msg("migrations applied")
	}
	return store.New(pool), pool.Close, nil
}

func newEngine(s storage, sync config.Sync, observer syncengine.Observer) *syncengine.Engine {
	return syncengine.New(s.Adapters(), s, s, s, syncengine.Options{
		MaxBatch:           sync.MaxBatch,
		ParallelKinds:      sync.ParallelKinds,
		TombstoneRetention: sync.TombstoneRetention,
		Observer:           observer,
	})
}
