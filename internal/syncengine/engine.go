// Package syncengine reconciles client replicas of ledger records with the
// server: push applies client mutations with conflict detection, pull serves
// an incremental changefeed, status reports whether a device is behind.
package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultTombstoneRetention is how long deletions stay visible to pulls
const DefaultTombstoneRetention = 30 * 24 * time.Hour

// Options tunes the engine. The zero value is usable.
type Options struct {
	// MaxBatch caps the number of items in one push; 0 disables the cap
	MaxBatch int
	// ParallelKinds processes expenses, budgets and bills concurrently.
	// Items within a kind always keep submission order.
	ParallelKinds      bool
	TombstoneRetention time.Duration
	Now                func() time.Time
	Observer           Observer
}

// Engine implements push, pull and status over a set of adapters
type Engine struct {
	adapters   Adapters
	cursors    CursorStore
	tombstones TombstoneLog
	activity   ActivityLog
	observer   Observer
	clock      *Clock
	pushes     *pushWindow
	opts       Options
}

func New(adapters Adapters, cursors CursorStore, tombstones TombstoneLog, activity ActivityLog, opts Options) *Engine {
	if opts.TombstoneRetention <= 0 {
		opts.TombstoneRetention = DefaultTombstoneRetention
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	clock := NewClock(opts.Now)
	return &Engine{
		adapters:   adapters,
		cursors:    cursors,
		tombstones: tombstones,
		activity:   activity,
		observer:   observer,
		clock:      clock,
		pushes:     newPushWindow(clock),
		opts:       opts,
	}
}

// MaxBatch returns the configured push cap (0 = unlimited)
func (e *Engine) MaxBatch() int {
	return e.opts.MaxBatch
}

// runKinds executes one function per entity kind, sequentially or in
// parallel. The first error cancels the rest.
func (e *Engine) runKinds(ctx context.Context, runs ...func(context.Context) error) error {
	if !e.opts.ParallelKinds {
		for _, run := range runs {
			if err := run(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, run := range runs {
		g.Go(func() error { return run(gctx) })
	}
	return g.Wait()
}

// PruneTombstones deletes tombstones older than the retention window
func (e *Engine) PruneTombstones(ctx context.Context) (int, error) {
	before := syncx.FromTime(e.clock.Wall().Add(-e.opts.TombstoneRetention))
	n, err := e.tombstones.PruneBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("prune tombstones: %w", err)
	}
	log.Ctx(ctx).Info().
		Int("removed", n).
		Str("before", before.String()).
		Msg("pruned tombstones")
	return n, nil
}
