package syncengine

import (
	"sync"

	"github.com/erauner12/finsync-api/internal/syncx"
)

// pushWindow tracks the stamps of pushes whose writes may not be visible
// yet. A cursor never moves to or past the oldest of them, so a pull that
// overlaps a push serves that push's records on the next round.
//
// Stamping and registering happen under one lock: any push stamped before a
// pull's clock reading is already registered when the pull computes its
// horizon.
type pushWindow struct {
	mu    sync.Mutex
	clock *Clock
	open  map[syncx.Millis]struct{}
}

func newPushWindow(clock *Clock) *pushWindow {
	return &pushWindow{clock: clock, open: make(map[syncx.Millis]struct{})}
}

// begin stamps a new push and registers it as in flight
func (w *pushWindow) begin() syncx.Millis {
	w.mu.Lock()
	defer w.mu.Unlock()
	at := w.clock.Now()
	w.open[at] = struct{}{}
	return at
}

// end unregisters a push and returns the cursor its device may advance to.
// Calling it twice is harmless.
func (w *pushWindow) end(at syncx.Millis) syncx.Millis {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.open, at)
	return w.capLocked(at)
}

// horizon returns a fresh clock reading capped below every in-flight push
func (w *pushWindow) horizon() syncx.Millis {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.capLocked(w.clock.Now())
}

func (w *pushWindow) capLocked(t syncx.Millis) syncx.Millis {
	for at := range w.open {
		if at-1 < t {
			t = at - 1
		}
	}
	return t
}
