package syncengine

import (
	"sync"
	"testing"
	"time"
)

func TestClockIsStrictlyIncreasing(t *testing.T) {
	wall := time.UnixMilli(1000)
	c := NewClock(func() time.Time { return wall })

	if got := c.Now(); got != 1000 {
		t.Fatalf("first Now() = %d, want 1000", got)
	}
	if got := c.Now(); got != 1001 {
		t.Fatalf("stalled wall clock: Now() = %d, want 1001", got)
	}

	wall = time.UnixMilli(500)
	if got := c.Now(); got != 1002 {
		t.Fatalf("wall clock stepped back: Now() = %d, want 1002", got)
	}

	wall = time.UnixMilli(5000)
	if got := c.Now(); got != 5000 {
		t.Fatalf("Now() = %d, want 5000", got)
	}
}

func TestClockConcurrentCallsAreUnique(t *testing.T) {
	c := NewClock(func() time.Time { return time.UnixMilli(42) })

	const n = 64
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool, n)
		wg   sync.WaitGroup
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := int64(c.Now())
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("got %d distinct timestamps, want %d", len(seen), n)
	}
}
