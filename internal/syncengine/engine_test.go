package syncengine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/erauner12/finsync-api/internal/ledger"
	"github.com/erauner12/finsync-api/internal/store/memstore"
	"github.com/erauner12/finsync-api/internal/syncengine"
	"github.com/erauner12/finsync-api/internal/syncx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	ms int64
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.UnixMilli(c.ms)
}

func (c *fakeClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ms = ms
}

type harness struct {
	engine *syncengine.Engine
	store  *memstore.Store
	clock  *fakeClock
}

func newHarness(t *testing.T, opts syncengine.Options) *harness {
	t.Helper()
	return newHarnessWith(t, opts, nil)
}

// newHarnessWith lets a test wrap the store's adapters
func newHarnessWith(t *testing.T, opts syncengine.Options, wrap func(syncengine.Adapters) syncengine.Adapters) *harness {
	t.Helper()
	s := memstore.New()
	clk := &fakeClock{}
	opts.Now = clk.Now
	adapters := s.Adapters()
	if wrap != nil {
		adapters = wrap(adapters)
	}
	return &harness{
		engine: syncengine.New(adapters, s, s, s, opts),
		store:  s,
		clock:  clk,
	}
}

func expenseData(amount int64) *ledger.ExpenseData {
	return &ledger.ExpenseData{
		Description:     "Groceries",
		Amount:          decimal.NewFromInt(amount),
		TransactionDate: ledger.NewDate(2025, time.January, 10),
	}
}

func expenseItem(id uuid.UUID, op syncengine.Operation, clientAt int64, amount int64) syncengine.SyncEntity[ledger.ExpenseData] {
	item := syncengine.SyncEntity[ledger.ExpenseData]{
		ID:              id,
		Operation:       op,
		ClientUpdatedAt: syncx.Millis(clientAt),
	}
	if op != syncengine.OpDelete {
		item.Data = expenseData(amount)
	}
	return item
}

func pushExpenses(t *testing.T, h *harness, user, device string, items ...syncengine.SyncEntity[ledger.ExpenseData]) *syncengine.PushResponse {
	t.Helper()
	resp, err := h.engine.Push(context.Background(), user, &syncengine.PushRequest{
		LastSyncAt: new(syncx.Millis),
		DeviceID:   device,
		Expenses:   items,
	})
	require.NoError(t, err)
	return resp
}

func findExpense(t *testing.T, h *harness, id uuid.UUID) (ledger.Expense, bool) {
	t.Helper()
	e, ok, err := h.store.Adapters().Expenses.FindByID(context.Background(), id)
	require.NoError(t, err)
	return e, ok
}

func TestEndToEndTwoDevices(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, syncengine.Options{})
	e1 := uuid.New()

	// A creates e1 at t=100
	h.clock.Set(100)
	resp := pushExpenses(t, h, "user", "A", expenseItem(e1, syncengine.OpCreate, 100, 500))
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].Success)
	require.NotNil(t, resp.Results[0].ServerAssignedID)
	assert.Equal(t, e1, *resp.Results[0].ServerAssignedID)
	assert.Equal(t, 1, resp.ProcessedCount)

	// B pulls from the epoch
	h.clock.Set(150)
	zero := syncx.Epoch
	pull, err := h.engine.Pull(ctx, "user", "B", &zero)
	require.NoError(t, err)
	require.Len(t, pull.Expenses, 1)
	assert.Equal(t, e1, pull.Expenses[0].ID)
	assert.True(t, pull.Expenses[0].Amount.Equal(decimal.NewFromInt(500)))

	// B updates with the token it saw
	h.clock.Set(200)
	resp = pushExpenses(t, h, "user", "B", expenseItem(e1, syncengine.OpUpdate, 100, 600))
	require.True(t, resp.Results[0].Success)
	stored, _ := findExpense(t, h, e1)
	assert.EqualValues(t, 200, stored.UpdatedAt)

	// A still holds clientUpdatedAt=100
	h.clock.Set(250)
	resp = pushExpenses(t, h, "user", "A", expenseItem(e1, syncengine.OpUpdate, 100, 550))
	require.Len(t, resp.Conflicts, 1)
	c := resp.Conflicts[0]
	assert.Equal(t, syncengine.ReasonServerNewer, c.Reason)
	assert.Equal(t, ledger.KindExpense, c.EntityType)
	require.NotNil(t, c.ServerUpdatedAt)
	assert.EqualValues(t, 200, *c.ServerUpdatedAt)
	assert.EqualValues(t, 100, c.ClientUpdatedAt)
	assert.False(t, resp.Results[0].Success)
	assert.Equal(t, 0, resp.ProcessedCount)
	assert.Equal(t, 1, resp.ConflictCount)

	stored, _ = findExpense(t, h, e1)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(600)), "conflicting push must not mutate")

	// A's cursor advanced past the conflict, so it re-pulls from its own token
	since := syncx.Millis(100)
	pull, err = h.engine.Pull(ctx, "user", "A", &since)
	require.NoError(t, err)
	require.Len(t, pull.Expenses, 1)
	assert.True(t, pull.Expenses[0].Amount.Equal(decimal.NewFromInt(600)))
}

func TestIdempotentCreate(t *testing.T) {
	h := newHarness(t, syncengine.Options{})
	id := uuid.New()
	item := expenseItem(id, syncengine.OpCreate, 100, 500)

	h.clock.Set(105)
	first := pushExpenses(t, h, "user", "A", item)
	require.True(t, first.Results[0].Success)
	assert.Equal(t, syncengine.OpCreate, first.Results[0].Operation)

	// the response was lost; the client re-sends the same create later
	h.clock.Set(110)
	second := pushExpenses(t, h, "user", "A", item)
	require.True(t, second.Results[0].Success, second.Results[0].Message)
	assert.Equal(t, syncengine.OpUpdate, second.Results[0].Operation)
	assert.Equal(t, "Updated successfully", second.Results[0].Message)
	require.NotNil(t, second.Results[0].ServerAssignedID)
	assert.Equal(t, id, *second.Results[0].ServerAssignedID)
	assert.Empty(t, second.Conflicts)
	assert.Equal(t, 1, h.store.Count(ledger.KindExpense))

	stored, _ := findExpense(t, h, id)
	assert.EqualValues(t, 105, stored.CreatedAt)
	assert.EqualValues(t, 110, stored.UpdatedAt)
}

func TestCreateRetryDoesNotOverwriteLaterUpdate(t *testing.T) {
	h := newHarness(t, syncengine.Options{})
	id := uuid.New()
	item := expenseItem(id, syncengine.OpCreate, 100, 500)

	h.clock.Set(105)
	pushExpenses(t, h, "user", "A", item)
	h.clock.Set(200)
	pushExpenses(t, h, "user", "B", expenseItem(id, syncengine.OpUpdate, 105, 700))

	h.clock.Set(300)
	resp := pushExpenses(t, h, "user", "A", item)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, syncengine.ReasonServerNewer, resp.Conflicts[0].Reason)

	stored, _ := findExpense(t, h, id)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(700)))
}

func TestMissingOnServer(t *testing.T) {
	h := newHarness(t, syncengine.Options{})
	h.clock.Set(100)

	for _, op := range []syncengine.Operation{syncengine.OpUpdate, syncengine.OpDelete} {
		t.Run(string(op), func(t *testing.T) {
			resp := pushExpenses(t, h, "user", "A", expenseItem(uuid.New(), op, 100, 10))
			require.Len(t, resp.Conflicts, 1)
			assert.Equal(t, syncengine.ReasonMissingOnServer, resp.Conflicts[0].Reason)
			assert.Nil(t, resp.Conflicts[0].ServerUpdatedAt)
			assert.False(t, resp.Results[0].Success)
			assert.Equal(t, "entity not found", resp.Results[0].Message)
			assert.Equal(t, op, resp.Results[0].Operation)
		})
	}
}

func TestCrossUserIsolation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, syncengine.Options{})
	owned := uuid.New()

	h.clock.Set(100)
	pushExpenses(t, h, "owner", "A", expenseItem(owned, syncengine.OpCreate, 100, 10))

	h.clock.Set(200)
	missing := pushExpenses(t, h, "intruder", "X", expenseItem(uuid.New(), syncengine.OpUpdate, 900, 1))
	require.Len(t, missing.Results, 1)

	for _, op := range []syncengine.Operation{syncengine.OpCreate, syncengine.OpUpdate, syncengine.OpDelete} {
		t.Run(string(op), func(t *testing.T) {
			resp := pushExpenses(t, h, "intruder", "X", expenseItem(owned, op, 900, 1))
			require.Len(t, resp.Results, 1)
			r := resp.Results[0]
			assert.False(t, r.Success)
			assert.Nil(t, r.ServerAssignedID)
			assert.Equal(t, missing.Results[0].Message, r.Message, "must read like a missing record")
			assert.Empty(t, resp.Conflicts, "ownership failures are not conflicts")
			assert.Equal(t, 0, resp.ProcessedCount)
		})
	}

	stored, ok := findExpense(t, h, owned)
	require.True(t, ok)
	assert.Equal(t, "owner", stored.OwnerID)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(10)))

	pull, err := h.engine.Pull(ctx, "intruder", "X", new(syncx.Millis))
	require.NoError(t, err)
	assert.Empty(t, pull.Expenses)
}

func TestBatchPartialFailure(t *testing.T) {
	for malformedAt := range 3 {
		t.Run(fmt.Sprintf("malformed at %d", malformedAt), func(t *testing.T) {
			h := newHarness(t, syncengine.Options{})
			h.clock.Set(100)

			items := make([]syncengine.SyncEntity[ledger.ExpenseData], 3)
			for i := range items {
				items[i] = expenseItem(uuid.New(), syncengine.OpCreate, 100, 10)
			}
			items[malformedAt].Data = nil

			resp := pushExpenses(t, h, "user", "A", items...)
			require.Len(t, resp.Results, 3)

			successes := 0
			for i, r := range resp.Results {
				assert.Equal(t, items[i].ID.String(), r.EntityID, "results keep submission order")
				if r.Success {
					successes++
				}
			}
			assert.Equal(t, 2, successes)
			assert.Equal(t, 2, resp.ProcessedCount)
			assert.False(t, resp.Results[malformedAt].Success)
			assert.Contains(t, resp.Results[malformedAt].Message, "Invalid item")
			assert.Empty(t, resp.Conflicts)
		})
	}
}

func TestPullMonotonicity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, syncengine.Options{})

	for i, at := range []int64{100, 200, 300, 350, 400} {
		h.clock.Set(at)
		resp := pushExpenses(t, h, "user", "seed", expenseItem(uuid.New(), syncengine.OpCreate, at, int64(i+1)))
		require.True(t, resp.Results[0].Success)
	}

	w1, w2 := syncx.Millis(150), syncx.Millis(300)
	h.clock.Set(1000)
	p1, err := h.engine.Pull(ctx, "user", "D", &w1)
	require.NoError(t, err)
	p2, err := h.engine.Pull(ctx, "user", "D", &w2)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, p2.ServerSyncAt, p1.ServerSyncAt)
	assert.Len(t, p1.Expenses, 4)
	assert.Len(t, p2.Expenses, 2)
	assert.Equal(t, 4, p1.TotalChanges)

	inP1 := make(map[uuid.UUID]bool)
	for i, e := range p1.Expenses {
		inP1[e.ID] = true
		assert.True(t, e.UpdatedAt > w1)
		if i > 0 {
			assert.LessOrEqual(t, p1.Expenses[i-1].UpdatedAt, e.UpdatedAt, "ascending updatedAt")
		}
	}
	for _, e := range p2.Expenses {
		assert.True(t, inP1[e.ID], "pull(w2) must be a subset of pull(w1)")
	}

	// stable replay order
	again, err := h.engine.Pull(ctx, "user", "D", &w1)
	require.NoError(t, err)
	for i := range p1.Expenses {
		assert.Equal(t, p1.Expenses[i].ID, again.Expenses[i].ID)
	}
}

func TestPullWatermarkResolution(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, syncengine.Options{})

	h.clock.Set(100)
	pushExpenses(t, h, "user", "A", expenseItem(uuid.New(), syncengine.OpCreate, 100, 1))

	// no cursor for B: epoch
	h.clock.Set(200)
	p, err := h.engine.Pull(ctx, "user", "B", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, p.LastSyncAt)
	assert.Len(t, p.Expenses, 1)
	assert.NotNil(t, p.Budgets)
	assert.NotNil(t, p.DeletedBillIDs)

	// stored cursor for B is now 200
	h.clock.Set(300)
	p, err = h.engine.Pull(ctx, "user", "B", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 200, p.LastSyncAt)
	assert.Empty(t, p.Expenses)
	assert.Equal(t, 0, p.TotalChanges)

	// deviceless cursor is separate from B's
	p, err = h.engine.Pull(ctx, "user", "", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, p.LastSyncAt)

	c, ok, err := h.store.GetCursor(ctx, "user", "B")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 300, c.LastSyncAt)
}

func TestDeleteIsProtectedByStalenessCheck(t *testing.T) {
	h := newHarness(t, syncengine.Options{})
	id := uuid.New()

	h.clock.Set(100)
	pushExpenses(t, h, "user", "A", expenseItem(id, syncengine.OpCreate, 100, 1))
	h.clock.Set(200)
	pushExpenses(t, h, "user", "B", expenseItem(id, syncengine.OpUpdate, 100, 2))

	h.clock.Set(300)
	resp := pushExpenses(t, h, "user", "A", expenseItem(id, syncengine.OpDelete, 100, 0))
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, syncengine.ReasonServerNewer, resp.Conflicts[0].Reason)
	_, ok := findExpense(t, h, id)
	assert.True(t, ok, "stale delete must not remove the record")

	resp = pushExpenses(t, h, "user", "A", expenseItem(id, syncengine.OpDelete, 200, 0))
	require.True(t, resp.Results[0].Success)
	assert.Equal(t, "Deleted successfully", resp.Results[0].Message)
	assert.Nil(t, resp.Results[0].ServerAssignedID)
}

func TestTombstonesPropagateDeletes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, syncengine.Options{})
	gone, back := uuid.New(), uuid.New()

	h.clock.Set(100)
	pushExpenses(t, h, "user", "A",
		expenseItem(gone, syncengine.OpCreate, 100, 1),
		expenseItem(back, syncengine.OpCreate, 100, 1),
	)

	h.clock.Set(200)
	pushExpenses(t, h, "user", "A",
		expenseItem(gone, syncengine.OpDelete, 100, 0),
		expenseItem(back, syncengine.OpDelete, 100, 0),
	)
	h.clock.Set(300)
	pushExpenses(t, h, "user", "A", expenseItem(back, syncengine.OpCreate, 300, 7))

	since := syncx.Millis(150)
	p, err := h.engine.Pull(ctx, "user", "B", &since)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{gone}, p.DeletedExpenseIDs)
	require.Len(t, p.Expenses, 1)
	assert.Equal(t, back, p.Expenses[0].ID)
	assert.Equal(t, 2, p.TotalChanges)

	since = 250
	p, err = h.engine.Pull(ctx, "user", "B", &since)
	require.NoError(t, err)
	assert.Empty(t, p.DeletedExpenseIDs)

	other, err := h.engine.Pull(ctx, "someone-else", "B", new(syncx.Millis))
	require.NoError(t, err)
	assert.Empty(t, other.DeletedExpenseIDs)
}

func TestChainedOperationsInOneBatch(t *testing.T) {
	h := newHarness(t, syncengine.Options{})
	id := uuid.New()

	h.clock.Set(500)
	resp := pushExpenses(t, h, "user", "A",
		expenseItem(id, syncengine.OpCreate, 90, 1),
		expenseItem(id, syncengine.OpUpdate, 95, 2),
		expenseItem(id, syncengine.OpDelete, 99, 0),
	)
	require.Len(t, resp.Results, 3)
	for _, r := range resp.Results {
		assert.True(t, r.Success, r.Message)
	}
	assert.Empty(t, resp.Conflicts)
	_, ok := findExpense(t, h, id)
	assert.False(t, ok)
}

func TestChainedUpdatesKeepPreBatchBaseline(t *testing.T) {
	h := newHarness(t, syncengine.Options{})
	id := uuid.New()

	h.clock.Set(100)
	pushExpenses(t, h, "user", "A", expenseItem(id, syncengine.OpCreate, 100, 1))

	h.clock.Set(200)
	resp := pushExpenses(t, h, "user", "A",
		expenseItem(id, syncengine.OpUpdate, 100, 2),
		expenseItem(id, syncengine.OpUpdate, 150, 3),
		expenseItem(id, syncengine.OpUpdate, 50, 4),
	)
	assert.True(t, resp.Results[0].Success)
	assert.True(t, resp.Results[1].Success)
	require.Len(t, resp.Conflicts, 1, "a token older than the pre-batch state still conflicts")
	require.NotNil(t, resp.Conflicts[0].ServerUpdatedAt)
	assert.EqualValues(t, 200, *resp.Conflicts[0].ServerUpdatedAt)

	stored, _ := findExpense(t, h, id)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(3)))
}

// cancellingAdapter cancels the push context after the first successful create
type cancellingAdapter struct {
	syncengine.Adapter[ledger.Expense, ledger.ExpenseData]
	cancel context.CancelFunc
}

func (a *cancellingAdapter) Create(ctx context.Context, ownerID string, id uuid.UUID, data ledger.ExpenseData, at syncx.Millis) (ledger.Expense, error) {
	r, err := a.Adapter.Create(ctx, ownerID, id, data, at)
	a.cancel()
	return r, err
}

func TestCancellationLeavesCursorUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarnessWith(t, syncengine.Options{}, func(a syncengine.Adapters) syncengine.Adapters {
		a.Expenses = &cancellingAdapter{Adapter: a.Expenses, cancel: cancel}
		return a
	})
	h.clock.Set(100)

	first, second := uuid.New(), uuid.New()
	_, err := h.engine.Push(ctx, "user", &syncengine.PushRequest{
		DeviceID: "A",
		Expenses: []syncengine.SyncEntity[ledger.ExpenseData]{
			expenseItem(first, syncengine.OpCreate, 100, 1),
			expenseItem(second, syncengine.OpCreate, 100, 1),
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	_, ok, err := h.store.GetCursor(context.Background(), "user", "A")
	require.NoError(t, err)
	assert.False(t, ok, "cursor must not advance on an aborted push")

	_, ok = findExpense(t, h, first)
	assert.True(t, ok, "items applied before the abort stay applied")
	_, ok = findExpense(t, h, second)
	assert.False(t, ok)
}

// flakyAdapter fails lookups for chosen ids and can hide a record from the
// first lookup to simulate a lost insert race
type flakyAdapter struct {
	syncengine.Adapter[ledger.Expense, ledger.ExpenseData]
	failFind map[uuid.UUID]bool
	hideOnce map[uuid.UUID]bool
}

func (a *flakyAdapter) FindByID(ctx context.Context, id uuid.UUID) (ledger.Expense, bool, error) {
	if a.failFind[id] {
		return ledger.Expense{}, false, errors.New("connection reset")
	}
	if a.hideOnce[id] {
		delete(a.hideOnce, id)
		return ledger.Expense{}, false, nil
	}
	return a.Adapter.FindByID(ctx, id)
}

func TestStorageErrorIsPerItem(t *testing.T) {
	broken := uuid.New()
	h := newHarnessWith(t, syncengine.Options{}, func(a syncengine.Adapters) syncengine.Adapters {
		a.Expenses = &flakyAdapter{Adapter: a.Expenses, failFind: map[uuid.UUID]bool{broken: true}}
		return a
	})
	h.clock.Set(100)

	resp := pushExpenses(t, h, "user", "A",
		expenseItem(uuid.New(), syncengine.OpCreate, 100, 1),
		expenseItem(broken, syncengine.OpCreate, 100, 1),
		expenseItem(uuid.New(), syncengine.OpCreate, 100, 1),
	)
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, "storage error", resp.Results[1].Message)
	assert.True(t, resp.Results[2].Success)
	assert.Equal(t, 2, resp.ProcessedCount)
	assert.Empty(t, resp.Conflicts)
}

func TestCreateRaceRetriesAsUpdate(t *testing.T) {
	id := uuid.New()
	flaky := &flakyAdapter{hideOnce: map[uuid.UUID]bool{}}
	h := newHarnessWith(t, syncengine.Options{}, func(a syncengine.Adapters) syncengine.Adapters {
		flaky.Adapter = a.Expenses
		a.Expenses = flaky
		return a
	})

	h.clock.Set(100)
	pushExpenses(t, h, "user", "A", expenseItem(id, syncengine.OpCreate, 100, 1))

	flaky.hideOnce[id] = true
	resp := pushExpenses(t, h, "user", "B", expenseItem(id, syncengine.OpCreate, 100, 2))
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].Success, resp.Results[0].Message)
	assert.Equal(t, syncengine.OpUpdate, resp.Results[0].Operation)
	assert.Equal(t, 1, h.store.Count(ledger.KindExpense))
}

// gatedAdapter blocks the create of one id until released
type gatedAdapter struct {
	syncengine.Adapter[ledger.Expense, ledger.ExpenseData]
	id      uuid.UUID
	entered chan struct{}
	release chan struct{}
}

func (a *gatedAdapter) Create(ctx context.Context, ownerID string, id uuid.UUID, data ledger.ExpenseData, at syncx.Millis) (ledger.Expense, error) {
	if id == a.id {
		close(a.entered)
		<-a.release
	}
	return a.Adapter.Create(ctx, ownerID, id, data, at)
}

func TestPullOverlappingPushKeepsItsWrites(t *testing.T) {
	ctx := context.Background()
	slow := uuid.New()
	gate := &gatedAdapter{id: slow, entered: make(chan struct{}), release: make(chan struct{})}
	h := newHarnessWith(t, syncengine.Options{}, func(a syncengine.Adapters) syncengine.Adapters {
		gate.Adapter = a.Expenses
		a.Expenses = gate
		return a
	})

	h.clock.Set(1000)
	done := make(chan *syncengine.PushResponse, 1)
	go func() {
		resp, err := h.engine.Push(ctx, "user", &syncengine.PushRequest{
			DeviceID: "A",
			Expenses: []syncengine.SyncEntity[ledger.ExpenseData]{expenseItem(slow, syncengine.OpCreate, 1000, 1)},
		})
		if err != nil {
			resp = nil
		}
		done <- resp
	}()
	<-gate.entered

	h.clock.Set(2000)
	p, err := h.engine.Pull(ctx, "user", "B", nil)
	require.NoError(t, err)
	assert.Empty(t, p.Expenses)
	assert.EqualValues(t, 999, p.ServerSyncAt, "cursor stays below the unfinished push")

	// a push from another device finishing meanwhile is capped the same way
	other := pushExpenses(t, h, "user", "C", expenseItem(uuid.New(), syncengine.OpCreate, 2000, 2))
	require.True(t, other.Results[0].Success)
	assert.EqualValues(t, 999, other.ServerSyncAt)

	close(gate.release)
	first := <-done
	require.NotNil(t, first)
	require.True(t, first.Results[0].Success)
	assert.EqualValues(t, 1000, first.ServerSyncAt)

	h.clock.Set(3000)
	p, err = h.engine.Pull(ctx, "user", "B", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 999, p.LastSyncAt)
	assert.Len(t, p.Expenses, 2, "both pushes reach the device that pulled in between")
	assert.EqualValues(t, 3000, p.ServerSyncAt)
}

func TestStatusIsHonest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, syncengine.Options{})

	st, err := h.engine.Status(ctx, "user", "A")
	require.NoError(t, err)
	assert.Nil(t, st.LastSyncAt)
	assert.False(t, st.HasUnsyncedChanges, "nothing has ever changed")

	h.clock.Set(100)
	pushExpenses(t, h, "user", "A", expenseItem(uuid.New(), syncengine.OpCreate, 100, 1))

	st, err = h.engine.Status(ctx, "user", "A")
	require.NoError(t, err)
	require.NotNil(t, st.LastSyncAt)
	assert.EqualValues(t, 100, *st.LastSyncAt)
	assert.False(t, st.HasUnsyncedChanges, "the pushing device is up to date")

	st, err = h.engine.Status(ctx, "user", "B")
	require.NoError(t, err)
	assert.True(t, st.HasUnsyncedChanges, "a device that never synced is behind")

	h.clock.Set(200)
	_, err = h.engine.Pull(ctx, "user", "B", nil)
	require.NoError(t, err)
	st, err = h.engine.Status(ctx, "user", "B")
	require.NoError(t, err)
	assert.False(t, st.HasUnsyncedChanges)

	// a conflict-only push records no activity
	h.clock.Set(300)
	pushExpenses(t, h, "user", "A", expenseItem(uuid.New(), syncengine.OpUpdate, 300, 1))
	st, err = h.engine.Status(ctx, "user", "B")
	require.NoError(t, err)
	assert.False(t, st.HasUnsyncedChanges)
}

func TestUnauthenticatedCallsAreRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, syncengine.Options{})

	_, err := h.engine.Push(ctx, "", &syncengine.PushRequest{})
	assert.ErrorIs(t, err, syncengine.ErrUnauthenticated)
	_, err = h.engine.Pull(ctx, "", "", nil)
	assert.ErrorIs(t, err, syncengine.ErrUnauthenticated)
	_, err = h.engine.Status(ctx, "", "")
	assert.ErrorIs(t, err, syncengine.ErrUnauthenticated)
}

func TestMaxBatch(t *testing.T) {
	h := newHarness(t, syncengine.Options{MaxBatch: 2})
	_, err := h.engine.Push(context.Background(), "user", &syncengine.PushRequest{
		Expenses: []syncengine.SyncEntity[ledger.ExpenseData]{
			expenseItem(uuid.New(), syncengine.OpCreate, 1, 1),
			expenseItem(uuid.New(), syncengine.OpCreate, 1, 1),
			expenseItem(uuid.New(), syncengine.OpCreate, 1, 1),
		},
	})
	assert.ErrorIs(t, err, syncengine.ErrBatchTooLarge)
}

func TestParallelKindsKeepResultOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, syncengine.Options{ParallelKinds: true})
	h.clock.Set(100)

	active := false
	req := &syncengine.PushRequest{
		DeviceID: "A",
		Bills: []syncengine.SyncEntity[ledger.BillData]{{
			ID: uuid.New(), Operation: syncengine.OpCreate, ClientUpdatedAt: 100,
			Data: &ledger.BillData{Name: "Rent", NextDueDate: ledger.NewDate(2025, time.February, 1), Frequency: ledger.FrequencyMonthly, Active: &active},
		}},
		Budgets: []syncengine.SyncEntity[ledger.BudgetData]{{
			ID: uuid.New(), Operation: syncengine.OpCreate, ClientUpdatedAt: 100,
			Data: &ledger.BudgetData{Name: "Food", Amount: decimal.NewFromInt(300), MonthYear: ledger.NewDate(2025, time.February, 14)},
		}},
		Expenses: []syncengine.SyncEntity[ledger.ExpenseData]{
			expenseItem(uuid.New(), syncengine.OpCreate, 100, 1),
		},
	}

	resp, err := h.engine.Push(ctx, "user", req)
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, ledger.KindExpense, resp.Results[0].EntityType)
	assert.Equal(t, ledger.KindBudget, resp.Results[1].EntityType)
	assert.Equal(t, ledger.KindBill, resp.Results[2].EntityType)
	assert.Equal(t, 3, resp.ProcessedCount)

	p, err := h.engine.Pull(ctx, "user", "B", nil)
	require.NoError(t, err)
	require.Len(t, p.Budgets, 1)
	assert.Equal(t, ledger.NewDate(2025, time.February, 1), p.Budgets[0].MonthYear)
	require.Len(t, p.Bills, 1)
	assert.False(t, p.Bills[0].Active)
	assert.Equal(t, 3, p.TotalChanges)
}

func TestPruneTombstones(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, syncengine.Options{TombstoneRetention: time.Hour})
	id := uuid.New()

	h.clock.Set(100)
	pushExpenses(t, h, "user", "A", expenseItem(id, syncengine.OpCreate, 100, 1))
	pushExpenses(t, h, "user", "A", expenseItem(id, syncengine.OpDelete, 200, 0))

	n, err := h.engine.PruneTombstones(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "inside the retention window")

	h.clock.Set(100 + 2*time.Hour.Milliseconds())
	n, err = h.engine.PruneTombstones(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type countingObserver struct {
	mu        sync.Mutex
	outcomes  map[string]int
	conflicts map[syncengine.ConflictReason]int
	pulled    int
}

func (o *countingObserver) ItemProcessed(_ ledger.Kind, _ syncengine.Operation, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[outcome]++
}

func (o *countingObserver) ConflictDetected(_ ledger.Kind, reason syncengine.ConflictReason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conflicts[reason]++
}

func (o *countingObserver) ChangesPulled(_ ledger.Kind, upserts, deletes int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pulled += upserts + deletes
}

func TestObserverSeesOutcomes(t *testing.T) {
	obs := &countingObserver{outcomes: map[string]int{}, conflicts: map[syncengine.ConflictReason]int{}}
	h := newHarness(t, syncengine.Options{Observer: obs})
	h.clock.Set(100)

	bad := expenseItem(uuid.New(), syncengine.OpCreate, 100, 1)
	bad.Data = nil
	pushExpenses(t, h, "user", "A",
		expenseItem(uuid.New(), syncengine.OpCreate, 100, 1),
		expenseItem(uuid.New(), syncengine.OpDelete, 100, 0),
		bad,
	)
	_, err := h.engine.Pull(context.Background(), "user", "B", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, obs.outcomes[syncengine.OutcomeApplied])
	assert.Equal(t, 1, obs.outcomes[syncengine.OutcomeConflict])
	assert.Equal(t, 1, obs.outcomes[syncengine.OutcomeInvalid])
	assert.Equal(t, 1, obs.conflicts[syncengine.ReasonMissingOnServer])
	assert.Equal(t, 1, obs.pulled)
}
