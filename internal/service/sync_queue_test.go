package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/infra"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── In-memory QueueRepository ────────────────────────────────────────────────

type memQueueRepo struct {
	mu      sync.Mutex
	entries []model.QueuedSaleEntry
}

func (r *memQueueRepo) Append(_ context.Context, entry *model.QueuedSaleEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memQueueRepo) ListPending(_ context.Context) ([]model.QueuedSaleEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.QueuedSaleEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Status == model.QueuePending {
			if e.Sale == nil {
				// the real repo preloads the sale row
				e.Sale = &model.SaleRecord{ID: e.SaleID, Total: decimal.NewFromInt(10)}
			}
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memQueueRepo) Ack(_ context.Context, saleIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acked := make(map[uuid.UUID]bool, len(saleIDs))
	for _, id := range saleIDs {
		acked[id] = true
	}
	kept := r.entries[:0]
	for _, e := range r.entries {
		if !acked[e.SaleID] {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

func (r *memQueueRepo) CountPending(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.entries {
		if e.Status == model.QueuePending {
			n++
		}
	}
	return n, nil
}

var _ repository.QueueRepository = (*memQueueRepo)(nil)

// ── Fake remote ──────────────────────────────────────────────────────────────

type fakeRemote struct {
	mu      sync.Mutex
	calls   int32
	ackAll  bool
	ackOnly map[uuid.UUID]bool
	err     error
	delay   time.Duration
}

func (f *fakeRemote) SubmitBatch(_ context.Context, sales []model.SaleRecord) ([]uuid.UUID, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var acked []uuid.UUID
	for _, s := range sales {
		if f.ackAll || f.ackOnly[s.ID] {
			acked = append(acked, s.ID)
		}
	}
	return acked, nil
}

func newTestQueue(remote *fakeRemote) (*SyncQueue, *memQueueRepo) {
	repo := &memQueueRepo{}
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	return NewSyncQueue(repo, remote, cb), repo
}

func queuedSale(q *SyncQueue, t *testing.T) uuid.UUID {
	t.Helper()
	sale := &model.SaleRecord{ID: uuid.New(), Total: decimal.NewFromInt(10)}
	require.NoError(t, q.Record(context.Background(), sale))
	return sale.ID
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestRecordIsDurableAndLocal(t *testing.T) {
	remote := &fakeRemote{ackAll: true}
	q, _ := newTestQueue(remote)

	queuedSale(q, t)
	queuedSale(q, t)

	pending, err := q.PendingCount(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, pending)
	// Record never touches the network
	assert.EqualValues(t, 0, atomic.LoadInt32(&remote.calls))
}

func TestFlushOfflineIsNoop(t *testing.T) {
	remote := &fakeRemote{ackAll: true}
	q, _ := newTestQueue(remote)
	queuedSale(q, t)

	require.NoError(t, q.Flush(context.Background(), false))

	pending, _ := q.PendingCount(context.Background())
	assert.EqualValues(t, 1, pending)
	assert.EqualValues(t, 0, atomic.LoadInt32(&remote.calls))
}

func TestFlushDrainsQueue(t *testing.T) {
	remote := &fakeRemote{ackAll: true}
	q, _ := newTestQueue(remote)
	queuedSale(q, t)
	queuedSale(q, t)

	require.NoError(t, q.Flush(context.Background(), true))

	pending, _ := q.PendingCount(context.Background())
	assert.EqualValues(t, 0, pending)
}

func TestFlushHonorsPartialAck(t *testing.T) {
	remote := &fakeRemote{ackOnly: map[uuid.UUID]bool{}}
	q, _ := newTestQueue(remote)

	idA := queuedSale(q, t)
	idB := queuedSale(q, t)
	remote.mu.Lock()
	remote.ackOnly[idA] = true
	remote.mu.Unlock()

	require.NoError(t, q.Flush(context.Background(), true))

	entries, err := q.repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, idB, entries[0].SaleID)
}

func TestFlushAbsorbsNetworkFailure(t *testing.T) {
	remote := &fakeRemote{err: infra.ErrNetwork}
	q, _ := newTestQueue(remote)
	queuedSale(q, t)

	// Network failure is routine, not an error to the caller
	require.NoError(t, q.Flush(context.Background(), true))

	pending, _ := q.PendingCount(context.Background())
	assert.EqualValues(t, 1, pending)

	// Recovery: remote comes back, next flush drains
	remote.mu.Lock()
	remote.err = nil
	remote.ackAll = true
	remote.mu.Unlock()
	require.NoError(t, q.Flush(context.Background(), true))
	pending, _ = q.PendingCount(context.Background())
	assert.EqualValues(t, 0, pending)
}

func TestFlushSingleFlight(t *testing.T) {
	// Two timers firing together must not produce duplicate batches.
	remote := &fakeRemote{ackAll: true, delay: 50 * time.Millisecond}
	q, _ := newTestQueue(remote)
	queuedSale(q, t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, q.Flush(context.Background(), true))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&remote.calls))
}

func TestCircuitBreakerShortCircuitsFlush(t *testing.T) {
	remote := &fakeRemote{err: errors.New("boom")}
	q, _ := newTestQueue(remote)
	queuedSale(q, t)

	// Trip the breaker: five consecutive failures
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Flush(context.Background(), true))
	}
	assert.Equal(t, "open", q.CircuitState())
	callsWhenOpen := atomic.LoadInt32(&remote.calls)

	// While open, flushes fast-fail without reaching the remote
	require.NoError(t, q.Flush(context.Background(), true))
	assert.Equal(t, callsWhenOpen, atomic.LoadInt32(&remote.calls))

	pending, _ := q.PendingCount(context.Background())
	assert.EqualValues(t, 1, pending)
}
