package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/infra"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RemoteSalesSync delivers queued sales to the back office. Partial acks
// by id are allowed; the remote dedupes by sale id (at-least-once).
type RemoteSalesSync interface {
	SubmitBatch(ctx context.Context, sales []model.SaleRecord) ([]uuid.UUID, error)
}

// SyncQueue guarantees a completed sale is never lost locally and is
// eventually delivered to the remote system of record, tolerating
// arbitrarily long disconnection. Record is a durable local append and
// never touches the network; Flush is strictly single-flight.
type SyncQueue struct {
	repo     repository.QueueRepository
	remote   RemoteSalesSync
	cb       *infra.CircuitBreaker
	flushing atomic.Bool
}

func NewSyncQueue(repo repository.QueueRepository, remote RemoteSalesSync, cb *infra.CircuitBreaker) *SyncQueue {
	return &SyncQueue{repo: repo, remote: remote, cb: cb}
}

// Record durably appends the sale to the queue. Safe to call while a
// flush is in progress — the append is independent of any in-flight
// snapshot.
func (q *SyncQueue) Record(ctx context.Context, sale *model.SaleRecord) error {
	entry := &model.QueuedSaleEntry{
		ID:       uuid.New(),
		SaleID:   sale.ID,
		Status:   model.QueuePending,
		QueuedAt: time.Now().UTC(),
	}
	if err := q.repo.Append(ctx, entry); err != nil {
		return err
	}
	log.Debug().Str("sale_id", sale.ID.String()).Msg("sync: sale queued")
	return nil
}

// Flush replays pending entries to the remote. A no-op when offline or
// when another flush is in progress — two timers firing close together
// must not produce duplicate batches. Network failure is absorbed:
// entries stay pending and the next timer or online event retries.
func (q *SyncQueue) Flush(ctx context.Context, online bool) error {
	if !online {
		return nil
	}
	if !q.flushing.CompareAndSwap(false, true) {
		return nil
	}
	defer q.flushing.Store(false)

	entries, err := q.repo.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	sales := make([]model.SaleRecord, 0, len(entries))
	for _, e := range entries {
		if e.Sale == nil {
			log.Warn().Str("entry_id", e.ID.String()).Msg("sync: queued entry without sale, skipping")
			continue
		}
		sales = append(sales, *e.Sale)
	}
	if len(sales) == 0 {
		return nil
	}

	var acked []uuid.UUID
	cbErr := q.cb.Execute(func() error {
		ids, err := q.remote.SubmitBatch(ctx, sales)
		if err != nil {
			return err
		}
		acked = ids
		return nil
	})
	if cbErr != nil {
		// routine — entries stay pending, the pending count is the only
		// user-visible signal
		log.Warn().Err(cbErr).Int("pending", len(sales)).Msg("sync: batch submit failed, will retry")
		return nil
	}

	if err := q.repo.Ack(ctx, acked); err != nil {
		return err
	}

	log.Info().
		Int("submitted", len(sales)).
		Int("acknowledged", len(acked)).
		Msg("sync: batch delivered")
	return nil
}

// PendingCount reflects current durable state.
func (q *SyncQueue) PendingCount(ctx context.Context) (int64, error) {
	return q.repo.CountPending(ctx)
}

// CircuitState exposes the breaker state for the status endpoint.
func (q *SyncQueue) CircuitState() string {
	return q.cb.State().String()
}
