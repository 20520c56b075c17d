package worker

// sync_cron.go
// Background goroutine that periodically replays the offline sale queue
// to the back office. A flush also fires immediately when connectivity
// recovery is announced on the Redis "sync:online" channel, so the queue
// drains without waiting out a full tick.

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// OnlineChannel carries connectivity-recovery events. Anything that
// detects the link coming back (health probe, webhook delivery) may
// publish here to trigger an immediate flush.
const OnlineChannel = "sync:online"

// Flusher replays pending queue entries to the back office.
type Flusher interface {
	Flush(ctx context.Context, online bool) error
	PendingCount(ctx context.Context) (int64, error)
}

// Prober answers whether the back office is reachable right now.
type Prober interface {
	Ping(ctx context.Context) bool
}

// SyncCronConfig holds all dependencies for the sync goroutine.
type SyncCronConfig struct {
	Queue    Flusher
	Probe    Prober
	RDB      *redis.Client
	Interval time.Duration
}

// StartSyncCron launches a background goroutine that ticks on the
// configured interval, probes connectivity, and flushes the queue when
// the back office answers. It respects the context for graceful
// shutdown.
func StartSyncCron(ctx context.Context, cfg SyncCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}

	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		sub := cfg.RDB.Subscribe(ctx, OnlineChannel)
		defer sub.Close()
		online := sub.Channel()

		log.Info().Dur("interval", cfg.Interval).Msg("sync_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("sync_cron: shutting down")
				return
			case <-ticker.C:
				flushIfReachable(ctx, cfg)
			case <-online:
				log.Info().Msg("sync_cron: connectivity recovery announced, flushing")
				flushIfReachable(ctx, cfg)
			}
		}
	}()
}

func flushIfReachable(ctx context.Context, cfg SyncCronConfig) {
	pending, err := cfg.Queue.PendingCount(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sync_cron: failed to count pending entries")
		return
	}
	if pending == 0 {
		return
	}

	reachable := cfg.Probe.Ping(ctx)
	if !reachable {
		log.Debug().Int64("pending", pending).Msg("sync_cron: back office unreachable, skipping tick")
		return
	}

	if err := cfg.Queue.Flush(ctx, true); err != nil {
		log.Error().Err(err).Msg("sync_cron: flush failed")
	}
}
