package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/config"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/infra"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/repository"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/router"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/service"
	"github.com/jrrjunior2026-lang/PDV-WEB/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Infrastructure clients ───────────────────────────────────────────────
	fiscalClient := infra.NewFiscalClient(cfg.FiscalSidecarURL)
	pixProvider := infra.NewPixProvider(cfg.PixPSPURL, rdb)
	syncRemote := infra.NewSyncRemoteClient(cfg.SyncRemoteURL)
	mailer := infra.NewMailer(cfg)
	syncCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	// ── Repositories ─────────────────────────────────────────────────────────
	shiftRepo := repository.NewShiftRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	queueRepo := repository.NewQueueRepository(db)

	// ── Async workers (composition root) ─────────────────────────────────────
	dispatcher := worker.NewDispatcher(rdb)
	handlers := worker.Handlers{
		"shift_report": worker.NewReportWorker(shiftRepo, dispatcher, rdb, cfg.ReportStoragePath, cfg.SupervisorEmail),
		"email":        worker.NewEmailWorker(mailer),
	}
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, handlers)

	// ── Domain services ──────────────────────────────────────────────────────
	// The ledger restores this register's open shift before serving traffic.
	ledger, err := service.NewLedger(cfg.RegisterID, shiftRepo, saleRepo, dispatcher)
	if err != nil {
		log.Fatal().Err(err).Str("register_id", cfg.RegisterID).Msg("failed to restore ledger")
	}

	queue := service.NewSyncQueue(queueRepo, syncRemote, syncCB)
	txSvc := service.NewTransactionService(fiscalClient, pixProvider, ledger, queue)

	worker.StartSyncCron(ctx, worker.SyncCronConfig{
		Queue:    queue,
		Probe:    syncRemote,
		RDB:      rdb,
		Interval: time.Duration(cfg.SyncFlushSeconds) * time.Second,
	})

	r := router.New(cfg, db, rdb, router.Deps{
		Ledger:       ledger,
		Queue:        queue,
		Transactions: txSvc,
		Pix:          pixProvider,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("register_id", cfg.RegisterID).Msgf("PDV terminal backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
