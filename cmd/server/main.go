// Command server runs the scholarship escrow engine: identity registry,
// verification ledger, fund pools, claim processor, and the public audit
// feed, behind one HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"scholarhub/internal/access"
	adminhandler "scholarhub/internal/admin/handler"
	fundhandler "scholarhub/internal/fund/handler"
	fundservice "scholarhub/internal/fund/service"
	fundstore "scholarhub/internal/fund/store"
	httpapi "scholarhub/internal/http"
	identityhandler "scholarhub/internal/identity/handler"
	identityservice "scholarhub/internal/identity/service"
	identitystore "scholarhub/internal/identity/store"
	"scholarhub/internal/platform/config"
	"scholarhub/internal/platform/httpserver"
	"scholarhub/internal/platform/logger"
	"scholarhub/internal/platform/metrics"
	platformpg "scholarhub/internal/platform/postgres"
	platformredis "scholarhub/internal/platform/redis"
	"scholarhub/internal/treasury"
	verificationhandler "scholarhub/internal/verification/handler"
	verificationservice "scholarhub/internal/verification/service"
	verificationstore "scholarhub/internal/verification/store"
	audit "scholarhub/pkg/platform/audit"
	auditkafka "scholarhub/pkg/platform/audit/kafka"
	auditmem "scholarhub/pkg/platform/audit/store/memory"
	auditpg "scholarhub/pkg/platform/audit/store/postgres"
	auditworker "scholarhub/pkg/platform/audit/worker"
	"scholarhub/pkg/platform/tx"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence. Postgres when configured, in-memory otherwise.
	var (
		accounts      identityAccountStore
		records       verificationservice.RecordStore
		pools         fundservice.PoolStore
		auditStore    audit.Store
		runner        tx.Runner = tx.NopRunner{}
		pgAuditOutbox *auditpg.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if err := platformpg.EnsureSchema(ctx, db); err != nil {
			return err
		}
		accounts = identitystore.NewPostgres(db)
		records = verificationstore.NewPostgres(db)
		pools = fundstore.NewPostgres(db)
		pgAuditOutbox = auditpg.New(db)
		auditStore = pgAuditOutbox
		runner = tx.NewSQLRunner(db)
		log.Info("using postgres storage")
	} else {
		accounts = identitystore.NewInMemory()
		records = verificationstore.NewInMemory()
		pools = fundstore.NewInMemory()
		auditStore = auditmem.NewInMemoryStore()
		log.Info("using in-memory storage")
	}

	// Audit feed and its optional Kafka fan-out.
	publisherOpts := []audit.PublisherOption{audit.WithLogger(log)}
	var kafkaSink *auditkafka.Publisher
	if cfg.KafkaSeeds != "" {
		kafkaSink, err = auditkafka.New(ctx, cfg.KafkaSeeds, cfg.AuditTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaSink.Close()
		// With Postgres the outbox worker owns delivery; without it the
		// sink publishes best-effort straight from Emit.
		if pgAuditOutbox == nil {
			publisherOpts = append(publisherOpts, audit.WithSink(kafkaSink))
		}
		log.Info("audit feed fan-out enabled", "topic", cfg.AuditTopic)
	}
	feed := audit.NewPublisher(auditStore, publisherOpts...)

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Domain wiring.
	m := metrics.New()
	roles := access.NewRoles(cfg.OwnerHandle, cfg.VerifierHandle, feed)
	ledger := treasury.NewLedger()
	if cfg.OwnerInitialBalance > 0 {
		ledger.Credit(cfg.OwnerHandle, cfg.OwnerInitialBalance)
	}

	identitySvc := identityservice.New(accounts, roles,
		identityservice.WithAuditPublisher(feed),
		identityservice.WithMetrics(m),
		identityservice.WithLogger(log))
	verificationSvc := verificationservice.New(records, accounts, roles,
		verificationservice.WithAuditPublisher(feed),
		verificationservice.WithMetrics(m),
		verificationservice.WithLogger(log),
		verificationservice.WithTxRunner(runner))
	fundSvc := fundservice.New(pools, accounts, ledger, roles,
		fundservice.WithAuditPublisher(feed),
		fundservice.WithMetrics(m),
		fundservice.WithLogger(log),
		fundservice.WithTxRunner(runner))

	router := httpapi.NewRouter(httpapi.Deps{
		Identity:     identityhandler.New(identitySvc, log),
		Verification: verificationhandler.New(verificationSvc, log),
		Fund: fundhandler.New(fundSvc, log,
			fundhandler.WithPoolCache(fundhandler.NewPoolCache(redisClient, cfg.PoolSnapshotTTL))),
		Admin:         adminhandler.New(roles, log),
		AuditFeed:     feed,
		JWTSigningKey: cfg.JWTSigningKey,
		Logger:        log,
	})
	server := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr, "owner", cfg.OwnerHandle)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if pgAuditOutbox != nil && kafkaSink != nil {
		outbox := auditworker.New(pgAuditOutbox, kafkaSink, log)
		g.Go(func() error {
			if err := outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audit outbox worker: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

// identityAccountStore is the union of what the identity, verification, and
// fund services need from account storage.
type identityAccountStore interface {
	identityservice.AccountStore
	verificationservice.AccountStore
	fundservice.AccountStore
}
