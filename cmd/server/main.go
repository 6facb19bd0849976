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
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"regverify/internal/platform/config"
	"regverify/internal/platform/httpserver"
	"regverify/internal/platform/logger"
	platformredis "regverify/internal/platform/redis"
	"regverify/internal/proxy"
	"regverify/internal/registry/sacs"
	"regverify/internal/registry/seniat"
	"regverify/internal/retry"
	"regverify/internal/session"
	"regverify/internal/storage"
	"regverify/internal/storage/backend"
	storagememory "regverify/internal/storage/memory"
	storagepostgres "regverify/internal/storage/postgres"
	"regverify/internal/verification/handler"
	"regverify/internal/verification/metrics"
	"regverify/internal/verification/service"
)

// main wires the verification service: session store, portal drivers, outcome
// storage, HTTP surface. Business logic lives in the internal packages.
func main() {
	if err := run(); err != nil {
		slog.Error("service exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	egress, err := proxy.FromConfig(cfg.Proxy)
	if err != nil {
		return fmt.Errorf("proxy configuration: %w", err)
	}
	if egress.Enabled() {
		log.Info("outbound egress proxied", "server", egress.Server)
	}

	// Session store: Redis when configured so replicas share challenge
	// sessions, otherwise process-local.
	var sessions session.Store
	var memSessions *session.InMemoryStore
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = session.NewRedis(redisClient.Client, cfg.SessionTTL)
		log.Info("session store", "kind", "redis")
	} else {
		memSessions = session.NewMemory(cfg.SessionTTL)
		sessions = memSessions
		log.Info("session store", "kind", "memory")
	}

	audits, profiles, cleanup, err := buildStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	m := metrics.New()
	policy := retry.DefaultPolicy()

	taxpayerDriver := seniat.NewChromeDriver(cfg.Portal, egress)
	professionalDriver := sacs.NewChromeDriver(cfg.Portal, egress)

	svc := service.New(
		seniat.NewOrchestrator(taxpayerDriver, sessions, policy, log),
		seniat.NewExecutor(taxpayerDriver, sessions, policy, log),
		sacs.NewScraper(professionalDriver, policy, log),
		audits, profiles, m, log,
	)

	router := chi.NewRouter()
	h := handler.New(svc, log, cfg.RequestTimeout)
	if redisClient != nil {
		h.AddHealthCheck("redis", redisClient)
	}
	h.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting registry verification service", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if memSessions != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					swept := memSessions.Sweep(ctx)
					if n, err := memSessions.Len(ctx); err == nil {
						m.SetActiveSessions(n)
					}
					if swept > 0 {
						log.Debug("swept expired sessions", "count", swept)
					}
				}
			}
		})
	}

	return g.Wait()
}

// buildStorage picks the outcome persistence backend: PostgreSQL when a
// database is configured, the owning backend's API when one is configured,
// in-memory otherwise.
func buildStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (storage.AuditStore, storage.ProfileStore, func(), error) {
	noop := func() {}

	switch {
	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, noop, fmt.Errorf("ping database: %w", err)
		}
		if err := storagepostgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, noop, err
		}
		log.Info("outcome storage", "kind", "postgres")
		return storagepostgres.NewAuditStore(db), storagepostgres.NewProfileStore(db),
			func() { db.Close() }, nil

	case cfg.Backend.BaseURL != "":
		client := backend.New(cfg.Backend.BaseURL, cfg.Backend.ServiceToken)
		log.Info("outcome storage", "kind", "backend", "base_url", cfg.Backend.BaseURL)
		return client, client, noop, nil

	default:
		log.Info("outcome storage", "kind", "memory")
		return storagememory.NewAuditStore(), storagememory.NewProfileStore(), noop, nil
	}
}
