package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordercloud-storefront/internal/config"
	"ordercloud-storefront/internal/db"
	"ordercloud-storefront/internal/httpserver"
	"ordercloud-storefront/internal/migrate"
	"ordercloud-storefront/internal/ordercloud"
	sessionrepo "ordercloud-storefront/internal/repository/session"
	cartsvc "ordercloud-storefront/internal/service/cart"
	sessionsvc "ordercloud-storefront/internal/service/session"
)

const purgeInterval = time.Hour

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	if cfg.OrderCloudClientID == "" {
		logger.Fatalf("ORDERCLOUD_CLIENT_ID is required")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, ready, closeStore := openSessionStore(ctx, cfg, logger)
	defer closeStore()

	client := ordercloud.New(ordercloud.Options{
		BaseURL:  cfg.OrderCloudURL,
		ClientID: cfg.OrderCloudClientID,
		Scope:    cfg.OrderCloudScope,
		Timeout:  cfg.RemoteTimeout,
		Logger:   logger,
	})
	sessionService := sessionsvc.New(client, store, cfg.SessionTTL, logger)
	cartService := cartsvc.New(store, client, client, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Sessions:       sessionService,
		Cart:           cartService,
		Identity:       client,
		Ready:          ready,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

// openSessionStore connects the configured SESSION_BACKEND. The returned pinger
// is nil for the in-process backend.
func openSessionStore(ctx context.Context, cfg config.Config, logger *log.Logger) (sessionrepo.Repository, httpserver.Pinger, func()) {
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		logger.Printf("session backend: memory (sessions are lost on restart)")
		return sessionrepo.NewMemory(), nil, func() {}

	case config.SessionBackendRedis:
		rdb, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		logger.Printf("session backend: redis at %s", cfg.RedisAddr)
		repo := sessionrepo.NewRedis(rdb, logger, cfg.SessionTTL)
		return repo, repo, func() { _ = rdb.Close() }

	case config.SessionBackendPostgres:
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			logger.Fatalf("connect to db: %v", err)
		}
		if err := migrate.Apply(ctx, pool); err != nil {
			pool.Close()
			logger.Fatalf("apply migrations: %v", err)
		}
		repo := sessionrepo.NewPostgres(pool, logger, cfg.SessionTTL)
		go purgeLoop(ctx, repo, logger)
		logger.Printf("session backend: postgres")
		return repo, pool, pool.Close

	default:
		logger.Fatalf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
		return nil, nil, nil
	}
}

func purgeLoop(ctx context.Context, repo *sessionrepo.PostgresRepo, logger *log.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := repo.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
				logger.Printf("purge expired sessions: %v", err)
			}
		}
	}
}
