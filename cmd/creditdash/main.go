package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	experianadapter "github.com/odanree/credit-history-app/internal/adapter/driven/experian"
	plaidadapter "github.com/odanree/credit-history-app/internal/adapter/driven/plaid"
	sqliteadapter "github.com/odanree/credit-history-app/internal/adapter/driven/sqlite"
	httphandler "github.com/odanree/credit-history-app/internal/adapter/driving/http"
	"github.com/odanree/credit-history-app/internal/application"
	"github.com/odanree/credit-history-app/internal/config"
	"github.com/odanree/credit-history-app/internal/domain/port/driven"
	"github.com/odanree/credit-history-app/internal/secret"
	"github.com/odanree/credit-history-app/internal/session"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on a missing or malformed key).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"plaid_configured", cfg.HasPlaidCredentials(),
		"experian_configured", cfg.HasExperianCredentials(),
		"cache_enabled", cfg.CacheEnabled(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Credential cipher and session store.
	cipher, err := secret.NewCipher(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	sessions := session.NewStore(cipher, cfg.SessionLifetime, cfg.SecureCookies)

	// 4. Optional snapshot cache (dual reader/writer with WAL mode).
	var snapshots driven.SnapshotStore
	if cfg.CacheEnabled() {
		db, err := sqliteadapter.NewDB(cfg.CachePath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing cache database", "error", closeErr)
			}
		}()
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			return err
		}
		slog.Info("snapshot cache opened", "path", cfg.CachePath, "ttl", cfg.CacheTTL)

		repo := sqliteadapter.NewSnapshotRepo(db, cfg.CacheTTL)
		if purged, err := repo.PurgeExpired(ctx); err == nil && purged > 0 {
			slog.Info("purged expired snapshots", "count", purged)
		}
		snapshots = repo
	}

	// 5. Provider adapters. Either may be absent; its profile section then
	// reports unavailable instead of blocking startup.
	var transactions driven.TransactionsProvider
	if cfg.HasPlaidCredentials() {
		transactions = plaidadapter.NewClient(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnv)
		slog.Info("transactions provider configured", "env", cfg.PlaidEnv)
	} else {
		slog.Info("no transactions provider credentials configured")
	}

	var credit driven.CreditProvider
	if cfg.HasExperianCredentials() {
		credit = experianadapter.NewClient(cfg.ExperianClientID, cfg.ExperianClientSecret, cfg.ExperianEnv)
		slog.Info("credit provider configured", "env", cfg.ExperianEnv)
	} else {
		slog.Info("no credit provider credentials configured")
	}

	// 6. Core profile service.
	profiles := application.NewProfileService(
		transactions,
		credit,
		cfg.ProviderTimeout,
		cfg.TransactionDays,
		slog.Default(),
	)

	// 7. HTTP handler and middleware.
	apiHandler := httphandler.NewHandler(
		profiles,
		sessions,
		snapshots,
		cfg.Consumer,
		httphandler.Options{
			PlaidConfigured:    cfg.HasPlaidCredentials(),
			ExperianConfigured: cfg.HasExperianCredentials(),
			BootstrapToken:     cfg.AccessToken,
			DefaultDays:        cfg.TransactionDays,
			CacheTTL:           cfg.CacheTTL,
		},
		slog.Default(),
	)
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Log startup complete.
	slog.Info("creditdash started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 11. Log shutdown complete.
	slog.Info("shutdown complete")
	return nil
}
