// Command api serves the Madera Precisa storefront: catalog, checkout,
// order tracking, contact forms and cut plans.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"madera-precisa/internal/config"
	"madera-precisa/internal/database"
	"madera-precisa/internal/logger"
	"madera-precisa/internal/repository"
	"madera-precisa/internal/repository/memory"
	"madera-precisa/internal/server"
	"madera-precisa/internal/service"
	"madera-precisa/migrations"

	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, zap.String("command", "api"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Storefront API stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Graceful shutdown complete")
}

// run serves until ctx is cancelled, then drains in-flight requests and
// releases the store, Redis and Kafka.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting Madera Precisa storefront API",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
	)

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	if cfg.Store.SeedData {
		catalog := service.NewCatalogService(store.Categories(), store.Products(), log)
		seeded, err := service.SeedCatalog(ctx, catalog, log)
		if err != nil {
			store.Close()
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
		log.Info("Catalog seed checked", zap.Bool("seeded", seeded))
	}

	srv, err := server.NewServer(cfg, log, store)
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Error("Error closing server resources", zap.Error(err))
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down, draining requests", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// openStore returns the store selected by STORE_DRIVER
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		log.Info("Using in-memory store")
		return memory.New(), nil

	case "postgres":
		dbService, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		log.Info("Database health check", zap.Any("health", dbService.Health(ctx)))

		if err := database.RunMigrations(ctx, dbService.DB(), migrations.FS, log); err != nil {
			dbService.Close()
			return nil, err
		}
		return repository.NewPostgresStore(dbService.DB()), nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
}
