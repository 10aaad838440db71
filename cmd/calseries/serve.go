package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cyp0633/calseries/config"
	"github.com/cyp0633/calseries/server"
	authmem "github.com/cyp0633/calseries/server/auth/memory"
	"github.com/cyp0633/calseries/server/recurrence"
	"github.com/cyp0633/calseries/server/series"
	"github.com/cyp0633/calseries/server/storage"
	"github.com/cyp0633/calseries/server/storage/memory"
	"github.com/cyp0633/calseries/server/storage/sqlite"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the series HTTP API.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "calseries.yaml",
				EnvVars: []string{"CALSERIES_CONFIG"},
				Usage:   "Path to the YAML config; written with defaults if missing.",
			},
			&cli.StringFlag{Name: "listen", Usage: "Override the listen address."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if listen := c.String("listen"); listen != "" {
				cfg.Listen = listen
			}
			logger := setupLogger(logLevelFromEnv(cfg.LogLevel))

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, logger)
		},
	}
}

// openStore returns the configured document store and a function releasing it
func openStore(cfg *config.Config) (storage.Store, func() error, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o700); err != nil {
			return nil, nil, err
		}
		db, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store %s: %w", cfg.Store.Path, err)
		}
		return db, db.Close, nil
	default:
		return memory.New(), func() error { return nil }, nil
	}
}

func newAuthenticator(cfg *config.Config, logger *slog.Logger) (*authmem.Store, error) {
	users := authmem.New(authmem.WithLogger(logger))
	for _, u := range cfg.Users {
		err := users.AddUser(authmem.User{
			Username: u.Username,
			Password: u.Password,
			Handle:   u.Handle,
			ReadOnly: u.ReadOnly,
		})
		if err != nil {
			return nil, fmt.Errorf("invalid user %q: %w", u.Username, err)
		}
	}
	return users, nil
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	kv, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	engineConfig := cfg.EngineConfig()
	engineConfig.Logger = logger
	engine := recurrence.NewEngineWithConfig(engineConfig)
	defer engine.Close()

	store := series.NewDocumentStore(kv,
		series.WithStoreLogger(logger),
		series.WithDeleteConcurrency(cfg.DeleteConcurrency))
	svc := series.NewService(store, engine,
		series.WithLogger(logger),
		series.WithBatchLimit(cfg.BatchLimit))

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithBasePath(cfg.BasePath),
		server.WithLocation(loc),
	}
	if len(cfg.Users) > 0 {
		users, err := newAuthenticator(cfg, logger)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithAuthenticator(users, cfg.Realm))
	} else {
		logger.Warn("no users configured; write routes will answer 401")
	}

	handler, err := server.New(svc, opts...)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting series server", "addr", cfg.Listen, "base_path", cfg.BasePath, "store", cfg.Store.Driver)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down series server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
