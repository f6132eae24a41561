package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wfunc/gombiful/catalog"
	"github.com/wfunc/gombiful/config"
	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/monitor"
	"github.com/wfunc/gombiful/persistence"
	"github.com/wfunc/gombiful/server"
	"github.com/wfunc/gombiful/services"
	"github.com/wfunc/gombiful/store"
	"github.com/wfunc/gombiful/timer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WebSocket game server and the admin RPC service",
	RunE:  runServe,
}

type reaper interface {
	Reap(ctx context.Context) (int, error)
}

// backend is the document store plus the results archive for a driver.
type backend struct {
	store   store.Store
	archive store.Archive
	reaper  reaper
	close   func() error
}

func openBackend(c *config.Config) (*backend, error) {
	switch c.Store.Driver {
	case config.DriverPostgres:
		db, err := persistence.NewGormPostgreSQL(c.PostgresOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Log.Info("Database connection successful.")
		return &backend{store: db, archive: db, reaper: db, close: db.Close}, nil
	default:
		mem := store.NewMemoryStore(c.Store.IdleTimeout)
		return &backend{
			store:   mem,
			archive: store.NewMemoryArchive(),
			reaper:  mem,
			close:   func() error { return nil },
		}, nil
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	songs, err := catalog.LoadFile(cfg.Game.CatalogPath)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	be, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer be.close()

	timers := timer.NewManager()
	defer timers.Stop()
	if cfg.Store.ReapInterval > 0 {
		timers.AddTimer(cfg.Store.ReapInterval, cfg.Store.ReapInterval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := be.reaper.Reap(ctx); err != nil {
				logger.Log.Warnf("Reaping idle games failed: %v", err)
			}
		})
	}

	gameServer, err := server.NewGameServer(server.Options{
		Addr:        cfg.Server.HTTPAddress,
		RPCAddr:     cfg.Server.RPCAddress,
		PublicURL:   cfg.Server.PublicURL,
		Store:       be.store,
		Settings:    cfg.GameSettings(),
		Catalog:     songs,
		Results:     services.NewResultsService(be.archive),
		Monitor:     monitor.NewMonitor(cfg.Server.MetricsNamespace),
		Timers:      timers,
		Heartbeat:   cfg.Game.HeartbeatInterval,
		ReadTimeout: cfg.Server.ReadTimeout,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("Starting game server on %s (%s store, %d songs)", cfg.Server.HTTPAddress, cfg.Store.Driver, len(songs))
		errCh <- gameServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Log.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return gameServer.Shutdown(ctx)
}
