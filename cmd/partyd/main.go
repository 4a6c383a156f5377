// Package main provides the entry point for the party room server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qrparty/partyroom/internal/action"
	"github.com/qrparty/partyroom/internal/api"
	"github.com/qrparty/partyroom/internal/config"
	"github.com/qrparty/partyroom/internal/feed"
	"github.com/qrparty/partyroom/internal/logging"
	"github.com/qrparty/partyroom/internal/spawn"
	"github.com/qrparty/partyroom/internal/store"
)

const version = "0.1.0"

// rateLimitPruneInterval is how often expired rate-limit rows are swept.
const rateLimitPruneInterval = 10 * time.Minute

func main() {
	configPath := flag.String("config", "partyroom.json", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogPath, *debug)
	defer logger.Sync()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatalw("failed to open database", "path", cfg.DBPath, "error", err)
	}
	defer db.Close()

	hub := feed.NewHub(feed.WithLogger(logger))
	go hub.Run()

	alloc := spawn.New(spawn.Config{
		Margin:   cfg.SpawnMargin,
		MinDist:  cfg.SpawnMinDist,
		MaxTries: cfg.SpawnMaxTries,
	})

	processor := action.New(db,
		action.WithHub(hub),
		action.WithAllocator(alloc),
		action.WithLogger(logger),
		action.WithRateLimit(time.Duration(cfg.RateWindowSec)*time.Second, cfg.RateMaxHits),
	)

	limiter := api.NewRateLimiter(api.DefaultRateLimiterConfig())
	defer limiter.Stop()

	host := "127.0.0.1"
	if cfg.LanEnabled {
		host = "0.0.0.0"
	}
	addr := fmt.Sprintf("%s:%d", host, cfg.Port)

	server := api.NewServer(addr, processor, db,
		api.WithHub(hub),
		api.WithRateLimiter(limiter),
		api.WithCORS(api.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}),
		api.WithLogger(logger),
		api.WithVersion(version),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic sweep of expired rate-limit rows.
	go func() {
		ticker := time.NewTicker(rateLimitPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := db.PruneRateLimits(ctx, time.Hour, time.Now())
				if err != nil {
					logger.Warnw("rate limit prune failed", "error", err)
				} else if deleted > 0 {
					logger.Debugw("pruned rate limit rows", "deleted", deleted)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("party room server listening", "addr", addr, "version", version)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-done:
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Errorw("server error", "error", err)
		os.Exit(1)
	}

	cancel()
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
