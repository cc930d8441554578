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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-points-relay/internal/config"
	"github.com/0gfoundation/0g-points-relay/internal/events"
	"github.com/0gfoundation/0g-points-relay/internal/payment"
	"github.com/0gfoundation/0g-points-relay/internal/relay"
	"github.com/0gfoundation/0g-points-relay/internal/scheduler"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}
	policy, err := events.ParsePolicy(cfg.Collector.Checkpoint)
	if err != nil {
		log.Fatal("invalid checkpoint policy", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Relay client ──────────────────────────────────────────────────────────
	client := relay.NewClient(cfg.Relay.URL, cfg.Relay.SaveURL,
		relay.WithTimeout(time.Duration(cfg.Relay.TimeoutMs)*time.Millisecond),
		relay.WithRateLimit(cfg.Relay.MaxRPS),
	)

	// ── Storage (Redis when configured, memory otherwise) ─────────────────────
	var (
		cp    events.Checkpoint
		store payment.Store = payment.NewMemoryStore()
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis ping failed", zap.Error(err))
		}
		defer rdb.Close()
		cp = events.NewRedisCheckpoint(rdb, cfg.Collector.Name)
		store = payment.NewRedisStore(rdb)
	}

	// ── Collector ─────────────────────────────────────────────────────────────
	tracker := payment.NewTracker(store, log)
	m := newMetrics()
	collector := events.NewCollector(client, newHandler(tracker, m, log), cp, policy, log)
	m.watchWatermark(collector)
	sched := scheduler.New("collector:"+cfg.Collector.Name, collector,
		time.Duration(cfg.Collector.IntervalMs)*time.Millisecond, log)
	sched.Start(ctx)

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: newRouter(collector, sched, tracker, m),
	}

	go func() {
		log.Info("HTTP server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("relay", cfg.Relay.URL),
			zap.String("checkpoint", string(policy)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("shutting down...")
	sched.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("shutdown complete", zap.Uint64("watermark", collector.Watermark()))
}
