// Package engine is the control plane's top-level runtime: it wires the
// agent pool, worker pipeline, bucket scheduler, read API, and alert drainer
// together and owns their startup/shutdown order.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/watchtower/controlplane/internal/aggregator"
	"github.com/watchtower/controlplane/internal/agentpool"
	"github.com/watchtower/controlplane/internal/alertdelivery"
	"github.com/watchtower/controlplane/internal/alertthrottle"
	"github.com/watchtower/controlplane/internal/api"
	"github.com/watchtower/controlplane/internal/cache"
	"github.com/watchtower/controlplane/internal/config"
	"github.com/watchtower/controlplane/internal/logbuf"
	"github.com/watchtower/controlplane/internal/probeclient"
	"github.com/watchtower/controlplane/internal/scheduler"
	"github.com/watchtower/controlplane/internal/store"
	"github.com/watchtower/controlplane/internal/worker"
)

// Engine is the fully wired runtime for one control-plane process.
type Engine struct {
	config *config.Config
	store  store.Store

	pool    *agentpool.Pool
	hub     *api.Hub
	cache   *cache.Cache
	logBuf  *logbuf.Buffer
	server  *api.Server
	sched   *scheduler.Scheduler
	drainer *alertdelivery.Drainer

	startTime time.Time
}

// New builds an Engine from configuration. The store must already be open.
func New(cfg *config.Config, st store.Store, logBuf *logbuf.Buffer) (*Engine, error) {
	pool := agentpool.New()
	if err := pool.Refresh(st); err != nil {
		log.Printf("[engine] initial agent pool refresh failed: %v", err)
	}

	redisCache, err := cache.New(redisAddr(cfg), redisPassword(cfg), redisDB(cfg))
	if err != nil {
		return nil, fmt.Errorf("connecting cache: %w", err)
	}

	probe := probeclient.New(cfg.Agents.BearerToken, cfg.Agents.ProbeTimeout)
	throttle := alertthrottle.NewManager(st)
	hub := api.NewHub()
	w := worker.New(st, pool, probe, throttle, hub)

	sched := scheduler.New(st, w)
	drainer := alertdelivery.New(st, cfg.Alerts)
	server := api.New(st, pool, redisCache, hub, logBuf)

	return &Engine{
		config:    cfg,
		store:     st,
		pool:      pool,
		hub:       hub,
		cache:     redisCache,
		logBuf:    logBuf,
		server:    server,
		sched:     sched,
		drainer:   drainer,
		startTime: time.Now(),
	}, nil
}

// Run starts every subsystem and blocks until ctx is cancelled. The
// atomic-claim due-monitor query (§9) means there is no in-memory scheduler
// state to reconcile on startup — a crash mid-tick simply leaves the claimed
// monitors' updated_at at the claim time, picked up again on their next
// natural due window.
func (e *Engine) Run(ctx context.Context) error {
	log.Printf("[engine] starting control plane (data_dir=%s)", e.config.DataDir)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	refreshEvery := e.config.Agents.RefreshEvery
	if refreshEvery <= 0 {
		refreshEvery = 30 * time.Second
	}
	stop := make(chan struct{})
	go e.pool.Run(stop, e.store, refreshEvery, log.Printf)
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	go e.drainer.Run(ctx, 30*time.Second)

	schedDone := make(chan struct{})
	go func() {
		e.sched.Run(ctx)
		close(schedDone)
	}()

	err := e.server.ListenAndServe(ctx, e.config.ListenAddr)

	log.Println("[engine] shutting down...")
	cancel()
	select {
	case <-schedDone:
	case <-time.After(30 * time.Second):
		log.Println("[engine] in-flight workers did not finish within the grace period")
	}
	if e.cache != nil {
		e.cache.Close()
	}
	if closeErr := e.store.Close(); closeErr != nil {
		log.Printf("[engine] error closing store: %v", closeErr)
	}
	return err
}

// Aggregator exposes the read-side projections over this engine's store. The
// CLI commands (e.g. `controlplane status`) go through the HTTP read API
// instead.
func (e *Engine) Aggregator() *aggregator.Aggregator {
	return aggregator.New(e.store)
}

// StartTime reports when this engine instance started.
func (e *Engine) StartTime() time.Time {
	return e.startTime
}

func redisAddr(cfg *config.Config) string {
	if cfg.Redis == nil {
		return ""
	}
	return cfg.Redis.Addr
}

func redisPassword(cfg *config.Config) string {
	if cfg.Redis == nil {
		return ""
	}
	return cfg.Redis.Password
}

func redisDB(cfg *config.Config) int {
	if cfg.Redis == nil {
		return 0
	}
	return cfg.Redis.DB
}
