// Package api is the control plane's read-only HTTP surface (C9): status,
// uptime, history, agents, metrics, and a live event stream. It never
// exposes monitor CRUD — that remains the REST collaborator's job.
package api

import (
	"context"
	"encoding/json"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/watchtower/controlplane/internal/aggregator"
	"github.com/watchtower/controlplane/internal/agentpool"
	"github.com/watchtower/controlplane/internal/cache"
	"github.com/watchtower/controlplane/internal/logbuf"
	"github.com/watchtower/controlplane/internal/store"
	"github.com/watchtower/controlplane/internal/web"
)

// Server serves the read API described by §6.2.
type Server struct {
	store store.Store
	agg   *aggregator.Aggregator
	pool  *agentpool.Pool
	cache *cache.Cache
	hub   *Hub
	logBuf *logbuf.Buffer

	httpServer *http.Server
}

// New constructs a Server. hub may be nil if the caller doesn't want a live
// event stream wired; logBuf may be nil to disable the log endpoint.
func New(st store.Store, pool *agentpool.Pool, c *cache.Cache, hub *Hub, logBuf *logbuf.Buffer) *Server {
	s := &Server{
		store:  st,
		agg:    aggregator.New(st),
		pool:   pool,
		cache:  c,
		hub:    hub,
		logBuf: logBuf,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/monitors/{id}/uptime", s.handleUptime)
		r.Get("/monitors/{id}/history", s.handleHistory)
		r.Get("/downtime/latest", s.handleLatestDowntime)
		r.Get("/agents", s.handleAgents)
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
		r.Get("/logs", s.handleLogs)
		if hub != nil {
			r.Get("/stream/events", hub.ServeHTTP)
		}
	})

	if staticFS, err := web.StaticFS(); err == nil {
		r.Handle("/*", spaHandler(staticFS))
	}

	s.httpServer = &http.Server{
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// ListenAndServe starts the server on addr and blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer.Addr = addr
	log.Printf("[api] read API listening on %s", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// spaHandler serves static files from the embedded FS, falling back to
// index.html for unknown paths so client-side routing keeps working.
func spaHandler(root fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "index.html"
		} else {
			path = path[1:]
		}
		if _, err := fs.Stat(root, path); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
