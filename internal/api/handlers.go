package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/watchtower/controlplane/internal/model"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")

	cacheKey := fmt.Sprintf("status:%s", userID)
	var stats model.MonitoringStats
	if hit, _ := s.cache.Get(r.Context(), cacheKey, &stats); hit {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	result, err := s.agg.Stats(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = s.cache.Set(r.Context(), cacheKey, result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleUptime(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	days := 7.0
	if d := r.URL.Query().Get("days"); d != "" {
		if v, err := strconv.ParseFloat(d, 64); err == nil && v > 0 {
			days = v
		}
	}

	cacheKey := fmt.Sprintf("uptime:%s:%g", id, days)
	var report model.UptimeReport
	if hit, _ := s.cache.Get(r.Context(), cacheKey, &report); hit {
		writeJSON(w, http.StatusOK, report)
		return
	}

	result, err := s.agg.Uptime(id, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = s.cache.Set(r.Context(), cacheKey, result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var before int64
	if b := r.URL.Query().Get("before"); b != "" {
		before, _ = strconv.ParseInt(b, 10, 64)
	}

	events, err := s.agg.History(id, before)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []model.UptimeEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleLatestDowntime(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")

	event, err := s.agg.LatestDowntime(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "no downtime recorded")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.ListMonitorAgents(model.AgentTypeMonitor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if agents == nil {
		agents = []model.MonitorAgent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logBuf == nil {
		writeError(w, http.StatusServiceUnavailable, "log buffer not available")
		return
	}

	n := 100
	if v := r.URL.Query().Get("lines"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}
	component := r.URL.Query().Get("component")

	entries := s.logBuf.Last(n, component)
	if entries == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
