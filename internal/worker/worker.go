// Package worker implements the per-monitor probe-to-event pipeline (C5):
// pick an agent, probe, fail over once on transport error, verify an adverse
// result through a second agent, append an event on state change, throttle an
// alert, and record the run's time once a probe result was obtained.
package worker

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/watchtower/controlplane/internal/agentpool"
	"github.com/watchtower/controlplane/internal/alertthrottle"
	"github.com/watchtower/controlplane/internal/detector"
	"github.com/watchtower/controlplane/internal/metrics"
	"github.com/watchtower/controlplane/internal/model"
	"github.com/watchtower/controlplane/internal/probeclient"
	"github.com/watchtower/controlplane/internal/store"
)

// EventBroadcaster is implemented by the read API's websocket hub; the
// worker calls it fire-and-forget whenever it appends an event or queues an
// alert, so live dashboards never block the pipeline.
type EventBroadcaster interface {
	BroadcastEvent(e *model.UptimeEvent)
	BroadcastAlert(a *model.Alert)
}

// Worker runs the C5 sequence for one monitor at a time.
type Worker struct {
	Store    store.Store
	Pool     *agentpool.Pool
	Probe    *probeclient.Client
	Throttle *alertthrottle.Manager
	Bus      EventBroadcaster // may be nil
}

// New constructs a Worker from its collaborators.
func New(st store.Store, pool *agentpool.Pool, probe *probeclient.Client, throttle *alertthrottle.Manager, bus EventBroadcaster) *Worker {
	return &Worker{Store: st, Pool: pool, Probe: probe, Throttle: throttle, Bus: bus}
}

// Run executes one pass of the C5 sequence for monitor m at time now (unix
// millis). updatedAt is always bumped by the caller's DueMonitors claim;
// Run additionally calls TouchMonitor at the end of a run that obtained a
// probe result. It does not touch the monitor when no agent is available or
// when the primary and the failover agent both fail.
func (w *Worker) Run(ctx context.Context, m *model.Monitor, now int64) error {
	last, err := w.Store.LatestEvent(m.ID)
	if err != nil {
		return err
	}

	primary, err := w.Pool.Next()
	if err != nil {
		if errors.Is(err, agentpool.ErrNoAgents) {
			log.Printf("[worker] monitor %s: no agents available, skipping", m.ID)
			return nil
		}
		return err
	}

	result, usedAgent, err := w.probeWithFailover(ctx, m, primary)
	if err != nil {
		log.Printf("[worker] monitor %s: probe failed on all agents: %v", m.ID, err)
		return nil
	}
	metrics.ProbesIssued.WithLabelValues(string(m.Kind)).Inc()
	metrics.ProbeLatency.WithLabelValues(string(m.Kind)).Observe(float64(result.LatencyMS) / 1000)

	candidate := &model.UptimeEvent{
		MonitorID:        m.ID,
		UserID:           m.UserID,
		Kind:             m.Kind,
		Timestamp:        now,
		Availability:     result.Availability,
		Ping:             result.Ping,
		Port:             result.Port,
		ResponseTime:     result.LatencyMS,
		ConfirmedByAgent: usedAgent.URL,
		Reason:           probeReason(result),
	}

	// Adverse results are verified through a second, independent agent before
	// being trusted; verification only ever overwrites Availability, per the
	// documented (if narrow) behavior this implementation preserves.
	if candidate.IsAdverse(m.Kind) {
		if verifier, vErr := w.Pool.Other(usedAgent.ID); vErr == nil {
			if vr, pErr := w.Probe.Probe(ctx, verifier.URL, m.Kind, m.URL, m.DefaultPort()); pErr == nil {
				candidate.Availability = vr.Availability
				candidate.ConfirmedByAgent = verifier.URL
			}
		}
	}

	if detector.ShouldAppend(m.Kind, candidate, last) {
		if last != nil && last.EndTime == 0 {
			if err := w.Store.CloseEvent(last.ID, now); err != nil {
				return err
			}
		}
		if err := w.Store.AppendEvent(candidate); err != nil {
			return err
		}
		if w.Bus != nil {
			w.Bus.BroadcastEvent(candidate)
		}
		metrics.EventsAppended.WithLabelValues(string(m.Kind)).Inc()
	}

	// C4 is consulted whenever the (possibly re-verified) result is adverse,
	// independent of whether this tick appended a new event: an outage that
	// persists across many ticks must keep re-alerting on its own cadence,
	// not fire exactly once on the tick the state first changed.
	if candidate.IsAdverse(m.Kind) {
		queues := m.HasOwner() && alertthrottle.ShouldAlert(m, now)
		if fireErr := w.Throttle.Fire(m, now); fireErr != nil {
			return fireErr
		}
		if queues {
			metrics.AlertsEmitted.Inc()
		}
	}

	return w.Store.TouchMonitor(m.ID, now)
}

// probeWithFailover probes primary and, on a transport error, retries once
// against a single alternate agent. A transport error on both returns the
// second error; the caller treats this as AgentTransport and skips the tick.
func (w *Worker) probeWithFailover(ctx context.Context, m *model.Monitor, primary model.MonitorAgent) (*probeclient.Result, model.MonitorAgent, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := w.Probe.Probe(probeCtx, primary.URL, m.Kind, m.URL, m.DefaultPort())
	if err == nil {
		return result, primary, nil
	}

	fallback, fbErr := w.Pool.Other(primary.ID)
	if fbErr != nil {
		return nil, model.MonitorAgent{}, err
	}

	fbCtx, fbCancel := context.WithTimeout(ctx, 5*time.Second)
	defer fbCancel()

	result, err = w.Probe.Probe(fbCtx, fallback.URL, m.Kind, m.URL, m.DefaultPort())
	if err != nil {
		return nil, model.MonitorAgent{}, err
	}
	return result, fallback, nil
}

// probeReason renders the primary probe's status/output into the event's
// free-text reason field, preferring the agent's output message over the
// bare status code.
func probeReason(r *probeclient.Result) string {
	if r.Output != "" {
		return r.Output
	}
	if r.StatusCode != 0 {
		return strconv.Itoa(r.StatusCode)
	}
	return ""
}
