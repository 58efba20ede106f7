// Package metrics exposes the control plane's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProbesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "controlplane",
		Name:      "probes_issued_total",
		Help:      "Total number of probe RPCs sent to monitor agents.",
	}, []string{"kind"})

	ProbeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "controlplane",
		Name:      "probe_latency_seconds",
		Help:      "Observed latency of probe RPCs to monitor agents.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	EventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "controlplane",
		Name:      "events_appended_total",
		Help:      "Total number of uptime events appended.",
	}, []string{"kind"})

	AlertsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "controlplane",
		Name:      "alerts_emitted_total",
		Help:      "Total number of alerts queued for delivery.",
	})

	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "controlplane",
		Name:      "scheduler_tick_duration_seconds",
		Help:      "Wall-clock duration of one scheduler bucket tick.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"bucket"})
)
