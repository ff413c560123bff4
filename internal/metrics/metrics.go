// Package metrics exposes scheduler counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	CyclesTotal      *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	PostsResolved    *prometheus.CounterVec
	PublishDuration  *prometheus.HistogramVec
	OptimizerLookups *prometheus.CounterVec
}

// NewCollector builds the scheduler metrics and registers them with reg.
// A nil reg leaves them unregistered, which tests rely on.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_dispatch_cycles_total",
			Help: "Dispatch cycles by outcome (completed, rejected, aborted).",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_dispatch_cycle_duration_seconds",
			Help:    "Wall time of completed dispatch cycles.",
			Buckets: prometheus.DefBuckets,
		}),
		PostsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_posts_resolved_total",
			Help: "Posts moved out of pending, by final status.",
		}, []string{"status"}),
		PublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scheduler_publish_duration_seconds",
			Help:    "Duration of single platform publish calls.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"platform_type", "result"}),
		OptimizerLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optimizer_lookups_total",
			Help: "Posting time optimizer lookups by result (hit, recompute).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(c.CyclesTotal, c.CycleDuration, c.PostsResolved, c.PublishDuration, c.OptimizerLookups)
	}
	return c
}

func (c *Collector) CycleOutcome(outcome string) {
	if c == nil {
		return
	}
	c.CyclesTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveCycle(seconds float64) {
	if c == nil {
		return
	}
	c.CycleDuration.Observe(seconds)
}

func (c *Collector) PostResolved(status string) {
	if c == nil {
		return
	}
	c.PostsResolved.WithLabelValues(status).Inc()
}

func (c *Collector) ObservePublish(platformType, result string, seconds float64) {
	if c == nil {
		return
	}
	c.PublishDuration.WithLabelValues(platformType, result).Observe(seconds)
}

func (c *Collector) OptimizerLookup(result string) {
	if c == nil {
		return
	}
	c.OptimizerLookups.WithLabelValues(result).Inc()
}
