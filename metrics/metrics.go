// Package metrics provides Prometheus collectors for provenance passes.
package metrics

import (
	"errors"

	"github.com/c360studio/provgraph/provenance"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "provgraph"

// Outcome labels for passes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector implements provenance.Observer and records fetch failures.
type Collector struct {
	passes        *prometheus.CounterVec
	stalePasses   prometheus.Counter
	statements    prometheus.Counter
	discarded     prometheus.Counter
	fetchFailures *prometheus.CounterVec
	passDuration  prometheus.Histogram
	activePasses  prometheus.Gauge
	nodes         prometheus.Gauge
	edges         prometheus.Gauge
	commits       prometheus.Gauge
}

// New creates a collector and registers it with reg. A nil registerer
// leaves the collectors unregistered, which tests rely on.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Reconstruction passes by outcome",
		}, []string{"outcome"}),
		stalePasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_passes_total",
			Help:      "Passes dropped because a newer pass started",
		}),
		statements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "Statements read from provenance documents",
		}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discarded_statements_total",
			Help:      "Statements that did not contribute to a commit record",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed provenance document fetches by reason",
		}, []string{"reason"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Time spent folding a provenance document",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		activePasses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_passes",
			Help:      "Passes currently folding statements",
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Versions in the last reconstructed graph",
		}),
		edges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Derivation edges in the last reconstructed graph",
		}),
		commits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "commits",
			Help:      "Commit records in the last reconstructed graph",
		}),
	}

	if reg == nil {
		return c, nil
	}

	var err error
	if c.passes, err = register(reg, c.passes); err != nil {
		return nil, err
	}
	if c.stalePasses, err = register(reg, c.stalePasses); err != nil {
		return nil, err
	}
	if c.statements, err = register(reg, c.statements); err != nil {
		return nil, err
	}
	if c.discarded, err = register(reg, c.discarded); err != nil {
		return nil, err
	}
	if c.fetchFailures, err = register(reg, c.fetchFailures); err != nil {
		return nil, err
	}
	if c.passDuration, err = register(reg, c.passDuration); err != nil {
		return nil, err
	}
	if c.activePasses, err = register(reg, c.activePasses); err != nil {
		return nil, err
	}
	if c.nodes, err = register(reg, c.nodes); err != nil {
		return nil, err
	}
	if c.edges, err = register(reg, c.edges); err != nil {
		return nil, err
	}
	if c.commits, err = register(reg, c.commits); err != nil {
		return nil, err
	}
	return c, nil
}

// register adds col to reg, reusing the collector already registered
// under the same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	err := reg.Register(col)
	if err == nil {
		return col, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return col, err
}

// PassStarted implements provenance.Observer.
func (c *Collector) PassStarted() {
	c.activePasses.Inc()
}

// PassFinished implements provenance.Observer.
func (c *Collector) PassFinished(stats provenance.Stats, err error) {
	c.activePasses.Dec()
	c.statements.Add(float64(stats.Statements))
	c.discarded.Add(float64(stats.Discarded))
	c.passDuration.Observe(stats.Duration.Seconds())

	if errors.Is(err, provenance.ErrStalePass) {
		c.stalePasses.Inc()
		return
	}
	if err != nil {
		c.passes.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	c.passes.WithLabelValues(OutcomeSuccess).Inc()
	c.nodes.Set(float64(stats.Nodes))
	c.edges.Set(float64(stats.Edges))
	c.commits.Set(float64(stats.Commits))
}

// PassStale implements provenance.Observer.
func (c *Collector) PassStale() {
	c.stalePasses.Inc()
}

// FetchFailed records a failed document fetch.
func (c *Collector) FetchFailed(reason string) {
	c.fetchFailures.WithLabelValues(reason).Inc()
}

var _ provenance.Observer = (*Collector)(nil)
