package provenance

import (
	"io"
	"log/slog"
	"time"

	"github.com/c360studio/provgraph/commit"
	"github.com/c360studio/provgraph/graph"
	"github.com/c360studio/provgraph/statement"
)

// Observer receives pass lifecycle events. The metrics package provides
// the Prometheus implementation.
//
// Every PassStarted is matched by one PassFinished. A pass superseded
// before it finished reports ErrStalePass as its error. PassStale counts
// superseded hand-offs that never started a fold, such as Session.Empty.
type Observer interface {
	PassStarted()
	PassFinished(stats Stats, err error)
	PassStale()
}

type nopObserver struct{}

func (nopObserver) PassStarted() {}

func (nopObserver) PassFinished(Stats, error) {}

func (nopObserver) PassStale() {}

// Option configures reconstruction.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	observer Observer
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver sets the lifecycle observer.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Reconstruct runs a single pass over r and finalizes it with no prior
// selection, so the current version is the last node inserted.
func Reconstruct(r io.Reader, opts ...Option) (*Snapshot, error) {
	o := buildOptions(opts)
	o.observer.PassStarted()

	g, commits, stats, err := fold(r, o.logger)
	o.observer.PassFinished(stats, err)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Graph:          g,
		Commits:        commits,
		CurrentVersion: Finalize(g, ""),
		Stats:          stats,
		FinishedAt:     time.Now(),
	}, nil
}

// Finalize returns the version to treat as current: current itself when
// the application already selected one, otherwise the last node added to g.
func Finalize(g *graph.Graph, current string) string {
	if current != "" {
		return current
	}
	return g.LastNode()
}

// fold runs the statement stream through the assembler and the builder in
// arrival order. On a parse error the partial structures are dropped.
func fold(r io.Reader, logger *slog.Logger) (*graph.Graph, commit.Map, Stats, error) {
	start := time.Now()
	assembler := commit.NewAssembler(logger)
	builder := graph.NewBuilder()

	var (
		stats   Stats
		failure error
	)
	statement.Parse(r,
		func(st statement.Statement) {
			stats.Statements++
			builder.Apply(st, assembler.Fold(st))
		},
		nil,
		func(err error) { failure = err },
	)

	stats.Duration = time.Since(start)
	stats.Discarded = assembler.Discarded()
	if failure != nil {
		logger.Warn("Provenance pass failed",
			"statements", stats.Statements,
			"error", failure)
		return nil, nil, stats, failure
	}

	g := builder.Graph()
	stats.Commits = assembler.Len()
	stats.Nodes = g.NodeCount()
	stats.Edges = g.EdgeCount()

	logger.Debug("Provenance pass complete",
		"statements", stats.Statements,
		"commits", stats.Commits,
		"discarded", stats.Discarded,
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"duration", stats.Duration)

	return g, assembler.Map(), stats, nil
}
