// Package service runs reconstruction passes against a provenance source
// and hands each finalized snapshot to the publisher and snapshot store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/provgraph/commit"
	"github.com/c360studio/provgraph/graph"
	"github.com/c360studio/provgraph/provenance"
	"github.com/c360studio/provgraph/source"
	"github.com/c360studio/provgraph/vocabulary/prov"
	"github.com/c360studio/provgraph/watch"
)

// GraphPublisher publishes a finalized graph. *graph.Publisher satisfies it.
type GraphPublisher interface {
	Publish(ctx context.Context, g *graph.Graph, commits commit.Map, current string) (int, error)
}

// SnapshotSaver persists a finalized snapshot. *storage.SnapshotStore
// satisfies it.
type SnapshotSaver interface {
	Save(ctx context.Context, graph string, snap *provenance.Snapshot) (uint64, error)
}

// FailureRecorder counts failed fetches. *metrics.Collector satisfies it.
type FailureRecorder interface {
	FetchFailed(reason string)
}

// Status reports the outcome of the most recent refresh.
type Status struct {
	LastRefresh time.Time `json:"last_refresh,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	InFlight    int64     `json:"in_flight"`
}

// Service owns the session and runs passes on demand.
type Service struct {
	src       source.Source
	session   *provenance.Session
	graphIRI  string
	publisher GraphPublisher
	store     SnapshotSaver
	failures  FailureRecorder
	logger    *slog.Logger

	inFlight atomic.Int64
	wg       sync.WaitGroup

	mu     sync.RWMutex
	status Status
}

// Option configures a Service.
type Option func(*Service)

// WithGraph sets the graph IRI snapshots are stored under.
func WithGraph(iri string) Option {
	return func(s *Service) {
		if iri != "" {
			s.graphIRI = iri
		}
	}
}

// WithPublisher publishes every accepted snapshot.
func WithPublisher(p GraphPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithStore saves every accepted snapshot.
func WithStore(store SnapshotSaver) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithFailureRecorder records fetch failures.
func WithFailureRecorder(f FailureRecorder) Option {
	return func(s *Service) {
		s.failures = f
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a service reading from src into session.
func New(src source.Source, session *provenance.Session, opts ...Option) *Service {
	s := &Service{
		src:      src,
		session:  session,
		graphIRI: prov.ProvenanceGraph,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns the session the service feeds.
func (s *Service) Session() *provenance.Session {
	return s.session
}

// Status returns the outcome of the most recent refresh.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.InFlight = s.inFlight.Load()
	return st
}

// Refresh fetches the document and runs a pass over it. The pass token
// is issued before the fetch, so a refresh started later wins even if
// its fetch returns first. A refresh whose fetch fails abandons its
// token and supersedes nothing.
func (s *Service) Refresh(ctx context.Context) (*provenance.Snapshot, error) {
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	pass := s.session.Begin()
	logger := s.logger.With("pass", pass.String())

	doc, err := s.src.Fetch(ctx)
	if err != nil {
		s.session.Abandon(pass)
		if s.failures != nil {
			s.failures.FetchFailed(source.Reason(err))
		}
		logger.Warn("Failed to fetch provenance document", "error", err)
		s.record(err)
		return nil, err
	}

	var accepted *provenance.Snapshot
	onSuccess := func(snap *provenance.Snapshot) {
		accepted = snap
	}

	if !doc.Found {
		logger.Info("No provenance graph yet, showing empty history", "origin", doc.Origin)
		err = s.session.Empty(pass, onSuccess)
	} else {
		err = s.session.Run(pass, doc.Reader(), onSuccess, func(err error) {
			logger.Error("Provenance document rejected", "origin", doc.Origin, "error", err)
		})
	}
	if errors.Is(err, provenance.ErrStalePass) {
		return nil, err
	}
	s.record(err)
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, accepted)
	return accepted, nil
}

// RefreshAsync starts a refresh in the background.
func (s *Service) RefreshAsync(ctx context.Context, reason string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, provenance.ErrStalePass) {
			s.logger.Debug("Background refresh failed", "reason", reason, "error", err)
		}
	}()
}

// Wait blocks until background refreshes have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Run starts a refresh for every event on triggers until ctx is done or
// every trigger channel is closed.
func (s *Service) Run(ctx context.Context, triggers ...<-chan watch.Event) {
	merged := make(chan watch.Event)
	var wg sync.WaitGroup
	for _, ch := range triggers {
		wg.Add(1)
		go func(ch <-chan watch.Event) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					select {
					case merged <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			s.Wait()
			return
		case ev, ok := <-merged:
			if !ok {
				s.Wait()
				return
			}
			s.logger.Info("Provenance change detected", "reason", ev.Reason, "paths", ev.Paths)
			s.RefreshAsync(ctx, ev.Reason)
		}
	}
}

func (s *Service) record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastRefresh = time.Now()
	s.status.LastError = ""
	if err != nil {
		s.status.LastError = err.Error()
	}
}

// deliver hands an accepted snapshot to the optional collaborators.
// Their failures are logged; the snapshot stays accepted.
func (s *Service) deliver(ctx context.Context, snap *provenance.Snapshot) {
	if snap == nil {
		return
	}
	if s.publisher != nil {
		if n, err := s.publisher.Publish(ctx, snap.Graph, snap.Commits, snap.CurrentVersion); err != nil {
			s.logger.Warn("Failed to publish provenance entities", "published", n, "error", err)
		}
	}
	if s.store != nil {
		if rev, err := s.store.Save(ctx, s.graphIRI, snap); err != nil {
			s.logger.Warn("Failed to store provenance snapshot", "error", err)
		} else {
			s.logger.Debug("Stored provenance snapshot", "revision", rev)
		}
	}
}
