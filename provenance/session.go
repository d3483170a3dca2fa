package provenance

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrStalePass is returned when a pass finishes after a newer one began.
var ErrStalePass = errors.New("provenance pass superseded")

// Session holds the application-wide provenance state: the selected
// current version, the latest accepted snapshot and the pass counter.
// It is safe for concurrent use.
type Session struct {
	logger   *slog.Logger
	observer Observer

	seq atomic.Uint64

	mu      sync.RWMutex
	current string
	latest  *Snapshot
	// live is the sequence of the pass allowed to hand off a snapshot.
	live uint64
	// pending holds passes that were begun and have not ended yet.
	pending map[uint64]struct{}
}

// NewSession creates a session with no current version.
func NewSession(opts ...Option) *Session {
	o := buildOptions(opts)
	return &Session{
		logger:   o.logger,
		observer: o.observer,
		pending:  make(map[uint64]struct{}),
	}
}

// Begin issues a new pass token, superseding every earlier pass.
func (s *Session) Begin() Pass {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Pass{
		ID:        uuid.New(),
		Seq:       s.seq.Add(1),
		StartedAt: time.Now(),
	}
	s.live = p.Seq
	s.pending[p.Seq] = struct{}{}
	return p
}

// Abandon ends p without a hand-off, e.g. when its document could not be
// fetched. If p was the live pass, the newest pass still pending becomes
// live again, so a failed fetch never discards an earlier good pass.
func (s *Session) Abandon(p Pass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, p.Seq)
	if s.live != p.Seq {
		return
	}
	var newest uint64
	for seq := range s.pending {
		newest = max(newest, seq)
	}
	if newest != 0 {
		s.live = newest
	}
}

// IsCurrent reports whether p is the pass allowed to hand off a snapshot:
// the most recently issued one unless that pass was abandoned.
func (s *Session) IsCurrent(p Pass) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLive(p)
}

// isLive requires s.mu.
func (s *Session) isLive(p Pass) bool {
	return p.Seq == s.live
}

// Run reconstructs r as pass p.
//
// On success the current version is selected if none is set yet, the
// snapshot becomes the session's latest, and onSuccess receives it. On a
// parse failure onError receives the error and nothing is exposed. If a
// newer pass began in the meantime neither callback runs and ErrStalePass
// is returned.
func (s *Session) Run(p Pass, r io.Reader, onSuccess func(*Snapshot), onError func(error)) error {
	s.observer.PassStarted()
	g, commits, stats, err := fold(r, s.logger.With("pass", p.String()))

	s.mu.Lock()
	delete(s.pending, p.Seq)
	if !s.isLive(p) {
		s.mu.Unlock()
		// The graph of a superseded pass is never reported.
		s.observer.PassFinished(stats, ErrStalePass)
		s.logger.Info("Dropping superseded provenance pass", "pass", p.String())
		return ErrStalePass
	}
	if err != nil {
		s.mu.Unlock()
		s.observer.PassFinished(stats, err)
		if onError != nil {
			onError(err)
		}
		return err
	}

	s.current = Finalize(g, s.current)
	snap := &Snapshot{
		Pass:           p,
		Graph:          g,
		Commits:        commits,
		CurrentVersion: s.current,
		Stats:          stats,
		FinishedAt:     time.Now(),
	}
	s.latest = snap
	s.mu.Unlock()
	s.observer.PassFinished(stats, nil)

	s.logger.Info("Provenance graph ready",
		"pass", p.String(),
		"commits", stats.Commits,
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"current_version", snap.CurrentVersion)

	if onSuccess != nil {
		onSuccess(snap)
	}
	return nil
}

// Empty accepts an empty snapshot for pass p. It is used when the store
// has no provenance graph yet.
func (s *Session) Empty(p Pass, onSuccess func(*Snapshot)) error {
	s.mu.Lock()
	delete(s.pending, p.Seq)
	if !s.isLive(p) {
		s.mu.Unlock()
		s.observer.PassStale()
		return ErrStalePass
	}
	snap := emptySnapshot(p, s.current)
	s.latest = snap
	s.mu.Unlock()

	if onSuccess != nil {
		onSuccess(snap)
	}
	return nil
}

// Select sets the current version.
func (s *Session) Select(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = version
}

// CurrentVersion returns the selected version, or "" if none.
func (s *Session) CurrentVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Latest returns the most recently accepted snapshot, or nil.
func (s *Session) Latest() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}
