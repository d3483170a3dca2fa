package provenance

import (
	"fmt"
	"time"

	"github.com/c360studio/provgraph/commit"
	"github.com/c360studio/provgraph/graph"
	"github.com/google/uuid"
)

// Pass identifies one reconstruction pass.
type Pass struct {
	ID        uuid.UUID `json:"id"`
	Seq       uint64    `json:"seq"`
	StartedAt time.Time `json:"started_at"`
}

// String returns a short form for logging.
func (p Pass) String() string {
	return fmt.Sprintf("%d/%s", p.Seq, p.ID)
}

// Stats summarises a finished pass.
type Stats struct {
	Statements int           `json:"statements"`
	Commits    int           `json:"commits"`
	Discarded  int           `json:"discarded"`
	Nodes      int           `json:"nodes"`
	Edges      int           `json:"edges"`
	Duration   time.Duration `json:"duration"`
}

// Snapshot is the finalized result of a pass. It is read-only once handed
// out; collaborators keep their own UI state next to it.
type Snapshot struct {
	Pass           Pass
	Graph          *graph.Graph
	Commits        commit.Map
	CurrentVersion string
	Stats          Stats
	FinishedAt     time.Time
}

// Node returns the graph node for version, or nil.
func (s *Snapshot) Node(version string) *graph.Node {
	if s == nil || s.Graph == nil {
		return nil
	}
	return s.Graph.Node(version)
}

// emptySnapshot returns a snapshot with no commits and no versions.
func emptySnapshot(p Pass, current string) *Snapshot {
	return &Snapshot{
		Pass:           p,
		Graph:          graph.New(),
		Commits:        make(commit.Map),
		CurrentVersion: current,
		FinishedAt:     time.Now(),
	}
}
