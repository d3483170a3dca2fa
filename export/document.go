package export

import (
	"errors"
	"sort"
	"time"

	"github.com/c360studio/provgraph/commit"
	"github.com/c360studio/provgraph/graph"
	"github.com/c360studio/provgraph/provenance"
)

// Document is the JSON view of a snapshot handed to the UI.
type Document struct {
	Pass           string           `json:"pass"`
	CurrentVersion string           `json:"current_version,omitempty"`
	Nodes          []NodeView       `json:"nodes"`
	Edges          []graph.Edge     `json:"edges"`
	Commits        []CommitView     `json:"commits"`
	Order          []string         `json:"order"`
	Roots          []string         `json:"roots"`
	Leaves         []string         `json:"leaves"`
	Cyclic         bool             `json:"cyclic,omitempty"`
	Stats          provenance.Stats `json:"stats"`
	FinishedAt     time.Time        `json:"finished_at"`
}

// NodeView is a version node. Current marks the selected version.
// DerivedFrom and Derivatives list the neighbouring versions.
type NodeView struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Commit      string   `json:"commit,omitempty"`
	Current     bool     `json:"current,omitempty"`
	DerivedFrom []string `json:"derived_from,omitempty"`
	Derivatives []string `json:"derivatives,omitempty"`
}

// CommitView is a commit record with its literals unwrapped for display.
type CommitView struct {
	commit.Record
	DisplayMessage   string `json:"display_message,omitempty"`
	DisplayTimestamp string `json:"display_timestamp,omitempty"`
}

// NewCommitView wraps rec for display.
func NewCommitView(rec *commit.Record) CommitView {
	return CommitView{
		Record:           *rec,
		DisplayMessage:   rec.DisplayMessage(),
		DisplayTimestamp: rec.DisplayTimestamp(),
	}
}

// NewDocument builds the JSON view of snap. Nodes keep insertion order,
// commits are sorted by IRI. Order lists the versions oldest first; when
// the derivations form a cycle it falls back to insertion order and
// Cyclic is set.
func NewDocument(snap *provenance.Snapshot) *Document {
	doc := &Document{
		Pass:           snap.Pass.String(),
		CurrentVersion: snap.CurrentVersion,
		Nodes:          make([]NodeView, 0, snap.Graph.NodeCount()),
		Edges:          snap.Graph.Edges(),
		Commits:        make([]CommitView, 0, len(snap.Commits)),
		Roots:          nonNil(snap.Graph.Roots()),
		Leaves:         nonNil(snap.Graph.Leaves()),
		Stats:          snap.Stats,
		FinishedAt:     snap.FinishedAt,
	}
	if doc.Edges == nil {
		doc.Edges = []graph.Edge{}
	}

	order, err := snap.Graph.TopologicalOrder()
	if errors.Is(err, graph.ErrCycle) {
		doc.Cyclic = true
		order = make([]string, 0, snap.Graph.NodeCount())
		for _, n := range snap.Graph.Nodes() {
			order = append(order, n.ID)
		}
	}
	doc.Order = nonNil(order)

	for _, n := range snap.Graph.Nodes() {
		doc.Nodes = append(doc.Nodes, NewNodeView(snap, n))
	}

	iris := make([]string, 0, len(snap.Commits))
	for iri := range snap.Commits {
		iris = append(iris, iri)
	}
	sort.Strings(iris)
	for _, iri := range iris {
		doc.Commits = append(doc.Commits, NewCommitView(snap.Commits[iri]))
	}
	return doc
}

// NewNodeView describes n within snap.
func NewNodeView(snap *provenance.Snapshot, n *graph.Node) NodeView {
	v := NodeView{
		ID:          n.ID,
		Label:       n.Label,
		Current:     n.ID == snap.CurrentVersion,
		DerivedFrom: snap.Graph.Predecessors(n.ID),
		Derivatives: snap.Graph.Successors(n.ID),
	}
	if n.Commit != nil {
		v.Commit = n.Commit.IRI
	}
	return v
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
