package graph

import (
	"github.com/c360studio/provgraph/commit"
	"github.com/c360studio/provgraph/statement"
	"github.com/c360studio/provgraph/vocabulary/prov"
)

// Builder applies statements, paired with the commit record they
// contributed to, to a graph owned by one pass.
type Builder struct {
	graph *Graph
}

// NewBuilder returns a builder over an empty graph.
func NewBuilder() *Builder {
	return &Builder{graph: New()}
}

// Apply updates the graph for one statement.
//
// A record with a version upserts that version's node with an empty label.
// A prov:wasDerivedFrom statement ensures both endpoints exist and adds an
// edge from the object to the subject.
func (b *Builder) Apply(st statement.Statement, rec *commit.Record) {
	if rec != nil && rec.Version != "" {
		b.graph.UpsertNode(rec.Version, "", rec)
	}

	if st.Predicate == prov.WasDerivedFrom {
		b.graph.EnsureNode(st.Object)
		b.graph.EnsureNode(st.Subject)
		b.graph.AddEdge(st.Object, st.Subject)
	}
}

// Graph returns the graph being built.
func (b *Builder) Graph() *Graph {
	return b.graph
}
