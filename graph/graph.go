package graph

import (
	"errors"

	"github.com/c360studio/provgraph/commit"
)

// ErrCycle is returned by TopologicalOrder when derivation edges form a cycle.
var ErrCycle = errors.New("derivation graph contains a cycle")

// Node is one version in the provenance graph.
type Node struct {
	ID     string         `json:"id"`
	Label  string         `json:"label"`
	Commit *commit.Record `json:"commit,omitempty"`
}

// Edge points from a source version to the version derived from it.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the version DAG of one reconstruction pass. Nodes and edges are
// only ever added; node attributes may be replaced.
type Graph struct {
	nodes map[string]*Node
	order []string
	edges []Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// UpsertNode adds a node or replaces the attributes of an existing one.
// A replaced node keeps its original insertion position.
func (g *Graph) UpsertNode(id, label string, c *commit.Record) *Node {
	if n, ok := g.nodes[id]; ok {
		n.Label = label
		n.Commit = c
		return n
	}
	n := &Node{ID: id, Label: label, Commit: c}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// EnsureNode adds a bare node unless one already exists.
func (g *Graph) EnsureNode(id string) *Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &Node{ID: id}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// AddEdge appends a directed edge. Parallel edges are kept.
func (g *Graph) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node for id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// NodeIDs returns node IDs in insertion order.
func (g *Graph) NodeIDs() []string {
	return append([]string(nil), g.order...)
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.order)
}

// EdgeCount returns the number of edges, parallel edges included.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// LastNode returns the ID of the most recently inserted node, or "" for
// an empty graph.
func (g *Graph) LastNode() string {
	if len(g.order) == 0 {
		return ""
	}
	return g.order[len(g.order)-1]
}

// HasEdge reports whether at least one edge from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	for _, e := range g.edges {
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// Successors returns the distinct targets of edges leaving id.
func (g *Graph) Successors(id string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range g.edges {
		if e.From == id && !seen[e.To] {
			seen[e.To] = true
			out = append(out, e.To)
		}
	}
	return out
}

// Predecessors returns the distinct sources of edges entering id.
func (g *Graph) Predecessors(id string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range g.edges {
		if e.To == id && !seen[e.From] {
			seen[e.From] = true
			out = append(out, e.From)
		}
	}
	return out
}

// Roots returns nodes without incoming edges, in insertion order.
func (g *Graph) Roots() []string {
	indeg := g.inDegrees()
	var out []string
	for _, id := range g.order {
		if indeg[id] == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Leaves returns nodes without outgoing edges, in insertion order.
func (g *Graph) Leaves() []string {
	out := make(map[string]bool)
	for _, e := range g.edges {
		out[e.From] = true
	}
	var leaves []string
	for _, id := range g.order {
		if !out[id] {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// TopologicalOrder orders nodes so every edge source precedes its target.
// Ties are broken by insertion order.
func (g *Graph) TopologicalOrder() ([]string, error) {
	indeg := g.inDegrees()
	adjacent := make(map[string][]string)
	for _, e := range g.edges {
		adjacent[e.From] = append(adjacent[e.From], e.To)
	}

	position := make(map[string]int, len(g.order))
	for i, id := range g.order {
		position[id] = i
	}

	ready := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if indeg[id] == 0 {
			ready = append(ready, id)
		}
	}

	result := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		// Pick the earliest-inserted ready node.
		best := 0
		for i := 1; i < len(ready); i++ {
			if position[ready[i]] < position[ready[best]] {
				best = i
			}
		}
		id := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		result = append(result, id)

		for _, next := range adjacent[id] {
			indeg[next]--
			if indeg[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(result) != len(g.order) {
		return nil, ErrCycle
	}
	return result, nil
}

func (g *Graph) inDegrees() map[string]int {
	indeg := make(map[string]int, len(g.order))
	for _, id := range g.order {
		indeg[id] = 0
	}
	for _, e := range g.edges {
		indeg[e.To]++
	}
	return indeg
}
