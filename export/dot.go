package export

import (
	"fmt"
	"strings"

	"github.com/c360studio/provgraph/graph"
	"github.com/c360studio/provgraph/provenance"
)

// toDOT renders the version graph as a left-to-right Graphviz digraph.
// The current version is drawn bold.
func toDOT(snap *provenance.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("digraph provenance {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n")

	for _, n := range snap.Graph.Nodes() {
		attrs := fmt.Sprintf("label=\"%s\"", dotLabel(n))
		if n.ID == snap.CurrentVersion {
			attrs += ", style=\"rounded,bold\""
		}
		if n.Commit != nil {
			attrs += fmt.Sprintf(", tooltip=\"%s\"", dotEscape(n.Commit.IRI))
		}
		fmt.Fprintf(&sb, "  \"%s\" [%s];\n", dotEscape(n.ID), attrs)
	}
	for _, e := range snap.Graph.Edges() {
		fmt.Fprintf(&sb, "  \"%s\" -> \"%s\";\n", dotEscape(e.From), dotEscape(e.To))
	}
	sb.WriteString("}\n")
	return sb.String()
}

// dotLabel prefers the node label, then the commit message, then the
// last segment of the version IRI. A timestamp goes on a second line.
func dotLabel(n *graph.Node) string {
	label := n.Label
	if label == "" && n.Commit != nil {
		label = n.Commit.DisplayMessage()
	}
	if label == "" {
		label = shortName(n.ID)
	}
	label = dotEscape(label)
	if n.Commit != nil && n.Commit.Timestamp != "" {
		label += `\n` + dotEscape(n.Commit.DisplayTimestamp())
	}
	return label
}

func shortName(iri string) string {
	if i := strings.LastIndexAny(iri, "/#:"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

func dotEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
