package export_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/c360studio/provgraph/commit"
	"github.com/c360studio/provgraph/export"
	"github.com/c360studio/provgraph/provenance"
	"github.com/c360studio/semstreams/vocabulary/bfo"
	"github.com/c360studio/semstreams/vocabulary/cco"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const history = `@prefix prov: <http://www.w3.org/ns/prov#> .
@prefix dcterms: <http://purl.org/dc/terms/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix rwb: <http://rawbase.example.org/> .

rwb:commit1 a prov:Activity ;
    dcterms:title "init" ;
    prov:atTime "2014-05-01T10:00:00Z"^^xsd:dateTime ;
    prov:generated rwb:v1 ;
    prov:wasAssociatedWith <https://example.org/users/alice> .

rwb:v2 prov:wasDerivedFrom rwb:v1 .

rwb:commit2 prov:generated rwb:v2 ;
    a prov:Activity ;
    dcterms:title "add labels"@en .

rwb:v3 prov:wasDerivedFrom rwb:v2 .
`

func reconstruct(t *testing.T, doc string) *provenance.Snapshot {
	t.Helper()
	snap, err := provenance.Reconstruct(strings.NewReader(doc))
	require.NoError(t, err)
	return snap
}

func records(m commit.Map) map[string]commit.Record {
	out := make(map[string]commit.Record, len(m))
	for iri, r := range m {
		out[iri] = *r
	}
	return out
}

func TestExportRoundTrip(t *testing.T) {
	want := reconstruct(t, history)
	exporter := export.NewExporter(export.ProfileMinimal)

	for _, format := range []export.Format{export.FormatTurtle, export.FormatNTriples} {
		t.Run(string(format), func(t *testing.T) {
			out, err := exporter.Export(want, format)
			require.NoError(t, err)

			got := reconstruct(t, out)
			assert.ElementsMatch(t, want.Graph.NodeIDs(), got.Graph.NodeIDs())
			assert.ElementsMatch(t, want.Graph.Edges(), got.Graph.Edges())
			assert.Equal(t, records(want.Commits), records(got.Commits))
			assert.Equal(t, want.CurrentVersion, got.CurrentVersion)
		})
	}
}

func TestExportRoundTripEscapes(t *testing.T) {
	doc := `<http://r/c> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://www.w3.org/ns/prov#Activity> .
<http://r/c> <http://purl.org/dc/terms/title> "say \"hi\"\nand\\leave" .
<http://r/c> <http://www.w3.org/ns/prov#generated> <http://r/v> .
`
	want := reconstruct(t, doc)
	exporter := export.NewExporter(export.ProfileMinimal)

	for _, format := range []export.Format{export.FormatTurtle, export.FormatNTriples} {
		out, err := exporter.Export(want, format)
		require.NoError(t, err)
		got := reconstruct(t, out)
		assert.Equal(t, records(want.Commits), records(got.Commits), "format %s", format)
	}
}

func TestExportNTriples(t *testing.T) {
	snap := reconstruct(t, history)
	output, err := export.NewExporter(export.ProfileMinimal).Export(snap, export.FormatNTriples)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	// 5 statements for commit1, 3 for commit2, 2 derivations
	assert.Len(t, lines, 10)
	for _, line := range lines {
		if !strings.HasSuffix(line, " .") {
			t.Errorf("N-Triple line should end with ' .': %s", line)
		}
	}
	assert.Contains(t, output, `"add labels"@en`)
	assert.Contains(t, output, `"2014-05-01T10:00:00Z"^^<http://www.w3.org/2001/XMLSchema#dateTime>`)
	assert.Contains(t, output, `<http://rawbase.example.org/v2> <http://www.w3.org/ns/prov#wasDerivedFrom> <http://rawbase.example.org/v1> .`)
}

func TestExportTurtle(t *testing.T) {
	snap := reconstruct(t, history)
	output, err := export.NewExporter(export.ProfileMinimal).Export(snap, export.FormatTurtle)
	require.NoError(t, err)

	if !strings.Contains(output, "@prefix prov: <http://www.w3.org/ns/prov#> .") {
		t.Error("Turtle output should contain prefix declarations")
	}
	assert.Contains(t, output, "a prov:Activity")
	assert.Contains(t, output, `dcterms:title "init"`)
	assert.Contains(t, output, `"2014-05-01T10:00:00Z"^^xsd:dateTime`)
}

func TestExportJSONLD(t *testing.T) {
	snap := reconstruct(t, history)
	output, err := export.NewExporter(export.ProfileMinimal).Export(snap, export.FormatJSONLD)
	require.NoError(t, err)

	var doc struct {
		Context map[string]string `json:"@context"`
		Graph   []map[string]any  `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &doc))
	assert.Equal(t, "http://www.w3.org/ns/prov#", doc.Context["prov"])

	var commit2 map[string]any
	for _, n := range doc.Graph {
		if n["@id"] == "http://rawbase.example.org/commit2" {
			commit2 = n
		}
	}
	require.NotNil(t, commit2)
	assert.Equal(t, []any{"prov:Activity"}, commit2["@type"])
	assert.Equal(t, map[string]any{"@value": "add labels", "@language": "en"}, commit2["dcterms:title"])
	assert.Equal(t, map[string]any{"@id": "http://rawbase.example.org/v2"}, commit2["prov:generated"])
}

func TestExportJSONDocument(t *testing.T) {
	snap := reconstruct(t, history)
	output, err := export.NewExporter(export.ProfileMinimal).Export(snap, export.FormatJSON)
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(output), &doc))

	ids := make([]string, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, snap.Graph.NodeIDs(), ids)
	assert.Equal(t, "http://rawbase.example.org/v3", doc.CurrentVersion)
	assert.True(t, doc.Nodes[len(doc.Nodes)-1].Current)
	require.Len(t, doc.Commits, 2)
	assert.Equal(t, "http://rawbase.example.org/commit1", doc.Commits[0].IRI)
	assert.Equal(t, "init", doc.Commits[0].DisplayMessage)
	assert.Equal(t, "2014-05-01T10:00:00Z", doc.Commits[0].DisplayTimestamp)
	assert.Len(t, doc.Edges, 2)
}

func TestDocumentOrdering(t *testing.T) {
	const (
		v1 = "http://rawbase.example.org/v1"
		v2 = "http://rawbase.example.org/v2"
		v3 = "http://rawbase.example.org/v3"
	)

	t.Run("chain", func(t *testing.T) {
		doc := export.NewDocument(reconstruct(t, history))
		assert.Equal(t, []string{v1, v2, v3}, doc.Order)
		assert.Equal(t, []string{v1}, doc.Roots)
		assert.Equal(t, []string{v3}, doc.Leaves)
		assert.False(t, doc.Cyclic)

		views := make(map[string]export.NodeView, len(doc.Nodes))
		for _, n := range doc.Nodes {
			views[n.ID] = n
		}
		assert.Empty(t, views[v1].DerivedFrom)
		assert.Equal(t, []string{v2}, views[v1].Derivatives)
		assert.Equal(t, []string{v1}, views[v2].DerivedFrom)
		assert.Equal(t, []string{v3}, views[v2].Derivatives)
		assert.Equal(t, "http://rawbase.example.org/commit1", views[v1].Commit)
	})

	t.Run("cycle", func(t *testing.T) {
		snap := reconstruct(t, `<http://r/a> <http://www.w3.org/ns/prov#wasDerivedFrom> <http://r/b> .
<http://r/b> <http://www.w3.org/ns/prov#wasDerivedFrom> <http://r/a> .
`)
		doc := export.NewDocument(snap)
		assert.True(t, doc.Cyclic)
		assert.Equal(t, snap.Graph.NodeIDs(), doc.Order)
		assert.Empty(t, doc.Roots)
		assert.Empty(t, doc.Leaves)
	})
}

func TestExportDOT(t *testing.T) {
	snap := reconstruct(t, history)
	output, err := export.NewExporter(export.ProfileMinimal).Export(snap, export.FormatDOT)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(output, "digraph provenance {\n  rankdir=LR;"))
	assert.Contains(t, output, `"http://rawbase.example.org/v1" -> "http://rawbase.example.org/v2";`)
	assert.Contains(t, output, `label="init\n2014-05-01T10:00:00Z"`)
	assert.Contains(t, output, `"http://rawbase.example.org/v3" [label="v3", style="rounded,bold"];`)
}

func TestExportProfiles(t *testing.T) {
	snap := reconstruct(t, history)

	tests := []struct {
		profile  export.Profile
		contains []string
		excludes []string
	}{
		{
			profile:  export.ProfileMinimal,
			excludes: []string{"prov#Entity", "prov#Agent", bfo.Process, cco.Person},
		},
		{
			profile:  export.ProfilePROV,
			contains: []string{"prov#Entity", "prov#Agent"},
			excludes: []string{bfo.Process, cco.Person},
		},
		{
			profile:  export.ProfileBFO,
			contains: []string{"prov#Entity", bfo.Process},
			excludes: []string{cco.Person},
		},
		{
			profile:  export.ProfileCCO,
			contains: []string{"prov#Entity", bfo.Process, cco.Person, cco.ActOfArtifactProcessing},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			out, err := export.NewExporter(tt.profile).Export(snap, export.FormatNTriples)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}

			// Extra type assertions never change the reconstructed history.
			got := reconstruct(t, out)
			assert.Equal(t, records(snap.Commits), records(got.Commits))
			assert.ElementsMatch(t, snap.Graph.Edges(), got.Graph.Edges())
		})
	}
}

func TestExportEmptyAndMissing(t *testing.T) {
	exporter := export.NewExporter(export.ProfileMinimal)

	_, err := exporter.Export(nil, export.FormatJSON)
	assert.ErrorIs(t, err, export.ErrNoSnapshot)

	empty := reconstruct(t, "")
	out, err := exporter.Export(empty, export.FormatNTriples)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = exporter.Export(empty, export.FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, out, `"nodes": []`)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    export.Format
		wantErr bool
	}{
		{"dot", export.FormatDOT, false},
		{"TTL", export.FormatTurtle, false},
		{"nt", export.FormatNTriples, false},
		{"json-ld", export.FormatJSONLD, false},
		{"json", export.FormatJSON, false},
		{"svg", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := export.ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
