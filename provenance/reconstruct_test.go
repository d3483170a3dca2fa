package provenance

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/c360studio/provgraph/statement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rdfType        = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#type>"
	provActivity   = "<http://www.w3.org/ns/prov#Activity>"
	provGenerated  = "<http://www.w3.org/ns/prov#generated>"
	provDerived    = "<http://www.w3.org/ns/prov#wasDerivedFrom>"
	provAtTime     = "<http://www.w3.org/ns/prov#atTime>"
	provAssociated = "<http://www.w3.org/ns/prov#wasAssociatedWith>"
	dcTitle        = "<http://purl.org/dc/terms/title>"
)

func nt(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// endToEnd is the reference history: two commits, v2 derived from v1.
var endToEnd = nt(
	`<http://r/act1> `+rdfType+` `+provActivity+` .`,
	`<http://r/act1> `+dcTitle+` "init" .`,
	`<http://r/act1> `+provGenerated+` <http://r/v1> .`,
	`<http://r/v2> `+provDerived+` <http://r/v1> .`,
	`<http://r/act2> `+provGenerated+` <http://r/v2> .`,
	`<http://r/act2> `+rdfType+` `+provActivity+` .`,
)

func TestReconstructEndToEnd(t *testing.T) {
	snap, err := Reconstruct(strings.NewReader(endToEnd))
	require.NoError(t, err)

	require.Len(t, snap.Commits, 2)
	act1 := snap.Commits.Get("http://r/act1")
	require.NotNil(t, act1)
	assert.Equal(t, `"init"`, act1.Message)
	assert.Equal(t, "init", act1.DisplayMessage())
	assert.Equal(t, "http://r/v1", act1.Version)

	act2 := snap.Commits.Get("http://r/act2")
	require.NotNil(t, act2)
	assert.Equal(t, "http://r/v2", act2.Version)

	g := snap.Graph
	assert.Equal(t, []string{"http://r/v1", "http://r/v2"}, g.NodeIDs())
	assert.True(t, g.HasEdge("http://r/v1", "http://r/v2"))
	assert.False(t, g.HasEdge("http://r/v2", "http://r/v1"))
	assert.Equal(t, 1, g.EdgeCount())

	assert.Same(t, act1, g.Node("http://r/v1").Commit)
	assert.Same(t, act2, g.Node("http://r/v2").Commit)

	// v2 was created by the derivation statement, after v1.
	assert.Equal(t, g.LastNode(), snap.CurrentVersion)
	assert.Equal(t, "http://r/v2", snap.CurrentVersion)

	assert.Equal(t, 6, snap.Stats.Statements)
	assert.Equal(t, 1, snap.Stats.Discarded)
	assert.Equal(t, 2, snap.Stats.Commits)
}

func TestReconstructSelectsLastInsertedNode(t *testing.T) {
	input := nt(
		`<http://r/a1> `+provGenerated+` <http://r/v1> .`,
		`<http://r/a2> `+provGenerated+` <http://r/v2> .`,
		`<http://r/a3> `+provGenerated+` <http://r/v3> .`,
		// Touching v1 again must not move it to the end.
		`<http://r/a1> `+rdfType+` `+provActivity+` .`,
	)

	snap, err := Reconstruct(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "http://r/v3", snap.CurrentVersion)
}

func TestReconstructFullCommit(t *testing.T) {
	input := nt(
		`<http://r/a1> `+provAtTime+` "2014-05-01T10:00:00Z"^^<http://www.w3.org/2001/XMLSchema#dateTime> .`,
		`<http://r/a1> `+provAssociated+` <http://users/alice> .`,
		`<http://r/a1> `+dcTitle+` "first"@en .`,
		`<http://r/a1> `+provGenerated+` <http://r/v1> .`,
	)

	snap, err := Reconstruct(strings.NewReader(input))
	require.NoError(t, err)

	rec := snap.Commits.Get("http://r/a1")
	require.NotNil(t, rec)
	assert.Equal(t, "http://users/alice", rec.Author)
	assert.Equal(t, "2014-05-01T10:00:00Z", rec.DisplayTimestamp())
	assert.Equal(t, "first", rec.DisplayMessage())
}

func TestReconstructEmptyDocument(t *testing.T) {
	snap, err := Reconstruct(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Graph.NodeCount())
	assert.Empty(t, snap.Commits)
	assert.Equal(t, "", snap.CurrentVersion)
}

func TestReconstructMalformedRegionFailsPass(t *testing.T) {
	input := nt(
		`<http://r/a1> `+provGenerated+` <http://r/v1> .`,
		`<http://r/a2> `+provGenerated+` .`,
		`<http://r/a3> `+provGenerated+` <http://r/v3> .`,
	)

	snap, err := Reconstruct(strings.NewReader(input))
	assert.Nil(t, snap)
	var parseErr *statement.ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestFinalizeKeepsExistingSelection(t *testing.T) {
	snap, err := Reconstruct(strings.NewReader(endToEnd))
	require.NoError(t, err)
	assert.Equal(t, "http://r/v1", Finalize(snap.Graph, "http://r/v1"))
	assert.Equal(t, "http://r/v2", Finalize(snap.Graph, ""))
}

type recordingObserver struct {
	mu       sync.Mutex
	started  int
	finished int
	failed   int
	stale    int
}

func (o *recordingObserver) PassStarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) PassFinished(_ Stats, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished++
	switch {
	case errors.Is(err, ErrStalePass):
		o.stale++
	case err != nil:
		o.failed++
	}
}

func (o *recordingObserver) PassStale() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stale++
}

func TestReconstructNotifiesObserver(t *testing.T) {
	obs := &recordingObserver{}
	_, err := Reconstruct(strings.NewReader(endToEnd), WithObserver(obs))
	require.NoError(t, err)
	_, err = Reconstruct(strings.NewReader("<http://a> <http://b"), WithObserver(obs))
	require.Error(t, err)

	assert.Equal(t, 2, obs.started)
	assert.Equal(t, 2, obs.finished)
	assert.Equal(t, 1, obs.failed)
}
