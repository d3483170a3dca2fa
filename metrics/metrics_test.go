package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/c360studio/provgraph/provenance"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordsPasses(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.PassStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.activePasses))

	c.PassFinished(provenance.Stats{
		Statements: 6,
		Discarded:  1,
		Commits:    2,
		Nodes:      2,
		Edges:      1,
		Duration:   5 * time.Millisecond,
	}, nil)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.activePasses))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.statements))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.discarded))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.passes.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.nodes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.edges))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.commits))
}

func TestCollectorFailureKeepsGraphGauges(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	c.PassStarted()
	c.PassFinished(provenance.Stats{Nodes: 3}, nil)
	c.PassStarted()
	c.PassFinished(provenance.Stats{Statements: 2}, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.passes.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.nodes))
}

func TestCollectorStalePassKeepsGraphGauges(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	c.PassStarted()
	c.PassFinished(provenance.Stats{Nodes: 3, Edges: 2, Commits: 3}, nil)
	c.PassStarted()
	c.PassFinished(provenance.Stats{Statements: 40, Nodes: 9, Edges: 8, Commits: 9}, provenance.ErrStalePass)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.activePasses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stalePasses))
	assert.Equal(t, 40.0, testutil.ToFloat64(c.statements))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.passes.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.passes.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.nodes))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.edges))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.commits))
}

func TestCollectorStaleAndFetch(t *testing.T) {
	c, err := New(nil)
	require.NoError(t, err)

	c.PassStale()
	c.FetchFailed("status")
	c.FetchFailed("status")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.stalePasses))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.fetchFailures.WithLabelValues("status")))
}

func TestNewToleratesDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.NoError(t, err)
}

func TestNewSharesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New(reg)
	require.NoError(t, err)
	second, err := New(reg)
	require.NoError(t, err)

	second.PassStale()
	assert.Equal(t, 1.0, testutil.ToFloat64(first.stalePasses))
}
