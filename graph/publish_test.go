package graph

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/provgraph/commit"
	"github.com/c360studio/provgraph/vocabulary/prov"
	"github.com/c360studio/semstreams/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	subjects []string
	payloads []EntityPayload
	failAt   int
}

func (r *recordingPublisher) PublishToStream(_ context.Context, subject string, data []byte) error {
	if r.failAt > 0 && len(r.payloads)+1 == r.failAt {
		return errors.New("stream unavailable")
	}
	var p EntityPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, p)
	return nil
}

func (r *recordingPublisher) byID(id string) *EntityPayload {
	for i := range r.payloads {
		if r.payloads[i].EntityID() == id {
			return &r.payloads[i]
		}
	}
	return nil
}

func publishFixture() (*Graph, commit.Map) {
	c1 := &commit.Record{IRI: "http://r/act1", Message: `"init"`, Timestamp: `"2014-05-01T10:00:00Z"^^` + prov.XSDDateTime, Version: "http://r/v1", Author: "http://r/alice"}
	c2 := &commit.Record{IRI: "http://r/act2", Version: "http://r/v2"}
	g := New()
	g.UpsertNode(c1.Version, "", c1)
	g.EnsureNode("http://r/v1")
	g.EnsureNode("http://r/v2")
	g.AddEdge("http://r/v1", "http://r/v2")
	g.UpsertNode(c2.Version, "", c2)
	return g, commit.Map{c1.IRI: c1, c2.IRI: c2}
}

func objectOf(p *EntityPayload, predicate string) any {
	for _, t := range p.Triples() {
		if t.Predicate == predicate {
			return t.Object
		}
	}
	return nil
}

func TestPublisherPublish(t *testing.T) {
	g, commits := publishFixture()
	rec := &recordingPublisher{}
	pub := NewPublisher(rec, nil)
	pub.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	n, err := pub.Publish(context.Background(), g, commits, "http://r/v2")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	for _, s := range rec.subjects {
		assert.Equal(t, GraphIngestSubject, s)
	}

	act1 := rec.byID(CommitEntityID("http://r/act1"))
	require.NotNil(t, act1)
	assert.Equal(t, "init", objectOf(act1, prov.CommitMessage))
	assert.Equal(t, "2014-05-01T10:00:00Z", objectOf(act1, prov.CommitTimestamp))
	assert.Equal(t, VersionEntityID("http://r/v1"), objectOf(act1, prov.CommitGenerated))
	assert.Equal(t, "http://r/alice", objectOf(act1, prov.CommitAuthor))

	v2 := rec.byID(VersionEntityID("http://r/v2"))
	require.NotNil(t, v2)
	assert.Equal(t, true, objectOf(v2, prov.VersionCurrent))
	assert.Equal(t, VersionEntityID("http://r/v1"), objectOf(v2, prov.VersionDerivedFrom))

	v1 := rec.byID(VersionEntityID("http://r/v1"))
	require.NotNil(t, v1)
	assert.Equal(t, false, objectOf(v1, prov.VersionCurrent))
	assert.Nil(t, objectOf(v1, prov.VersionDerivedFrom))
}

func TestPublisherWithoutClient(t *testing.T) {
	g, commits := publishFixture()
	n, err := NewPublisher(nil, nil).Publish(context.Background(), g, commits, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPublisherStopsOnError(t *testing.T) {
	g, commits := publishFixture()
	rec := &recordingPublisher{failAt: 2}

	n, err := NewPublisher(rec, nil).Publish(context.Background(), g, commits, "")
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, err.Error(), "stream unavailable")
}

func TestEntityIDs(t *testing.T) {
	id := CommitEntityID("http://rawbase.example.org/Commit_1")
	parts := strings.Split(id, ".")
	require.Len(t, parts, 6)
	assert.True(t, strings.HasPrefix(parts[5], "commit-1-"), parts[5])

	assert.NotEqual(t, VersionEntityID("http://a/v1"), VersionEntityID("http://b/v1"))
	assert.Equal(t, VersionEntityID("http://a/v1"), VersionEntityID("http://a/v1"))
	assert.NotEqual(t, CommitEntityID("http://a/x"), VersionEntityID("http://a/x"))
}

func TestEntityPayloadValidate(t *testing.T) {
	assert.Error(t, (&EntityPayload{}).Validate())
	assert.Error(t, NewEntityPayload("x", KindCommit, nil, time.Now()).Validate())
	assert.Error(t, NewEntityPayload("x", "branch", []message.Triple{{Subject: "x"}}, time.Now()).Validate())
	assert.NoError(t, NewEntityPayload("x", KindVersion, []message.Triple{{Subject: "x"}}, time.Now()).Validate())
	assert.Equal(t, EntityType, NewEntityPayload("x", KindCommit, nil, time.Now()).Schema())
}
