package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/provgraph/commit"
	"github.com/c360studio/provgraph/vocabulary/prov"
	"github.com/c360studio/semstreams/message"
)

// Subject for graph ingestion.
const GraphIngestSubject = "graph.ingest.entity"

// tripleSource tags every published triple.
const tripleSource = "provgraph.reconstruct"

// StreamPublisher publishes to a JetStream subject. *natsclient.Client
// satisfies it.
type StreamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// Publisher emits commits and versions of a finalized graph as
// knowledge-graph entities.
type Publisher struct {
	nc     StreamPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher. A nil client disables publishing.
func NewPublisher(nc StreamPublisher, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{nc: nc, logger: logger, now: time.Now}
}

// Publish sends one entity per commit and one per version node and
// returns how many were published.
func (p *Publisher) Publish(ctx context.Context, g *Graph, commits commit.Map, current string) (int, error) {
	if p == nil || p.nc == nil {
		return 0, nil // Skip publishing if no NATS client (graceful degradation)
	}

	now := p.now()
	payloads := make([]*EntityPayload, 0, len(commits)+g.NodeCount())
	for _, rec := range commits {
		payloads = append(payloads, CommitPayload(rec, now))
	}
	for _, n := range g.Nodes() {
		payloads = append(payloads, VersionPayload(g, n.ID, n.ID == current, now))
	}

	published := 0
	for _, payload := range payloads {
		if err := p.publish(ctx, payload); err != nil {
			return published, err
		}
		published++
	}

	p.logger.Debug("Published provenance entities",
		slog.Int("commits", len(commits)),
		slog.Int("versions", g.NodeCount()))
	return published, nil
}

func (p *Publisher) publish(ctx context.Context, payload *EntityPayload) error {
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid entity %s: %w", payload.EntityID(), err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal entity %s: %w", payload.EntityID(), err)
	}
	if err := p.nc.PublishToStream(ctx, GraphIngestSubject, data); err != nil {
		return fmt.Errorf("publish entity %s: %w", payload.EntityID(), err)
	}
	return nil
}

// CommitPayload builds the entity for one commit record.
func CommitPayload(rec *commit.Record, at time.Time) *EntityPayload {
	id := CommitEntityID(rec.IRI)
	triples := []message.Triple{triple(id, prov.CommitIRI, rec.IRI, at)}
	if rec.Message != "" {
		triples = append(triples, triple(id, prov.CommitMessage, rec.DisplayMessage(), at))
	}
	if rec.Timestamp != "" {
		triples = append(triples, triple(id, prov.CommitTimestamp, rec.DisplayTimestamp(), at))
	}
	if rec.Version != "" {
		triples = append(triples, triple(id, prov.CommitGenerated, VersionEntityID(rec.Version), at))
	}
	if rec.Author != "" {
		triples = append(triples, triple(id, prov.CommitAuthor, rec.Author, at))
	}
	return NewEntityPayload(id, KindCommit, triples, at)
}

// VersionPayload builds the entity for one version node.
func VersionPayload(g *Graph, version string, current bool, at time.Time) *EntityPayload {
	id := VersionEntityID(version)
	triples := []message.Triple{
		triple(id, prov.VersionIRI, version, at),
		triple(id, prov.VersionCurrent, current, at),
	}
	for _, from := range g.Predecessors(version) {
		triples = append(triples, triple(id, prov.VersionDerivedFrom, VersionEntityID(from), at))
	}
	return NewEntityPayload(id, KindVersion, triples, at)
}

func triple(subject, predicate string, object any, at time.Time) message.Triple {
	return message.Triple{
		Subject:    subject,
		Predicate:  predicate,
		Object:     object,
		Source:     tripleSource,
		Timestamp:  at,
		Confidence: 1.0,
	}
}

// CommitEntityID generates a consistent entity ID for a commit.
// Format: rawbase.provgraph.provenance.history.commit.<instance>
func CommitEntityID(iri string) string {
	return "rawbase.provgraph.provenance.history.commit." + instanceID(iri)
}

// VersionEntityID generates a consistent entity ID for a version.
// Format: rawbase.provgraph.provenance.history.version.<instance>
func VersionEntityID(iri string) string {
	return "rawbase.provgraph.provenance.history.version." + instanceID(iri)
}

// instanceID derives a dot-free instance token from an IRI: the last
// path segment slugged, plus a short hash of the whole IRI.
func instanceID(iri string) string {
	last := iri
	if i := strings.LastIndexAny(iri, "/#:"); i >= 0 && i < len(iri)-1 {
		last = iri[i+1:]
	}
	slug := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return '-'
	}, last)
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "-")
	}
	hash := sha256.Sum256([]byte(iri))
	if slug == "" {
		return hex.EncodeToString(hash[:8])
	}
	return slug + "-" + hex.EncodeToString(hash[:4])
}
