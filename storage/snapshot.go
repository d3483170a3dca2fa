// Package storage keeps the last finalized provenance snapshot per graph
// in a NATS JetStream key-value bucket so other processes can read it
// without running their own reconstruction.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/provgraph/export"
	"github.com/c360studio/provgraph/provenance"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is used when no bucket name is configured.
const DefaultBucket = "PROVGRAPH_SNAPSHOTS"

// StoredSnapshot is the persisted form of a snapshot.
type StoredSnapshot struct {
	Graph    string           `json:"graph"`
	Document *export.Document `json:"document"`
	StoredAt time.Time        `json:"stored_at"`
	Revision uint64           `json:"-"`
}

// keyValue is the subset of jetstream.KeyValue the store uses.
type keyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
	Keys(ctx context.Context, opts ...jetstream.WatchOpt) ([]string, error)
}

// SnapshotStore provides snapshot storage backed by NATS KV.
type SnapshotStore struct {
	kv keyValue
}

// NewSnapshotStore opens the bucket, creating it if it doesn't exist.
func NewSnapshotStore(ctx context.Context, js jetstream.JetStream, bucket string) (*SnapshotStore, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	kv, err := getOrCreateBucket(ctx, js, bucket)
	if err != nil {
		return nil, fmt.Errorf("create snapshot bucket: %w", err)
	}
	return &SnapshotStore{kv: kv}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "Finalized provenance graph snapshots",
		History:     5, // Keep last 5 revisions
	})
}

// Key returns the KV key for a graph IRI. IRIs contain characters KV keys
// do not allow, so the key is a readable slug plus a short hash.
func Key(graph string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, graph)
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if len(slug) > 64 {
		slug = strings.TrimRight(slug[:64], "-")
	}
	hash := sha256.Sum256([]byte(graph))
	return slug + "." + hex.EncodeToString(hash[:6])
}

// Save stores snap as the latest snapshot of graph and returns the revision.
func (s *SnapshotStore) Save(ctx context.Context, graph string, snap *provenance.Snapshot) (uint64, error) {
	if snap == nil {
		return 0, errors.New("nil snapshot")
	}
	stored := StoredSnapshot{
		Graph:    graph,
		Document: export.NewDocument(snap),
		StoredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}
	rev, err := s.kv.Put(ctx, Key(graph), data)
	if err != nil {
		return 0, fmt.Errorf("store snapshot: %w", err)
	}
	return rev, nil
}

// Load returns the latest snapshot of graph.
func (s *SnapshotStore) Load(ctx context.Context, graph string) (*StoredSnapshot, error) {
	entry, err := s.kv.Get(ctx, Key(graph))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var stored StoredSnapshot
	if err := json.Unmarshal(entry.Value(), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	stored.Revision = entry.Revision()
	return &stored, nil
}

// Delete removes the snapshot of graph.
func (s *SnapshotStore) Delete(ctx context.Context, graph string) error {
	if err := s.kv.Delete(ctx, Key(graph)); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// List returns all stored snapshots.
func (s *SnapshotStore) List(ctx context.Context) ([]*StoredSnapshot, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list snapshot keys: %w", err)
	}

	snapshots := make([]*StoredSnapshot, 0, len(keys))
	for _, key := range keys {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var stored StoredSnapshot
		if err := json.Unmarshal(entry.Value(), &stored); err != nil {
			continue
		}
		stored.Revision = entry.Revision()
		snapshots = append(snapshots, &stored)
	}
	return snapshots, nil
}
