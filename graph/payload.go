package graph

import (
	"errors"
	"fmt"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

// EntityKind tells commit entities from version entities.
type EntityKind string

const (
	KindCommit  EntityKind = "commit"
	KindVersion EntityKind = "version"
)

// EntityType is the message type of provenance entities.
var EntityType = message.Type{Domain: "provgraph", Category: "entity", Version: "v1"}

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      EntityType.Domain,
		Category:    EntityType.Category,
		Version:     EntityType.Version,
		Description: "Provenance commit or version entity for graph ingestion",
		Factory:     func() any { return &EntityPayload{} },
	})
	if err != nil {
		panic("failed to register provenance EntityPayload: " + err.Error())
	}
}

// EntityPayload is one commit or version with the triples describing it.
type EntityPayload struct {
	ID         string           `json:"id"`
	Kind       EntityKind       `json:"kind"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// NewEntityPayload returns a payload of kind for id.
func NewEntityPayload(id string, kind EntityKind, triples []message.Triple, at time.Time) *EntityPayload {
	return &EntityPayload{ID: id, Kind: kind, TripleData: triples, UpdatedAt: at}
}

func (e *EntityPayload) EntityID() string          { return e.ID }
func (e *EntityPayload) Triples() []message.Triple { return e.TripleData }
func (e *EntityPayload) Schema() message.Type      { return EntityType }

// Validate checks the payload before it is published.
func (e *EntityPayload) Validate() error {
	if e.ID == "" {
		return errors.New("entity ID is required")
	}
	switch e.Kind {
	case KindCommit, KindVersion:
	default:
		return fmt.Errorf("unknown entity kind %q", e.Kind)
	}
	if len(e.TripleData) == 0 {
		return errors.New("entity has no triples")
	}
	return nil
}
