package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/c360studio/provgraph/provenance"
)

// ErrNoSnapshot is returned when there is nothing to export.
var ErrNoSnapshot = errors.New("no provenance snapshot")

// Exporter serializes snapshots with a fixed ontology profile.
type Exporter struct {
	profile Profile
}

// NewExporter creates an exporter for profile.
func NewExporter(profile Profile) *Exporter {
	return &Exporter{profile: profile}
}

// Export serializes snap to the specified format.
func (e *Exporter) Export(snap *provenance.Snapshot, format Format) (string, error) {
	if snap == nil || snap.Graph == nil {
		return "", ErrNoSnapshot
	}
	switch format {
	case FormatJSON:
		return marshalIndent(NewDocument(snap))
	case FormatDOT:
		return toDOT(snap), nil
	case FormatTurtle:
		return toTurtle(Triples(snap, e.profile)), nil
	case FormatNTriples:
		return toNTriples(Triples(snap, e.profile)), nil
	case FormatJSONLD:
		return toJSONLD(Triples(snap, e.profile))
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// Write serializes snap to w.
func (e *Exporter) Write(w io.Writer, snap *provenance.Snapshot, format Format) error {
	out, err := e.Export(snap, format)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("write %s export: %w", format, err)
	}
	return nil
}
