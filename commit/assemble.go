package commit

import (
	"log/slog"

	"github.com/c360studio/provgraph/statement"
	"github.com/c360studio/provgraph/vocabulary/prov"
)

// Assemble applies one statement to the record of its subject.
//
// When existing is nil a tentative record holding only the IRI is
// created. The four commit predicates set their field. Any other
// predicate must carry the prov:Activity marker as object; otherwise the
// statement disqualifies the tentative record and nil is returned.
//
// A nil result only means "ignore this statement". It never removes a
// record that was already stored.
func Assemble(st statement.Statement, existing *Record) *Record {
	rec := existing
	if rec == nil {
		rec = &Record{IRI: st.Subject}
	}

	switch st.Predicate {
	case prov.Title:
		rec.Message = st.Object
	case prov.AtTime:
		rec.Timestamp = st.Object
	case prov.Generated:
		rec.Version = st.Object
	case prov.WasAssociatedWith:
		rec.Author = st.Object
	default:
		// Any predicate is accepted with the Activity marker, not only rdf:type.
		if st.Object != prov.Activity {
			return nil
		}
	}

	return rec
}

// Assembler owns the commit map of a single pass.
type Assembler struct {
	records   Map
	discarded int
	logger    *slog.Logger
}

// NewAssembler creates an assembler with an empty map.
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		records: make(Map),
		logger:  logger,
	}
}

// Fold applies st to the stored record of its subject and stores the
// result. It returns the record the statement contributed to, or nil
// when the statement was skipped.
func (a *Assembler) Fold(st statement.Statement) *Record {
	rec := Assemble(st, a.records[st.Subject])
	if rec == nil {
		a.discarded++
		a.logger.Debug("Statement does not describe a commit",
			"subject", st.Subject,
			"predicate", st.Predicate)
		return nil
	}

	a.records[rec.IRI] = rec
	return rec
}

// Map returns the assembled records. Every record in it has been proven
// to be an activity by at least one statement.
func (a *Assembler) Map() Map {
	return a.records
}

// Len returns the number of records.
func (a *Assembler) Len() int {
	return len(a.records)
}

// Discarded returns how many statements were skipped.
func (a *Assembler) Discarded() int {
	return a.discarded
}
