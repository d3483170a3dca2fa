// Package commit folds provenance statements into commit records.
//
// A commit is a PROV activity. Its record is assembled from several
// statements that may arrive in any order, so the assembler creates a
// tentative record for every subject it sees and only keeps it once a
// statement proves the subject denotes an activity.
package commit

import "github.com/c360studio/provgraph/statement"

// Record is the commit assembled for one activity.
//
// Message and Timestamp keep the serialized literal, quotes included;
// use statement.LiteralValue to display them.
type Record struct {
	IRI       string `json:"iri"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Author    string `json:"author,omitempty"`
}

// DisplayMessage returns the lexical form of the commit message.
func (r *Record) DisplayMessage() string {
	return statement.LiteralValue(r.Message)
}

// DisplayTimestamp returns the lexical form of the commit timestamp.
func (r *Record) DisplayTimestamp() string {
	return statement.LiteralValue(r.Timestamp)
}

// Map holds the records of one reconstruction pass keyed by activity IRI.
type Map map[string]*Record

// Get returns the record for iri, or nil.
func (m Map) Get(iri string) *Record {
	return m[iri]
}

// ByVersion returns the record that generated version, or nil.
func (m Map) ByVersion(version string) *Record {
	for _, r := range m {
		if r.Version == version {
			return r
		}
	}
	return nil
}
