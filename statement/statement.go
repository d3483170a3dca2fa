// Package statement turns a serialized RDF document into a lazy stream of
// subject-predicate-object statements.
//
// The decoder does not look at predicate semantics. Statements are handed
// out in document order, one at a time, and the stream ends with io.EOF
// or a *ParseError. Consumers must not assume statements about the same
// subject arrive together.
package statement

import (
	"fmt"
	"strings"
)

// ObjectMeta describes a literal object.
type ObjectMeta struct {
	Lang     string `json:"lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Statement is one subject-predicate-object fact.
//
// Object holds the serialized term: a bare IRI, a "_:" blank label, or a
// quoted literal such as "init", "hello"@en or
// "2014-05-01T10:00:00Z"^^http://www.w3.org/2001/XMLSchema#dateTime.
type Statement struct {
	Subject    string      `json:"subject"`
	Predicate  string      `json:"predicate"`
	Object     string      `json:"object"`
	ObjectMeta *ObjectMeta `json:"object_meta,omitempty"`
}

// New returns a statement with a resource object.
func New(subject, predicate, object string) Statement {
	return Statement{Subject: subject, Predicate: predicate, Object: object}
}

// NewLiteral returns a statement whose object is a literal. The object is
// serialized the same way the decoder serializes literals.
func NewLiteral(subject, predicate, lexical, lang, datatype string) Statement {
	return Statement{
		Subject:    subject,
		Predicate:  predicate,
		Object:     FormatLiteral(lexical, lang, datatype),
		ObjectMeta: &ObjectMeta{Lang: lang, Datatype: datatype},
	}
}

// String renders the statement in an N-Triples-like form for logging.
func (s Statement) String() string {
	return fmt.Sprintf("%s %s %s .", s.Subject, s.Predicate, s.Object)
}

// FormatLiteral serializes a literal as "lexical", "lexical"@lang or
// "lexical"^^datatype. The datatype is left out when it is implied.
func FormatLiteral(lexical, lang, datatype string) string {
	quoted := `"` + lexical + `"`
	if lang != "" {
		return quoted + "@" + lang
	}
	if datatype != "" && !implicitDatatype(datatype) {
		return quoted + "^^" + datatype
	}
	return quoted
}

// LiteralValue returns the lexical form of a serialized literal: the text
// between the first two double quotes. Values without quotes are returned
// unchanged.
func LiteralValue(object string) string {
	parts := strings.SplitN(object, `"`, 3)
	if len(parts) < 3 {
		return object
	}
	return parts[1]
}
