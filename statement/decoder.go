package statement

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/c360studio/provgraph/vocabulary/prov"
	"github.com/knakk/rdf"
)

// Decoder reads statements from a Turtle document. N-Triples input is
// accepted as well since it is a subset of Turtle.
//
// A Decoder is not restartable: once it has returned io.EOF or a
// *ParseError every later call returns the same error.
type Decoder struct {
	dec   rdf.TripleDecoder
	count int
	done  error
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: rdf.NewTripleDecoder(r, rdf.Turtle)}
}

// Next returns the next statement. At the end of the document it returns
// io.EOF; malformed input yields a *ParseError.
func (d *Decoder) Next() (Statement, error) {
	if d.done != nil {
		return Statement{}, d.done
	}

	triple, err := d.dec.Decode()
	if errors.Is(err, io.EOF) {
		d.done = io.EOF
		return Statement{}, io.EOF
	}
	if err != nil {
		d.done = NewParseError(d.count, err)
		return Statement{}, d.done
	}

	st, err := fromTriple(triple)
	if err != nil {
		d.done = NewParseError(d.count, err)
		return Statement{}, d.done
	}
	d.count++
	return st, nil
}

// All returns the remaining statements as a sequence. The sequence stops
// after the first error, which is yielded with a zero Statement. io.EOF is
// not yielded.
func (d *Decoder) All() iter.Seq2[Statement, error] {
	return func(yield func(Statement, error) bool) {
		for {
			st, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Statement{}, err)
				return
			}
			if !yield(st, nil) {
				return
			}
		}
	}
}

// Parse decodes r and reports each statement through hit. Exactly one of
// end or fail is called once the stream terminates.
func Parse(r io.Reader, hit func(Statement), end func(), fail func(error)) {
	dec := NewDecoder(r)
	for st, err := range dec.All() {
		if err != nil {
			if fail != nil {
				fail(err)
			}
			return
		}
		hit(st)
	}
	if end != nil {
		end()
	}
}

// ReadAll decodes every statement in r.
func ReadAll(r io.Reader) ([]Statement, error) {
	var out []Statement
	for st, err := range NewDecoder(r).All() {
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func fromTriple(t rdf.Triple) (Statement, error) {
	subject, err := formatResource(t.Subj)
	if err != nil {
		return Statement{}, fmt.Errorf("subject: %w", err)
	}
	predicate, err := formatResource(t.Pred)
	if err != nil {
		return Statement{}, fmt.Errorf("predicate: %w", err)
	}

	st := Statement{Subject: subject, Predicate: predicate}
	if lit, ok := t.Obj.(rdf.Literal); ok {
		datatype := lit.DataType.String()
		if implicitDatatype(datatype) {
			datatype = ""
		}
		st.Object = FormatLiteral(lit.String(), lit.Lang(), datatype)
		st.ObjectMeta = &ObjectMeta{Lang: lit.Lang(), Datatype: datatype}
		return st, nil
	}

	object, err := formatResource(t.Obj)
	if err != nil {
		return Statement{}, fmt.Errorf("object: %w", err)
	}
	st.Object = object
	return st, nil
}

func formatResource(term rdf.Term) (string, error) {
	switch v := term.(type) {
	case rdf.IRI:
		return v.String(), nil
	case rdf.Blank:
		label := v.String()
		if !strings.HasPrefix(label, "_:") {
			label = "_:" + label
		}
		return label, nil
	case nil:
		return "", errors.New("missing term")
	default:
		return "", fmt.Errorf("unexpected term %q", term.String())
	}
}

func implicitDatatype(datatype string) bool {
	return datatype == prov.XSDString || datatype == prov.RDFLangString
}
