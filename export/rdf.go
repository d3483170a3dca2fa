// Package export serializes a finalized provenance snapshot for rendering
// collaborators and other RDF tooling.
package export

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/c360studio/provgraph/commit"
	"github.com/c360studio/provgraph/provenance"
	"github.com/c360studio/provgraph/vocabulary/prov"
)

// Triple is one exported statement. Object uses the statement term
// encoding: a bare IRI, a "_:" blank label or a quoted literal.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

// defaultPrefixes returns the namespace prefixes for RDF export.
func defaultPrefixes() map[string]string {
	p := prov.Prefixes()
	p["bfo"] = "http://purl.obolibrary.org/obo/"
	p["cco"] = "http://www.ontologyrepository.com/CommonCoreOntologies/"
	return p
}

// Triples regenerates the provenance statements of snap. Commits come
// first, ordered by the position of the version they generated, followed
// by one wasDerivedFrom statement per edge.
func Triples(snap *provenance.Snapshot, profile Profile) []Triple {
	if snap == nil {
		return nil
	}
	asserter := NewTypeAsserter(profile)
	triples := make([]Triple, 0, len(snap.Commits)*5+len(snap.Graph.Edges()))
	typed := make(map[string]bool)

	addTypes := func(subject string, role Role) {
		if subject == "" || typed[subject] {
			return
		}
		types := asserter.GetTypeIRIs(role)
		if len(types) == 0 {
			return
		}
		typed[subject] = true
		for _, t := range types {
			triples = append(triples, Triple{subject, prov.RDFType, t})
		}
	}

	for _, rec := range orderedCommits(snap) {
		triples = append(triples, Triple{rec.IRI, prov.RDFType, prov.Activity})
		addTypes(rec.IRI, RoleCommit)
		if rec.Message != "" {
			triples = append(triples, Triple{rec.IRI, prov.Title, rec.Message})
		}
		if rec.Timestamp != "" {
			triples = append(triples, Triple{rec.IRI, prov.AtTime, rec.Timestamp})
		}
		if rec.Version != "" {
			triples = append(triples, Triple{rec.IRI, prov.Generated, rec.Version})
		}
		if rec.Author != "" {
			triples = append(triples, Triple{rec.IRI, prov.WasAssociatedWith, rec.Author})
		}
	}

	for _, id := range snap.Graph.NodeIDs() {
		addTypes(id, RoleVersion)
	}
	for _, rec := range orderedCommits(snap) {
		addTypes(rec.Author, RoleAuthor)
	}

	for _, e := range snap.Graph.Edges() {
		triples = append(triples, Triple{e.To, prov.WasDerivedFrom, e.From})
	}
	return triples
}

// orderedCommits returns commits sorted by the insertion position of their
// version, then by IRI. Commits without a graph node come last.
func orderedCommits(snap *provenance.Snapshot) []*commit.Record {
	pos := make(map[string]int)
	for i, id := range snap.Graph.NodeIDs() {
		pos[id] = i
	}
	recs := make([]*commit.Record, 0, len(snap.Commits))
	for _, r := range snap.Commits {
		recs = append(recs, r)
	}
	rank := func(r *commit.Record) int {
		if i, ok := pos[r.Version]; ok {
			return i
		}
		return len(pos)
	}
	sort.Slice(recs, func(i, j int) bool {
		ri, rj := rank(recs[i]), rank(recs[j])
		if ri != rj {
			return ri < rj
		}
		return recs[i].IRI < recs[j].IRI
	})
	return recs
}

// literal is a decoded statement literal.
type literal struct {
	lexical  string
	lang     string
	datatype string
}

// parseTerm splits a serialized object. ok is false for resources.
func parseTerm(obj string) (lit literal, ok bool) {
	if !strings.HasPrefix(obj, `"`) {
		return literal{}, false
	}
	end := strings.LastIndex(obj, `"`)
	if end == 0 {
		return literal{lexical: obj[1:]}, true
	}
	lit.lexical = obj[1:end]
	rest := obj[end+1:]
	switch {
	case strings.HasPrefix(rest, "@"):
		lit.lang = rest[1:]
	case strings.HasPrefix(rest, "^^"):
		lit.datatype = rest[2:]
	}
	return lit, true
}

// subjectGroup is the statements about one subject, in emission order.
type subjectGroup struct {
	subject string
	triples []Triple
}

func groupBySubject(triples []Triple) []subjectGroup {
	index := make(map[string]int)
	var groups []subjectGroup
	for _, t := range triples {
		i, ok := index[t.Subject]
		if !ok {
			i = len(groups)
			index[t.Subject] = i
			groups = append(groups, subjectGroup{subject: t.Subject})
		}
		groups[i].triples = append(groups[i].triples, t)
	}
	return groups
}

// toTurtle serializes triples grouped by subject.
func toTurtle(triples []Triple) string {
	w := NewTurtleWriter()
	w.WritePrefixes()
	for _, g := range groupBySubject(triples) {
		w.WriteSubject(g.subject)
		for i, t := range g.triples {
			w.WritePredicate(t.Predicate, t.Object, i == len(g.triples)-1)
		}
		w.WriteBlank()
	}
	return w.String()
}

// toNTriples serializes one line per triple.
func toNTriples(triples []Triple) string {
	w := NewNTriplesWriter()
	for _, t := range triples {
		w.WriteTriple(t.Subject, t.Predicate, t.Object)
	}
	return w.String()
}

// toJSONLD serializes triples as one JSON-LD node per subject.
func toJSONLD(triples []Triple) (string, error) {
	prefixes := defaultPrefixes()
	w := NewJSONLDWriter()
	w.SetContext(prefixes)
	for _, g := range groupBySubject(triples) {
		var types []string
		props := make(map[string]any)
		for _, t := range g.triples {
			if t.Predicate == prov.RDFType {
				types = append(types, compactIRI(t.Object, prefixes))
				continue
			}
			key := compactIRI(t.Predicate, prefixes)
			val := jsonLDValue(t.Object)
			switch existing := props[key].(type) {
			case nil:
				props[key] = val
			case []any:
				props[key] = append(existing, val)
			default:
				props[key] = []any{existing, val}
			}
		}
		w.AddNode(g.subject, types, props)
	}
	return w.Marshal()
}

func jsonLDValue(obj string) any {
	lit, ok := parseTerm(obj)
	if !ok {
		return map[string]string{"@id": obj}
	}
	switch {
	case lit.lang != "":
		return map[string]string{"@value": lit.lexical, "@language": lit.lang}
	case lit.datatype != "":
		return map[string]string{"@value": lit.lexical, "@type": lit.datatype}
	default:
		return lit.lexical
	}
}

var localNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// compactIRI rewrites iri as prefix:local when a namespace matches and
// the local part is a plain name. Otherwise iri is returned unchanged.
func compactIRI(iri string, prefixes map[string]string) string {
	best, bestNS := "", ""
	for prefix, ns := range prefixes {
		if strings.HasPrefix(iri, ns) && len(ns) > len(bestNS) {
			best, bestNS = prefix, ns
		}
	}
	if bestNS == "" {
		return iri
	}
	local := iri[len(bestNS):]
	if !localNamePattern.MatchString(local) {
		return iri
	}
	return best + ":" + local
}

// formatResource renders an IRI or blank node term.
func formatResource(term string, prefixes map[string]string) string {
	if strings.HasPrefix(term, "_:") {
		return term
	}
	if prefixes != nil {
		if c := compactIRI(term, prefixes); c != term {
			return c
		}
	}
	return fmt.Sprintf("<%s>", term)
}

// formatObject formats an object term for Turtle output.
func formatObject(obj string, prefixes map[string]string) string {
	lit, ok := parseTerm(obj)
	if !ok {
		return formatResource(obj, prefixes)
	}
	quoted := `"` + escapeString(lit.lexical) + `"`
	switch {
	case lit.lang != "":
		return quoted + "@" + lit.lang
	case lit.datatype != "":
		return quoted + "^^" + formatResource(lit.datatype, prefixes)
	default:
		return quoted
	}
}

// formatObjectNTriples formats an object term for N-Triples output.
func formatObjectNTriples(obj string) string {
	return formatObject(obj, nil)
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}

// marshalIndent is json.MarshalIndent with the export indentation.
func marshalIndent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
