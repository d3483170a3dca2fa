package prov

// Namespaces used by the provenance graph.
const (
	// Namespace is the PROV-O namespace.
	Namespace = "http://www.w3.org/ns/prov#"

	// DCTermsNamespace is the Dublin Core terms namespace.
	DCTermsNamespace = "http://purl.org/dc/terms/"

	// RDFNamespace is the RDF syntax namespace.
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	// XSDNamespace is the XML Schema datatypes namespace.
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
)

// ProvenanceGraph is the named graph holding the commit history.
const ProvenanceGraph = "urn:rawbase:provenance"

// Predicates that contribute to a commit record or the version graph.
const (
	// Title carries the commit message.
	Title = DCTermsNamespace + "title"

	// AtTime carries the commit timestamp.
	AtTime = Namespace + "atTime"

	// Generated links an activity to the version it produced.
	Generated = Namespace + "generated"

	// WasAssociatedWith links an activity to its author.
	WasAssociatedWith = Namespace + "wasAssociatedWith"

	// WasDerivedFrom links a version to the version it was derived from.
	WasDerivedFrom = Namespace + "wasDerivedFrom"
)

// Type IRIs.
const (
	// Activity is the type marker that proves a subject is a commit.
	Activity = Namespace + "Activity"

	// Entity is the PROV-O entity class. Versions are entities.
	Entity = Namespace + "Entity"

	// Agent is the PROV-O agent class.
	Agent = Namespace + "Agent"

	// RDFType is rdf:type.
	RDFType = RDFNamespace + "type"
)

// Literal datatypes.
const (
	XSDString     = XSDNamespace + "string"
	XSDDateTime   = XSDNamespace + "dateTime"
	RDFLangString = RDFNamespace + "langString"
)

// CommitPredicates lists the predicates that set a commit record field.
var CommitPredicates = []string{Title, AtTime, Generated, WasAssociatedWith}

// Prefixes returns the namespace prefixes used when serializing the graph.
func Prefixes() map[string]string {
	return map[string]string{
		"prov":    Namespace,
		"dcterms": DCTermsNamespace,
		"rdf":     RDFNamespace,
		"xsd":     XSDNamespace,
	}
}
