package prov

import "github.com/c360studio/semstreams/vocabulary"

// Graph predicates used when commits and versions are published as
// knowledge-graph entities. They follow the dotted domain.category.property
// convention and map back to the PROV-O IRIs above.
const (
	// CommitMessage is the commit message (lexical form).
	CommitMessage = "provenance.commit.message"

	// CommitTimestamp is the commit time (lexical form).
	CommitTimestamp = "provenance.commit.timestamp"

	// CommitGenerated links a commit to the version entity it produced.
	CommitGenerated = "provenance.commit.generated"

	// CommitAuthor is the agent IRI the commit is associated with.
	CommitAuthor = "provenance.commit.author"

	// CommitIRI is the activity IRI in the source graph.
	CommitIRI = "provenance.commit.iri"

	// VersionIRI is the version IRI in the source graph.
	VersionIRI = "provenance.version.iri"

	// VersionDerivedFrom links a version entity to the version it came from.
	VersionDerivedFrom = "provenance.version.derived_from"

	// VersionCurrent marks the currently selected version.
	VersionCurrent = "provenance.version.current"
)

func init() {
	vocabulary.Register(CommitMessage,
		vocabulary.WithDescription("Commit message"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Title))

	vocabulary.Register(CommitTimestamp,
		vocabulary.WithDescription("Commit time"),
		vocabulary.WithDataType("datetime"),
		vocabulary.WithIRI(AtTime))

	vocabulary.Register(CommitGenerated,
		vocabulary.WithDescription("Version generated by the commit"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(Generated))

	vocabulary.Register(CommitAuthor,
		vocabulary.WithDescription("Agent associated with the commit"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(WasAssociatedWith))

	vocabulary.Register(CommitIRI,
		vocabulary.WithDescription("Activity IRI in the provenance graph"),
		vocabulary.WithDataType("string"))

	vocabulary.Register(VersionIRI,
		vocabulary.WithDescription("Version IRI in the provenance graph"),
		vocabulary.WithDataType("string"))

	vocabulary.Register(VersionDerivedFrom,
		vocabulary.WithDescription("Version this version was derived from"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(WasDerivedFrom))

	vocabulary.Register(VersionCurrent,
		vocabulary.WithDescription("Whether the version is the selected one"),
		vocabulary.WithDataType("bool"))
}
