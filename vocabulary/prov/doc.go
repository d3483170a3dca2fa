// Package prov provides the IRIs the provenance reconstruction recognises.
//
// The rawbase provenance graph (urn:rawbase:provenance) describes every
// commit as a PROV-O activity:
//
//	<activity> a prov:Activity ;
//	    dcterms:title "message" ;
//	    prov:atTime "2014-05-01T10:00:00Z"^^xsd:dateTime ;
//	    prov:generated <version> ;
//	    prov:wasAssociatedWith <agent> .
//
//	<version> prov:wasDerivedFrom <previous-version> .
//
// Matching is done on exact IRI strings. Prefixed names are never
// resolved here; the Turtle decoder expands them before statements
// reach the assembler.
package prov
