// Package source retrieves the serialized provenance document.
//
// Two sources exist: Fetcher reads the provenance named graph from a
// rawbase endpoint over HTTP, guarded by a circuit breaker, and File reads
// a local Turtle file. Both report a missing document as a Document with
// Found set to false, which callers turn into an empty graph.
package source
