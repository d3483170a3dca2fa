// Package provenance reconstructs the commit history of a rawbase store
// from its PROV-O provenance graph.
//
// A reconstruction pass reads statements in arrival order and feeds each
// one to the commit assembler and then to the graph builder. When the
// stream ends the pass is finalized: if the application has not selected
// a current version yet, the last node inserted into the graph becomes
// the current version. The resulting Snapshot is handed to the caller's
// success callback. A parse failure aborts the pass and only the error
// callback runs; a failed pass never exposes its partial graph.
//
// # Passes
//
// A Session issues a Pass token for every reconstruction it starts.
// Starting a new pass supersedes every earlier one, and results that
// arrive for a superseded pass are dropped with ErrStalePass:
//
//	pass := session.Begin()
//	body, err := fetcher.Fetch(ctx)
//	...
//	err = session.Run(pass, body, render, notify)
package provenance
