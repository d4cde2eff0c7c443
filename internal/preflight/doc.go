// Package preflight validates the environment before the server starts
// and backs the doctor command.
//
// The package checks:
//   - Data directory writable
//   - Free space for a full log rotation and a catalog refresh
//   - File descriptor limit covering max_concurrency and Redis connections
//   - Catalog present and readable, with at least one document
//   - Embedding provider reachable (warning only: search degrades to keyword ranking)
//   - Vector store reachable
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(preflight.WithEmbedder(e), preflight.WithVectorStore(vs))
//	results := checker.RunAll(ctx, cfg)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
