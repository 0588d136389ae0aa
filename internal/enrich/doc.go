// Package enrich builds the correlated log context that is inserted into
// language-model prompts.
//
// # Overview
//
// Given resource identities (namespace/pod pairs) and correlation goals, a
// Builder asks the correlation service which log queries reach those goals,
// runs them, and reduces the results to a short, deterministic text block:
//
//	- namespace=dev pod=my-pod level=ERROR OOMKilled
//	- namespace=dev pod=my-pod level=WARN liveness probe failed
//
// A Builder moves through Idle, Querying, Aggregating, Rendering and Done, and
// serves exactly one request. Engine holds the long-lived collaborators and
// hands out builders.
//
// # Failure model
//
// Enrichment is best effort. A disabled engine returns "" without touching the
// network. Failing identities or queries are recorded as degraded and the rest
// still render. A cancelled request discards partial results and returns "".
//
// # Metrics
//
//   - signalctx_enrich_builds_total (counter, labels: outcome)
//   - signalctx_enrich_build_duration_seconds (histogram)
//   - signalctx_enrich_degraded_total (counter, labels: reason)
//   - signalctx_enrich_dropped_entries_total (counter)
package enrich
