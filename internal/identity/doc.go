// Package identity derives correlation anchors from the signals that point at a
// workload: metric series labels, firing alert labels and unhealthy pods.
//
// Every function returns identities in first-seen order with duplicates and
// namespace-less entries removed, so the result can be handed straight to the
// enrichment engine.
package identity
