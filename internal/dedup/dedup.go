// Package dedup collapses repeated log entries.
package dedup

import (
	"cmp"
	"slices"

	"github.com/sgahlot/signalctx/internal/types"
)

// Dedupe keeps one entry per (namespace, pod, level, message), the most recent.
// A real timestamp always beats a missing one. The result is ordered by key, so
// input order never changes it, and Dedupe(Dedupe(x)) equals Dedupe(x).
func Dedupe(entries []types.LogEntry) []types.LogEntry {
	if len(entries) == 0 {
		return nil
	}
	latest := make(map[types.DedupKey]types.LogEntry, len(entries))
	for _, e := range entries {
		key := e.DedupKey()
		cur, seen := latest[key]
		if !seen || newer(e, cur) {
			latest[key] = e
		}
	}

	out := make([]types.LogEntry, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	slices.SortFunc(out, compareKeys)
	return out
}

// newer reports whether a should replace b within one group.
func newer(a, b types.LogEntry) bool {
	if a.TimestampMissing != b.TimestampMissing {
		return b.TimestampMissing
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	// Same instant: pick by class so the winner does not depend on input order.
	return a.Class < b.Class
}

func compareKeys(a, b types.LogEntry) int {
	return cmp.Or(
		cmp.Compare(a.Namespace, b.Namespace),
		cmp.Compare(a.Pod, b.Pod),
		cmp.Compare(a.Level, b.Level),
		cmp.Compare(a.Message, b.Message),
	)
}
