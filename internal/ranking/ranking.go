// Package ranking orders log entries by severity and recency.
package ranking

import (
	"slices"

	"github.com/sgahlot/signalctx/internal/types"
)

// Rank returns a copy of entries ordered by severity, highest first, then by
// timestamp, newest first. Entries whose timestamp was missing sort as the
// oldest of their severity. Full ties keep their input order.
func Rank(entries []types.LogEntry) []types.LogEntry {
	if len(entries) == 0 {
		return nil
	}
	out := slices.Clone(entries)
	slices.SortStableFunc(out, Compare)
	return out
}

// Compare orders a before b (negative) when a ranks higher.
func Compare(a, b types.LogEntry) int {
	if ra, rb := a.Level.Rank(), b.Level.Rank(); ra != rb {
		if ra > rb {
			return -1
		}
		return 1
	}
	if a.TimestampMissing != b.TimestampMissing {
		if b.TimestampMissing {
			return -1
		}
		return 1
	}
	if a.TimestampMissing {
		return 0
	}
	// Newest first.
	return b.Timestamp.Compare(a.Timestamp)
}

// Truncate returns at most budget entries. A negative budget is treated as zero.
func Truncate(entries []types.LogEntry, budget int) []types.LogEntry {
	if budget < 0 {
		budget = 0
	}
	if len(entries) <= budget {
		return entries
	}
	return entries[:budget]
}
