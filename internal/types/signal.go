package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ResourceIdentity anchors a correlation query to a workload.
// Name may be empty, in which case the whole namespace is the anchor.
type ResourceIdentity struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name,omitempty"`
}

// Key returns "namespace/name", or just the namespace when Name is empty.
func (r ResourceIdentity) Key() string {
	if r.Name == "" {
		return r.Namespace
	}
	return r.Namespace + "/" + r.Name
}

// String implements fmt.Stringer.
func (r ResourceIdentity) String() string { return r.Key() }

// UniqueIdentities drops duplicate and empty-namespace identities, preserving first-seen order.
func UniqueIdentities(ids []ResourceIdentity) []ResourceIdentity {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[ResourceIdentity]struct{}, len(ids))
	out := make([]ResourceIdentity, 0, len(ids))
	for _, id := range ids {
		id.Namespace = strings.TrimSpace(id.Namespace)
		id.Name = strings.TrimSpace(id.Name)
		if id.Namespace == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// CorrelationGoal names a class of signal the correlation service resolves to queries.
type CorrelationGoal string

const (
	GoalApplicationLogs    CorrelationGoal = "log:application"
	GoalInfrastructureLogs CorrelationGoal = "log:infrastructure"
	GoalAuditLogs          CorrelationGoal = "log:audit"
	GoalTraceSpans         CorrelationGoal = "trace:span"
	GoalMetrics            CorrelationGoal = "metric:metric"
	GoalEvents             CorrelationGoal = "k8s:Event.v1"
)

// DefaultLogGoals are the goals used for log enrichment when the caller names none.
func DefaultLogGoals() []CorrelationGoal {
	return []CorrelationGoal{GoalApplicationLogs, GoalInfrastructureLogs}
}

// NormalizeGoals trims, deduplicates and sorts goals. Goal lists are order-insensitive,
// so sorting keeps request payloads stable.
func NormalizeGoals(goals []CorrelationGoal) []CorrelationGoal {
	seen := make(map[CorrelationGoal]struct{}, len(goals))
	out := make([]CorrelationGoal, 0, len(goals))
	for _, g := range goals {
		g = CorrelationGoal(strings.TrimSpace(string(g)))
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GoalStrings converts goals to plain strings for wire payloads.
func GoalStrings(goals []CorrelationGoal) []string {
	out := make([]string, len(goals))
	for i, g := range goals {
		out[i] = string(g)
	}
	return out
}

// TimeRange is a closed time window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WindowEndingAt returns the window of length d that ends at end.
func WindowEndingAt(end time.Time, d time.Duration) TimeRange {
	return TimeRange{Start: end.Add(-d), End: end}
}

// IsZero reports whether neither bound is set.
func (t TimeRange) IsZero() bool {
	return t.Start.IsZero() && t.End.IsZero()
}

// Validate rejects windows whose end precedes their start.
func (t TimeRange) Validate() error {
	if !t.Start.IsZero() && !t.End.IsZero() && t.End.Before(t.Start) {
		return fmt.Errorf("time window end %s is before start %s",
			t.End.Format(time.RFC3339), t.Start.Format(time.RFC3339))
	}
	return nil
}

// GoalQuery is a concrete query the correlation service resolved for a goal.
type GoalQuery struct {
	Goal  CorrelationGoal `json:"goal"`
	Query string          `json:"query"`
	Count int             `json:"count,omitempty"`
}

// IdentityFailure records an identity (or one of its queries) that could not be fetched.
type IdentityFailure struct {
	Identity ResourceIdentity `json:"identity"`
	Query    string           `json:"query,omitempty"`
	Reason   string           `json:"reason"`
}

// AggregatedContext is the bounded, ranked result of one enrichment request.
type AggregatedContext struct {
	Entries []LogEntry `json:"entries"`

	// Dropped counts log entries removed by the low-signal filter or the row budget.
	Dropped int `json:"dropped"`

	// Passthrough counts non-log objects (k8s objects, events, traces) that were seen
	// but are not rendered.
	Passthrough int `json:"passthrough"`

	Degraded []IdentityFailure `json:"degraded,omitempty"`
}
