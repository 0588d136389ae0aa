package korrel8r

import "time"

// Start describes where a correlation begins.
type Start struct {
	// Queries are start queries, e.g. `k8s:Pod.v1:{"namespace":"dev","name":"p"}`.
	Queries []string `json:"queries,omitempty"`

	// Constraint limits the objects considered along the way.
	Constraint *Constraint `json:"constraint,omitempty"`
}

// Constraint bounds a correlation in time and size.
type Constraint struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
	Limit *int       `json:"limit,omitempty"`
}

// NewConstraint returns a Constraint for the window [start, end].
// Zero times and a non-positive limit are omitted.
func NewConstraint(start, end time.Time, limit int) *Constraint {
	c := &Constraint{}
	if !start.IsZero() {
		s := start.UTC()
		c.Start = &s
	}
	if !end.IsZero() {
		e := end.UTC()
		c.End = &e
	}
	if limit > 0 {
		c.Limit = &limit
	}
	if c.Start == nil && c.End == nil && c.Limit == nil {
		return nil
	}
	return c
}

type goalsRequest struct {
	Goals []string `json:"goals"`
	Start Start    `json:"start"`
}

type neighboursRequest struct {
	Start Start `json:"start"`
	Depth int   `json:"depth"`
}

type goalNode struct {
	Class   string       `json:"class"`
	Queries []QueryCount `json:"queries,omitempty"`
	Count   int          `json:"count,omitempty"`
}

// QueryCount is a concrete query with the number of objects it returned, if known.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count,omitempty"`
}

// Node is a class in the correlation graph.
type Node struct {
	Class   string       `json:"class"`
	Queries []QueryCount `json:"queries,omitempty"`
	Count   int          `json:"count,omitempty"`
}

// Rule names a correlation rule that links two classes.
type Rule struct {
	Name    string       `json:"name"`
	Queries []QueryCount `json:"queries,omitempty"`
}

// Edge links two classes.
type Edge struct {
	Start string `json:"start"`
	Goal  string `json:"goal"`
	Rules []Rule `json:"rules,omitempty"`
}

// Graph is the neighbourhood graph returned by Neighbours.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges,omitempty"`
}

// Classes returns the class of every node that has at least one query.
func (g *Graph) Classes() []string {
	if g == nil {
		return nil
	}
	var out []string
	for _, n := range g.Nodes {
		if len(n.Queries) > 0 {
			out = append(out, n.Class)
		}
	}
	return out
}
