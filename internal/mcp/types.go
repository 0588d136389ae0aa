package mcp

import (
	"github.com/sgahlot/signalctx/internal/identity"
	"github.com/sgahlot/signalctx/internal/korrel8r"
	"github.com/sgahlot/signalctx/internal/types"
)

// Tool names.
const (
	ToolQueryObjects  = "korrel8r_query_objects"
	ToolGetCorrelated = "korrel8r_get_correlated"
	ToolFindRelated   = "korrel8r_find_related"
	ToolLogContext    = "correlated_log_context"
	ToolBuildLinks    = "build_links"
)

// --- Tool: korrel8r_query_objects ---

type QueryObjectsParams struct {
	Query string `json:"query"`
}

// --- Tool: korrel8r_get_correlated ---

type GetCorrelatedParams struct {
	Goals     []string `json:"goals"`
	Query     string   `json:"query,omitempty"`
	Alertname string   `json:"alertname,omitempty"` // used when query is empty
}

// --- Tool: korrel8r_find_related ---

type FindRelatedParams struct {
	Query     string `json:"query,omitempty"`
	Alertname string `json:"alertname,omitempty"` // used when query is empty
	Depth     int    `json:"depth,omitempty"`
}

type FindRelatedResult struct {
	Start   string          `json:"start"`
	Depth   int             `json:"depth"`
	Classes []string        `json:"classes"`
	Graph   *korrel8r.Graph `json:"graph"`
}

// --- Tool: correlated_log_context ---

type LogContextParams struct {
	Identities  []types.ResourceIdentity `json:"identities,omitempty"`
	AlertLabels []map[string]string      `json:"alert_labels,omitempty"`
	Series      []map[string]string      `json:"series,omitempty"`
	Model       string                   `json:"model,omitempty"` // "<namespace> | <model>"
	Namespace   string                   `json:"namespace,omitempty"`
	Pod         string                   `json:"pod,omitempty"`
	PodIssues   bool                     `json:"pod_issues,omitempty"`
	Goals       []string                 `json:"goals,omitempty"`
	Start       string                   `json:"start,omitempty"` // RFC3339
	End         string                   `json:"end,omitempty"`   // RFC3339
}

type LogContextResult struct {
	Context     string                   `json:"context"`
	Entries     []types.LogEntry         `json:"entries"`
	Identities  []types.ResourceIdentity `json:"identities"`
	PodIssues   []identity.PodIssue      `json:"pod_issues,omitempty"`
	Dropped     int                      `json:"dropped"`
	Passthrough int                      `json:"passthrough"`
	Degraded    []types.IdentityFailure  `json:"degraded,omitempty"`
	Window      types.TimeRange          `json:"window"`
}

// --- Tool: build_links ---

type BuildLinksParams struct {
	Kind      string `json:"kind,omitempty"`
	Group     string `json:"group,omitempty"`
	Version   string `json:"version,omitempty"`
	Name      string `json:"name,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	Start     string `json:"start,omitempty"` // RFC3339
	End       string `json:"end,omitempty"`   // RFC3339
}

type LinksResult struct {
	ConsoleURL string `json:"console_url,omitempty"`
	TraceURL   string `json:"trace_url,omitempty"`
}

// --- Resource: health ---

type HealthResponse struct {
	Status   string         `json:"status"` // healthy, degraded
	Korrel8r Korrel8rHealth `json:"korrel8r"`
	Tools    int            `json:"tools"`
}

type Korrel8rHealth struct {
	Enabled   bool   `json:"enabled"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}
