package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/sgahlot/signalctx/internal/enrich"
	"github.com/sgahlot/signalctx/internal/identity"
	"github.com/sgahlot/signalctx/internal/korrel8r"
	"github.com/sgahlot/signalctx/internal/links"
	"github.com/sgahlot/signalctx/internal/query"
	"github.com/sgahlot/signalctx/internal/toolexec"
	"github.com/sgahlot/signalctx/internal/types"
)

const (
	defaultWindow = time.Hour
	maxGraphDepth = 5
)

// GraphSource answers korrel8r_find_related. *korrel8r.Client implements it.
type GraphSource interface {
	Neighbours(ctx context.Context, start korrel8r.Start, depth int) (*korrel8r.Graph, error)
}

// Backend holds what the tools talk to. Nil fields disable the tools or
// options that need them.
type Backend struct {
	// Source answers korrel8r_* tools. Nil when correlation is disabled.
	Source enrich.SignalSource

	// Graph answers korrel8r_find_related. Nil when correlation is disabled.
	Graph GraphSource

	// Engine builds log context.
	Engine *enrich.Engine

	// Links renders build_links results.
	Links links.Set

	// PodIssues finds unhealthy pods for correlated_log_context.
	PodIssues *identity.PodIssueFinder

	// Window is the lookback used when a call names no start.
	// Default: 1h
	Window time.Duration

	// Clock returns the current time. Default: time.Now
	Clock func() time.Time

	// Logger is the logger. Default: zap.NewNop()
	Logger *zap.Logger
}

// Handlers implements the tool handlers.
type Handlers struct {
	backend Backend
	logger  *zap.Logger
}

// NewHandlers creates a Handlers instance, filling backend defaults.
func NewHandlers(b Backend) *Handlers {
	if b.Window <= 0 {
		b.Window = defaultWindow
	}
	if b.Clock == nil {
		b.Clock = time.Now
	}
	if b.Logger == nil {
		b.Logger = zap.NewNop()
	}
	return &Handlers{backend: b, logger: b.Logger.Named("mcp-handlers")}
}

// NewRegistry returns a Registry holding every tool backed by b.
func NewRegistry(b Backend) (*toolexec.Registry, error) {
	reg := toolexec.NewRegistry(b.Logger)
	if err := RegisterTools(reg, b); err != nil {
		return nil, err
	}
	return reg, nil
}

// RegisterTools adds the signalctx tools to reg.
func RegisterTools(reg *toolexec.Registry, b Backend) error {
	h := NewHandlers(b)
	for _, t := range []struct {
		tool    types.Tool
		handler toolexec.Handler
	}{
		{queryObjectsTool, h.HandleQueryObjects},
		{getCorrelatedTool, h.HandleGetCorrelated},
		{findRelatedTool, h.HandleFindRelated},
		{logContextTool, h.HandleLogContext},
		{buildLinksTool, h.HandleBuildLinks},
	} {
		if err := reg.Register(t.tool, t.handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleQueryObjects handles korrel8r_query_objects.
func (h *Handlers) HandleQueryObjects(ctx context.Context, args map[string]interface{}) (string, error) {
	var params QueryObjectsParams
	if err := decodeArgs(args, &params); err != nil {
		return "", err
	}
	if strings.TrimSpace(params.Query) == "" {
		return "", toolexec.InvalidInput("query must be a non-empty string",
			`Provide a query such as k8s:Pod.v1:{"namespace":"llm-serving"}.`)
	}
	if err := h.requireSource(); err != nil {
		return "", err
	}

	q := query.Normalize(params.Query)
	objs, err := h.backend.Source.QueryObjects(ctx, q)
	if err != nil {
		return "", sourceError("Korrel8r query failed", err)
	}
	return marshalText(objectFields(objs))
}

// HandleGetCorrelated handles korrel8r_get_correlated. Queries that fail after
// goal resolution are skipped.
func (h *Handlers) HandleGetCorrelated(ctx context.Context, args map[string]interface{}) (string, error) {
	var params GetCorrelatedParams
	if err := decodeArgs(args, &params); err != nil {
		return "", err
	}
	goals := goalList(params.Goals)
	if len(goals) == 0 {
		return "", toolexec.InvalidInput("goals must be a non-empty list of strings",
			"Provide goals like [\"trace:span\", \"log:application\", \"log:infrastructure\", \"metric:metric\"].")
	}
	q, err := startQuery(params.Query, params.Alertname)
	if err != nil {
		return "", err
	}
	if err := h.requireSource(); err != nil {
		return "", err
	}

	start := korrel8r.Start{Queries: []string{q}}
	resolved, err := h.backend.Source.ListGoals(ctx, goals, start)
	if err != nil {
		return "", sourceError("Korrel8r list goals failed", err)
	}

	all := []map[string]interface{}{}
	seen := make(map[string]struct{}, len(resolved))
	for _, gq := range resolved {
		if _, dup := seen[gq.Query]; dup {
			continue
		}
		seen[gq.Query] = struct{}{}
		objs, err := h.backend.Source.QueryObjects(ctx, gq.Query)
		if err != nil {
			if ctx.Err() != nil {
				return "", sourceError("Korrel8r query canceled", ctx.Err())
			}
			h.logger.Warn("Correlated query failed",
				zap.String("query", gq.Query),
				zap.String("request_id", toolexec.RequestID(ctx)),
				zap.Error(err),
			)
			continue
		}
		all = append(all, objectFields(objs)...)
	}
	return marshalText(all)
}

// HandleFindRelated handles korrel8r_find_related.
func (h *Handlers) HandleFindRelated(ctx context.Context, args map[string]interface{}) (string, error) {
	var params FindRelatedParams
	if err := decodeArgs(args, &params); err != nil {
		return "", err
	}
	if params.Depth == 0 {
		params.Depth = 1
	}
	if params.Depth < 1 || params.Depth > maxGraphDepth {
		return "", toolexec.InvalidInput(
			fmt.Sprintf("depth must be between 1 and %d, got %d", maxGraphDepth, params.Depth),
			"Start with depth 1 and widen only if needed.")
	}
	q, err := startQuery(params.Query, params.Alertname)
	if err != nil {
		return "", err
	}
	if h.backend.Graph == nil {
		return "", toolexec.Unavailable("Korrel8r is disabled",
			"Enable Korrel8r with KORREL8R_ENABLED=true and set KORREL8R_URL.", enrich.ErrDisabled)
	}

	g, err := h.backend.Graph.Neighbours(ctx, korrel8r.Start{Queries: []string{q}}, params.Depth)
	if err != nil {
		return "", sourceError("Korrel8r neighbours failed", err)
	}
	classes := g.Classes()
	if classes == nil {
		classes = []string{}
	}
	return marshalText(FindRelatedResult{Start: q, Depth: params.Depth, Classes: classes, Graph: g})
}

// HandleLogContext handles correlated_log_context. Identities come from the
// explicit list, alert label sets, metric series, the namespace and pod pair
// and, with pod_issues, the unhealthy pods of the namespace.
func (h *Handlers) HandleLogContext(ctx context.Context, args map[string]interface{}) (string, error) {
	var params LogContextParams
	if err := decodeArgs(args, &params); err != nil {
		return "", err
	}
	window, err := h.window(params.Start, params.End)
	if err != nil {
		return "", err
	}
	if h.backend.Engine == nil || !h.backend.Engine.Enabled() {
		return "", toolexec.Unavailable("log correlation is disabled",
			"Enable Korrel8r with KORREL8R_ENABLED=true and set KORREL8R_URL.", enrich.ErrDisabled)
	}

	result := LogContextResult{Window: window}
	ids := append([]types.ResourceIdentity(nil), params.Identities...)
	ids = append(ids, identity.FromAlerts(params.AlertLabels)...)
	if len(params.Series) > 0 || params.Model != "" {
		ids = append(ids, identity.FromSeries(params.Series, params.Model)...)
	}
	if params.Namespace != "" && !params.PodIssues {
		ids = append(ids, types.ResourceIdentity{Namespace: params.Namespace, Name: params.Pod})
	}
	if params.PodIssues {
		if params.Namespace == "" {
			return "", toolexec.InvalidInput("pod_issues requires a namespace", "Pass the namespace to scan.")
		}
		if h.backend.PodIssues == nil {
			return "", toolexec.Unavailable("pod issue lookup is not available",
				"Run the server with access to the Kubernetes API.", nil)
		}
		issues, err := h.backend.PodIssues.Find(ctx, params.Namespace)
		if err != nil {
			return "", toolexec.Unavailable("listing pods failed", "Check the server's RBAC for pods.", err)
		}
		result.PodIssues = issues
		ids = append(ids, identity.IssueIdentities(issues)...)
	}
	ids = types.UniqueIdentities(ids)
	if len(ids) == 0 && !params.PodIssues {
		return "", toolexec.InvalidInput("no identities given",
			"Pass identities, alert_labels or series with a namespace label, or a namespace with an optional pod.")
	}
	result.Identities = ids
	if result.Identities == nil {
		result.Identities = []types.ResourceIdentity{}
	}

	agg, err := h.backend.Engine.Aggregate(ctx, ids, goalList(params.Goals), window)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", toolexec.Unavailable("log context build did not finish", "Retry with fewer identities.", err)
		}
		return "", toolexec.Internal("log context build failed", err)
	}
	result.Context = h.backend.Engine.Render(agg.Entries)
	result.Entries = agg.Entries
	result.Dropped = agg.Dropped
	result.Passthrough = agg.Passthrough
	result.Degraded = agg.Degraded
	return marshalText(result)
}

// HandleBuildLinks handles build_links.
func (h *Handlers) HandleBuildLinks(_ context.Context, args map[string]interface{}) (string, error) {
	var params BuildLinksParams
	if err := decodeArgs(args, &params); err != nil {
		return "", err
	}
	if params.Kind == "" && params.TraceID == "" {
		return "", toolexec.InvalidInput("kind or trace_id is required",
			"Pass kind, version and name for a console link, or trace_id for a trace link.")
	}

	var result LinksResult
	if params.Kind != "" {
		gvk := schema.GroupVersionKind{Group: params.Group, Version: params.Version, Kind: params.Kind}
		u, err := h.backend.Links.Console.ResourceURL(gvk, params.Name, params.Namespace)
		if err != nil {
			return "", linkError(err)
		}
		result.ConsoleURL = u
	}
	if params.TraceID != "" {
		window, err := parseWindow(params.Start, params.End)
		if err != nil {
			return "", err
		}
		u, err := h.backend.Links.Traces.TraceURL(params.TraceID, window)
		if err != nil {
			return "", linkError(err)
		}
		result.TraceURL = u
	}
	return marshalText(result)
}

// startQuery returns the normalized query, or the alert start query when only
// alertname is given.
func startQuery(q, alertname string) (string, error) {
	if strings.TrimSpace(q) != "" {
		return query.Normalize(q), nil
	}
	if strings.TrimSpace(alertname) != "" {
		return query.ForAlert(strings.TrimSpace(alertname))
	}
	return "", toolexec.InvalidInput("query or alertname is required",
		`Provide a Korrel8r query such as k8s:Pod.v1:{"namespace":"llm-serving"}, or the name of a firing alert.`)
}

func (h *Handlers) requireSource() error {
	if h.backend.Source == nil {
		return toolexec.Unavailable("Korrel8r is disabled",
			"Enable Korrel8r with KORREL8R_ENABLED=true and set KORREL8R_URL.", enrich.ErrDisabled)
	}
	return nil
}

// window parses start/end, defaulting to the configured lookback ending now.
func (h *Handlers) window(start, end string) (types.TimeRange, error) {
	w, err := parseWindow(start, end)
	if err != nil {
		return types.TimeRange{}, err
	}
	if w.End.IsZero() {
		w.End = h.backend.Clock().UTC()
	}
	if w.Start.IsZero() {
		w.Start = w.End.Add(-h.backend.Window)
	}
	if err := w.Validate(); err != nil {
		return types.TimeRange{}, toolexec.InvalidInput(err.Error(), "Make end later than start.")
	}
	return w, nil
}

func parseWindow(start, end string) (types.TimeRange, error) {
	var w types.TimeRange
	for _, f := range []struct {
		name string
		raw  string
		dst  *time.Time
	}{
		{"start", start, &w.Start},
		{"end", end, &w.End},
	} {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(f.raw))
		if err != nil {
			return types.TimeRange{}, toolexec.InvalidInput(
				fmt.Sprintf("%s must be an RFC3339 timestamp, got %q", f.name, f.raw),
				"Use a timestamp like 2025-03-01T12:00:00Z.")
		}
		*f.dst = t.UTC()
	}
	if err := w.Validate(); err != nil {
		return types.TimeRange{}, toolexec.InvalidInput(err.Error(), "Make end later than start.")
	}
	return w, nil
}

func sourceError(message string, err error) error {
	switch korrel8r.Reason(err) {
	case "malformed_response":
		return toolexec.Internal(message, err)
	case "error":
		return toolexec.Unavailable(message, "Check query syntax and Korrel8r service availability.", err)
	default:
		return toolexec.Unavailable(message, "Verify Korrel8r URL, token and service health.", err)
	}
}

func linkError(err error) error {
	if errors.Is(err, links.ErrNotConfigured) {
		return toolexec.Unavailable(err.Error(), "Configure the console, trace viewer or dashboard URL.", err)
	}
	return toolexec.InvalidInput(err.Error(), "Check the kind, version and trace ID.")
}

func goalList(in []string) []types.CorrelationGoal {
	goals := make([]types.CorrelationGoal, 0, len(in))
	for _, g := range in {
		goals = append(goals, types.CorrelationGoal(g))
	}
	return types.NormalizeGoals(goals)
}

func objectFields(objs []types.RawObject) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Fields)
	}
	return out
}

// decodeArgs converts loosely typed arguments into params.
func decodeArgs(args map[string]interface{}, params interface{}) error {
	data, err := json.Marshal(args)
	if err != nil {
		return toolexec.InvalidInput(fmt.Sprintf("arguments are not valid JSON: %v", err), "Pass a JSON object.")
	}
	if err := json.Unmarshal(data, params); err != nil {
		return toolexec.InvalidInput(fmt.Sprintf("invalid arguments: %v", err), "Check the tool's input schema.")
	}
	return nil
}

func marshalText(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", toolexec.Internal("encode result", err)
	}
	return string(data), nil
}
