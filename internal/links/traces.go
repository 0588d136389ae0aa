package links

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sgahlot/signalctx/internal/types"
)

const defaultDatasource = "tempo"

// TracesOptions configures Traces. At least one URL must be set.
type TracesOptions struct {
	// ViewerURL is a native trace viewer. When set it wins over DashboardURL.
	ViewerURL string

	// DashboardURL is a dashboard with an explore page.
	DashboardURL string

	// Datasource names the trace datasource in the dashboard.
	// Default: "tempo"
	Datasource string
}

// Traces builds trace links.
type Traces struct {
	viewer     string
	dashboard  string
	datasource string
}

// NewTraces validates opts and returns a Traces.
func NewTraces(opts TracesOptions) (*Traces, error) {
	t := &Traces{datasource: strings.TrimSpace(opts.Datasource)}
	if t.datasource == "" {
		t.datasource = defaultDatasource
	}
	var err error
	if strings.TrimSpace(opts.ViewerURL) != "" {
		if t.viewer, err = parseBase(opts.ViewerURL); err != nil {
			return nil, fmt.Errorf("trace viewer: %w", err)
		}
	}
	if strings.TrimSpace(opts.DashboardURL) != "" {
		if t.dashboard, err = parseBase(opts.DashboardURL); err != nil {
			return nil, fmt.Errorf("dashboard: %w", err)
		}
	}
	if t.viewer == "" && t.dashboard == "" {
		return nil, ErrNotConfigured
	}
	return t, nil
}

type exploreQuery struct {
	RefID     string `json:"refId"`
	QueryType string `json:"queryType"`
	Query     string `json:"query"`
}

type exploreRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type explorePane struct {
	Datasource string         `json:"datasource"`
	Queries    []exploreQuery `json:"queries"`
	Range      exploreRange   `json:"range"`
}

// TraceURL links to one trace. A native viewer link is "<viewer>/trace/<id>";
// otherwise the dashboard explore page is opened on window. Unset bounds
// default to the last hour.
func (t *Traces) TraceURL(traceID string, window types.TimeRange) (string, error) {
	if t == nil {
		return "", ErrNotConfigured
	}
	traceID = strings.TrimSpace(traceID)
	if traceID == "" {
		return "", errors.New("trace ID is required")
	}
	if t.viewer != "" {
		return t.viewer + "/trace/" + url.PathEscape(traceID), nil
	}

	rng := exploreRange{From: "now-1h", To: "now"}
	if !window.IsZero() {
		if err := window.Validate(); err != nil {
			return "", err
		}
		if !window.Start.IsZero() {
			rng.From = strconv.FormatInt(window.Start.UnixMilli(), 10)
		}
		if !window.End.IsZero() {
			rng.To = strconv.FormatInt(window.End.UnixMilli(), 10)
		}
	}
	pane, err := json.Marshal(explorePane{
		Datasource: t.datasource,
		Queries:    []exploreQuery{{RefID: "A", QueryType: "traceql", Query: traceID}},
		Range:      rng,
	})
	if err != nil {
		return "", fmt.Errorf("encode explore state: %w", err)
	}
	return t.dashboard + "/explore?left=" + url.QueryEscape(string(pane)), nil
}
