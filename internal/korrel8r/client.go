package korrel8r

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sgahlot/signalctx/internal/query"
	"github.com/sgahlot/signalctx/internal/types"
	"github.com/sgahlot/signalctx/internal/util"
)

const (
	defaultTimeout   = 8 * time.Second
	defaultRateLimit = 20
	defaultRateBurst = 40
	userAgent        = "signalctx/v1"

	// maxResponseBytes caps how much of a response body is decoded.
	maxResponseBytes = 32 << 20
	// maxErrorBodyBytes caps how much of an error body is quoted in errors.
	maxErrorBodyBytes = 512

	pathGoals      = "/api/v1alpha1/lists/goals"
	pathObjects    = "/api/v1alpha1/objects"
	pathNeighbours = "/api/v1alpha1/graphs/neighbours"
	pathHealth     = "/healthz"
)

// Operation names used in errors, logs and metrics.
const (
	OpListGoals    = "list_goals"
	OpQueryObjects = "query_objects"
	OpNeighbours   = "neighbours"
	OpHealth       = "health"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// BaseURL is the Korrel8r service root, e.g. "https://korrel8r.ns.svc:9443".
	BaseURL string

	// Token is the bearer token forwarded on every request. Empty disables the header.
	Token string

	// CABundlePath is a PEM bundle trusted for in-cluster hosts
	// (hosts ending in ".svc" or containing "cluster.local").
	CABundlePath string

	// InsecureSkipVerify disables TLS verification. Development only.
	InsecureSkipVerify bool

	// Timeout bounds every individual call.
	// Default: 8s
	Timeout time.Duration

	// RateLimit is the steady-state request rate in requests per second.
	// Default: 20
	RateLimit float64

	// RateBurst is the limiter burst size.
	// Default: 40
	RateBurst int

	// HTTPClient overrides the transport. When set, CABundlePath and
	// InsecureSkipVerify are ignored.
	HTTPClient *http.Client

	// Logger is the logger. Default: zap.NewNop()
	Logger *zap.Logger
}

// DefaultClientOptions returns default options.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:   defaultTimeout,
		RateLimit: defaultRateLimit,
		RateBurst: defaultRateBurst,
	}
}

// Client talks to the Korrel8r REST API. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	token      string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a Client. It returns an error if the base URL is invalid.
func NewClient(opts ClientOptions) (*Client, error) {
	defaults := DefaultClientOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaults.RateLimit
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = defaults.RateBurst
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	logger := opts.Logger.Named("korrel8r")

	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport, err := newTransport(base.Hostname(), opts.CABundlePath, opts.InsecureSkipVerify, logger)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Transport: transport}
	}

	logger.Debug("Korrel8r client configured",
		zap.String("url", util.RedactURL(base.String())),
		zap.Duration("timeout", opts.Timeout),
		zap.Bool("auth", opts.Token != ""),
	)

	return &Client{
		baseURL:    base,
		token:      opts.Token,
		timeout:    opts.Timeout,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		logger:     logger,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("korrel8r URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid korrel8r URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("korrel8r URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("korrel8r URL must include a host")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// ListGoals asks Korrel8r which queries reach the given goal classes from start.
// Queries are returned in response order, one GoalQuery per concrete query.
func (c *Client) ListGoals(ctx context.Context, goals []types.CorrelationGoal, start Start) ([]types.GoalQuery, error) {
	if len(goals) == 0 {
		return nil, nil
	}
	req := goalsRequest{Goals: types.GoalStrings(goals), Start: start}
	var resp []goalNode
	if err := c.do(ctx, OpListGoals, http.MethodPost, pathGoals, nil, req, &resp); err != nil {
		return nil, err
	}

	var out []types.GoalQuery
	for _, node := range resp {
		for _, q := range node.Queries {
			if strings.TrimSpace(q.Query) == "" {
				continue
			}
			out = append(out, types.GoalQuery{
				Goal:  types.CorrelationGoal(node.Class),
				Query: q.Query,
				Count: q.Count,
			})
		}
	}
	return out, nil
}

// QueryObjects executes one query and returns the raw objects.
// The response may be a JSON array or an object with a "data" array.
func (c *Client) QueryObjects(ctx context.Context, q string) ([]types.RawObject, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, errors.New("query must be a non-empty string")
	}
	var raw json.RawMessage
	params := url.Values{"query": []string{q}}
	if err := c.do(ctx, OpQueryObjects, http.MethodGet, pathObjects, params, nil, &raw); err != nil {
		return nil, err
	}

	items, err := decodeObjectList(raw)
	if err != nil {
		return nil, &Error{Op: OpQueryObjects, Kind: ErrMalformedResponse, Err: err}
	}

	class := query.ClassOf(q)
	out := make([]types.RawObject, 0, len(items))
	for _, item := range items {
		out = append(out, types.NewRawObject(class, item))
	}
	return out, nil
}

// Neighbours returns the correlation graph around start, up to depth hops.
func (c *Client) Neighbours(ctx context.Context, start Start, depth int) (*Graph, error) {
	if depth <= 0 {
		depth = 1
	}
	req := neighboursRequest{Start: start, Depth: depth}
	var g Graph
	if err := c.do(ctx, OpNeighbours, http.MethodPost, pathNeighbours, nil, req, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Health reports whether the service answers its health endpoint with 2xx.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, OpHealth, http.MethodGet, pathHealth, nil, nil, nil)
}

// do executes one request. A nil out skips body decoding.
func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		requestsTotal.WithLabelValues(op, Reason(err)).Inc()
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			c.logger.Warn("Korrel8r request failed",
				zap.String("op", op),
				zap.String("path", path),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
		}
	}()

	// The per-call timeout covers time spent waiting on the limiter.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return classifyTransportError(op, ctxErr)
		}
		// The limiter refuses up front when the wait would outlast the deadline.
		return &Error{Op: op, Kind: ErrTimeout, Err: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("korrel8r %s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("korrel8r %s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("Korrel8r request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("query", params.Get("query")),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(op, err)
	}
	defer func() {
		// Drain and close body to reuse connections.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		var cause error
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			cause = errors.New(msg)
		}
		return &Error{Op: op, Kind: ErrStoreUnavailable, StatusCode: resp.StatusCode, Err: cause}
	}

	if out == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if isTimeout(err) || ctx.Err() != nil {
			return classifyTransportError(op, err)
		}
		return &Error{Op: op, Kind: ErrMalformedResponse, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// decodeObjectList accepts either a JSON array or {"data": [...]}.
func decodeObjectList(raw json.RawMessage) ([]map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var elems []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, err
		}
	case '{':
		var wrapped struct {
			Data *[]json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, err
		}
		if wrapped.Data == nil {
			return nil, errors.New(`object response has no "data" array`)
		}
		elems = *wrapped.Data
	default:
		return nil, fmt.Errorf("unexpected response starting with %q", trimmed[0])
	}

	out := make([]map[string]interface{}, 0, len(elems))
	for _, elem := range elems {
		dec := json.NewDecoder(bytes.NewReader(elem))
		dec.UseNumber()
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if m, ok := v.(map[string]interface{}); ok {
			out = append(out, m)
			continue
		}
		// Scalars and arrays are kept so nothing silently disappears.
		out = append(out, map[string]interface{}{"value": v})
	}
	return out, nil
}
