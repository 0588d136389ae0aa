package toolexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sgahlot/signalctx/internal/types"
	"github.com/sgahlot/signalctx/internal/util"
)

const (
	defaultRemoteTimeout = 60 * time.Second
	maxRemoteBodyBytes   = 16 << 20
	maxErrorMessageBytes = 256

	pathTools     = "/mcp/tools"
	pathToolsCall = "/tools/"
)

// CallResponse is the body of a successful tool call.
type CallResponse struct {
	Result string `json:"result"`
}

// ListResponse is the body of the tool listing.
type ListResponse struct {
	Tools []types.Tool `json:"tools"`
}

// RemoteOptions configures a Remote executor.
type RemoteOptions struct {
	// BaseURL is the tool server root, e.g. "http://signalctx.observability.svc:8085".
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// Timeout bounds each call.
	// Default: 60s
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	// Logger is the logger. Default: zap.NewNop()
	Logger *zap.Logger
}

// Remote runs tools on a tool server over HTTP.
type Remote struct {
	base       string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ types.ToolExecutor = (*Remote)(nil)

// NewRemote creates a Remote executor.
func NewRemote(opts RemoteOptions) (*Remote, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("tool server URL must be an http(s) URL, got %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRemoteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   opts.Timeout,
		}
	}
	return &Remote{
		base:       base,
		token:      opts.Token,
		httpClient: httpClient,
		logger:     opts.Logger.Named("remote-tools"),
	}, nil
}

// CallTool posts args to the named tool.
func (r *Remote) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	var resp CallResponse
	if err := r.do(ctx, http.MethodPost, pathToolsCall+url.PathEscape(name), args, &resp); err != nil {
		return "", err
	}
	return resp.Result, nil
}

// ListTools fetches the server's tool list.
func (r *Remote) ListTools(ctx context.Context) ([]types.Tool, error) {
	var resp ListResponse
	if err := r.do(ctx, http.MethodGet, pathTools, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tools, nil
}

// GetTool looks the tool up in the server's list.
func (r *Remote) GetTool(ctx context.Context, name string) (types.Tool, bool, error) {
	tools, err := r.ListTools(ctx)
	if err != nil {
		return types.Tool{}, false, err
	}
	for _, t := range tools {
		if t.Name == name {
			return t, true, nil
		}
	}
	return types.Tool{}, false, nil
}

func (r *Remote) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return InvalidInput(fmt.Sprintf("arguments are not JSON encodable: %v", err), "Pass JSON-compatible values.")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.base+path, reader)
	if err != nil {
		return Internal("create request", err)
	}
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn("Tool server request failed",
			zap.String("url", util.RedactURL(r.base+path)),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return Unavailable("tool server unreachable", "Check the tool server URL and that it is running.", err)
	}
	defer func() {
		// Drain and close body to reuse connections.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBodyBytes))
	if err != nil {
		return Unavailable("read tool server response", "Retry the call.", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var te Error
		if json.Unmarshal(data, &te) == nil && te.Code != "" {
			return &te
		}
		msg := truncateUTF8(strings.TrimSpace(string(data)), maxErrorMessageBytes)
		return &Error{
			Code:    codeForStatus(resp.StatusCode),
			Message: fmt.Sprintf("tool server returned HTTP %d: %s", resp.StatusCode, msg),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return Internal("decode tool server response", err)
	}
	return nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func codeForStatus(status int) Code {
	switch {
	case status == http.StatusBadRequest, status == http.StatusNotFound, status == http.StatusUnprocessableEntity:
		return CodeInvalidInput
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		return CodeResourceUnavailable
	default:
		return CodeInternal
	}
}

// StatusForCode maps an error code to the HTTP status the server answers with.
func StatusForCode(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeResourceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
