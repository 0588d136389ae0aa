package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sgahlot/signalctx/internal/toolexec"
	"github.com/sgahlot/signalctx/internal/types"
)

const maxRequestBytes = 1 << 20

// HealthChecker reports whether the correlation service answers.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ServerOptions configures the tool server.
type ServerOptions struct {
	// Addr is the listen address. Default: ":8085"
	Addr string

	// ReadTimeout and WriteTimeout bound each request.
	// Defaults: 15s and 60s
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration

	// Health probes the correlation service for /resources/health. Nil reports
	// the service as disabled.
	Health HealthChecker

	// Logger for server operations.
	Logger *zap.Logger
}

// DefaultServerOptions returns sensible defaults.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Addr:            ":8085",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server exposes a ToolExecutor over HTTP.
type Server struct {
	logger     *zap.Logger
	tools      types.ToolExecutor
	opts       ServerOptions
	httpServer *http.Server
}

// NewServer creates a tool server that dispatches to tools.
func NewServer(tools types.ToolExecutor, opts ServerOptions) *Server {
	defaults := DefaultServerOptions()
	if opts.Addr == "" {
		opts.Addr = defaults.Addr
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaults.ReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		logger: opts.Logger.Named("mcp-server"),
		tools:  tools,
		opts:   opts,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tools/", s.withRequestID(s.handleToolCall))
	mux.HandleFunc("/mcp/tools", s.withRequestID(s.handleToolsList))
	mux.HandleFunc("/resources/health", s.withRequestID(s.handleHealth))
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.logger.Info("Starting tool server", zap.String("addr", s.opts.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down tool server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// withRequestID propagates or assigns X-Request-ID.
func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(toolexec.HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(toolexec.HeaderRequestID, id)
		next(w, r.WithContext(toolexec.WithRequestID(r.Context(), id)))
	}
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/tools/")
	if name == "" || strings.Contains(name, "/") {
		s.writeError(w, toolexec.InvalidInput("tool name is required", "POST to /tools/<name>."))
		return
	}

	args := map[string]interface{}{}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		s.writeError(w, toolexec.InvalidInput("request body too large or unreadable", "Send at most 1MiB of JSON."))
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			s.writeError(w, toolexec.InvalidInput("Invalid request body", "Send a JSON object of arguments."))
			return
		}
	}

	start := time.Now()
	result, err := s.tools.CallTool(r.Context(), name, args)
	logger := s.logger.With(
		zap.String("tool", name),
		zap.String("request_id", toolexec.RequestID(r.Context())),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		te := toolexec.AsError(err)
		if te.Code == toolexec.CodeInternal {
			logger.Error("Tool call failed", zap.Error(err))
		} else {
			logger.Info("Tool call rejected", zap.String("code", string(te.Code)), zap.Error(err))
		}
		s.writeError(w, te)
		return
	}
	logger.Debug("Tool call succeeded")
	s.writeJSON(w, http.StatusOK, toolexec.CallResponse{Result: result})
}

func (s *Server) handleToolsList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tools, err := s.tools.ListTools(r.Context())
	if err != nil {
		s.writeError(w, toolexec.AsError(err))
		return
	}
	s.writeJSON(w, http.StatusOK, toolexec.ListResponse{Tools: tools})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := HealthResponse{Status: "healthy"}
	if tools, err := s.tools.ListTools(r.Context()); err == nil {
		resp.Tools = len(tools)
	}
	if s.opts.Health != nil {
		resp.Korrel8r.Enabled = true
		if err := s.opts.Health.Health(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Korrel8r.Error = err.Error()
		} else {
			resp.Korrel8r.Reachable = true
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeError writes a tool error with the status matching its code.
func (s *Server) writeError(w http.ResponseWriter, te *toolexec.Error) {
	s.writeJSON(w, toolexec.StatusForCode(te.Code), te)
}
