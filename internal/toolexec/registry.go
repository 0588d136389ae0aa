package toolexec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sgahlot/signalctx/internal/types"
)

// Handler runs one tool call and returns its text result.
type Handler func(ctx context.Context, args map[string]interface{}) (string, error)

type registered struct {
	tool    types.Tool
	handler Handler
}

// Registry is an in-process ToolExecutor. It is safe for concurrent use.
type Registry struct {
	logger *zap.Logger

	mu    sync.RWMutex
	tools map[string]registered
	order []string
}

var _ types.ToolExecutor = (*Registry)(nil)

// NewRegistry creates an empty Registry. A nil logger disables logging.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger: logger.Named("tools"),
		tools:  make(map[string]registered),
	}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(tool types.Tool, handler Handler) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("tool %s: handler is required", tool.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name)
	}
	r.tools[tool.Name] = registered{tool: tool, handler: handler}
	r.order = append(r.order, tool.Name)
	return nil
}

// CallTool runs the named tool. Handler panics are returned as internal errors.
func (r *Registry) CallTool(ctx context.Context, name string, args map[string]interface{}) (result string, err error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		toolCallsTotal.WithLabelValues("unknown", string(CodeInvalidInput)).Inc()
		return "", &Error{
			Code:     CodeInvalidInput,
			Message:  fmt.Sprintf("unknown tool %q", name),
			Recovery: "List the available tools and call one of them.",
			Err:      ErrUnknownTool,
		}
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = Internal(fmt.Sprintf("tool %s panicked", name), fmt.Errorf("%v", p))
			r.logger.Error("Tool panicked", zap.String("tool", name), zap.Any("panic", p))
		}
		code := codeOK
		if err != nil {
			code = string(CodeOf(err))
		}
		toolCallsTotal.WithLabelValues(name, code).Inc()
		toolCallDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		r.logger.Debug("Tool call finished",
			zap.String("tool", name),
			zap.String("request_id", RequestID(ctx)),
			zap.String("code", code),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()

	return entry.handler(ctx, args)
}

// ListTools returns tools in registration order.
func (r *Registry) ListTools(context.Context) ([]types.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].tool)
	}
	return out, nil
}

// GetTool returns the named tool's metadata.
func (r *Registry) GetTool(_ context.Context, name string) (types.Tool, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.tools[name]
	return entry.tool, ok, nil
}
