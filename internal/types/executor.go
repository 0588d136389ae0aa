package types

import "context"

// Tool describes a callable tool exposed to language-model agents.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolExecutor runs tools by name.
//
// Components that need tool execution accept a ToolExecutor instead of reaching for
// a process-wide server instance. Two implementations exist: direct in-process
// dispatch (toolexec.Registry) and calls over HTTP to a running tool server
// (toolexec.Remote). The caller picks the one matching its execution context.
//
// Implementations must be safe for concurrent use.
type ToolExecutor interface {
	// CallTool executes the named tool with JSON-compatible arguments and returns
	// the tool's text result.
	CallTool(ctx context.Context, name string, arguments map[string]interface{}) (string, error)

	// ListTools returns every tool the executor can run.
	ListTools(ctx context.Context) ([]Tool, error)

	// GetTool returns the tool metadata, or false if no such tool exists.
	GetTool(ctx context.Context, name string) (Tool, bool, error)
}
