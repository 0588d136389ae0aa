// Package toolexec runs agent tools either in-process or against a remote tool server.
//
// # Overview
//
// Callers depend on types.ToolExecutor and pick an implementation that fits
// where they run:
//
//   - Registry dispatches directly to registered handlers in this process.
//   - Remote calls a running tool server over HTTP (POST /tools/<name>,
//     GET /mcp/tools).
//
// # Errors
//
// Tool failures are *Error values carrying a stable Code (INVALID_INPUT,
// RESOURCE_UNAVAILABLE, INTERNAL_ERROR) and a recovery hint. The server writes
// them as JSON and Remote decodes them back, so callers see the same error on
// both paths.
//
// # Metrics
//
//   - signalctx_tool_calls_total (counter, labels: tool, code)
//   - signalctx_tool_call_duration_seconds (histogram, labels: tool)
package toolexec
