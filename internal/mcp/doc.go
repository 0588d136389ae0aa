// Package mcp serves signalctx's correlation tools to AI agents.
//
// # Overview
//
// The tool server lets agents (chat assistants, SRE bots, the signalctl CLI)
// ask the correlation service for objects related to a workload or alert, and
// get back the same ranked log context the enrichment engine feeds to models.
//
// # Tools
//
//	korrel8r_query_objects
//	  Execute one correlation query and return the raw objects.
//	  Params: query (required)
//	  Returns: JSON array of objects
//
//	korrel8r_get_correlated
//	  Resolve goal classes from a start query and return every related object.
//	  Params: goals (required), query or alertname (required)
//	  Returns: JSON array of objects
//
//	korrel8r_find_related
//	  Return the correlation graph around a start query or firing alert.
//	  Params: query or alertname (required), depth (1-5, default 1)
//	  Returns: FindRelatedResult
//
//	correlated_log_context
//	  Build the ranked log context for workloads.
//	  Params: identities, alert_labels, series + model, namespace + pod or
//	  namespace + pod_issues; goals, start, end
//	  Returns: LogContextResult
//
//	build_links
//	  Render console and trace viewer links.
//	  Params: kind, group, version, name, namespace and/or trace_id, start, end
//	  Returns: LinksResult
//
// # HTTP
//
//	POST /tools/{name}      run a tool; body is the JSON arguments
//	GET  /mcp/tools         list tools with their input schemas
//	GET  /resources/health  operational health
//
// Failed calls answer with {"error", "code", "recovery"} where code is one of
// INVALID_INPUT (400), RESOURCE_UNAVAILABLE (503) or INTERNAL_ERROR (500).
//
// # Constructor
//
//	reg, err := mcp.NewRegistry(mcp.Backend{...})
//	srv := mcp.NewServer(reg, mcp.ServerOptions{Addr: ":8085"})
//	err = srv.Start(ctx)
package mcp
