package mcp

import "github.com/sgahlot/signalctx/internal/types"

var queryObjectsTool = types.Tool{
	Name: ToolQueryObjects,
	Description: "Execute a Korrel8r domain query and return the matching objects. Examples: " +
		`alert:alert:{"alertname":"PodDisruptionBudgetAtLimit"}, ` +
		`k8s:Pod.v1:{"namespace":"llm-serving","name":"vllm-0"}, ` +
		`loki:log:{"kubernetes.namespace_name":"llm-serving"}, ` +
		`trace:span:{".k8s.namespace.name":"llm-serving"}`,
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]string{"type": "string", "description": "Korrel8r query of the form domain:class:selector"},
		},
		"required": []string{"query"},
	},
}

var getCorrelatedTool = types.Tool{
	Name:        ToolGetCorrelated,
	Description: "Return objects correlated with a start query for the given goal classes",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"goals": map[string]interface{}{
				"type":        "array",
				"items":       map[string]string{"type": "string"},
				"description": "Goal classes, e.g. trace:span, log:application, log:infrastructure, metric:metric",
			},
			"query":     map[string]string{"type": "string", "description": "Start query of the form domain:class:selector"},
			"alertname": map[string]string{"type": "string", "description": "Firing alert to start from, used when query is empty"},
		},
		"required": []string{"goals"},
	},
}

var findRelatedTool = types.Tool{
	Name:        ToolFindRelated,
	Description: "Return the correlation graph around a start query: which classes hold related data and the queries that reach them",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query":     map[string]string{"type": "string", "description": "Start query of the form domain:class:selector"},
			"alertname": map[string]string{"type": "string", "description": "Firing alert to start from, used when query is empty"},
			"depth":     map[string]interface{}{"type": "integer", "minimum": 1, "maximum": maxGraphDepth, "description": "Hops to follow; defaults to 1"},
		},
	},
}

var logContextTool = types.Tool{
	Name:        ToolLogContext,
	Description: "Build ranked, deduplicated WARN-and-above log context for workloads",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"identities": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"namespace": map[string]string{"type": "string"},
						"name":      map[string]string{"type": "string"},
					},
					"required": []string{"namespace"},
				},
				"description": "Workloads to correlate",
			},
			"alert_labels": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "object", "additionalProperties": map[string]string{"type": "string"}},
				"description": "Label sets of firing alerts; namespace and pod or pod_name select the workload",
			},
			"series": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "object", "additionalProperties": map[string]string{"type": "string"}},
				"description": "Metric series label sets; namespace and pod select the workload",
			},
			"model":      map[string]string{"type": "string", "description": "Model as \"<namespace> | <model>\", used when no series names a namespace"},
			"namespace":  map[string]string{"type": "string", "description": "Namespace, used when identities is empty"},
			"pod":        map[string]string{"type": "string", "description": "Optional pod name within namespace"},
			"pod_issues": map[string]string{"type": "boolean", "description": "Correlate every Failed or CrashLoopBackOff pod in namespace"},
			"goals": map[string]interface{}{
				"type":        "array",
				"items":       map[string]string{"type": "string"},
				"description": "Goal classes; defaults to application and infrastructure logs",
			},
			"start": map[string]string{"type": "string", "description": "Window start, RFC3339"},
			"end":   map[string]string{"type": "string", "description": "Window end, RFC3339"},
		},
	},
}

var buildLinksTool = types.Tool{
	Name:        ToolBuildLinks,
	Description: "Render console links for a Kubernetes resource and viewer links for a trace",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"kind":      map[string]string{"type": "string", "description": "Resource kind, e.g. Pod"},
			"group":     map[string]string{"type": "string", "description": "API group; empty for core"},
			"version":   map[string]string{"type": "string", "description": "API version, e.g. v1"},
			"name":      map[string]string{"type": "string", "description": "Resource name"},
			"namespace": map[string]string{"type": "string", "description": "Resource namespace"},
			"trace_id":  map[string]string{"type": "string", "description": "Trace ID"},
			"start":     map[string]string{"type": "string", "description": "Trace window start, RFC3339"},
			"end":       map[string]string{"type": "string", "description": "Trace window end, RFC3339"},
		},
	},
}
