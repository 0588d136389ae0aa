package main

import (
	"github.com/spf13/cobra"

	"github.com/sgahlot/signalctx/internal/mcp"
)

// ObjectsResult is the result of the objects and goals commands.
type ObjectsResult struct {
	Query   string                   `json:"query"`
	Goals   []string                 `json:"goals,omitempty"`
	Objects []map[string]interface{} `json:"objects"`
	Total   int                      `json:"total"`
}

func objectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objects <query>",
		Short: "Execute one Korrel8r query",
		Long: `Execute a Korrel8r domain query and print the objects it returns.
Common query mistakes, such as key="value" selectors, are repaired first.

Examples:
  signalctl objects 'k8s:Pod.v1:{"namespace":"llm-serving"}'
  signalctl objects 'alert:{alertname="KubePodCrashLooping"}' -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var objs []map[string]interface{}
			err := callTool(cmd.Context(), mcp.ToolQueryObjects, map[string]interface{}{"query": args[0]}, &objs)
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), newObjectsResult(args[0], nil, objs), outputFmt)
		},
	}
	return cmd
}

func goalsCmd() *cobra.Command {
	var goals []string

	cmd := &cobra.Command{
		Use:   "goals <query>",
		Short: "Collect the objects correlated with a start query",
		Long: `Resolve goal classes from a start query and execute every resulting query.
Queries that fail are skipped.

Examples:
  signalctl goals --goal log:application 'k8s:Pod.v1:{"namespace":"llm-serving","name":"vllm-0"}'
  signalctl goals --goal trace:span --goal metric:metric 'alert:alert:{"alertname":"HighLatency"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var objs []map[string]interface{}
			params := map[string]interface{}{"query": args[0], "goals": goals}
			if err := callTool(cmd.Context(), mcp.ToolGetCorrelated, params, &objs); err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), newObjectsResult(args[0], goals, objs), outputFmt)
		},
	}

	cmd.Flags().StringSliceVarP(&goals, "goal", "g", []string{"log:application", "log:infrastructure"}, "Goal class (repeatable)")
	return cmd
}

func newObjectsResult(q string, goals []string, objs []map[string]interface{}) ObjectsResult {
	if objs == nil {
		objs = []map[string]interface{}{}
	}
	return ObjectsResult{Query: q, Goals: goals, Objects: objs, Total: len(objs)}
}
