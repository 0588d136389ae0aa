package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sgahlot/signalctx/internal/mcp"
)

func contextCmd() *cobra.Command {
	var (
		namespace string
		pod       string
		goals     []string
		since     time.Duration
		podIssues bool
	)

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Show the ranked log context for a namespace or pod",
		Long: `Build the correlated log context block for a namespace, a pod, or every
failing pod in a namespace.

Examples:
  # Context for one pod over the last 30 minutes
  signalctl context -n llm-serving --pod vllm-0 --since 30m

  # Context for every Failed or CrashLoopBackOff pod in a namespace
  signalctl context -n llm-serving --pod-issues

  # Only infrastructure logs, as JSON
  signalctl context -n llm-serving --goal log:infrastructure -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if namespace == "" {
				return fmt.Errorf("--namespace is required")
			}
			if podIssues && pod != "" {
				return fmt.Errorf("--pod and --pod-issues are mutually exclusive")
			}

			params := map[string]interface{}{"namespace": namespace}
			if pod != "" {
				params["pod"] = pod
			}
			if podIssues {
				params["pod_issues"] = true
			}
			if len(goals) > 0 {
				params["goals"] = goals
			}
			if since > 0 {
				end := time.Now().UTC()
				params["start"] = end.Add(-since).Format(time.RFC3339)
				params["end"] = end.Format(time.RFC3339)
			}

			var result mcp.LogContextResult
			if err := callTool(cmd.Context(), mcp.ToolLogContext, params, &result); err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), result, outputFmt)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace to correlate (required)")
	cmd.Flags().StringVar(&pod, "pod", "", "Pod name; omit for the whole namespace")
	cmd.Flags().StringSliceVar(&goals, "goal", nil, "Goal class to collect (repeatable); defaults to the configured goals")
	cmd.Flags().DurationVar(&since, "since", 0, "Lookback window ending now; defaults to the configured window")
	cmd.Flags().BoolVar(&podIssues, "pod-issues", false, "Correlate every Failed or CrashLoopBackOff pod in the namespace")

	return cmd
}
