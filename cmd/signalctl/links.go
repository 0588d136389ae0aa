package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sgahlot/signalctx/internal/mcp"
)

func linksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Build console and trace viewer links",
	}
	cmd.AddCommand(consoleLinkCmd())
	cmd.AddCommand(traceLinkCmd())
	return cmd
}

func consoleLinkCmd() *cobra.Command {
	var (
		namespace string
		kind      string
		group     string
		apiVer    string
	)

	cmd := &cobra.Command{
		Use:   "console [name]",
		Short: "Link to a resource in the OpenShift console",
		Long: `Build a console link for a resource. Without a name the link opens the
resource list.

Examples:
  signalctl links console --kind Pod -n llm-serving vllm-0
  signalctl links console --kind InferenceService --group serving.kserve.io --version v1beta1 -n llm-serving`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{
				"kind":      kind,
				"group":     group,
				"version":   apiVer,
				"namespace": namespace,
			}
			if len(args) == 1 {
				params["name"] = args[0]
			}
			var result mcp.LinksResult
			if err := callTool(cmd.Context(), mcp.ToolBuildLinks, params, &result); err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), result, outputFmt)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace; omit for cluster-scoped resources")
	cmd.Flags().StringVar(&kind, "kind", "Pod", "Resource kind")
	cmd.Flags().StringVar(&group, "group", "", "API group for custom resources")
	cmd.Flags().StringVar(&apiVer, "version", "", "API version for custom resources")
	return cmd
}

func traceLinkCmd() *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "trace <trace-id>",
		Short: "Link to a trace in the trace viewer or dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{"trace_id": args[0]}
			if since > 0 {
				end := time.Now().UTC()
				params["start"] = end.Add(-since).Format(time.RFC3339)
				params["end"] = end.Format(time.RFC3339)
			}
			var result mcp.LinksResult
			if err := callTool(cmd.Context(), mcp.ToolBuildLinks, params, &result); err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), result, outputFmt)
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "Time range ending now for dashboard links")
	return cmd
}
