package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sgahlot/signalctx/internal/mcp"
)

func relatedCmd() *cobra.Command {
	var (
		alertname string
		depth     int
	)

	cmd := &cobra.Command{
		Use:   "related [query]",
		Short: "Show which signal classes are correlated with a start object",
		Long: `Walk the Korrel8r correlation graph around a start query or a firing alert
and list the classes that hold related data, with the queries that reach them.

Examples:
  signalctl related 'k8s:Pod.v1:{"namespace":"llm-serving","name":"vllm-0"}'
  signalctl related --alert KubePodCrashLooping --depth 2 -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{"depth": depth}
			switch {
			case len(args) == 1 && alertname != "":
				return errors.New("pass either a query or --alert, not both")
			case len(args) == 1:
				params["query"] = args[0]
			case alertname != "":
				params["alertname"] = alertname
			default:
				return errors.New("a query or --alert is required")
			}

			var result mcp.FindRelatedResult
			if err := callTool(cmd.Context(), mcp.ToolFindRelated, params, &result); err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), result, outputFmt)
		},
	}

	cmd.Flags().StringVar(&alertname, "alert", "", "Start from the firing alert with this name")
	cmd.Flags().IntVar(&depth, "depth", 1, "Number of hops to follow")
	return cmd
}
