package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/sgahlot/signalctx/internal/types"
)

// ToolsResult is the result of the tools list command.
type ToolsResult struct {
	Tools []types.Tool `json:"tools"`
}

// CallResult is the result of the tools call command.
type CallResult struct {
	Tool   string      `json:"tool"`
	Result interface{} `json:"result"`
}

func toolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List or call tools directly",
	}
	cmd.AddCommand(toolsListCmd())
	cmd.AddCommand(toolsCallCmd())
	return cmd
}

func toolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exec, err := getExecutor()
			if err != nil {
				return fmt.Errorf("failed to create tool executor: %w", err)
			}
			tools, err := exec.ListTools(cmd.Context())
			if err != nil {
				return err
			}
			return outputResult(cmd.OutOrStdout(), ToolsResult{Tools: tools}, outputFmt)
		},
	}
}

func toolsCallCmd() *cobra.Command {
	var (
		rawArgs  string
		argsFile string
	)

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call a tool with JSON or YAML arguments",
		Long: `Call a tool by name. Arguments are a JSON object, given inline or read
from a JSON or YAML file.

Examples:
  signalctl tools call korrel8r_query_objects --args '{"query":"k8s:Pod.v1:{\"namespace\":\"dev\"}"}'
  signalctl tools call correlated_log_context -f args.yaml -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(rawArgs, argsFile)
			if err != nil {
				return err
			}
			exec, err := getExecutor()
			if err != nil {
				return fmt.Errorf("failed to create tool executor: %w", err)
			}
			out, err := exec.CallTool(cmd.Context(), args[0], toolArgs)
			if err != nil {
				return err
			}

			result := CallResult{Tool: args[0], Result: out}
			var decoded interface{}
			if json.Unmarshal([]byte(out), &decoded) == nil {
				result.Result = decoded
			}
			return outputResult(cmd.OutOrStdout(), result, outputFmt)
		},
	}

	cmd.Flags().StringVar(&rawArgs, "args", "", "Tool arguments as a JSON object")
	cmd.Flags().StringVarP(&argsFile, "file", "f", "", "Read tool arguments from a JSON or YAML file")
	return cmd
}

// parseToolArgs reads arguments from the inline value or the file. YAML is
// accepted for files since every JSON document is valid YAML.
func parseToolArgs(raw, file string) (map[string]interface{}, error) {
	if raw != "" && file != "" {
		return nil, fmt.Errorf("--args and --file are mutually exclusive")
	}
	data := []byte(raw)
	if file != "" {
		var err error
		data, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read arguments file: %w", err)
		}
	}
	args := map[string]interface{}{}
	if len(data) == 0 {
		return args, nil
	}
	if err := yaml.Unmarshal(data, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON or YAML object: %w", err)
	}
	return args, nil
}
