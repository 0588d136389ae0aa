// signalctl queries correlated signals from the command line.
//
// Installation:
//
//	go build -o signalctl ./cmd/signalctl
//	mv signalctl /usr/local/bin/
//
// Usage:
//
//	signalctl context -n llm-serving --pod vllm-0
//	signalctl context -n llm-serving --pod-issues
//	signalctl objects 'k8s:Pod.v1:{"namespace":"llm-serving"}'
//	signalctl goals --goal trace:span 'alert:alert:{"alertname":"KubePodCrashLooping"}'
//	signalctl related --alert KubePodCrashLooping
//	signalctl links console --kind Deployment -n llm-serving vllm
//	signalctl tools list --remote http://signalctx.observability.svc:8085
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/sgahlot/signalctx/internal/config"
	"github.com/sgahlot/signalctx/internal/mcp"
	"github.com/sgahlot/signalctx/internal/toolexec"
	"github.com/sgahlot/signalctx/internal/types"
)

var (
	version     = "dev"
	outputFmt   string
	configPath  string
	korrel8rURL string
	remoteURL   string
	token       string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "signalctl",
		Short: "Query correlated signals for Kubernetes workloads",
		Long: `signalctl runs the signalctx tools from the command line.

By default tools run in-process against Korrel8r, configured the same way as
the server (config file and environment). With --remote, calls go to a running
signalctx server instead. Output matches the tool result schemas.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&korrel8rURL, "korrel8r-url", "", "Korrel8r URL; enables correlation when set")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote", "", "Run tools on a signalctx server at this URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token or token file path")

	rootCmd.AddCommand(contextCmd())
	rootCmd.AddCommand(objectsCmd())
	rootCmd.AddCommand(goalsCmd())
	rootCmd.AddCommand(relatedCmd())
	rootCmd.AddCommand(linksCmd())
	rootCmd.AddCommand(toolsCmd())
	return rootCmd
}

// getExecutorFunc is the function used to create the tool executor.
// It can be overridden in tests to inject a local registry.
var getExecutorFunc = defaultGetExecutor

// getKubeClientFunc creates the Kubernetes client for pod issue lookup.
var getKubeClientFunc = defaultGetKubeClient

func getExecutor() (types.ToolExecutor, error) {
	return getExecutorFunc()
}

func defaultGetExecutor() (types.ToolExecutor, error) {
	if remoteURL != "" {
		remoteToken, err := config.Korrel8rConfig{Token: token}.LoadToken()
		if err != nil {
			return nil, err
		}
		return toolexec.NewRemote(toolexec.RemoteOptions{BaseURL: remoteURL, Token: remoteToken})
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if korrel8rURL != "" {
		cfg.Korrel8r.Enabled = true
		cfg.Korrel8r.URL = korrel8rURL
	}
	if token != "" {
		cfg.Korrel8r.Token = token
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Pod issue lookup is optional; run without it when no cluster is reachable.
	kube, err := getKubeClientFunc()
	if err != nil {
		kube = nil
	}
	backend, _, err := mcp.BackendFromConfig(cfg, kube, nil)
	if err != nil {
		return nil, err
	}
	reg, err := mcp.NewRegistry(backend)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func defaultGetKubeClient() (kubernetes.Interface, error) {
	// Use in-cluster config or kubeconfig
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		rules,
		&clientcmd.ConfigOverrides{},
	).ClientConfig()
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(restConfig)
}

// callTool runs a tool and decodes its JSON result into out.
func callTool(ctx context.Context, name string, args map[string]interface{}, out interface{}) error {
	exec, err := getExecutor()
	if err != nil {
		return fmt.Errorf("failed to create tool executor: %w", err)
	}
	result, err := exec.CallTool(ctx, name, args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(result), out); err != nil {
		return fmt.Errorf("decode %s result: %w", name, err)
	}
	return nil
}
