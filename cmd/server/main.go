// signalctx-server serves the correlation tools over HTTP.
//
// Configuration comes from an optional YAML file, the environment and flags,
// in increasing order of precedence:
//
//	signalctx-server --config /etc/signalctx/config.yaml --korrel8r-enabled
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/sgahlot/signalctx/internal/config"
	"github.com/sgahlot/signalctx/internal/korrel8r"
	"github.com/sgahlot/signalctx/internal/mcp"
	"github.com/sgahlot/signalctx/internal/toolexec"
)

var version = "dev"

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := run(ctx, cfg, inClusterClient(logger), logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

// loadConfig parses flags and merges them over the file and environment.
func loadConfig(args []string) (*config.Config, error) {
	fs := pflag.NewFlagSet("signalctx-server", pflag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML config file")
	fs.String("addr", ":8085", "Tool server listen address")
	fs.String("metrics-addr", ":9090", "Metrics and health listen address")
	fs.Bool("korrel8r-enabled", false, "Enable correlation enrichment")
	fs.String("korrel8r-url", config.DefaultKorrel8rURL, "Korrel8r service URL")
	fs.Int("row-budget", 10, "Maximum log lines per context block")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := config.NewViper()
	for key, name := range map[string]string{
		"server.addr":         "addr",
		"server.metrics_addr": "metrics-addr",
		"korrel8r.enabled":    "korrel8r-enabled",
		"korrel8r.url":        "korrel8r-url",
		"enrich.row_budget":   "row-budget",
		"logging.level":       "log-level",
	} {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	cfg, err := config.LoadViper(v, *configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	if cfg.Development {
		logConfig = zap.NewDevelopmentConfig()
	}
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig.Build()
}

// inClusterClient returns a clientset when running in a pod, else nil.
// Without one the pod_issues option of correlated_log_context is unavailable.
func inClusterClient(logger *zap.Logger) kubernetes.Interface {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		logger.Info("Not running in cluster, pod issue lookup disabled", zap.Error(err))
		return nil
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		logger.Warn("Failed to create Kubernetes client, pod issue lookup disabled", zap.Error(err))
		return nil
	}
	return clientset
}

// app is the wired server, built separately from run for testability.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *korrel8r.Client
	registry *toolexec.Registry
	tools    *mcp.Server
}

func newApp(cfg *config.Config, kube kubernetes.Interface, logger *zap.Logger) (*app, error) {
	backend, client, err := mcp.BackendFromConfig(cfg, kube, logger)
	if err != nil {
		return nil, err
	}
	if client == nil {
		logger.Info("Correlation enrichment disabled")
	}

	registry, err := mcp.NewRegistry(backend)
	if err != nil {
		return nil, err
	}

	serverOpts := mcp.ServerOptions{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	}
	if client != nil {
		serverOpts.Health = client
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		registry: registry,
		tools:    mcp.NewServer(registry, serverOpts),
	}, nil
}

// metricsHandler serves /metrics and the liveness probe.
func (a *app) metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// run wires the application and blocks until ctx is cancelled or a server fails.
func run(ctx context.Context, cfg *config.Config, kube kubernetes.Interface, logger *zap.Logger) error {
	logger.Info("Starting signalctx server",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.Bool("korrel8r_enabled", cfg.Korrel8r.Enabled),
		zap.Int("row_budget", cfg.Enrich.RowBudget),
	)

	a, err := newApp(cfg, kube, logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.tools.Start(ctx) })
	g.Go(func() error { return a.serveMetrics(ctx) })
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func (a *app) serveMetrics(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.MetricsAddr,
		Handler:           a.metricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	}
}
