// Package config loads signalctx configuration from an optional YAML file and
// the environment.
//
// Environment names used by existing deployments are honored alongside the
// SIGNALCTX_ prefixed ones:
//
//	KORREL8R_ENABLED           korrel8r.enabled
//	KORREL8R_URL               korrel8r.url
//	KORREL8R_TIMEOUT_SECONDS   korrel8r.timeout_seconds
//	THANOS_TOKEN               korrel8r.token (file path or literal)
//	MAX_NUM_LOG_ROWS           enrich.row_budget
//	INJECT_VLLM_ERROR_LOG_MSG  enrich.inject_test_error_line
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/sgahlot/signalctx/internal/types"
)

// ErrDisabled is reported by Gate when correlation enrichment is turned off.
var ErrDisabled = errors.New("correlation enrichment is disabled")

const (
	// DefaultTokenPath is the projected service account token.
	DefaultTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"
	// DefaultCABundlePath is the system trust bundle on RHEL-based images.
	DefaultCABundlePath = "/etc/pki/ca-trust/extracted/pem/ca-bundle.crt"
	// DefaultKorrel8rURL is the in-cluster service of the observability operator.
	DefaultKorrel8rURL = "https://korrel8r.openshift-cluster-observability-operator.svc:9443"
)

// Config holds all configuration.
type Config struct {
	Korrel8r Korrel8rConfig `mapstructure:"korrel8r"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Links    LinksConfig    `mapstructure:"links"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Korrel8rConfig configures the correlation service client.
type Korrel8rConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	URL                string  `mapstructure:"url"`
	Token              string  `mapstructure:"token"`
	CABundle           string  `mapstructure:"ca_bundle"`
	InsecureSkipVerify bool    `mapstructure:"insecure_skip_verify"`
	TimeoutSeconds     float64 `mapstructure:"timeout_seconds"`
	RateLimit          float64 `mapstructure:"rate_limit"`
	RateBurst          int     `mapstructure:"rate_burst"`
}

// Timeout returns the per-call timeout.
func (k Korrel8rConfig) Timeout() time.Duration {
	return time.Duration(k.TimeoutSeconds * float64(time.Second))
}

// EnrichConfig configures context building.
type EnrichConfig struct {
	RowBudget int           `mapstructure:"row_budget"`
	Workers   int           `mapstructure:"workers"`
	Goals     []string      `mapstructure:"goals"`
	Window    time.Duration `mapstructure:"window"`

	// InjectTestErrorLine appends one synthetic ERROR line to every build.
	// Any non-empty value other than a false literal turns it on.
	InjectTestErrorLine bool `mapstructure:"-"`
}

// GoalList returns the configured goals as typed, normalized values.
func (e EnrichConfig) GoalList() []types.CorrelationGoal {
	goals := make([]types.CorrelationGoal, 0, len(e.Goals))
	for _, g := range e.Goals {
		goals = append(goals, types.CorrelationGoal(g))
	}
	return types.NormalizeGoals(goals)
}

// LinksConfig configures deep links to external UIs.
type LinksConfig struct {
	ConsoleURL      string `mapstructure:"console_url"`
	TraceViewerURL  string `mapstructure:"trace_viewer_url"`
	DashboardURL    string `mapstructure:"dashboard_url"`
	TraceDatasource string `mapstructure:"trace_datasource"`
}

// ServerConfig configures the tool server binary.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// envBindings maps config keys to environment names, first match wins.
var envBindings = map[string][]string{
	"korrel8r.enabled":              {"SIGNALCTX_KORREL8R_ENABLED", "KORREL8R_ENABLED"},
	"korrel8r.url":                  {"SIGNALCTX_KORREL8R_URL", "KORREL8R_URL"},
	"korrel8r.token":                {"SIGNALCTX_KORREL8R_TOKEN", "THANOS_TOKEN"},
	"korrel8r.ca_bundle":            {"SIGNALCTX_KORREL8R_CA_BUNDLE"},
	"korrel8r.insecure_skip_verify": {"SIGNALCTX_KORREL8R_INSECURE_SKIP_VERIFY"},
	"korrel8r.timeout_seconds":      {"SIGNALCTX_KORREL8R_TIMEOUT_SECONDS", "KORREL8R_TIMEOUT_SECONDS"},
	"korrel8r.rate_limit":           {"SIGNALCTX_KORREL8R_RATE_LIMIT"},
	"korrel8r.rate_burst":           {"SIGNALCTX_KORREL8R_RATE_BURST"},
	"enrich.row_budget":             {"SIGNALCTX_ENRICH_ROW_BUDGET", "MAX_NUM_LOG_ROWS"},
	"enrich.workers":                {"SIGNALCTX_ENRICH_WORKERS"},
	"enrich.goals":                  {"SIGNALCTX_ENRICH_GOALS"},
	"enrich.window":                 {"SIGNALCTX_ENRICH_WINDOW"},
	"enrich.inject_test_error_line": {"SIGNALCTX_ENRICH_INJECT_TEST_ERROR_LINE", "INJECT_VLLM_ERROR_LOG_MSG"},
	"links.console_url":             {"SIGNALCTX_LINKS_CONSOLE_URL"},
	"links.trace_viewer_url":        {"SIGNALCTX_LINKS_TRACE_VIEWER_URL"},
	"links.dashboard_url":           {"SIGNALCTX_LINKS_DASHBOARD_URL"},
	"links.trace_datasource":        {"SIGNALCTX_LINKS_TRACE_DATASOURCE"},
	"server.addr":                   {"SIGNALCTX_SERVER_ADDR"},
	"server.metrics_addr":           {"SIGNALCTX_SERVER_METRICS_ADDR"},
	"server.read_timeout":           {"SIGNALCTX_SERVER_READ_TIMEOUT"},
	"server.write_timeout":          {"SIGNALCTX_SERVER_WRITE_TIMEOUT"},
	"server.shutdown_timeout":       {"SIGNALCTX_SERVER_SHUTDOWN_TIMEOUT"},
	"logging.level":                 {"SIGNALCTX_LOG_LEVEL", "LOG_LEVEL"},
	"logging.development":           {"SIGNALCTX_LOG_DEVELOPMENT"},
}

// NewViper returns a viper instance with defaults and environment bindings.
// Callers may bind command-line flags to it before calling LoadViper.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("korrel8r.enabled", false)
	v.SetDefault("korrel8r.url", DefaultKorrel8rURL)
	v.SetDefault("korrel8r.token", DefaultTokenPath)
	v.SetDefault("korrel8r.ca_bundle", DefaultCABundlePath)
	v.SetDefault("korrel8r.insecure_skip_verify", false)
	v.SetDefault("korrel8r.timeout_seconds", 8)
	v.SetDefault("korrel8r.rate_limit", 20)
	v.SetDefault("korrel8r.rate_burst", 40)

	v.SetDefault("enrich.row_budget", 10)
	v.SetDefault("enrich.workers", 4)
	v.SetDefault("enrich.goals", types.GoalStrings(types.DefaultLogGoals()))
	v.SetDefault("enrich.window", "1h")
	v.SetDefault("enrich.inject_test_error_line", "")

	v.SetDefault("links.console_url", "")
	v.SetDefault("links.trace_viewer_url", "")
	v.SetDefault("links.dashboard_url", "")
	v.SetDefault("links.trace_datasource", "tempo")

	v.SetDefault("server.addr", ":8085")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	for key, envs := range envBindings {
		// BindEnv only fails without a key.
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

// Load reads configuration from file (optional) and environment variables.
func Load(configPath string) (*Config, error) {
	return LoadViper(NewViper(), configPath)
}

// LoadViper reads configuration through v, which should come from NewViper.
func LoadViper(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Enrich.InjectTestErrorLine = truthy(v.GetString("enrich.inject_test_error_line"))
	cfg.Enrich.Goals = splitList(cfg.Enrich.Goals)
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Korrel8r.Enabled {
		u, err := url.Parse(strings.TrimSpace(c.Korrel8r.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("korrel8r.url must be an http(s) URL, got %q", c.Korrel8r.URL)
		}
	}
	if c.Korrel8r.TimeoutSeconds <= 0 {
		return fmt.Errorf("korrel8r.timeout_seconds must be positive, got %v", c.Korrel8r.TimeoutSeconds)
	}
	if c.Enrich.RowBudget < 1 {
		return fmt.Errorf("enrich.row_budget must be at least 1, got %d", c.Enrich.RowBudget)
	}
	if c.Enrich.Workers < 1 {
		return fmt.Errorf("enrich.workers must be at least 1, got %d", c.Enrich.Workers)
	}
	if len(c.Enrich.GoalList()) == 0 {
		return errors.New("enrich.goals must name at least one goal class")
	}
	if c.Enrich.Window <= 0 {
		return fmt.Errorf("enrich.window must be positive, got %s", c.Enrich.Window)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Gate returns ErrDisabled unless enrichment is enabled.
func (c *Config) Gate() error {
	if c == nil || !c.Korrel8r.Enabled {
		return ErrDisabled
	}
	return nil
}

// LoadToken resolves the bearer token. A value naming a readable file is
// replaced by the file's trimmed contents; an absolute path that does not exist
// yields an empty token; anything else is used literally.
func (k Korrel8rConfig) LoadToken() (string, error) {
	value := strings.TrimSpace(k.Token)
	if value == "" {
		return "", nil
	}
	data, err := os.ReadFile(value)
	switch {
	case err == nil:
		return strings.TrimSpace(string(data)), nil
	case errors.Is(err, fs.ErrNotExist):
		if strings.HasPrefix(value, "/") {
			return "", nil
		}
		return value, nil
	case strings.HasPrefix(value, "/"):
		return "", fmt.Errorf("read token file %s: %w", value, err)
	default:
		// Not a path we can read; treat as a literal token.
		return value, nil
	}
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

// splitList flattens comma-separated entries, which env values produce.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
