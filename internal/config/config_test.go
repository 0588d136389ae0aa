package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgahlot/signalctx/internal/types"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.Korrel8r.Enabled)
	assert.Equal(t, DefaultKorrel8rURL, cfg.Korrel8r.URL)
	assert.Equal(t, DefaultTokenPath, cfg.Korrel8r.Token)
	assert.Equal(t, DefaultCABundlePath, cfg.Korrel8r.CABundle)
	assert.Equal(t, 8*time.Second, cfg.Korrel8r.Timeout())
	assert.Equal(t, 10, cfg.Enrich.RowBudget)
	assert.Equal(t, 4, cfg.Enrich.Workers)
	assert.Equal(t, time.Hour, cfg.Enrich.Window)
	assert.False(t, cfg.Enrich.InjectTestErrorLine)
	assert.Equal(t, types.DefaultLogGoals(), cfg.Enrich.GoalList())
	assert.Equal(t, "tempo", cfg.Links.TraceDatasource)
	assert.Equal(t, ":8085", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
	assert.ErrorIs(t, cfg.Gate(), ErrDisabled)
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	t.Setenv("KORREL8R_ENABLED", "true")
	t.Setenv("KORREL8R_URL", "http://korrel8r:8080")
	t.Setenv("KORREL8R_TIMEOUT_SECONDS", "3")
	t.Setenv("MAX_NUM_LOG_ROWS", "25")
	t.Setenv("INJECT_VLLM_ERROR_LOG_MSG", "yes")
	t.Setenv("THANOS_TOKEN", "literal-token")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Korrel8r.Enabled)
	assert.Equal(t, "http://korrel8r:8080", cfg.Korrel8r.URL)
	assert.Equal(t, 3*time.Second, cfg.Korrel8r.Timeout())
	assert.Equal(t, 25, cfg.Enrich.RowBudget)
	assert.True(t, cfg.Enrich.InjectTestErrorLine)
	assert.Equal(t, "literal-token", cfg.Korrel8r.Token)
	assert.NoError(t, cfg.Gate())
}

func TestLoad_PrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("MAX_NUM_LOG_ROWS", "25")
	t.Setenv("SIGNALCTX_ENRICH_ROW_BUDGET", "5")
	t.Setenv("SIGNALCTX_ENRICH_GOALS", "trace:span, log:application")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Enrich.RowBudget)
	assert.Equal(t, []types.CorrelationGoal{types.GoalApplicationLogs, types.GoalTraceSpans}, cfg.Enrich.GoalList())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signalctx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
korrel8r:
  enabled: true
  url: https://korrel8r.example.com
  timeout_seconds: 2.5
enrich:
  row_budget: 3
  goals:
    - log:application
    - k8s:Event.v1
  window: 30m
links:
  console_url: https://console.example.com
logging:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Korrel8r.Enabled)
	assert.Equal(t, 2500*time.Millisecond, cfg.Korrel8r.Timeout())
	assert.Equal(t, 3, cfg.Enrich.RowBudget)
	assert.Equal(t, 30*time.Minute, cfg.Enrich.Window)
	assert.Equal(t, []types.CorrelationGoal{types.GoalEvents, types.GoalApplicationLogs}, cfg.Enrich.GoalList())
	assert.Equal(t, "https://console.example.com", cfg.Links.ConsoleURL)
	require.NoError(t, cfg.Validate())

	// Environment overrides the file.
	t.Setenv("MAX_NUM_LOG_ROWS", "7")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Enrich.RowBudget)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Korrel8r.Enabled = true
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.Korrel8r.URL = "korrel8r:8080" }},
		{"zero timeout", func(c *Config) { c.Korrel8r.TimeoutSeconds = 0 }},
		{"zero budget", func(c *Config) { c.Enrich.RowBudget = 0 }},
		{"zero workers", func(c *Config) { c.Enrich.Workers = 0 }},
		{"no goals", func(c *Config) { c.Enrich.Goals = []string{" "} }},
		{"zero window", func(c *Config) { c.Enrich.Window = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	// A disabled gate does not need a usable URL.
	cfg := valid()
	cfg.Korrel8r.Enabled = false
	cfg.Korrel8r.URL = ""
	assert.NoError(t, cfg.Validate())
}

func TestGate_Nil(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Gate(), ErrDisabled)
}

func TestLoadToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  from-file\n"), 0o600))

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"file", tokenFile, "from-file"},
		{"literal", "sha256~abc", "sha256~abc"},
		{"missing absolute path", filepath.Join(dir, "absent"), ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Korrel8rConfig{Token: tt.value}.LoadToken()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruthy(t *testing.T) {
	for _, s := range []string{"1", "true", "TRUE", "yes", "on", "anything"} {
		assert.True(t, truthy(s), s)
	}
	for _, s := range []string{"", " ", "0", "false", "False", "no", "off"} {
		assert.False(t, truthy(s), s)
	}
}
