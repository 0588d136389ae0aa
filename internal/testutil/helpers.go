// Package testutil provides shared test helpers for the signalctx project.
// Import this in test files to avoid duplicating fixture loading, record builders, etc.
package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

// LoadRecords reads a YAML (or JSON) list of records from path.
// Fails the test immediately if the file can't be read or parsed.
func LoadRecords(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read fixture %s", path)
	var records []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &records), "failed to parse fixture %s", path)
	return records
}

// LogRecord builds a log record the way the log store returns it.
// A zero ts leaves the timestamp out.
func LogRecord(ns, pod, level, message string, ts time.Time) map[string]interface{} {
	rec := map[string]interface{}{
		"kubernetes": map[string]interface{}{
			"namespace_name": ns,
			"pod_name":       pod,
		},
		"message": message,
	}
	if level != "" {
		rec["level"] = level
	}
	if !ts.IsZero() {
		rec["@timestamp"] = ts.UTC().Format(time.RFC3339Nano)
	}
	return rec
}
