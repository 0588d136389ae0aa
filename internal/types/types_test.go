package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"error", LevelError},
		{"ERROR", LevelError},
		{" Warn ", LevelWarn},
		{"warning", LevelWarning},
		{"fatal", LevelFatal},
		{"Critical", LevelCritical},
		{"info", LevelInfo},
		{"debug", LevelDebug},
		{"trace", LevelTrace},
		{"", LevelUnknown},
		{"verbose", LevelUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.in))
		})
	}
}

func TestLogLevel_Rank(t *testing.T) {
	assert.Equal(t, LevelCritical.Rank(), LevelFatal.Rank())
	assert.Equal(t, LevelWarn.Rank(), LevelWarning.Rank())

	ordered := []LogLevel{LevelFatal, LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace, LevelUnknown}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i-1].Rank(), ordered[i].Rank(), "%s should outrank %s", ordered[i-1], ordered[i])
	}
}

func TestLogLevel_IsLowSignal(t *testing.T) {
	for _, l := range []LogLevel{LevelDebug, LevelInfo, LevelUnknown} {
		assert.True(t, l.IsLowSignal(), l)
	}
	for _, l := range []LogLevel{LevelCritical, LevelFatal, LevelError, LevelWarn, LevelWarning, LevelTrace} {
		assert.False(t, l.IsLowSignal(), l)
	}
}

func TestUniqueIdentities(t *testing.T) {
	in := []ResourceIdentity{
		{Namespace: "dev", Name: "a"},
		{Namespace: " dev ", Name: "a"},
		{Namespace: "", Name: "orphan"},
		{Namespace: "prod"},
		{Namespace: "dev", Name: "b"},
	}
	got := UniqueIdentities(in)
	assert.Equal(t, []ResourceIdentity{
		{Namespace: "dev", Name: "a"},
		{Namespace: "prod"},
		{Namespace: "dev", Name: "b"},
	}, got)
	assert.Nil(t, UniqueIdentities(nil))
}

func TestResourceIdentity_Key(t *testing.T) {
	assert.Equal(t, "dev/pod-1", ResourceIdentity{Namespace: "dev", Name: "pod-1"}.Key())
	assert.Equal(t, "dev", ResourceIdentity{Namespace: "dev"}.Key())
}

func TestNormalizeGoals(t *testing.T) {
	got := NormalizeGoals([]CorrelationGoal{"log:infrastructure", " log:application", "", "log:infrastructure"})
	assert.Equal(t, []CorrelationGoal{GoalApplicationLogs, GoalInfrastructureLogs}, got)
	assert.Equal(t, []string{"log:application", "log:infrastructure"}, GoalStrings(got))
}

func TestTimeRange(t *testing.T) {
	end := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	w := WindowEndingAt(end, time.Hour)
	assert.Equal(t, end.Add(-time.Hour), w.Start)
	assert.NoError(t, w.Validate())
	assert.False(t, w.IsZero())
	assert.True(t, TimeRange{}.IsZero())

	bad := TimeRange{Start: end, End: end.Add(-time.Minute)}
	assert.Error(t, bad.Validate())
}

func TestKindForClass(t *testing.T) {
	tests := map[string]ObjectKind{
		"log:application":     ObjectKindLog,
		"loki:log":            ObjectKindLog,
		"k8s:Pod.v1":          ObjectKindK8s,
		"k8s:Deployment.apps": ObjectKindK8s,
		"k8s:Event.v1":        ObjectKindEvent,
		"trace:span":          ObjectKindTrace,
		"alert:alert":         ObjectKindAlert,
		"metric:metric":       ObjectKindUnknown,
		"netflow:network":     ObjectKindUnknown,
		"":                    ObjectKindUnknown,
	}
	for class, want := range tests {
		assert.Equal(t, want, KindForClass(class), class)
	}
}

func TestLogEntry_DedupKey(t *testing.T) {
	a := LogEntry{Namespace: "dev", Pod: "p", Level: LevelError, Message: "boom", Timestamp: time.Unix(1, 0)}
	b := a
	b.Timestamp = time.Unix(2, 0)
	b.Class = "log:infrastructure"
	assert.Equal(t, a.DedupKey(), b.DedupKey())

	b.Level = LevelWarn
	assert.NotEqual(t, a.DedupKey(), b.DedupKey())
}
