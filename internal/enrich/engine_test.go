package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sgahlot/signalctx/internal/config"
	"github.com/sgahlot/signalctx/internal/korrel8r"
	"github.com/sgahlot/signalctx/internal/testutil"
	"github.com/sgahlot/signalctx/internal/types"
)

var (
	devPod  = types.ResourceIdentity{Namespace: "dev", Name: "my-pod"}
	prodPod = types.ResourceIdentity{Namespace: "prod", Name: "api-0"}
	window  = types.WindowEndingAt(t0.Add(time.Hour), 2*time.Hour)
)

func newTestEngine(t *testing.T, src SignalSource, mutate ...func(*Options)) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.Enabled = true
	opts.Source = src
	opts.Logger = zaptest.NewLogger(t)
	for _, m := range mutate {
		m(&opts)
	}
	return NewEngine(opts)
}

func TestBuild_RenderFormat(t *testing.T) {
	src := newStubSource()
	src.addLogs(devPod, logObj("dev", "my-pod", "error", "OOMKilled", 0))

	got := newTestEngine(t, src).Build(context.Background(), []types.ResourceIdentity{devPod}, nil, window)
	assert.Equal(t, "- namespace=dev pod=my-pod level=ERROR OOMKilled", got)
}

func TestBuild_RankingExample(t *testing.T) {
	src := newStubSource()
	src.addLogs(devPod,
		logObj("dev", "my-pod", "warn", "probe failed", 3*time.Minute),
		logObj("dev", "my-pod", "error", "old error", 0),
		logObj("dev", "my-pod", "fatal", "engine died", time.Minute),
		logObj("dev", "my-pod", "error", "new error", 2*time.Minute),
		logObj("dev", "my-pod", "critical", "gpu lost", 30*time.Second),
	)

	got := newTestEngine(t, src).Build(context.Background(), []types.ResourceIdentity{devPod}, nil, window)
	assert.Equal(t, strings.Join([]string{
		"- namespace=dev pod=my-pod level=FATAL engine died",
		"- namespace=dev pod=my-pod level=CRITICAL gpu lost",
		"- namespace=dev pod=my-pod level=ERROR new error",
		"- namespace=dev pod=my-pod level=ERROR old error",
		"- namespace=dev pod=my-pod level=WARN probe failed",
	}, "\n"), got)
}

func TestBuild_FiltersLowSignal(t *testing.T) {
	src := newStubSource()
	src.addLogs(devPod,
		logObj("dev", "my-pod", "debug", "cache miss", 0),
		logObj("dev", "my-pod", "info", "request served", 0),
		logObj("dev", "my-pod", "", "no level here", 0),
		logObj("dev", "my-pod", "trace", "span closed", 0),
		logObj("dev", "my-pod", "error", "boom", 0),
	)
	e := newTestEngine(t, src)

	agg, err := e.Aggregate(context.Background(), []types.ResourceIdentity{devPod}, nil, window)
	require.NoError(t, err)
	require.Len(t, agg.Entries, 2)
	assert.Equal(t, types.LevelError, agg.Entries[0].Level)
	assert.Equal(t, types.LevelTrace, agg.Entries[1].Level)
	assert.Equal(t, 3, agg.Dropped)
}

func TestBuild_RowBudget(t *testing.T) {
	src := newStubSource()
	var objs []types.RawObject
	for i := 0; i < 25; i++ {
		objs = append(objs, logObj("dev", "my-pod", "error", fmt.Sprintf("failure %02d", i), time.Duration(i)*time.Second))
	}
	src.addLogs(devPod, objs...)
	e := newTestEngine(t, src)

	out := e.Build(context.Background(), []types.ResourceIdentity{devPod}, nil, window)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "- namespace=dev pod=my-pod level=ERROR failure 24", lines[0])
	assert.Equal(t, "- namespace=dev pod=my-pod level=ERROR failure 15", lines[9])

	agg, err := e.Aggregate(context.Background(), []types.ResourceIdentity{devPod}, nil, window)
	require.NoError(t, err)
	assert.Equal(t, 15, agg.Dropped)
}

func TestBuild_Dedupes(t *testing.T) {
	src := newStubSource()
	src.addLogs(devPod,
		logObj("dev", "my-pod", "error", "OOMKilled", 0),
		logObj("dev", "my-pod", "error", "OOMKilled", time.Minute),
	)
	// Same query reached through a second goal is only run once.
	start := mustStart(devPod)
	src.goals[start] = append(src.goals[start], types.GoalQuery{Goal: types.GoalInfrastructureLogs, Query: src.goals[start][0].Query})

	e := newTestEngine(t, src)
	agg, err := e.Aggregate(context.Background(), []types.ResourceIdentity{devPod, devPod}, nil, window)
	require.NoError(t, err)
	require.Len(t, agg.Entries, 1)
	assert.Equal(t, t0.Add(time.Minute), agg.Entries[0].Timestamp)

	lists, queries := src.calls()
	assert.Equal(t, 1, lists, "duplicate identities collapse")
	assert.Equal(t, 1, queries, "duplicate resolved queries collapse")
}

func TestBuild_DisabledMakesNoCalls(t *testing.T) {
	src := newStubSource()
	src.addLogs(devPod, logObj("dev", "my-pod", "error", "boom", 0))
	e := newTestEngine(t, src, func(o *Options) {
		o.Enabled = false
		o.InjectTestErrorLine = true
	})

	assert.Equal(t, "", e.Build(context.Background(), []types.ResourceIdentity{devPod}, nil, window))
	_, err := e.Aggregate(context.Background(), []types.ResourceIdentity{devPod}, nil, window)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, err, config.ErrDisabled)

	lists, queries := src.calls()
	assert.Zero(t, lists)
	assert.Zero(t, queries)
}

func TestBuild_PartialFailure(t *testing.T) {
	src := newStubSource()
	src.addLogs(devPod, logObj("dev", "my-pod", "error", "OOMKilled", 0))
	src.goalErr[mustStart(prodPod)] = &korrel8r.Error{Op: korrel8r.OpListGoals, Kind: korrel8r.ErrStoreUnavailable, StatusCode: 503}

	third := types.ResourceIdentity{Namespace: "ops", Name: "job-1"}
	q := src.addLogs(third)
	src.objErr[q] = &korrel8r.Error{Op: korrel8r.OpQueryObjects, Kind: korrel8r.ErrTimeout}

	core, logs := observer.New(zapcore.WarnLevel)
	e := newTestEngine(t, src, func(o *Options) { o.Logger = zap.New(core) })

	agg, err := e.Aggregate(context.Background(), []types.ResourceIdentity{prodPod, devPod, third}, nil, window)
	require.NoError(t, err)
	require.Len(t, agg.Entries, 1)
	assert.Equal(t, "OOMKilled", agg.Entries[0].Message)

	require.Len(t, agg.Degraded, 2)
	assert.Equal(t, types.IdentityFailure{Identity: prodPod, Query: mustStart(prodPod), Reason: "store_unavailable"}, agg.Degraded[0])
	assert.Equal(t, types.IdentityFailure{Identity: third, Query: q, Reason: "timeout"}, agg.Degraded[1])

	assert.Equal(t, 2, logs.FilterMessage("Correlation degraded").Len())
}

func TestBuild_FullOutageIsEmpty(t *testing.T) {
	src := newStubSource()
	src.goalErr[mustStart(devPod)] = errors.New("connection refused")

	e := newTestEngine(t, src)
	assert.Equal(t, "", e.Build(context.Background(), []types.ResourceIdentity{devPod}, nil, window))
}

func TestBuild_CancellationReturnsEmpty(t *testing.T) {
	src := newStubSource()
	q := src.addLogs(devPod, logObj("dev", "my-pod", "error", "slow", 0))
	src.addLogs(prodPod, logObj("prod", "api-0", "error", "fast", 0))
	src.delay[q] = 5 * time.Second
	e := newTestEngine(t, src)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	got := e.Build(ctx, []types.ResourceIdentity{devPod, prodPod}, nil, window)
	assert.Equal(t, "", got, "partial results are discarded")
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err := e.Aggregate(ctx, []types.ResourceIdentity{devPod}, nil, window)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuild_InjectsOneErrorLine(t *testing.T) {
	src := newStubSource()
	src.addLogs(devPod, logObj("dev", "my-pod", "warn", "probe failed", 0))
	e := newTestEngine(t, src, func(o *Options) { o.InjectTestErrorLine = true })

	got := e.Build(context.Background(), []types.ResourceIdentity{devPod}, nil, window)
	assert.Equal(t,
		"- namespace=dev pod=my-pod level=WARN probe failed\n"+
			"- namespace=dev pod=llama-3-2-3b-instruct-predictor-649469cd68-8zn49 level=ERROR Server running out of memory",
		got)

	// Nothing found still yields the injected line.
	got = e.Build(context.Background(), nil, nil, window)
	assert.Equal(t, RenderLine(InjectedErrorEntry), got)
}

func TestBuild_DeterministicAcrossCompletionOrder(t *testing.T) {
	ids := make([]types.ResourceIdentity, 0, 8)
	src := newStubSource()
	for i := 0; i < 8; i++ {
		id := types.ResourceIdentity{Namespace: "ns", Name: fmt.Sprintf("pod-%d", i)}
		ids = append(ids, id)
		q := src.addLogs(id,
			logObj("ns", id.Name, "error", "same failure", 0),
			logObj("ns", id.Name, "warn", fmt.Sprintf("warn %d", i), time.Duration(i)*time.Second),
		)
		// Later identities finish first.
		src.delay[q] = time.Duration(8-i) * 5 * time.Millisecond
	}
	e := newTestEngine(t, src, func(o *Options) { o.Workers = 8; o.RowBudget = 100 })

	first := e.Build(context.Background(), ids, nil, window)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, e.Build(context.Background(), ids, nil, window))
	}
	assert.Len(t, strings.Split(first, "\n"), 16)
}

func TestBuilder_SingleUse(t *testing.T) {
	src := newStubSource()
	src.addLogs(devPod, logObj("dev", "my-pod", "error", "boom", 0))
	e := newTestEngine(t, src)

	b := e.NewBuilder()
	assert.Equal(t, StateIdle, b.State())
	assert.NotEmpty(t, b.RequestID())

	assert.NotEmpty(t, b.Build(context.Background(), []types.ResourceIdentity{devPod}, nil, window))
	assert.Equal(t, StateDone, b.State())

	assert.Equal(t, "", b.Build(context.Background(), []types.ResourceIdentity{devPod}, nil, window))
	_, err := b.Aggregate(context.Background(), []types.ResourceIdentity{devPod}, nil, window)
	assert.ErrorIs(t, err, ErrBuilderUsed)

	lists, _ := src.calls()
	assert.Equal(t, 1, lists)
	assert.NotEqual(t, b.RequestID(), e.NewBuilder().RequestID())
}

func TestBuild_PassesWindowAndGoals(t *testing.T) {
	src := newStubSource()
	src.addLogs(devPod)
	e := newTestEngine(t, src)

	_, err := e.Aggregate(context.Background(), []types.ResourceIdentity{devPod}, []types.CorrelationGoal{types.GoalTraceSpans}, window)
	require.NoError(t, err)

	require.Len(t, src.starts, 1)
	c := src.starts[0].Constraint
	require.NotNil(t, c)
	assert.Equal(t, window.Start, *c.Start)
	assert.Equal(t, window.End, *c.End)

	_, err = e.Aggregate(context.Background(), nil, nil, types.TimeRange{Start: t0, End: t0.Add(-time.Minute)})
	assert.Error(t, err)
}

func TestBuild_NoSource(t *testing.T) {
	e := NewEngine(Options{Enabled: true})
	_, err := e.Aggregate(context.Background(), []types.ResourceIdentity{devPod}, nil, window)
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestBuild_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	src := newStubSource()
	src.addLogs(devPod, logObj("dev", "my-pod", "error", "boom", 0))
	src.goalErr[mustStart(prodPod)] = &korrel8r.Error{Op: korrel8r.OpListGoals, Kind: korrel8r.ErrStoreUnavailable}
	e := newTestEngine(t, src, func(o *Options) { o.Tracer = tp.Tracer("test") })

	e.Build(context.Background(), []types.ResourceIdentity{devPod, prodPod}, nil, window)

	names := map[string]int{}
	for _, s := range recorder.Ended() {
		names[s.Name()]++
	}
	assert.Equal(t, 1, names["enrich.build"])
	assert.Equal(t, 2, names["enrich.identity"])
}

func TestBuild_EndToEndWithClient(t *testing.T) {
	fake := testutil.NewFakeKorrel8r(t)
	start := mustStart(devPod)
	appQ := `log:application:{"kubernetes.namespace_name":"dev","kubernetes.pod_name":"my-pod"}`
	infraQ := `log:infrastructure:{"kubernetes.namespace_name":"dev"}`
	fake.SetGoals(start,
		testutil.GoalResult{Class: "log:application", Queries: []string{appQ}},
		testutil.GoalResult{Class: "log:infrastructure", Queries: []string{infraQ}},
	)
	fake.SetObjects(appQ,
		testutil.LogRecord("dev", "my-pod", "error", "OOMKilled", t0),
		testutil.LogRecord("dev", "my-pod", "info", "started", t0),
	)
	fake.SetObjectsRaw(infraQ, 500, "loki down")

	client, err := korrel8r.NewClient(korrel8r.ClientOptions{BaseURL: fake.URL(), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	e := newTestEngine(t, client)

	agg, err := e.Aggregate(context.Background(), []types.ResourceIdentity{devPod}, nil, window)
	require.NoError(t, err)
	require.Len(t, agg.Entries, 1)
	assert.Equal(t, "OOMKilled", agg.Entries[0].Message)
	require.Len(t, agg.Degraded, 1)
	assert.Equal(t, "store_unavailable", agg.Degraded[0].Reason)

	assert.Equal(t, "- namespace=dev pod=my-pod level=ERROR OOMKilled",
		e.Build(context.Background(), []types.ResourceIdentity{devPod}, nil, window))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Korrel8r.Enabled = true
	cfg.Enrich.RowBudget = 3
	cfg.Enrich.InjectTestErrorLine = true

	opts := OptionsFromConfig(cfg)
	assert.True(t, opts.Enabled)
	assert.Equal(t, 3, opts.RowBudget)
	assert.True(t, opts.InjectTestErrorLine)
	assert.Equal(t, types.DefaultLogGoals(), opts.Goals)

	assert.False(t, OptionsFromConfig(nil).Enabled)
}
