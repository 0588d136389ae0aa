package enrich

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sgahlot/signalctx/internal/dedup"
	"github.com/sgahlot/signalctx/internal/korrel8r"
	"github.com/sgahlot/signalctx/internal/query"
	"github.com/sgahlot/signalctx/internal/ranking"
	"github.com/sgahlot/signalctx/internal/types"
)

// State is a Builder lifecycle stage.
type State int32

const (
	StateIdle State = iota
	StateQuerying
	StateAggregating
	StateRendering
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateQuerying:
		return "Querying"
	case StateAggregating:
		return "Aggregating"
	case StateRendering:
		return "Rendering"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// Builder runs one enrichment request. It must not be reused.
type Builder struct {
	engine    *Engine
	requestID string
	state     atomic.Int32
	logger    *zap.Logger
}

func newBuilder(e *Engine) *Builder {
	id := uuid.NewString()
	return &Builder{
		engine:    e,
		requestID: id,
		logger:    e.logger.With(zap.String("request_id", id)),
	}
}

// RequestID identifies the build in logs and spans.
func (b *Builder) RequestID() string { return b.requestID }

// State returns the current stage.
func (b *Builder) State() State { return State(b.state.Load()) }

func (b *Builder) setState(s State) { b.state.Store(int32(s)) }

// Build renders the context block for ids. It returns "" when enrichment is
// disabled, nothing survives filtering, the builder was already used, or ctx
// ends before the build completes.
func (b *Builder) Build(ctx context.Context, ids []types.ResourceIdentity, goals []types.CorrelationGoal, window types.TimeRange) string {
	agg, err := b.run(ctx, ids, goals, window, true)
	if err != nil {
		return ""
	}

	b.setState(StateRendering)
	out := b.engine.Render(agg.Entries)
	b.setState(StateDone)
	return out
}

// Aggregate runs the query and aggregation stages and returns the ranked,
// budgeted entries without rendering them.
func (b *Builder) Aggregate(ctx context.Context, ids []types.ResourceIdentity, goals []types.CorrelationGoal, window types.TimeRange) (types.AggregatedContext, error) {
	agg, err := b.run(ctx, ids, goals, window, false)
	if err != nil {
		return types.AggregatedContext{}, err
	}
	b.setState(StateDone)
	return agg, nil
}

func (b *Builder) run(ctx context.Context, ids []types.ResourceIdentity, goals []types.CorrelationGoal, window types.TimeRange, render bool) (agg types.AggregatedContext, err error) {
	if !b.state.CompareAndSwap(int32(StateIdle), int32(StateQuerying)) {
		buildsTotal.WithLabelValues("reused").Inc()
		b.logger.Error("Context builder reused", zap.Stringer("state", b.State()))
		return agg, ErrBuilderUsed
	}
	e := b.engine
	if !e.opts.Enabled {
		b.setState(StateDone)
		buildsTotal.WithLabelValues("disabled").Inc()
		return agg, ErrDisabled
	}
	if e.opts.Source == nil {
		b.setState(StateDone)
		buildsTotal.WithLabelValues("error").Inc()
		return agg, ErrNoSource
	}
	if err := window.Validate(); err != nil {
		b.setState(StateDone)
		buildsTotal.WithLabelValues("error").Inc()
		return agg, err
	}

	start := time.Now()
	ids = types.UniqueIdentities(ids)
	goals = types.NormalizeGoals(goals)
	if len(goals) == 0 {
		goals = e.opts.Goals
	}

	ctx, span := e.tracer.Start(ctx, "enrich.build",
		trace.WithAttributes(
			attribute.String("request.id", b.requestID),
			attribute.Int("identities", len(ids)),
			attribute.StringSlice("goals", types.GoalStrings(goals)),
			attribute.Bool("render", render),
		),
	)
	defer func() {
		buildDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	raws, degraded := b.query(ctx, ids, goals, window)
	if ctxErr := ctx.Err(); ctxErr != nil {
		b.setState(StateDone)
		buildsTotal.WithLabelValues("canceled").Inc()
		b.logger.Debug("Context build canceled, discarding partial results",
			zap.Int("objects", len(raws)),
			zap.Error(ctxErr),
		)
		return agg, ctxErr
	}

	b.setState(StateAggregating)
	agg = b.aggregate(raws)
	agg.Degraded = degraded

	span.SetAttributes(
		attribute.Int("objects", len(raws)),
		attribute.Int("entries", len(agg.Entries)),
		attribute.Int("dropped", agg.Dropped),
		attribute.Int("degraded", len(degraded)),
	)
	outcome := "success"
	switch {
	case len(agg.Entries) == 0:
		outcome = "empty"
	case len(degraded) > 0:
		outcome = "partial"
	}
	buildsTotal.WithLabelValues(outcome).Inc()
	droppedEntriesTotal.Add(float64(agg.Dropped))

	b.logger.Info("Built correlated context",
		zap.Int("identities", len(ids)),
		zap.Int("objects", len(raws)),
		zap.Int("entries", len(agg.Entries)),
		zap.Int("dropped", agg.Dropped),
		zap.Int("passthrough", agg.Passthrough),
		zap.Int("degraded", len(degraded)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return agg, nil
}

// identityResult is what one identity's fetch produced.
type identityResult struct {
	objects  []types.RawObject
	failures []types.IdentityFailure
}

// query fans identities out under the worker cap. Results are concatenated in
// identity order so completion order never leaks into the output.
func (b *Builder) query(ctx context.Context, ids []types.ResourceIdentity, goals []types.CorrelationGoal, window types.TimeRange) ([]types.RawObject, []types.IdentityFailure) {
	results := make([]identityResult, len(ids))

	var g errgroup.Group
	g.SetLimit(b.engine.opts.Workers)
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = b.queryIdentity(ctx, id, goals, window)
			return nil
		})
	}
	_ = g.Wait()

	var (
		raws     []types.RawObject
		failures []types.IdentityFailure
	)
	for _, r := range results {
		raws = append(raws, r.objects...)
		failures = append(failures, r.failures...)
	}
	return raws, failures
}

// queryIdentity resolves goals for one identity, then runs each resolved query in turn.
func (b *Builder) queryIdentity(ctx context.Context, id types.ResourceIdentity, goals []types.CorrelationGoal, window types.TimeRange) (res identityResult) {
	ctx, span := b.engine.tracer.Start(ctx, "enrich.identity",
		trace.WithAttributes(
			attribute.String("k8s.namespace.name", id.Namespace),
			attribute.String("k8s.pod.name", id.Name),
		),
	)
	defer func() {
		if len(res.failures) > 0 {
			span.SetStatus(codes.Error, res.failures[0].Reason)
		}
		span.End()
	}()

	fail := func(q string, err error) {
		reason := korrel8r.Reason(err)
		if errors.Is(err, query.ErrEmptyNamespace) {
			reason = "invalid_identity"
		}
		if reason == "canceled" {
			return
		}
		span.RecordError(err)
		degradedTotal.WithLabelValues(reason).Inc()
		b.logger.Warn("Correlation degraded",
			zap.String("identity", id.Key()),
			zap.String("query", q),
			zap.String("reason", reason),
			zap.Error(err),
		)
		res.failures = append(res.failures, types.IdentityFailure{Identity: id, Query: q, Reason: reason})
	}

	startQuery, err := query.ForIdentity(id)
	if err != nil {
		fail("", err)
		return res
	}
	start := korrel8r.Start{
		Queries:    []string{startQuery},
		Constraint: korrel8r.NewConstraint(window.Start, window.End, 0),
	}

	resolved, err := b.engine.opts.Source.ListGoals(ctx, goals, start)
	if err != nil {
		fail(startQuery, err)
		return res
	}
	b.logger.Debug("Resolved goal queries",
		zap.String("identity", id.Key()),
		zap.Int("queries", len(resolved)),
	)

	seen := make(map[string]struct{}, len(resolved))
	for _, gq := range resolved {
		if ctx.Err() != nil {
			return res
		}
		if _, dup := seen[gq.Query]; dup {
			continue
		}
		seen[gq.Query] = struct{}{}

		objs, err := b.engine.opts.Source.QueryObjects(ctx, gq.Query)
		if err != nil {
			fail(gq.Query, err)
			continue
		}
		res.objects = append(res.objects, objs...)
	}
	return res
}

// aggregate normalizes, filters, dedupes, ranks and truncates.
func (b *Builder) aggregate(raws []types.RawObject) types.AggregatedContext {
	entries, passthrough := b.engine.opts.Normalizer.NormalizeAll(raws)

	kept := make([]types.LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Level.IsLowSignal() {
			continue
		}
		kept = append(kept, e)
	}
	lowSignal := len(entries) - len(kept)

	ranked := ranking.Rank(dedup.Dedupe(kept))
	final := ranking.Truncate(ranked, b.engine.opts.RowBudget)
	if final == nil {
		final = []types.LogEntry{}
	}

	return types.AggregatedContext{
		Entries:     final,
		Dropped:     lowSignal + len(ranked) - len(final),
		Passthrough: len(passthrough),
	}
}
