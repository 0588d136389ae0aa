package enrich

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sgahlot/signalctx/internal/config"
	"github.com/sgahlot/signalctx/internal/korrel8r"
	"github.com/sgahlot/signalctx/internal/normalizer"
	"github.com/sgahlot/signalctx/internal/types"
)

const (
	defaultRowBudget = 10
	defaultWorkers   = 4
	tracerName       = "github.com/sgahlot/signalctx/internal/enrich"
)

var (
	// ErrDisabled is returned by Aggregate when enrichment is turned off.
	ErrDisabled = config.ErrDisabled

	// ErrBuilderUsed is returned when a Builder is asked to run a second time.
	ErrBuilderUsed = errors.New("context builder already used")

	// ErrNoSource is returned when an enabled engine has no signal source.
	ErrNoSource = errors.New("no signal source configured")
)

// SignalSource is the part of the correlation service the builder uses.
// *korrel8r.Client implements it.
type SignalSource interface {
	ListGoals(ctx context.Context, goals []types.CorrelationGoal, start korrel8r.Start) ([]types.GoalQuery, error)
	QueryObjects(ctx context.Context, query string) ([]types.RawObject, error)
}

// Options configures an Engine.
type Options struct {
	// Enabled gates all enrichment. Disabled engines make no calls.
	Enabled bool

	// Source answers correlation queries. Required when Enabled.
	Source SignalSource

	// Normalizer converts raw objects. Default: normalizer.New with defaults.
	Normalizer *normalizer.Normalizer

	// Goals are used when a request names none.
	// Default: log:application, log:infrastructure
	Goals []types.CorrelationGoal

	// RowBudget caps rendered entries.
	// Default: 10
	RowBudget int

	// Workers caps how many identities are queried concurrently.
	// Default: 4
	Workers int

	// InjectTestErrorLine appends InjectedErrorEntry to every rendered context.
	InjectTestErrorLine bool

	// Logger is the logger. Default: zap.NewNop()
	Logger *zap.Logger

	// Tracer creates spans. Default: the global OpenTelemetry tracer.
	Tracer trace.Tracer
}

// DefaultOptions returns default options. The result is disabled.
func DefaultOptions() Options {
	return Options{
		Goals:     types.DefaultLogGoals(),
		RowBudget: defaultRowBudget,
		Workers:   defaultWorkers,
	}
}

// OptionsFromConfig maps loaded configuration onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	opts.Enabled = cfg.Gate() == nil
	opts.Goals = cfg.Enrich.GoalList()
	opts.RowBudget = cfg.Enrich.RowBudget
	opts.Workers = cfg.Enrich.Workers
	opts.InjectTestErrorLine = cfg.Enrich.InjectTestErrorLine
	return opts
}

// Engine holds the collaborators shared by all builds. It is safe for concurrent use.
type Engine struct {
	opts   Options
	logger *zap.Logger
	tracer trace.Tracer
}

// NewEngine creates an Engine, filling unset options with defaults.
func NewEngine(opts Options) *Engine {
	defaults := DefaultOptions()
	if len(opts.Goals) == 0 {
		opts.Goals = defaults.Goals
	}
	opts.Goals = types.NormalizeGoals(opts.Goals)
	if opts.RowBudget <= 0 {
		opts.RowBudget = defaults.RowBudget
	}
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalizer.New(normalizer.Options{Logger: opts.Logger})
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	return &Engine{
		opts:   opts,
		logger: opts.Logger.Named("enrich"),
		tracer: opts.Tracer,
	}
}

// Enabled reports whether the engine will query the correlation service.
func (e *Engine) Enabled() bool { return e.opts.Enabled }

// Goals returns the default goals.
func (e *Engine) Goals() []types.CorrelationGoal {
	return append([]types.CorrelationGoal(nil), e.opts.Goals...)
}

// RowBudget returns the configured row budget.
func (e *Engine) RowBudget() int { return e.opts.RowBudget }

// NewBuilder returns a fresh single-use Builder.
func (e *Engine) NewBuilder() *Builder {
	return newBuilder(e)
}

// Build renders the correlated context for one request. It never fails;
// see Builder.Build.
func (e *Engine) Build(ctx context.Context, ids []types.ResourceIdentity, goals []types.CorrelationGoal, window types.TimeRange) string {
	return e.NewBuilder().Build(ctx, ids, goals, window)
}

// Aggregate returns the ranked entries for one request; see Builder.Aggregate.
func (e *Engine) Aggregate(ctx context.Context, ids []types.ResourceIdentity, goals []types.CorrelationGoal, window types.TimeRange) (types.AggregatedContext, error) {
	return e.NewBuilder().Aggregate(ctx, ids, goals, window)
}

// Render renders aggregated entries, appending InjectedErrorEntry when the
// engine is configured to inject it.
func (e *Engine) Render(entries []types.LogEntry) string {
	if e.opts.InjectTestErrorLine {
		entries = append(entries[:len(entries):len(entries)], InjectedErrorEntry)
	}
	return Render(entries)
}

// WindowEndingNow is a convenience for callers without an explicit window.
func WindowEndingNow(d time.Duration) types.TimeRange {
	return types.WindowEndingAt(time.Now().UTC(), d)
}
