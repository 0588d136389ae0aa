package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/sgahlot/signalctx/internal/korrel8r"
	"github.com/sgahlot/signalctx/internal/testutil"
	"github.com/sgahlot/signalctx/internal/types"
)

// stubSource is a scripted SignalSource keyed by start query and object query.
type stubSource struct {
	mu         sync.Mutex
	goals      map[string][]types.GoalQuery
	goalErr    map[string]error
	objects    map[string][]types.RawObject
	objErr     map[string]error
	delay      map[string]time.Duration
	listCalls  int
	queryCalls int
	starts     []korrel8r.Start
}

func newStubSource() *stubSource {
	return &stubSource{
		goals:   make(map[string][]types.GoalQuery),
		goalErr: make(map[string]error),
		objects: make(map[string][]types.RawObject),
		objErr:  make(map[string]error),
		delay:   make(map[string]time.Duration),
	}
}

// addLogs wires one identity to one log query returning objs.
func (s *stubSource) addLogs(id types.ResourceIdentity, objs ...types.RawObject) string {
	start := mustStart(id)
	q := `log:application:{"namespace":"` + id.Namespace + `","name":"` + id.Name + `"}`
	s.goals[start] = append(s.goals[start], types.GoalQuery{Goal: types.GoalApplicationLogs, Query: q})
	s.objects[q] = append(s.objects[q], objs...)
	return q
}

func (s *stubSource) ListGoals(ctx context.Context, _ []types.CorrelationGoal, start korrel8r.Start) ([]types.GoalQuery, error) {
	key := start.Queries[0]
	s.mu.Lock()
	s.listCalls++
	s.starts = append(s.starts, start)
	d, res, err := s.delay[key], s.goals[key], s.goalErr[key]
	s.mu.Unlock()

	if err := wait(ctx, d); err != nil {
		return nil, err
	}
	return res, err
}

func (s *stubSource) QueryObjects(ctx context.Context, q string) ([]types.RawObject, error) {
	s.mu.Lock()
	s.queryCalls++
	d, res, err := s.delay[q], s.objects[q], s.objErr[q]
	s.mu.Unlock()

	if err := wait(ctx, d); err != nil {
		return nil, err
	}
	return res, err
}

func (s *stubSource) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls, s.queryCalls
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func mustStart(id types.ResourceIdentity) string {
	// Mirrors query.ForIdentity for identities without special characters.
	if id.Name == "" {
		return `k8s:Pod.v1:{"namespace":"` + id.Namespace + `"}`
	}
	return `k8s:Pod.v1:{"namespace":"` + id.Namespace + `","name":"` + id.Name + `"}`
}

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func logObj(ns, pod, level, msg string, offset time.Duration) types.RawObject {
	return types.NewRawObject("log:application", testutil.LogRecord(ns, pod, level, msg, t0.Add(offset)))
}
