package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// GoalResult is one goal class and the queries the fake resolves it to.
type GoalResult struct {
	Class   string
	Queries []string
}

type objectResult struct {
	status int
	body   string
	delay  time.Duration
}

// FakeKorrel8r is an in-process stand-in for the Korrel8r REST API.
// Unknown start queries resolve to no goals and unknown queries return "[]".
type FakeKorrel8r struct {
	Server *httptest.Server

	mu           sync.Mutex
	goals        map[string][]GoalResult
	objects      map[string]objectResult
	healthStatus int
	goalsCalls   int
	objectsCalls int
	lastAuth     string
	queried      []string
}

// NewFakeKorrel8r starts a fake server that is closed when the test ends.
func NewFakeKorrel8r(t *testing.T) *FakeKorrel8r {
	t.Helper()
	f := &FakeKorrel8r{
		goals:        make(map[string][]GoalResult),
		objects:      make(map[string]objectResult),
		healthStatus: http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1alpha1/lists/goals", f.handleGoals)
	mux.HandleFunc("/api/v1alpha1/objects", f.handleObjects)
	mux.HandleFunc("/api/v1alpha1/graphs/neighbours", f.handleNeighbours)
	mux.HandleFunc("/healthz", f.handleHealth)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the fake's base URL.
func (f *FakeKorrel8r) URL() string { return f.Server.URL }

// SetGoals sets what a start query resolves to.
func (f *FakeKorrel8r) SetGoals(start string, results ...GoalResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.goals[start] = results
}

// SetObjects sets the records a query returns.
func (f *FakeKorrel8r) SetObjects(query string, objects ...map[string]interface{}) {
	if objects == nil {
		objects = []map[string]interface{}{}
	}
	body, _ := json.Marshal(objects)
	f.SetObjectsRaw(query, http.StatusOK, string(body))
}

// SetObjectsRaw sets the status and literal body a query returns.
func (f *FakeKorrel8r) SetObjectsRaw(query string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.objects[query]
	r.status, r.body = status, body
	f.objects[query] = r
}

// SetObjectsDelay makes a query block for d, or until the client goes away.
func (f *FakeKorrel8r) SetObjectsDelay(query string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.objects[query]
	r.delay = d
	f.objects[query] = r
}

// SetHealthStatus sets the /healthz status code.
func (f *FakeKorrel8r) SetHealthStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthStatus = code
}

// GoalsCalls returns how many goal lookups were served.
func (f *FakeKorrel8r) GoalsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.goalsCalls
}

// ObjectsCalls returns how many object queries were served.
func (f *FakeKorrel8r) ObjectsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objectsCalls
}

// Queried returns the object queries seen, in arrival order.
func (f *FakeKorrel8r) Queried() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queried...)
}

// LastAuthorization returns the Authorization header of the latest request.
func (f *FakeKorrel8r) LastAuthorization() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

type fakeStart struct {
	Queries []string `json:"queries"`
}

type fakeQueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

type fakeNode struct {
	Class   string           `json:"class"`
	Queries []fakeQueryCount `json:"queries"`
}

func (f *FakeKorrel8r) handleGoals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Goals []string  `json:"goals"`
		Start fakeStart `json:"start"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.goalsCalls++
	f.lastAuth = r.Header.Get("Authorization")
	wanted := make(map[string]bool, len(req.Goals))
	for _, g := range req.Goals {
		wanted[g] = true
	}
	nodes := []fakeNode{}
	for _, start := range req.Start.Queries {
		for _, res := range f.goals[start] {
			if wanted[res.Class] {
				nodes = append(nodes, toNode(res))
			}
		}
	}
	f.mu.Unlock()

	writeFakeJSON(w, nodes)
}

func (f *FakeKorrel8r) handleNeighbours(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start fakeStart `json:"start"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.lastAuth = r.Header.Get("Authorization")
	nodes := []fakeNode{}
	for _, start := range req.Start.Queries {
		for _, res := range f.goals[start] {
			nodes = append(nodes, toNode(res))
		}
	}
	f.mu.Unlock()

	writeFakeJSON(w, map[string]interface{}{"nodes": nodes})
}

func (f *FakeKorrel8r) handleObjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")

	f.mu.Lock()
	f.objectsCalls++
	f.lastAuth = r.Header.Get("Authorization")
	f.queried = append(f.queried, q)
	res, ok := f.objects[q]
	f.mu.Unlock()

	if res.delay > 0 {
		select {
		case <-time.After(res.delay):
		case <-r.Context().Done():
			return
		}
	}
	if !ok || res.status == 0 {
		writeFakeJSON(w, []interface{}{})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.status)
	_, _ = w.Write([]byte(res.body))
}

func (f *FakeKorrel8r) handleHealth(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	code := f.healthStatus
	f.mu.Unlock()
	w.WriteHeader(code)
}

func toNode(res GoalResult) fakeNode {
	n := fakeNode{Class: res.Class, Queries: []fakeQueryCount{}}
	for _, q := range res.Queries {
		n.Queries = append(n.Queries, fakeQueryCount{Query: q})
	}
	return n
}

func writeFakeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
