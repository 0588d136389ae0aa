// Package query builds and repairs correlation-service query strings.
//
// A query has the form "domain:class:selector", for example
//
//	k8s:Pod.v1:{"namespace":"llm-serving","name":"vllm-0"}
//	alert:alert:{"alertname":"KubePodCrashLooping"}
//	loki:log:{"kubernetes.namespace_name":"llm-serving"}
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sgahlot/signalctx/internal/types"
)

// ErrEmptyNamespace is returned when a start query is requested for an identity without a namespace.
var ErrEmptyNamespace = errors.New("identity has no namespace")

// Query is a parsed "domain:class:selector" string.
type Query struct {
	Domain   string
	Class    string
	Selector string
}

// FullClass returns "domain:class".
func (q Query) FullClass() string {
	if q.Class == "" {
		return q.Domain
	}
	return q.Domain + ":" + q.Class
}

// String reassembles the query.
func (q Query) String() string {
	if q.Selector == "" {
		return q.FullClass()
	}
	return q.FullClass() + ":" + q.Selector
}

// Parse splits a query string. It fails when the domain or class part is missing.
func Parse(s string) (Query, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Query{}, errors.New("query must be a non-empty string")
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Query{}, fmt.Errorf("query %q is not of the form domain:class:selector", s)
	}
	q := Query{Domain: parts[0], Class: parts[1]}
	if len(parts) == 3 {
		q.Selector = parts[2]
	}
	return q, nil
}

// ClassOf returns the "domain:class" of s, or "" when s does not parse.
func ClassOf(s string) string {
	q, err := Parse(s)
	if err != nil {
		return ""
	}
	return q.FullClass()
}

type podSelector struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name,omitempty"`
}

// ForIdentity returns the k8s Pod start query for an identity.
// A namespace-only identity selects every pod in the namespace.
func ForIdentity(id types.ResourceIdentity) (string, error) {
	if strings.TrimSpace(id.Namespace) == "" {
		return "", ErrEmptyNamespace
	}
	sel, err := json.Marshal(podSelector{Namespace: id.Namespace, Name: id.Name})
	if err != nil {
		return "", fmt.Errorf("encode pod selector: %w", err)
	}
	return "k8s:Pod.v1:" + string(sel), nil
}

// ForAlert returns the start query for a firing alert.
func ForAlert(alertname string) (string, error) {
	if strings.TrimSpace(alertname) == "" {
		return "", errors.New("alertname is required")
	}
	sel, err := json.Marshal(map[string]string{"alertname": alertname})
	if err != nil {
		return "", fmt.Errorf("encode alert selector: %w", err)
	}
	return "alert:alert:" + string(sel), nil
}

var (
	selectorBody = regexp.MustCompile(`\{(.*)\}`)
	bareKeyValue = regexp.MustCompile(`\b([A-Za-z0-9_\.]+)\s*=\s*(")`)
)

// Normalize repairs common mistakes in queries written by language models:
//   - escaped quotes (\") are unescaped
//   - "alert:{...}" gains its missing class: "alert:alert:{...}"
//   - alerts misfiled as "k8s:Alert:{...}" move to the alert domain
//   - key="value" selector pairs become "key":"value" for alerts and
//     "key":="value" for every other domain
//
// Normalize never fails; it returns its input unchanged when nothing applies.
func Normalize(q string) string {
	s := strings.TrimSpace(q)
	if s == "" {
		return q
	}
	if strings.Contains(s, `\"`) {
		s = strings.ReplaceAll(s, `\"`, `"`)
	}
	if strings.HasPrefix(s, "alert:{") {
		s = strings.Replace(s, "alert:{", "alert:alert:{", 1)
	}

	domain, _, _ := strings.Cut(s, ":")
	if strings.HasPrefix(strings.ToLower(s), "k8s:alert:") {
		if parts := strings.SplitN(s, ":", 3); len(parts) == 3 {
			s = "alert:alert:" + parts[2]
			domain = "alert"
		}
	}

	loc := selectorBody.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	inner := s[loc[2]:loc[3]]
	repl := `"${1}":=${2}`
	if domain == "alert" {
		repl = `"${1}":${2}`
	}
	rewritten := bareKeyValue.ReplaceAllString(inner, repl)
	if rewritten == inner {
		return s
	}
	return s[:loc[2]] + rewritten + s[loc[3]:]
}
