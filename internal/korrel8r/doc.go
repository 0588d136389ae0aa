// Package korrel8r provides a client for the Korrel8r correlation service REST API.
//
// # Overview
//
// Korrel8r resolves a start object (a query such as a Pod selector or a firing
// alert) and a set of goal classes ("log:application", "trace:span", ...) into
// concrete store queries, and executes those queries against the backing stores.
// This package wraps the three endpoints the enrichment engine needs:
//
//	POST /api/v1alpha1/lists/goals       goal classes -> concrete queries
//	GET  /api/v1alpha1/objects?query=... execute one query
//	POST /api/v1alpha1/graphs/neighbours neighbourhood graph of a start object
//
// # Usage
//
//	client, err := korrel8r.NewClient(korrel8r.ClientOptions{
//	    BaseURL: "https://korrel8r.openshift-cluster-observability-operator.svc:9443",
//	    Token:   token,
//	})
//	if err != nil {
//	    return err
//	}
//	pairs, err := client.ListGoals(ctx, goals, korrel8r.Start{Queries: []string{q}})
//
// # Errors
//
// Every call carries its own timeout. Failures are returned as *Error values
// that match one of ErrStoreUnavailable, ErrTimeout or ErrMalformedResponse
// through errors.Is, so callers can degrade one query at a time.
//
// # Credentials
//
// The bearer token is forwarded to Korrel8r so it can impersonate the caller
// against its stores. The token is never logged and URLs are redacted before
// they reach the logger.
//
// # Metrics
//
//   - signalctx_korrel8r_requests_total (counter, labels: op, outcome)
//   - signalctx_korrel8r_request_duration_seconds (histogram, labels: op)
package korrel8r
