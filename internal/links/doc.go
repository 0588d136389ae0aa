// Package links renders deep links into the cluster console and the trace viewer.
//
// All functions are pure string builders. Every dynamic path segment is
// escaped with url.PathEscape and query payloads with url.QueryEscape.
package links
