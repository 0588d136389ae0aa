// Package normalizer turns raw correlation results into canonical log entries.
//
// # Overview
//
// Records returned by the correlation service come from several stores and use
// several field conventions (ViaQ, OpenTelemetry, Loki labels). Normalize maps a
// log record to a types.LogEntry and hands every other kind (Kubernetes objects,
// events, traces, alerts) back as a Passthrough that only captures its class and
// identity.
//
// Normalization never fails. A record whose fields cannot be understood becomes
// an UNKNOWN entry carrying the raw record text; dropping it is a policy decision
// left to the caller.
//
// # Level detection
//
// Levels come from a LevelDetector. The default chain first reads an explicit
// level field and then falls back to a keyword scan of the message:
//
//	"2025-03-01 ERROR: CUDA out of memory"  ->  ERROR, "CUDA out of memory"
//
// Detectors are pluggable so deployments can teach the normalizer new log formats.
package normalizer
