package types

import (
	"strings"
	"time"
)

// LogLevel is the canonical severity of a log entry.
type LogLevel string

const (
	LevelCritical LogLevel = "CRITICAL"
	LevelFatal    LogLevel = "FATAL"
	LevelError    LogLevel = "ERROR"
	LevelWarn     LogLevel = "WARN"
	LevelWarning  LogLevel = "WARNING"
	LevelInfo     LogLevel = "INFO"
	LevelDebug    LogLevel = "DEBUG"
	LevelTrace    LogLevel = "TRACE"
	LevelUnknown  LogLevel = "UNKNOWN"
)

// ParseLogLevel maps s to a LogLevel, case-insensitively. Unrecognized input is LevelUnknown.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL", "CRIT":
		return LevelCritical
	case "FATAL", "PANIC", "EMERG", "EMERGENCY", "ALERT":
		return LevelFatal
	case "ERROR", "ERR":
		return LevelError
	case "WARN":
		return LevelWarn
	case "WARNING":
		return LevelWarning
	case "INFO", "NOTICE", "INFORMATION":
		return LevelInfo
	case "DEBUG":
		return LevelDebug
	case "TRACE":
		return LevelTrace
	default:
		return LevelUnknown
	}
}

// Rank orders levels for ranking; higher is more severe.
// CRITICAL and FATAL share a rank, as do WARN and WARNING.
func (l LogLevel) Rank() int {
	switch l {
	case LevelCritical, LevelFatal:
		return 6
	case LevelError:
		return 5
	case LevelWarn, LevelWarning:
		return 4
	case LevelInfo:
		return 3
	case LevelDebug:
		return 2
	case LevelTrace:
		return 1
	default:
		return 0
	}
}

// IsLowSignal reports whether entries at this level are noise for root-cause framing.
func (l LogLevel) IsLowSignal() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelUnknown:
		return true
	default:
		return false
	}
}

// LogEntry is the canonical log record produced by normalization.
type LogEntry struct {
	Namespace string    `json:"namespace"`
	Pod       string    `json:"pod"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`

	// TimestampMissing is set when the source record had no parseable timestamp and
	// Timestamp was filled with the normalization clock.
	TimestampMissing bool `json:"timestampMissing,omitempty"`

	// Class is the correlation class the record came from, e.g. "log:application".
	Class string `json:"class,omitempty"`
}

// DedupKey identifies entries that describe the same observed event.
type DedupKey struct {
	Namespace string
	Pod       string
	Level     LogLevel
	Message   string
}

// DedupKey returns the entry's deduplication key.
func (e LogEntry) DedupKey() DedupKey {
	return DedupKey{Namespace: e.Namespace, Pod: e.Pod, Level: e.Level, Message: e.Message}
}
