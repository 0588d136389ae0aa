package normalizer

import (
	"regexp"
	"strings"

	"github.com/sgahlot/signalctx/internal/types"
	"github.com/sgahlot/signalctx/internal/util"
)

// LevelDetector infers the level of a log record.
// When ok is true, message is the (possibly trimmed) message to keep.
type LevelDetector interface {
	DetectLevel(fields map[string]interface{}, message string) (level types.LogLevel, rest string, ok bool)
}

// LevelDetectorFunc adapts a function to LevelDetector.
type LevelDetectorFunc func(fields map[string]interface{}, message string) (types.LogLevel, string, bool)

// DetectLevel implements LevelDetector.
func (f LevelDetectorFunc) DetectLevel(fields map[string]interface{}, message string) (types.LogLevel, string, bool) {
	return f(fields, message)
}

// DefaultLevelFields are the field paths FieldDetector reads, in order.
var DefaultLevelFields = [][]string{
	{"level"},
	{"severity"},
	{"severity_text"},
	{"severityText"},
	{"log.level"},
	{"labels", "level"},
	{"attributes", "level"},
	{"attributes", "log.level"},
}

// FieldDetector reads an explicit level field. Values that do not name a
// known level (e.g. ViaQ's "default") are ignored.
type FieldDetector struct {
	Paths [][]string
}

// DetectLevel implements LevelDetector.
func (d FieldDetector) DetectLevel(fields map[string]interface{}, message string) (types.LogLevel, string, bool) {
	paths := d.Paths
	if paths == nil {
		paths = DefaultLevelFields
	}
	for _, p := range paths {
		v := util.SafeNestedString(fields, p...)
		if v == "" {
			continue
		}
		if lvl := types.ParseLogLevel(v); lvl != types.LevelUnknown {
			return lvl, message, true
		}
	}
	return types.LevelUnknown, message, false
}

var levelKeyword = regexp.MustCompile(`(?is)\b(INFO|ERROR|WARN|WARNING|DEBUG|TRACE|CRITICAL|FATAL)\b\s*:?[\t ]*(.*)$`)

// KeywordDetector scans the message for the first level token. The text after
// the token becomes the message, unless it is empty.
type KeywordDetector struct{}

// DetectLevel implements LevelDetector.
func (KeywordDetector) DetectLevel(_ map[string]interface{}, message string) (types.LogLevel, string, bool) {
	m := levelKeyword.FindStringSubmatch(message)
	if m == nil {
		return types.LevelUnknown, message, false
	}
	rest := strings.TrimSpace(m[2])
	if rest == "" {
		rest = message
	}
	return types.ParseLogLevel(m[1]), rest, true
}

// Chain tries each detector in order and returns the first hit.
type Chain []LevelDetector

// DetectLevel implements LevelDetector.
func (c Chain) DetectLevel(fields map[string]interface{}, message string) (types.LogLevel, string, bool) {
	for _, d := range c {
		if d == nil {
			continue
		}
		if lvl, rest, ok := d.DetectLevel(fields, message); ok {
			return lvl, rest, true
		}
	}
	return types.LevelUnknown, message, false
}

// DefaultLevelDetector reads explicit fields, then scans the message.
func DefaultLevelDetector() LevelDetector {
	return Chain{FieldDetector{}, KeywordDetector{}}
}
