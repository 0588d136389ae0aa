package normalizer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sgahlot/signalctx/internal/types"
	"github.com/sgahlot/signalctx/internal/util"
)

// Field paths for the log body and the owning resource, in lookup order.
var (
	bodyFields = [][]string{
		{"body"},
		{"message"},
		{"log"},
		{"msg"},
	}
	namespaceFields = [][]string{
		{"k8s_namespace_name"},
		{"kubernetes_namespace_name"},
		{"namespace"},
		{"kubernetes", "namespace_name"},
		{"labels", "k8s_namespace_name"},
		{"labels", "kubernetes_namespace_name"},
		{"labels", "namespace"},
		{"attributes", "k8s.namespace.name"},
		{"resource", "k8s.namespace.name"},
	}
	podFields = [][]string{
		{"k8s_pod_name"},
		{"kubernetes_pod_name"},
		{"pod"},
		{"kubernetes", "pod_name"},
		{"labels", "k8s_pod_name"},
		{"labels", "kubernetes_pod_name"},
		{"labels", "pod"},
		{"attributes", "k8s.pod.name"},
		{"resource", "k8s.pod.name"},
	}
)

// ansiEscape matches ECMA-48 escape sequences: CSI (7-bit and 8-bit) with
// optional intermediate bytes, OSC terminated by BEL or ST, nF escapes such as
// charset selection, two-byte Fe/Fp/Fs escapes and any leftover lone ESC.
var ansiEscape = regexp.MustCompile(
	`(?:\x1b\[|\x{9b})[0-?]*[ -/]*[@-~]` +
		`|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)` +
		`|\x1b[ -/]+[0-~]` +
		`|\x1b[0-~]` +
		`|\x1b`)

// StripANSI removes terminal escape sequences such as color codes, window
// titles and hyperlinks.
func StripANSI(s string) string {
	if !strings.ContainsAny(s, "\x1b\u009b") {
		return s
	}
	return ansiEscape.ReplaceAllString(s, "")
}

// Options configures a Normalizer.
type Options struct {
	// Detector infers levels. Default: DefaultLevelDetector()
	Detector LevelDetector

	// TimestampFields are the paths read for the record time.
	// Default: DefaultTimestampFields
	TimestampFields [][]string

	// Clock supplies the time for records without a usable timestamp.
	// Default: time.Now
	Clock func() time.Time

	// Logger is the logger. Default: zap.NewNop()
	Logger *zap.Logger
}

// Normalizer converts RawObjects. It is safe for concurrent use.
type Normalizer struct {
	detector        LevelDetector
	timestampFields [][]string
	clock           func() time.Time
	logger          *zap.Logger
}

// New creates a Normalizer, filling unset options with defaults.
func New(opts Options) *Normalizer {
	if opts.Detector == nil {
		opts.Detector = DefaultLevelDetector()
	}
	if opts.TimestampFields == nil {
		opts.TimestampFields = DefaultTimestampFields
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Normalizer{
		detector:        opts.Detector,
		timestampFields: opts.TimestampFields,
		clock:           opts.Clock,
		logger:          opts.Logger.Named("normalizer"),
	}
}

// Result holds exactly one of Entry or Passthrough.
type Result struct {
	Entry       *types.LogEntry
	Passthrough *Passthrough
}

// IsLog reports whether the result is a log entry.
func (r Result) IsLog() bool { return r.Entry != nil }

// Normalize converts one raw object. It never fails.
func (n *Normalizer) Normalize(raw types.RawObject) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Warn("Recovered while normalizing record",
				zap.String("class", raw.Class),
				zap.Any("panic", r),
			)
			res = Result{Entry: n.unknownEntry(raw)}
		}
	}()

	if n.isLog(raw) {
		return Result{Entry: n.normalizeLog(raw)}
	}
	return Result{Passthrough: newPassthrough(raw)}
}

// NormalizeAll converts every raw object and splits the results.
func (n *Normalizer) NormalizeAll(raws []types.RawObject) ([]types.LogEntry, []Passthrough) {
	var (
		entries []types.LogEntry
		others  []Passthrough
	)
	for _, raw := range raws {
		res := n.Normalize(raw)
		if res.Entry != nil {
			entries = append(entries, *res.Entry)
		} else if res.Passthrough != nil {
			others = append(others, *res.Passthrough)
		}
	}
	return entries, others
}

// isLog accepts log classes and, for unrecognized classes, records shaped like logs.
func (n *Normalizer) isLog(raw types.RawObject) bool {
	kind := raw.Kind
	if kind == "" {
		kind = types.KindForClass(raw.Class)
	}
	switch kind {
	case types.ObjectKindLog:
		return true
	case types.ObjectKindUnknown:
		_, ok := findBody(raw.Fields)
		return ok
	default:
		return false
	}
}

func (n *Normalizer) normalizeLog(raw types.RawObject) *types.LogEntry {
	body, ok := findBody(raw.Fields)
	if !ok {
		return n.unknownEntry(raw)
	}
	msg := strings.TrimSpace(StripANSI(body))

	entry := &types.LogEntry{
		Namespace: util.FirstNestedString(raw.Fields, namespaceFields...),
		Pod:       util.FirstNestedString(raw.Fields, podFields...),
		Level:     types.LevelUnknown,
		Message:   msg,
		Class:     raw.Class,
	}
	if lvl, rest, ok := n.detector.DetectLevel(raw.Fields, msg); ok {
		entry.Level = lvl
		entry.Message = strings.TrimSpace(rest)
	}
	n.stamp(entry, raw.Fields)
	return entry
}

// unknownEntry is the best-effort entry for a record that cannot be understood.
func (n *Normalizer) unknownEntry(raw types.RawObject) *types.LogEntry {
	entry := &types.LogEntry{
		Namespace: util.FirstNestedString(raw.Fields, namespaceFields...),
		Pod:       util.FirstNestedString(raw.Fields, podFields...),
		Level:     types.LevelUnknown,
		Message:   StripANSI(rawText(raw.Fields)),
		Class:     raw.Class,
	}
	n.stamp(entry, raw.Fields)
	return entry
}

func (n *Normalizer) stamp(entry *types.LogEntry, fields map[string]interface{}) {
	if ts, ok := findTimestamp(fields, n.timestampFields); ok {
		entry.Timestamp = ts
		return
	}
	entry.Timestamp = n.clock().UTC()
	entry.TimestampMissing = true
}

// findBody returns the log body. Non-string bodies are rendered as JSON.
func findBody(fields map[string]interface{}) (string, bool) {
	for _, p := range bodyFields {
		v, ok := util.SafeNestedValue(fields, p...)
		if !ok {
			continue
		}
		switch b := v.(type) {
		case string:
			return b, true
		case map[string]interface{}, []interface{}:
			return rawText(b), true
		default:
			return fmt.Sprint(b), true
		}
	}
	return "", false
}

func rawText(v interface{}) string {
	if m, ok := v.(map[string]interface{}); v == nil || (ok && len(m) == 0) {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
