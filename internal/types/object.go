package types

import "strings"

// ObjectKind tags a RawObject with the variant normalization dispatches on.
type ObjectKind string

const (
	ObjectKindLog     ObjectKind = "log"
	ObjectKindK8s     ObjectKind = "k8s"
	ObjectKindEvent   ObjectKind = "event"
	ObjectKindTrace   ObjectKind = "trace"
	ObjectKindAlert   ObjectKind = "alert"
	ObjectKindUnknown ObjectKind = "unknown"
)

// RawObject is one record returned by the correlation service for a resolved query.
// Fields holds the decoded JSON object; non-object JSON values are stored under "value".
type RawObject struct {
	Kind   ObjectKind
	Class  string
	Fields map[string]interface{}
}

// NewRawObject builds a RawObject whose kind is derived from the declared class.
func NewRawObject(class string, fields map[string]interface{}) RawObject {
	return RawObject{Kind: KindForClass(class), Class: class, Fields: fields}
}

// KindForClass maps a correlation class ("domain:class") to an ObjectKind.
func KindForClass(class string) ObjectKind {
	domain, name, _ := strings.Cut(class, ":")
	switch strings.ToLower(domain) {
	case "log", "loki":
		return ObjectKindLog
	case "k8s":
		if strings.HasPrefix(name, "Event") {
			return ObjectKindEvent
		}
		return ObjectKindK8s
	case "trace", "tempo":
		return ObjectKindTrace
	case "alert":
		return ObjectKindAlert
	default:
		return ObjectKindUnknown
	}
}
