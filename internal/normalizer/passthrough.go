package normalizer

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/sgahlot/signalctx/internal/types"
	"github.com/sgahlot/signalctx/internal/util"
)

// Passthrough is a non-log object. Only its class and identity are captured.
type Passthrough struct {
	Kind      types.ObjectKind `json:"kind"`
	Class     string           `json:"class"`
	Namespace string           `json:"namespace,omitempty"`
	Name      string           `json:"name,omitempty"`
	Summary   string           `json:"summary,omitempty"`
}

func newPassthrough(raw types.RawObject) *Passthrough {
	p := &Passthrough{Kind: raw.Kind, Class: raw.Class}
	if p.Kind == "" {
		p.Kind = types.KindForClass(raw.Class)
	}
	if raw.Fields == nil {
		return p
	}
	switch p.Kind {
	case types.ObjectKindK8s:
		describeK8s(p, raw.Fields)
	case types.ObjectKindEvent:
		describeEvent(p, raw.Fields)
	case types.ObjectKindTrace:
		describeTrace(p, raw.Fields)
	case types.ObjectKindAlert:
		describeAlert(p, raw.Fields)
	}
	return p
}

func describeK8s(p *Passthrough, fields map[string]interface{}) {
	u := unstructured.Unstructured{Object: fields}
	p.Namespace = u.GetNamespace()
	p.Name = u.GetName()
	kind := u.GetKind()
	if kind == "" {
		kind = strings.SplitN(strings.TrimPrefix(p.Class, "k8s:"), ".", 2)[0]
	}
	p.Summary = strings.TrimSpace(kind + " " + joinNonEmpty("/", p.Namespace, p.Name))
}

func describeEvent(p *Passthrough, fields map[string]interface{}) {
	p.Namespace = util.FirstNestedString(fields,
		[]string{"metadata", "namespace"},
		[]string{"involvedObject", "namespace"},
		[]string{"regarding", "namespace"},
	)
	p.Name = util.FirstNestedString(fields,
		[]string{"involvedObject", "name"},
		[]string{"regarding", "name"},
	)
	kind := util.FirstNestedString(fields,
		[]string{"involvedObject", "kind"},
		[]string{"regarding", "kind"},
	)
	reason := util.SafeNestedString(fields, "reason")
	message := util.FirstNestedString(fields, []string{"message"}, []string{"note"})
	p.Summary = strings.TrimSpace(joinNonEmpty(": ", reason, StripANSI(message)))
	if target := joinNonEmpty("/", kind, p.Name); target != "" {
		p.Summary = strings.TrimSpace(fmt.Sprintf("%s (%s)", p.Summary, target))
	}
}

func describeTrace(p *Passthrough, fields map[string]interface{}) {
	traceID := util.FirstNestedString(fields,
		[]string{"traceID"},
		[]string{"traceId"},
		[]string{"trace_id"},
		[]string{"context", "traceID"},
	)
	span := util.FirstNestedString(fields, []string{"name"}, []string{"spanName"}, []string{"operationName"})
	service := util.FirstNestedString(fields,
		[]string{"serviceName"},
		[]string{"resource", "service.name"},
		[]string{"attributes", "service.name"},
		[]string{"process", "serviceName"},
	)
	p.Namespace = util.FirstNestedString(fields,
		[]string{"attributes", "k8s.namespace.name"},
		[]string{"resource", "k8s.namespace.name"},
	)
	p.Name = traceID
	p.Summary = joinNonEmpty(" ", service, span)
	if traceID != "" {
		p.Summary = strings.TrimSpace(p.Summary + " trace=" + traceID)
	}
}

func describeAlert(p *Passthrough, fields map[string]interface{}) {
	labels := util.SafeStringMap(fields, "labels")
	name := labels["alertname"]
	if name == "" {
		name = util.SafeNestedString(fields, "alertname")
	}
	p.Name = name
	p.Namespace = labels["namespace"]
	state := util.FirstNestedString(fields, []string{"status", "state"}, []string{"state"})
	p.Summary = joinNonEmpty(" ", name, state)
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, sep)
}
