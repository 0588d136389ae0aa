package identity

import (
	"strings"

	"github.com/sgahlot/signalctx/internal/types"
)

// Label names read from metric series and alerts.
const (
	LabelNamespace = "namespace"
	LabelPod       = "pod"
	LabelPodName   = "pod_name"
)

// modelSeparator splits "namespace | model" display names.
const modelSeparator = "|"

// FromSeries returns the unique (namespace, pod) identities found in metric
// label sets. When no series carries a namespace, the namespace is taken from
// modelField if it has the form "<namespace> | <model>".
func FromSeries(series []map[string]string, modelField string) []types.ResourceIdentity {
	var ids []types.ResourceIdentity
	for _, labels := range series {
		ns := strings.TrimSpace(labels[LabelNamespace])
		if ns == "" {
			continue
		}
		ids = append(ids, types.ResourceIdentity{
			Namespace: ns,
			Name:      strings.TrimSpace(labels[LabelPod]),
		})
	}
	ids = types.UniqueIdentities(ids)
	if len(ids) > 0 {
		return ids
	}
	if ns, ok := namespaceFromModel(modelField); ok {
		return []types.ResourceIdentity{{Namespace: ns}}
	}
	return nil
}

func namespaceFromModel(model string) (string, bool) {
	ns, rest, found := strings.Cut(model, modelSeparator)
	if !found {
		return "", false
	}
	ns = strings.TrimSpace(ns)
	if ns == "" || strings.TrimSpace(rest) == "" {
		return "", false
	}
	return ns, true
}

// FromAlert returns the identity an alert's labels point at. The pod comes from
// "pod" or "pod_name"; without either the whole namespace is the anchor.
// ok is false when the alert has no namespace label.
func FromAlert(labels map[string]string) (id types.ResourceIdentity, ok bool) {
	id.Namespace = strings.TrimSpace(labels[LabelNamespace])
	if id.Namespace == "" {
		return types.ResourceIdentity{}, false
	}
	for _, key := range []string{LabelPod, LabelPodName} {
		if v := strings.TrimSpace(labels[key]); v != "" {
			id.Name = v
			break
		}
	}
	return id, true
}

// FromAlerts applies FromAlert to each label set and deduplicates the result.
func FromAlerts(alerts []map[string]string) []types.ResourceIdentity {
	var ids []types.ResourceIdentity
	for _, labels := range alerts {
		if id, ok := FromAlert(labels); ok {
			ids = append(ids, id)
		}
	}
	return types.UniqueIdentities(ids)
}
