package links

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// ErrNotConfigured is returned when the base URL a link needs is unset.
var ErrNotConfigured = errors.New("link base URL not configured")

// wellKnown lists the kinds the console serves under their short plural path.
var wellKnown = map[schema.GroupKind]bool{
	{Kind: "Pod"}:                   true,
	{Kind: "Service"}:               true,
	{Kind: "ConfigMap"}:             true,
	{Kind: "Secret"}:                true,
	{Kind: "ServiceAccount"}:        true,
	{Kind: "PersistentVolumeClaim"}: true,
	{Kind: "Event"}:                 true,
	{Kind: "Namespace"}:             true,
	{Kind: "Node"}:                  true,
	{Kind: "PersistentVolume"}:      true,

	{Group: "apps", Kind: "Deployment"}:  true,
	{Group: "apps", Kind: "StatefulSet"}: true,
	{Group: "apps", Kind: "DaemonSet"}:   true,
	{Group: "apps", Kind: "ReplicaSet"}:  true,

	{Group: "batch", Kind: "Job"}:     true,
	{Group: "batch", Kind: "CronJob"}: true,
}

var clusterScoped = map[schema.GroupKind]bool{
	{Kind: "Namespace"}:        true,
	{Kind: "Node"}:             true,
	{Kind: "PersistentVolume"}: true,
}

// Console builds links into the cluster web console.
type Console struct {
	base string
}

// NewConsole returns a Console rooted at baseURL.
func NewConsole(baseURL string) (*Console, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, fmt.Errorf("console: %w", err)
	}
	return &Console{base: base}, nil
}

// ResourceURL returns the console page for one resource. An empty name links
// to the resource list. An empty namespace, or a cluster-scoped kind, uses the
// cluster path.
func (c *Console) ResourceURL(gvk schema.GroupVersionKind, name, namespace string) (string, error) {
	if c == nil || c.base == "" {
		return "", ErrNotConfigured
	}
	if gvk.Kind == "" {
		return "", errors.New("kind is required")
	}
	gk := gvk.GroupKind()

	var segment string
	if wellKnown[gk] {
		plural, _ := meta.UnsafeGuessKindToResource(gvk)
		segment = plural.Resource
	} else {
		if gvk.Version == "" {
			return "", fmt.Errorf("version is required for kind %s", gvk.Kind)
		}
		group := gvk.Group
		if group == "" {
			group = "core"
		}
		segment = group + "~" + gvk.Version + "~" + gvk.Kind
	}

	var b strings.Builder
	b.WriteString(c.base)
	if namespace == "" || clusterScoped[gk] {
		b.WriteString("/k8s/cluster/")
	} else {
		b.WriteString("/k8s/ns/")
		b.WriteString(url.PathEscape(namespace))
		b.WriteString("/")
	}
	b.WriteString(url.PathEscape(segment))
	if name != "" {
		b.WriteString("/")
		b.WriteString(url.PathEscape(name))
	}
	return b.String(), nil
}

func parseBase(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNotConfigured
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("base URL must be an absolute http(s) URL, got %q", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}
