package util

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// SafeNestedString returns the string at the given field path, or "" if missing/wrong type.
func SafeNestedString(obj map[string]interface{}, fields ...string) string {
	if obj == nil {
		return ""
	}
	val, found, err := unstructured.NestedString(obj, fields...)
	if err != nil || !found {
		return ""
	}
	return val
}

// SafeNestedMap returns the nested map, or nil if missing.
// The map is not copied, so values of any type are tolerated.
func SafeNestedMap(obj map[string]interface{}, fields ...string) map[string]interface{} {
	val, ok := SafeNestedValue(obj, fields...)
	if !ok {
		return nil
	}
	m, _ := val.(map[string]interface{})
	return m
}

// SafeNestedValue returns the raw value at the given field path.
// The value is not copied; callers must not mutate it.
func SafeNestedValue(obj map[string]interface{}, fields ...string) (interface{}, bool) {
	if obj == nil || len(fields) == 0 {
		return nil, false
	}
	val, found, err := unstructured.NestedFieldNoCopy(obj, fields...)
	if err != nil || !found || val == nil {
		return nil, false
	}
	return val, true
}

// FirstNestedString returns the first non-empty string found at any of paths.
// Keys may contain dots ("k8s.pod.name"); each path element is one map key.
func FirstNestedString(obj map[string]interface{}, paths ...[]string) string {
	for _, p := range paths {
		if v := SafeNestedString(obj, p...); v != "" {
			return v
		}
	}
	return ""
}

// SafeStringMap returns the nested map[string]string at the given path,
// dropping non-string values. Returns nil if missing.
func SafeStringMap(obj map[string]interface{}, fields ...string) map[string]string {
	m := SafeNestedMap(obj, fields...)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
