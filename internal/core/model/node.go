package model

import (
	"fmt"
	"strings"
)

// GraphNode is one extracted entity instance.
type GraphNode struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// displayKeys is the property lookup order used to name a node.
var displayKeys = []string{
	"title", "name", "type", "scientificName", "species", "model",
	"surName", "value", "location", "branch",
}

// DisplayName returns the first non-placeholder naming property of the node.
func (n GraphNode) DisplayName() string {
	for _, k := range displayKeys {
		v, ok := n.Properties[k]
		if !ok || IsPlaceholder(v) {
			continue
		}
		if s := ScalarString(v); s != "" {
			return s
		}
	}
	return ""
}

func (n GraphNode) HasLabel(label string) bool {
	k := NameKey(label)
	for _, l := range n.Labels {
		if NameKey(l) == k {
			return true
		}
	}
	return false
}

func (n GraphNode) Clone() GraphNode {
	out := GraphNode{ID: n.ID, Labels: append([]string(nil), n.Labels...)}
	out.Properties = cloneProps(n.Properties)
	return out
}

// IsPlaceholder reports whether a property value carries no information.
func IsPlaceholder(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "unknown", "n/a", "na", "none", "null", "-", "?":
			return true
		}
	case []any:
		for _, e := range x {
			if !IsPlaceholder(e) {
				return false
			}
		}
		return true
	case map[string]any:
		return len(x) == 0
	}
	return false
}

// ScalarString renders a property value as text. Lists yield their first
// informative element.
func ScalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []any:
		for _, e := range x {
			if !IsPlaceholder(e) {
				return ScalarString(e)
			}
		}
		return ""
	case map[string]any:
		return ""
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}

func cloneProps(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		if l, ok := v.([]any); ok {
			v = append([]any(nil), l...)
		}
		out[k] = v
	}
	return out
}
