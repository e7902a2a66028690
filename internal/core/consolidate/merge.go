package consolidate

import (
	"encoding/json"
	"sort"

	"github.com/agenthands/ontograph/internal/core/model"
)

// unionFind keeps the smallest index as the root of every set.
type unionFind []int

func newUnionFind(n int) unionFind {
	uf := make(unionFind, n)
	for i := range uf {
		uf[i] = i
	}
	return uf
}

func (uf unionFind) find(i int) int {
	for uf[i] != i {
		uf[i] = uf[uf[i]]
		i = uf[i]
	}
	return i
}

func (uf unionFind) union(a, b int) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return false
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	uf[rb] = ra
	return true
}

// mergeLabels unions label sets in member order, spelled as the ontology
// spells them, then orders them deepest type first. Unknown labels go last.
func mergeLabels(o *model.Ontology, members []model.GraphNode) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, m := range members {
		for _, l := range m.Labels {
			if known, ok := o.Lookup(l); ok {
				l = known
			}
			k := model.NameKey(l)
			if seen[k] {
				continue
			}
			seen[k] = true
			labels = append(labels, l)
		}
	}
	sort.SliceStable(labels, func(i, j int) bool {
		return o.Depth(labels[i]) > o.Depth(labels[j])
	})
	return labels
}

// mergeProps folds src into dst. Placeholders give way to real values;
// values equal after normalisation are not a conflict; other disagreements
// are kept as a list. It returns the keys that conflicted.
func mergeProps(dst, src map[string]any) []string {
	var conflicts []string
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := src[k]
		cur, ok := dst[k]
		switch {
		case !ok || (model.IsPlaceholder(cur) && !model.IsPlaceholder(v)):
			dst[k] = v
		case model.IsPlaceholder(v) || containsValue(cur, v):
		default:
			dst[k] = appendValue(cur, v)
			conflicts = append(conflicts, k)
		}
	}
	return conflicts
}

// containsValue reports whether v is already represented by cur, either as
// an equal value or, when cur is a list, as one of its elements.
func containsValue(cur, v any) bool {
	if sameValue(cur, v) {
		return true
	}
	list, ok := cur.([]any)
	if !ok {
		return false
	}
	if vl, ok := v.([]any); ok {
		for _, e := range vl {
			if !model.IsPlaceholder(e) && !containsValue(list, e) {
				return false
			}
		}
		return true
	}
	for _, e := range list {
		if sameValue(e, v) {
			return true
		}
	}
	return false
}

func appendValue(cur, v any) []any {
	var out []any
	if l, ok := cur.([]any); ok {
		out = append(out, l...)
	} else {
		out = append(out, cur)
	}
	add := []any{v}
	if l, ok := v.([]any); ok {
		add = l
	}
	for _, e := range add {
		if model.IsPlaceholder(e) || containsValue(out, e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func sameValue(a, b any) bool {
	_, al := a.([]any)
	_, am := a.(map[string]any)
	_, bl := b.([]any)
	_, bm := b.(map[string]any)
	if al || am || bl || bm {
		ja, errA := json.Marshal(a)
		jb, errB := json.Marshal(b)
		return errA == nil && errB == nil && string(ja) == string(jb)
	}
	return model.NormalizeText(model.ScalarString(a)) == model.NormalizeText(model.ScalarString(b))
}
