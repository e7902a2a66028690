package ontology

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// unwrapNumbered opens the {"0": {...}, "1": {...}} wrapper batch files use.
// Documents without it are returned as is.
func unwrapNumbered(doc json.RawMessage) []json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(doc, &m); err != nil || len(m) == 0 {
		return []json.RawMessage{doc}
	}
	keys := make([]int, 0, len(m))
	for k := range m {
		n, err := strconv.Atoi(k)
		if err != nil {
			return []json.RawMessage{doc}
		}
		keys = append(keys, n)
	}
	sort.Ints(keys)
	out := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[strconv.Itoa(k)])
	}
	return out
}

func unwrapAll(docs []json.RawMessage) []json.RawMessage {
	var out []json.RawMessage
	for _, d := range docs {
		out = append(out, unwrapNumbered(d)...)
	}
	return out
}

// SplitBatches separates flat entity fragments from hierarchy-shaped
// property batches. A document whose "entities" value is an object, or which
// has no "entities" key, is a property batch; everything else is flat, so
// malformed documents are rejected and reported by the cleaner.
func SplitBatches(docs []json.RawMessage) (flat, nested []json.RawMessage) {
	for _, d := range unwrapAll(docs) {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(d, &probe); err != nil {
			flat = append(flat, d)
			continue
		}
		ent, ok := probe["entities"]
		if !ok {
			nested = append(nested, d)
			continue
		}
		if ent = bytes.TrimSpace(ent); len(ent) > 0 && ent[0] == '{' {
			nested = append(nested, d)
			continue
		}
		flat = append(flat, d)
	}
	return flat, nested
}
