package consolidate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agenthands/ontograph/internal/core/model"
)

type rawFragment struct {
	Nodes         *[]json.RawMessage `json:"nodes"`
	Relationships *[]json.RawMessage `json:"relationships"`
}

type rawNode struct {
	ID         json.RawMessage `json:"id"`
	Labels     json.RawMessage `json:"labels"`
	Properties json.RawMessage `json:"properties"`
}

type rawRelationship struct {
	Type       json.RawMessage `json:"type"`
	StartNode  json.RawMessage `json:"startNode"`
	EndNode    json.RawMessage `json:"endNode"`
	Properties json.RawMessage `json:"properties"`
}

// DecodeFragment parses one per-article graph fragment. Any missing key or
// wrongly typed value rejects the whole fragment with ErrMalformedFragment.
// Numeric ids are accepted and rendered as decimal strings.
func DecodeFragment(index int, data []byte) (model.Fragment, error) {
	frag := model.Fragment{Index: index}
	var raw rawFragment
	if err := json.Unmarshal(data, &raw); err != nil {
		return frag, malformed(index, "not a JSON object: %v", err)
	}
	if raw.Nodes == nil {
		return frag, malformed(index, `missing "nodes" list`)
	}
	if raw.Relationships == nil {
		return frag, malformed(index, `missing "relationships" list`)
	}

	for i, nd := range *raw.Nodes {
		var rn rawNode
		if err := json.Unmarshal(nd, &rn); err != nil {
			return frag, malformed(index, "node %d is not an object", i)
		}
		id, err := decodeID(rn.ID)
		if err != nil {
			return frag, malformed(index, "node %d: id %v", i, err)
		}
		var labels []string
		if err := json.Unmarshal(rn.Labels, &labels); err != nil || rn.Labels == nil {
			return frag, malformed(index, "node %s: labels must be a list of strings", id)
		}
		props, err := decodeProps(rn.Properties)
		if err != nil {
			return frag, malformed(index, "node %s: %v", id, err)
		}
		frag.Nodes = append(frag.Nodes, model.GraphNode{ID: id, Labels: labels, Properties: props})
	}

	for i, rd := range *raw.Relationships {
		var rr rawRelationship
		if err := json.Unmarshal(rd, &rr); err != nil {
			return frag, malformed(index, "relationship %d is not an object", i)
		}
		var typ string
		if err := json.Unmarshal(rr.Type, &typ); err != nil || rr.Type == nil {
			return frag, malformed(index, "relationship %d: type must be a string", i)
		}
		start, err := decodeID(rr.StartNode)
		if err != nil {
			return frag, malformed(index, "relationship %d: startNode %v", i, err)
		}
		end, err := decodeID(rr.EndNode)
		if err != nil {
			return frag, malformed(index, "relationship %d: endNode %v", i, err)
		}
		props, err := decodeProps(rr.Properties)
		if err != nil {
			return frag, malformed(index, "relationship %d: %v", i, err)
		}
		frag.Relationships = append(frag.Relationships, model.GraphRelationship{
			Type: typ, StartNode: start, EndNode: end, Properties: props,
		})
	}

	return frag, ValidateFragment(frag)
}

// ValidateFragment checks the structural rules a decoded fragment must meet:
// non-empty unique node ids, at least one label per node, typed relationships
// with both endpoints named. Endpoints that name no node are not an error here.
func ValidateFragment(f model.Fragment) error {
	seen := make(map[string]bool, len(f.Nodes))
	for i, n := range f.Nodes {
		if n.ID == "" {
			return malformed(f.Index, "node %d has an empty id", i)
		}
		if seen[n.ID] {
			return malformed(f.Index, "node id %s used twice", n.ID)
		}
		seen[n.ID] = true
		if len(n.Labels) == 0 {
			return malformed(f.Index, "node %s has no labels", n.ID)
		}
		for _, l := range n.Labels {
			if strings.TrimSpace(l) == "" {
				return malformed(f.Index, "node %s has an empty label", n.ID)
			}
		}
	}
	for i, r := range f.Relationships {
		if strings.TrimSpace(r.Type) == "" {
			return malformed(f.Index, "relationship %d has no type", i)
		}
		if r.StartNode == "" || r.EndNode == "" {
			return malformed(f.Index, "relationship %d has an empty endpoint", i)
		}
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("missing")
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		if i, err := n.Int64(); err == nil {
			return fmt.Sprintf("%d", i), nil
		}
		return n.String(), nil
	default:
		return "", fmt.Errorf("must be a string or number, got %s", raw)
	}
}

func decodeProps(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("properties must be an object")
	}
	return props, nil
}

func malformed(index int, format string, args ...any) error {
	return fmt.Errorf("%w: fragment %d: %s", model.ErrMalformedFragment, index, fmt.Sprintf(format, args...))
}
