package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayNameFollowsKeyOrder(t *testing.T) {
	n := GraphNode{ID: "1", Labels: []string{"Person"}, Properties: map[string]any{
		"name":  "Ada Lovelace",
		"title": "Countess",
	}}
	assert.Equal(t, "Countess", n.DisplayName())

	n.Properties["title"] = "unknown"
	assert.Equal(t, "Ada Lovelace", n.DisplayName())

	n.Properties = map[string]any{"species": []any{"", "Homo sapiens"}}
	assert.Equal(t, "Homo sapiens", n.DisplayName())

	n.Properties = map[string]any{"value": 1815.0}
	assert.Equal(t, "1815", n.DisplayName())

	n.Properties = map[string]any{"birthDate": "1815-12-10"}
	assert.Equal(t, "", n.DisplayName())
}

func TestIsPlaceholder(t *testing.T) {
	for _, v := range []any{nil, "", "  N/A ", "Unknown", "null", []any{}, []any{"none", nil}, map[string]any{}} {
		assert.True(t, IsPlaceholder(v), "%#v", v)
	}
	for _, v := range []any{"Paris", 0.0, false, []any{"x"}} {
		assert.False(t, IsPlaceholder(v), "%#v", v)
	}
}

func TestGraphCloneAndDegrees(t *testing.T) {
	g := &KnowledgeGraph{
		Nodes: []GraphNode{
			{ID: "0", Labels: []string{"Person"}, Properties: map[string]any{"name": "A"}},
			{ID: "1", Labels: []string{"City"}, Properties: map[string]any{"name": "B"}},
			{ID: "2", Labels: []string{"City"}},
		},
		Relationships: []GraphRelationship{{Type: "LIVES_IN", StartNode: "0", EndNode: "1"}},
	}
	c := g.Clone()
	c.Nodes[0].Properties["name"] = "changed"
	c.Nodes[0].Labels[0] = "Robot"
	assert.Equal(t, "A", g.Nodes[0].Properties["name"])
	assert.Equal(t, "Person", g.Nodes[0].Labels[0])
	assert.NotNil(t, c.Nodes[2].Properties)

	assert.Equal(t, map[string]int{"0": 1, "1": 1, "2": 0}, g.Degrees())
	assert.Equal(t, 2, g.NodeIndex()["2"])
}

func TestKnowledgeGraphMarshalsEmptyLists(t *testing.T) {
	data, err := json.Marshal(&KnowledgeGraph{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes": [], "relationships": []}`, string(data))

	data, err = json.Marshal(KnowledgeGraph{Nodes: []GraphNode{{ID: "0", Labels: []string{"City"}}}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"relationships":[]`)
}
