package consolidate

import (
	"testing"

	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFragment(t *testing.T) {
	f, err := DecodeFragment(3, []byte(`{
		"nodes": [
			{"id": 1, "labels": ["Person"], "properties": {"name": "Ada", "age": 36}},
			{"id": " 2 ", "labels": ["City"]}
		],
		"relationships": [{"type": "LIVES_IN", "startNode": 1, "endNode": "2", "properties": null}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 3, f.Index)
	require.Len(t, f.Nodes, 2)
	assert.Equal(t, "1", f.Nodes[0].ID)
	assert.Equal(t, 36.0, f.Nodes[0].Properties["age"])
	assert.Equal(t, "2", f.Nodes[1].ID)
	assert.NotNil(t, f.Nodes[1].Properties)
	assert.Equal(t, model.GraphRelationship{Type: "LIVES_IN", StartNode: "1", EndNode: "2", Properties: map[string]any{}}, f.Relationships[0])
}

func TestDecodeFragmentRejects(t *testing.T) {
	cases := map[string]string{
		"not json":           `{`,
		"missing nodes":      `{"relationships": []}`,
		"null nodes":         `{"nodes": null, "relationships": []}`,
		"node not object":    `{"nodes": ["x"], "relationships": []}`,
		"bool id":            `{"nodes": [{"id": true, "labels": ["A"]}], "relationships": []}`,
		"missing id":         `{"nodes": [{"labels": ["A"]}], "relationships": []}`,
		"empty labels":       `{"nodes": [{"id": "1", "labels": []}], "relationships": []}`,
		"null labels":        `{"nodes": [{"id": "1", "labels": null}], "relationships": []}`,
		"properties list":    `{"nodes": [{"id": "1", "labels": ["A"], "properties": []}], "relationships": []}`,
		"relationship type":  `{"nodes": [], "relationships": [{"type": 3, "startNode": "1", "endNode": "2"}]}`,
		"missing endNode":    `{"nodes": [], "relationships": [{"type": "R", "startNode": "1"}]}`,
		"empty type":         `{"nodes": [], "relationships": [{"type": " ", "startNode": "1", "endNode": "2"}]}`,
		"duplicate node ids": `{"nodes": [{"id": 1, "labels": ["A"]}, {"id": "1", "labels": ["B"]}], "relationships": []}`,
	}
	for name, doc := range cases {
		_, err := DecodeFragment(0, []byte(doc))
		assert.ErrorIs(t, err, model.ErrMalformedFragment, name)
	}
}
