package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parisGraph() *model.KnowledgeGraph {
	return &model.KnowledgeGraph{
		Nodes: []model.GraphNode{
			{ID: "0", Labels: []string{"City"}, Properties: map[string]any{"name": "Paris"}},
			{ID: "1", Labels: []string{"Country"}, Properties: map[string]any{"name": "France"}},
			{ID: "2", Labels: []string{"Person"}, Properties: map[string]any{"name": "Victor Hugo"}},
		},
		Relationships: []model.GraphRelationship{
			{Type: "CAPITAL_OF", StartNode: "0", EndNode: "1"},
			{Type: "LIVED_IN", StartNode: "2", EndNode: "0", Properties: map[string]any{"since": "1848"}},
		},
	}
}

func TestExportBatchesNodesAndEdges(t *testing.T) {
	md := &MockDriver{}
	ex := NewExporter(md, 2, nil)
	ex.now = func() time.Time { return time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC) }

	rep, err := ex.Export(context.Background(), "run-1", parisGraph())
	require.NoError(t, err)

	assert.Equal(t, ExportReport{GraphID: "run-1", Nodes: 3, Relationships: 2, Batches: 3}, rep)
	require.Len(t, md.Executed, 4)
	assert.Equal(t, DeleteGraphQuery, md.Executed[0].Query)
	assert.Equal(t, 2, md.Count(SaveEntityNodesQuery))
	assert.Equal(t, 1, md.Count(SaveEntityEdgesQuery))

	first := md.Executed[1].Params["nodes"].([]map[string]any)
	require.Len(t, first, 2)
	assert.Equal(t, NodeUUID("run-1", "0"), first[0]["uuid"])
	assert.Equal(t, "Paris", first[0]["name"])
	assert.Equal(t, `{"name":"Paris"}`, first[0]["properties"])
	assert.Equal(t, "2024-05-20T00:00:00Z", first[0]["exported_at"])

	edges := md.Executed[3].Params["edges"].([]map[string]any)
	require.Len(t, edges, 2)
	assert.Equal(t, NodeUUID("run-1", "2"), edges[1]["source_uuid"])
	assert.Equal(t, NodeUUID("run-1", "0"), edges[1]["target_uuid"])
	assert.Equal(t, "LIVED_IN", edges[1]["name"])
	assert.Equal(t, `{"since":"1848"}`, edges[1]["properties"])
}

func TestExportStopsOnDriverError(t *testing.T) {
	md := &MockDriver{Err: errors.New("connection refused"), FailOn: SaveEntityEdgesQuery}
	ex := NewExporter(md, 0, nil)

	rep, err := ex.Export(context.Background(), "run-1", parisGraph())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save relationships")
	assert.Equal(t, 3, rep.Nodes)
	assert.Zero(t, rep.Relationships)
}

func TestExportRefusesEmptyGraph(t *testing.T) {
	md := &MockDriver{}
	_, err := NewExporter(md, 0, nil).Export(context.Background(), "run-1", &model.KnowledgeGraph{})
	assert.ErrorIs(t, err, model.ErrEmptyGraph)
	assert.Empty(t, md.Executed)
}

func TestUUIDsAreStableAndScoped(t *testing.T) {
	assert.Equal(t, NodeUUID("g", "1"), NodeUUID("g", "1"))
	assert.NotEqual(t, NodeUUID("g", "1"), NodeUUID("h", "1"))
	assert.NotEqual(t, NodeUUID("g", "1"), NodeUUID("g", "2"))

	r := model.GraphRelationship{Type: "KNOWS", StartNode: "1", EndNode: "2"}
	assert.Equal(t, EdgeUUID("g", r), EdgeUUID("g", r))
	r2 := r
	r2.Type = "LIKES"
	assert.NotEqual(t, EdgeUUID("g", r), EdgeUUID("g", r2))
}

func TestLoadRebuildsGraph(t *testing.T) {
	md := &MockDriver{Results: map[string]neo4j.EagerResult{
		GetGraphNodesQuery: {Records: []*neo4j.Record{
			{Keys: []string{"node_id", "labels", "properties"}, Values: []any{"10", []any{"City"}, `{"name":"Lyon"}`}},
			{Keys: []string{"node_id", "labels", "properties"}, Values: []any{"2", []any{"City"}, `{"name":"Paris"}`}},
		}},
		GetGraphEdgesQuery: {Records: []*neo4j.Record{
			{Keys: []string{"name", "source_id", "target_id", "properties"}, Values: []any{"NEAR", "10", "2", nil}},
		}},
	}}

	g, err := NewExporter(md, 0, nil).Load(context.Background(), "run-1")
	require.NoError(t, err)

	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "2", g.Nodes[0].ID)
	assert.Equal(t, "Lyon", g.Nodes[1].DisplayName())
	assert.Equal(t, []model.GraphRelationship{{Type: "NEAR", StartNode: "10", EndNode: "2", Properties: map[string]any{}}}, g.Relationships)
	assert.Equal(t, "run-1", md.Executed[0].Params["graph_id"])
}

func TestIdLess(t *testing.T) {
	assert.True(t, idLess("2", "10"))
	assert.True(t, idLess("10", "a"))
	assert.True(t, idLess("a", "b"))
	assert.False(t, idLess("b", "3"))
}
