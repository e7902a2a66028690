package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/google/uuid"
)

const defaultBatchSize = 500

// Exporter writes consolidated graphs to a Cypher store. Every node becomes an
// :Entity and every relationship a :RELATES_TO edge named by its type, both
// scoped by graph id.
type Exporter struct {
	driver    GraphDriver
	batchSize int
	log       *logger.Logger
	now       func() time.Time
}

type ExportReport struct {
	GraphID       string `json:"graph_id"`
	Nodes         int    `json:"nodes"`
	Relationships int    `json:"relationships"`
	Batches       int    `json:"batches"`
}

func NewExporter(d GraphDriver, batchSize int, log *logger.Logger) *Exporter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Exporter{driver: d, batchSize: batchSize, log: logger.OrNop(log), now: time.Now}
}

// NodeUUID is the stable export id of a node within a graph.
func NodeUUID(graphID, nodeID string) string {
	return uuid.NewSHA1(graphNamespace(graphID), []byte("node:"+nodeID)).String()
}

// EdgeUUID is the stable export id of a relationship within a graph.
func EdgeUUID(graphID string, r model.GraphRelationship) string {
	key := "edge:" + r.StartNode + "\x00" + r.Type + "\x00" + r.EndNode
	return uuid.NewSHA1(graphNamespace(graphID), []byte(key)).String()
}

func graphNamespace(graphID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("ontograph:"+graphID))
}

// Export replaces any earlier export of graphID with g. An empty graph is
// refused so a failed run cannot wipe an earlier export.
func (e *Exporter) Export(ctx context.Context, graphID string, g *model.KnowledgeGraph) (ExportReport, error) {
	rep := ExportReport{GraphID: graphID}
	if g == nil || len(g.Nodes) == 0 {
		return rep, model.ErrEmptyGraph
	}
	if err := e.Delete(ctx, graphID); err != nil {
		return rep, err
	}
	exportedAt := e.now().UTC().Format(time.RFC3339)

	nodes := make([]map[string]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		props, err := encodeProps(n.Properties)
		if err != nil {
			return rep, fmt.Errorf("node %s: %w", n.ID, err)
		}
		labels := n.Labels
		if labels == nil {
			labels = []string{}
		}
		nodes = append(nodes, map[string]any{
			"uuid":        NodeUUID(graphID, n.ID),
			"graph_id":    graphID,
			"node_id":     n.ID,
			"name":        n.DisplayName(),
			"labels":      labels,
			"properties":  props,
			"exported_at": exportedAt,
		})
	}
	for start := 0; start < len(nodes); start += e.batchSize {
		end := min(start+e.batchSize, len(nodes))
		if _, err := e.driver.ExecuteQuery(ctx, SaveEntityNodesQuery, map[string]any{"nodes": nodes[start:end]}); err != nil {
			return rep, fmt.Errorf("save nodes %d-%d: %w", start, end, err)
		}
		rep.Nodes += end - start
		rep.Batches++
	}

	edges := make([]map[string]any, 0, len(g.Relationships))
	for _, r := range g.Relationships {
		props, err := encodeProps(r.Properties)
		if err != nil {
			return rep, fmt.Errorf("relationship %s %s %s: %w", r.StartNode, r.Type, r.EndNode, err)
		}
		edges = append(edges, map[string]any{
			"uuid":        EdgeUUID(graphID, r),
			"graph_id":    graphID,
			"name":        r.Type,
			"source_uuid": NodeUUID(graphID, r.StartNode),
			"target_uuid": NodeUUID(graphID, r.EndNode),
			"properties":  props,
		})
	}
	for start := 0; start < len(edges); start += e.batchSize {
		end := min(start+e.batchSize, len(edges))
		if _, err := e.driver.ExecuteQuery(ctx, SaveEntityEdgesQuery, map[string]any{"edges": edges[start:end]}); err != nil {
			return rep, fmt.Errorf("save relationships %d-%d: %w", start, end, err)
		}
		rep.Relationships += end - start
		rep.Batches++
	}

	e.log.Info("graph exported",
		"graph_id", graphID,
		"nodes", rep.Nodes,
		"relationships", rep.Relationships,
		"batches", rep.Batches,
	)
	return rep, nil
}

func (e *Exporter) Delete(ctx context.Context, graphID string) error {
	if _, err := e.driver.ExecuteQuery(ctx, DeleteGraphQuery, map[string]any{"graph_id": graphID}); err != nil {
		return fmt.Errorf("delete graph %s: %w", graphID, err)
	}
	return nil
}

// Load reads an exported graph back. Nodes and relationships come back in
// id order, numeric ids compared as numbers.
func (e *Exporter) Load(ctx context.Context, graphID string) (*model.KnowledgeGraph, error) {
	params := map[string]any{"graph_id": graphID}
	nodeRes, err := e.driver.ExecuteQuery(ctx, GetGraphNodesQuery, params)
	if err != nil {
		return nil, fmt.Errorf("load nodes of %s: %w", graphID, err)
	}
	g := &model.KnowledgeGraph{Nodes: []model.GraphNode{}, Relationships: []model.GraphRelationship{}}
	for _, rec := range nodeRes.Records {
		id, _ := rec.Get("node_id")
		labels, _ := rec.Get("labels")
		props, _ := rec.Get("properties")
		n := model.GraphNode{ID: asString(id), Labels: asStrings(labels)}
		if n.Properties, err = decodeProps(props); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		g.Nodes = append(g.Nodes, n)
	}

	edgeRes, err := e.driver.ExecuteQuery(ctx, GetGraphEdgesQuery, params)
	if err != nil {
		return nil, fmt.Errorf("load relationships of %s: %w", graphID, err)
	}
	for _, rec := range edgeRes.Records {
		name, _ := rec.Get("name")
		src, _ := rec.Get("source_id")
		tgt, _ := rec.Get("target_id")
		props, _ := rec.Get("properties")
		r := model.GraphRelationship{Type: asString(name), StartNode: asString(src), EndNode: asString(tgt)}
		if r.Properties, err = decodeProps(props); err != nil {
			return nil, fmt.Errorf("relationship %s: %w", r.Type, err)
		}
		g.Relationships = append(g.Relationships, r)
	}

	sort.SliceStable(g.Nodes, func(i, j int) bool { return idLess(g.Nodes[i].ID, g.Nodes[j].ID) })
	sort.SliceStable(g.Relationships, func(i, j int) bool {
		a, b := g.Relationships[i], g.Relationships[j]
		if a.StartNode != b.StartNode {
			return idLess(a.StartNode, b.StartNode)
		}
		if a.EndNode != b.EndNode {
			return idLess(a.EndNode, b.EndNode)
		}
		return a.Type < b.Type
	})
	return g, nil
}

func encodeProps(p map[string]any) (string, error) {
	if p == nil {
		p = map[string]any{}
	}
	data, err := json.Marshal(p)
	return string(data), err
}

func decodeProps(v any) (map[string]any, error) {
	out := map[string]any{}
	s, ok := v.(string)
	if !ok || s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func asStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, asString(e))
		}
		return out
	}
	return []string{}
}

func idLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	if (aerr == nil) != (berr == nil) {
		return aerr == nil
	}
	return a < b
}
