package model

import "encoding/json"

// Fragment is one batch of generator output scoped to one article.
type Fragment struct {
	Index         int                 `json:"index"`
	Nodes         []GraphNode         `json:"nodes"`
	Relationships []GraphRelationship `json:"relationships"`
}

// KnowledgeGraph is a node/relationship set with a single id space.
type KnowledgeGraph struct {
	Nodes         []GraphNode         `json:"nodes"`
	Relationships []GraphRelationship `json:"relationships"`
}

// MarshalJSON writes empty lists rather than null so the document can be
// consolidated again.
func (g KnowledgeGraph) MarshalJSON() ([]byte, error) {
	type plain KnowledgeGraph
	if g.Nodes == nil {
		g.Nodes = []GraphNode{}
	}
	if g.Relationships == nil {
		g.Relationships = []GraphRelationship{}
	}
	return json.Marshal(plain(g))
}

func (g *KnowledgeGraph) Clone() *KnowledgeGraph {
	out := &KnowledgeGraph{
		Nodes:         make([]GraphNode, len(g.Nodes)),
		Relationships: make([]GraphRelationship, len(g.Relationships)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.Clone()
	}
	for i, r := range g.Relationships {
		out.Relationships[i] = r.Clone()
	}
	return out
}

// NodeIndex maps node id to its position in Nodes.
func (g *KnowledgeGraph) NodeIndex() map[string]int {
	idx := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		idx[n.ID] = i
	}
	return idx
}

// Degrees counts relationship endpoints per node id.
func (g *KnowledgeGraph) Degrees() map[string]int {
	deg := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		deg[n.ID] = 0
	}
	for _, r := range g.Relationships {
		deg[r.StartNode]++
		deg[r.EndNode]++
	}
	return deg
}

// AsFragment views the graph as a single fragment, e.g. to consolidate it again.
func (g *KnowledgeGraph) AsFragment() Fragment {
	c := g.Clone()
	return Fragment{Nodes: c.Nodes, Relationships: c.Relationships}
}
