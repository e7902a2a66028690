package model

// GraphRelationship connects two nodes of the same graph by id.
type GraphRelationship struct {
	Type       string         `json:"type"`
	StartNode  string         `json:"startNode"`
	EndNode    string         `json:"endNode"`
	Properties map[string]any `json:"properties"`
}

func (r GraphRelationship) Clone() GraphRelationship {
	r.Properties = cloneProps(r.Properties)
	return r
}

// Triple is a (head, relation, tail) statement derived from a relationship.
type Triple struct {
	Head     string `json:"head"`
	Relation string `json:"relation"`
	Tail     string `json:"tail"`
}
