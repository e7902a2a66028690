package metrics

import (
	"sort"

	"github.com/agenthands/ontograph/internal/core/model"
)

// Statistics summarises label and relationship usage in a graph against
// the ontology it was extracted with.
type Statistics struct {
	LabelCounts      map[string]int `json:"label_counts"`
	OntologyLabels   []string       `json:"ontology_labels"`
	NewLabels        []string       `json:"new_labels"`
	RelationCounts   map[string]int `json:"relation_counts"`
	OntologyRelTypes []string       `json:"ontology_relation_types"`
	NewRelTypes      []string       `json:"new_relation_types"`
	// ChildrenCounts maps each tree entity to its direct child count and the
	// Other bucket to its member count.
	ChildrenCounts map[string]int `json:"children_counts"`
}

func ComputeStatistics(o *model.Ontology, g *model.KnowledgeGraph) Statistics {
	if o == nil {
		o = model.NewOntology()
	}
	if g == nil {
		g = &model.KnowledgeGraph{}
	}
	st := Statistics{
		LabelCounts:    make(map[string]int),
		RelationCounts: make(map[string]int),
		ChildrenCounts: make(map[string]int),
	}
	for _, n := range g.Nodes {
		for _, l := range n.Labels {
			st.LabelCounts[l]++
		}
	}
	for _, l := range sortedKeys(st.LabelCounts) {
		if o.Has(l) {
			st.OntologyLabels = append(st.OntologyLabels, l)
		} else {
			st.NewLabels = append(st.NewLabels, l)
		}
	}

	declared := make(map[string]bool, len(o.Relationships))
	for _, r := range o.Relationships {
		declared[r.Type] = true
	}
	for _, r := range g.Relationships {
		st.RelationCounts[r.Type]++
	}
	for _, t := range sortedKeys(st.RelationCounts) {
		if declared[t] {
			st.OntologyRelTypes = append(st.OntologyRelTypes, t)
		} else {
			st.NewRelTypes = append(st.NewRelTypes, t)
		}
	}

	o.Walk(func(n model.OntologyNode, _ int) {
		st.ChildrenCounts[n.Name] = len(n.Children)
	})
	if other := o.Other(); len(other) > 0 {
		st.ChildrenCounts[model.OtherBucket] = len(other)
	}
	return st
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
