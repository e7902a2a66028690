package metrics

import (
	"github.com/agenthands/ontograph/internal/core/community"
	"github.com/agenthands/ontograph/internal/core/model"
)

// StructuralReport holds graph-shape and ontology-conformance metrics.
type StructuralReport struct {
	Nodes         int `json:"nodes"`
	Relationships int `json:"relationships"`

	// ICR is the share of node label occurrences that are ontology entity types.
	ICR Value `json:"icr"`
	// IPR is the share of node property occurrences declared by the schema of
	// one of the node's labels.
	IPR Value `json:"ipr"`
	// SPA is the mean number of schema-declared properties populated per node.
	SPA Value `json:"spa"`
	// SPAv2 divides each node's populated count by its schema size before averaging.
	SPAv2 Value `json:"spa_v2"`
	// IMI is the mean of ICR, IPR, 1-IsolatedRatio and AverageDegree/(1+AverageDegree).
	IMI Value `json:"imi"`

	AverageDegree         Value `json:"average_degree"`
	IsolatedRatio         Value `json:"isolated_ratio"`
	Components            int   `json:"components"`
	LargestComponentRatio Value `json:"largest_component_ratio"`
	Communities           int   `json:"communities"`
}

// ComputeStructural is a pure function of its inputs. An empty graph yields
// undefined ratios rather than an error.
func ComputeStructural(g *model.KnowledgeGraph, o *model.Ontology) StructuralReport {
	if g == nil {
		g = &model.KnowledgeGraph{}
	}
	if o == nil {
		o = model.NewOntology()
	}
	rep := StructuralReport{Nodes: len(g.Nodes), Relationships: len(g.Relationships)}

	var labelsTotal, labelsValid, propsTotal, propsDeclared float64
	var populatedSum, normalisedSum, withSchema float64
	for _, n := range g.Nodes {
		schema := nodeSchema(o, n)
		for _, l := range n.Labels {
			labelsTotal++
			if o.Has(l) {
				labelsValid++
			}
		}
		for k := range n.Properties {
			propsTotal++
			if schema[k] {
				propsDeclared++
			}
		}
		populated := 0
		for k := range schema {
			if v, ok := n.Properties[k]; ok && !model.IsPlaceholder(v) {
				populated++
			}
		}
		populatedSum += float64(populated)
		if len(schema) > 0 {
			normalisedSum += float64(populated) / float64(len(schema))
			withSchema++
		}
	}
	nodes := float64(len(g.Nodes))
	rep.ICR = ratio(labelsValid, labelsTotal)
	rep.IPR = ratio(propsDeclared, propsTotal)
	rep.SPA = ratio(populatedSum, nodes)
	rep.SPAv2 = ratio(normalisedSum, withSchema)

	degrees := g.Degrees()
	var degreeSum, isolated float64
	for _, n := range g.Nodes {
		d := degrees[n.ID]
		degreeSum += float64(d)
		if d == 0 {
			isolated++
		}
	}
	rep.AverageDegree = ratio(degreeSum, nodes)
	rep.IsolatedRatio = ratio(isolated, nodes)

	if components := community.Components(g); len(components) > 0 {
		rep.Components = len(components)
		rep.LargestComponentRatio = ratio(float64(len(components[0])), nodes)
	} else {
		rep.LargestComponentRatio = Undefined()
	}
	rep.Communities = len(community.NewLabelPropagationDetector().Detect(g))

	if len(g.Nodes) == 0 {
		rep.IMI = Undefined()
		return rep
	}
	connectivity := Undefined()
	if rep.AverageDegree.Defined() {
		connectivity = Value(rep.AverageDegree.Float() / (1 + rep.AverageDegree.Float()))
	}
	rep.IMI = mean(rep.ICR, rep.IPR, Value(1-rep.IsolatedRatio.Float()), connectivity)
	return rep
}

// nodeSchema is the union of the property names declared for a node's labels.
func nodeSchema(o *model.Ontology, n model.GraphNode) map[string]bool {
	schema := make(map[string]bool)
	for _, l := range n.Labels {
		if on, ok := o.Node(l); ok {
			for _, k := range on.Properties.Keys() {
				schema[k] = true
			}
		}
	}
	return schema
}
