package metrics

import "github.com/agenthands/ontograph/internal/core/model"

// OntologyReport measures the ontology itself and how much of it a graph uses.
type OntologyReport struct {
	Entities          int `json:"entities"`
	RelationshipTypes int `json:"relationship_types"`

	// ClassRatioOntology is the share of entity types named as the source or
	// target of a declared relationship type.
	ClassRatioOntology Value `json:"class_ratio_ontology"`
	// ClassRatioGraph is the share of entity types used as a node label.
	ClassRatioGraph Value `json:"class_ratio_graph"`
	// PropertyRatio is the share of declared properties populated on at least one node.
	PropertyRatio Value `json:"property_ratio"`
	// SubclassPropertyAcquisition counts properties a child adds over its
	// parent, summed over parent/child pairs and divided by entity count.
	SubclassPropertyAcquisition Value `json:"subclass_property_acquisition"`
	// SubclassPropertyAcquisitionPerPair divides the same sum by the pair count.
	SubclassPropertyAcquisitionPerPair Value `json:"subclass_property_acquisition_per_pair"`
	// InverseMultipleInheritance is 1 over the mean number of superclasses.
	InverseMultipleInheritance Value `json:"inverse_multiple_inheritance"`
}

// ComputeOntology measures o. g may be nil, leaving the graph ratios undefined.
func ComputeOntology(o *model.Ontology, g *model.KnowledgeGraph) OntologyReport {
	if o == nil {
		o = model.NewOntology()
	}
	names := o.Names()
	rep := OntologyReport{Entities: len(names), RelationshipTypes: len(o.Relationships)}
	entities := float64(len(names))

	inRelationship := make(map[string]bool)
	for _, r := range o.Relationships {
		inRelationship[model.NameKey(r.Source)] = true
		inRelationship[model.NameKey(r.Target)] = true
	}
	var related float64
	for _, n := range names {
		if inRelationship[model.NameKey(n)] {
			related++
		}
	}
	rep.ClassRatioOntology = ratio(related, entities)

	if g != nil && len(g.Nodes) > 0 {
		used := make(map[string]bool)
		populated := make(map[string]bool)
		for _, n := range g.Nodes {
			for _, l := range n.Labels {
				used[model.NameKey(l)] = true
			}
			for k, v := range n.Properties {
				if !model.IsPlaceholder(v) {
					populated[k] = true
				}
			}
		}
		var instantiated, declared, filled float64
		for _, name := range names {
			if used[model.NameKey(name)] {
				instantiated++
			}
			on, _ := o.Node(name)
			for _, k := range on.Properties.Keys() {
				declared++
				if populated[k] {
					filled++
				}
			}
		}
		rep.ClassRatioGraph = ratio(instantiated, entities)
		rep.PropertyRatio = ratio(filled, declared)
	} else {
		rep.ClassRatioGraph = Undefined()
		rep.PropertyRatio = Undefined()
	}

	var acquired, pairs, superclasses float64
	for _, name := range names {
		if o.IsOther(name) {
			// Bucket members count the bucket as their one superclass.
			superclasses++
			continue
		}
		superclasses += float64(len(o.Ancestors(name)))
		parent := o.Parent(name)
		if parent == "" {
			continue
		}
		child, _ := o.Node(name)
		par, _ := o.Node(parent)
		pairs++
		for _, k := range child.Properties.Keys() {
			if !par.Properties.Has(k) {
				acquired++
			}
		}
	}
	rep.SubclassPropertyAcquisition = ratio(acquired, entities)
	rep.SubclassPropertyAcquisitionPerPair = ratio(acquired, pairs)
	if mean := ratio(superclasses, entities); mean.Defined() && mean != 0 {
		rep.InverseMultipleInheritance = 1 / mean
	} else {
		rep.InverseMultipleInheritance = Undefined()
	}
	return rep
}
