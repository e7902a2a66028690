package metrics

import "github.com/agenthands/ontograph/internal/core/model"

// Report bundles every graph-only measurement of one run.
type Report struct {
	Structural StructuralReport `json:"structural"`
	Ontology   OntologyReport   `json:"ontology"`
	Statistics Statistics       `json:"statistics"`
}

func Compute(g *model.KnowledgeGraph, o *model.Ontology) Report {
	return Report{
		Structural: ComputeStructural(g, o),
		Ontology:   ComputeOntology(o, g),
		Statistics: ComputeStatistics(o, g),
	}
}
