package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthands/ontograph/internal/artifacts"
	"github.com/agenthands/ontograph/internal/core/accuracy"
	"github.com/agenthands/ontograph/internal/core/consolidate"
	"github.com/agenthands/ontograph/internal/core/metrics"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/driver"
)

// Evaluation artifact names.
const (
	EvalStructural = "structural"
	EvalAccuracy   = "accuracy"
	EvalTriples    = "triples"
)

// RunReport summarises a full Run.
type RunReport struct {
	Model    string               `json:"model"`
	Ontology OntologyReport       `json:"ontology"`
	Graph    consolidate.Report   `json:"graph"`
	Metrics  metrics.Report       `json:"metrics"`
	Accuracy *accuracy.Result     `json:"accuracy,omitempty"`
	Export   *driver.ExportReport `json:"export,omitempty"`
}

// Run executes every stage over the artifact tree: ontology batches become
// ontology/final.json, graph batches become kg/final.json, and metrics,
// generated triples and, when configured, accuracy land in evaluations/.
// The graph is exported last when an exporter is configured.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	if p.Artifacts == nil {
		return RunReport{}, ErrNoArtifacts
	}
	a := p.Artifacts
	rep := RunReport{Model: a.Model}
	if err := a.Init(); err != nil {
		return rep, err
	}

	o, orep, err := p.RunOntology(ctx)
	if err != nil {
		return rep, err
	}
	rep.Ontology = orep

	g, grep, err := p.RunGraph(ctx, o)
	if err != nil {
		return rep, err
	}
	rep.Graph = grep

	rep.Metrics = p.Structural(g, o)
	if err := a.WriteEvaluation(EvalStructural, rep.Metrics); err != nil {
		return rep, err
	}
	if err := a.WriteEvaluation(EvalTriples, accuracy.GenerateTriples(g)); err != nil {
		return rep, err
	}

	if p.Evaluator != nil {
		res, err := p.Accuracy(ctx, g)
		if werr := a.WriteEvaluation(EvalAccuracy, res); werr != nil && err == nil {
			err = werr
		}
		rep.Accuracy = &res
		if err != nil {
			return rep, fmt.Errorf("accuracy evaluation: %w", err)
		}
	}

	if p.Exporter != nil && len(g.Nodes) > 0 {
		er, err := p.Export(ctx, a.Model, g)
		if err != nil {
			return rep, fmt.Errorf("export: %w", err)
		}
		rep.Export = &er
	}

	p.log.Info("pipeline finished",
		"model", a.Model,
		"entities", o.Len(),
		"nodes", len(g.Nodes),
		"relationships", len(g.Relationships),
	)
	return rep, nil
}

// RunOntology builds the ontology from the stored ontology batches and
// writes it as the final ontology artifact with its report.
func (p *Pipeline) RunOntology(ctx context.Context) (*model.Ontology, OntologyReport, error) {
	if p.Artifacts == nil {
		return nil, OntologyReport{}, ErrNoArtifacts
	}
	a := p.Artifacts
	docs, err := a.ReadBatches(artifacts.Ontology)
	if err != nil {
		return nil, OntologyReport{}, err
	}
	o, rep, err := p.BuildOntology(ctx, nil, docs)
	if err != nil {
		return nil, rep, err
	}
	if _, err := a.WriteMerged(artifacts.Ontology, "report", rep); err != nil {
		return nil, rep, err
	}
	if err := a.WriteFinal(artifacts.Ontology, o); err != nil {
		return nil, rep, err
	}
	return o, rep, nil
}

// RunGraph consolidates the stored graph batches under o, or under the
// final ontology artifact when o is nil, and writes the final graph.
func (p *Pipeline) RunGraph(ctx context.Context, o *model.Ontology) (*model.KnowledgeGraph, consolidate.Report, error) {
	if p.Artifacts == nil {
		return nil, consolidate.Report{}, ErrNoArtifacts
	}
	a := p.Artifacts
	if o == nil {
		var err error
		if o, err = p.LoadOntology(); err != nil {
			return nil, consolidate.Report{}, err
		}
	}
	raw, err := a.ReadBatches(artifacts.Graph)
	if err != nil {
		return nil, consolidate.Report{}, err
	}
	g, rep, err := p.ConsolidateGraph(ctx, o, raw)
	if err != nil {
		return nil, rep, err
	}
	if _, err := a.WriteMerged(artifacts.Graph, "report", rep); err != nil {
		return nil, rep, err
	}
	if err := a.WriteFinal(artifacts.Graph, g); err != nil {
		return nil, rep, err
	}
	return g, rep, nil
}

// LoadOntology reads the final ontology artifact.
func (p *Pipeline) LoadOntology() (*model.Ontology, error) {
	if p.Artifacts == nil {
		return nil, ErrNoArtifacts
	}
	o := model.NewOntology()
	if err := p.Artifacts.ReadFinal(artifacts.Ontology, o); err != nil {
		return nil, fmt.Errorf("load ontology: %w", err)
	}
	return o, nil
}

// LoadGraph reads the final graph artifact.
func (p *Pipeline) LoadGraph() (*model.KnowledgeGraph, error) {
	if p.Artifacts == nil {
		return nil, ErrNoArtifacts
	}
	var g model.KnowledgeGraph
	if err := p.Artifacts.ReadFinal(artifacts.Graph, &g); err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}
	return &g, nil
}

// IsMissing reports whether err means an artifact has not been produced yet.
func IsMissing(err error) bool {
	return errors.Is(err, artifacts.ErrNotFound)
}
