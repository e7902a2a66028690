package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agenthands/ontograph/internal/artifacts"
	"github.com/agenthands/ontograph/internal/core/accuracy"
	"github.com/agenthands/ontograph/internal/core/consolidate"
	"github.com/agenthands/ontograph/internal/core/hierarchy"
	"github.com/agenthands/ontograph/internal/core/inheritance"
	"github.com/agenthands/ontograph/internal/core/metrics"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/ontology"
	"github.com/agenthands/ontograph/internal/driver"
	"github.com/agenthands/ontograph/internal/logger"
)

var (
	// ErrNoReferenceKB is returned by accuracy evaluation when no reference
	// knowledge base is configured.
	ErrNoReferenceKB = errors.New("ontograph: no reference knowledge base configured")

	// ErrNoExporter is returned by Export when no graph store is configured.
	ErrNoExporter = errors.New("ontograph: no graph store configured")

	// ErrNoArtifacts is returned by Run when no artifact layout is configured.
	ErrNoArtifacts = errors.New("ontograph: no artifact directory configured")
)

// Stage names reported to the Observer.
const (
	StageOntology    = "ontology"
	StageHierarchy   = "hierarchy"
	StageInheritance = "inheritance"
	StageConsolidate = "consolidate"
	StageStructural  = "structural"
	StageAccuracy    = "accuracy"
	StageTriples     = "triples"
	StageExport      = "export"
)

// Observer is told about every finished stage.
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration, diags model.Diagnostics)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration, model.Diagnostics) {}

// Pipeline wires the ontology, consolidation, evaluation and export stages.
// Evaluator, Exporter and Artifacts are optional; the operations needing
// them fail with a sentinel error when they are nil.
type Pipeline struct {
	Merger       *hierarchy.Merger
	Resolver     *inheritance.Resolver
	Cleaner      *ontology.Cleaner
	Consolidator *consolidate.Consolidator
	Evaluator    *accuracy.Evaluator
	Exporter     *driver.Exporter
	Artifacts    *artifacts.Layout
	Observer     Observer

	log *logger.Logger
}

// New builds a pipeline with default stages over lex. Callers replace
// fields to customise it.
func New(lex *hierarchy.Lexicon, log *logger.Logger) *Pipeline {
	log = logger.OrNop(log)
	if lex == nil {
		lex = hierarchy.DefaultLexicon()
	}
	return &Pipeline{
		Merger:       hierarchy.NewMerger(lex, log),
		Resolver:     inheritance.NewResolver(lex, log),
		Cleaner:      ontology.NewCleaner(nil, log),
		Consolidator: consolidate.New(consolidate.Options{}, log),
		Observer:     nopObserver{},
		log:          log,
	}
}

func (p *Pipeline) observer() Observer {
	if p.Observer == nil {
		return nopObserver{}
	}
	return p.Observer
}

// OntologyReport gathers the reports of every ontology stage.
type OntologyReport struct {
	Clean       ontology.CleanReport `json:"clean"`
	Hierarchy   hierarchy.Report     `json:"hierarchy"`
	Inheritance inheritance.Report   `json:"inheritance"`
	// Properties holds diagnostics from property batch merging.
	Properties model.Diagnostics `json:"properties,omitempty"`
}

// Diagnostics returns every diagnostic of the run in stage order.
func (r OntologyReport) Diagnostics() model.Diagnostics {
	var out model.Diagnostics
	out = append(out, r.Clean.Diagnostics...)
	out = append(out, r.Properties...)
	out = append(out, r.Hierarchy.Diagnostics...)
	out = append(out, r.Inheritance.Diagnostics...)
	return out
}

// BuildOntology turns raw ontology batches into a placed, resolved ontology.
// Flat entity fragments are cleaned and merged, hierarchy-shaped batches
// contribute property declarations, every known name is placed by the
// merger, and schemas are resolved top-down. existing may be nil.
func (p *Pipeline) BuildOntology(ctx context.Context, existing *model.Ontology, docs []json.RawMessage) (*model.Ontology, OntologyReport, error) {
	start := time.Now()
	var rep OntologyReport

	flat, nested := ontology.SplitBatches(docs)
	cleaned, crep, err := p.Cleaner.CleanRaw(ctx, flat)
	if err != nil {
		return nil, rep, fmt.Errorf("clean ontology batches: %w", err)
	}
	if existing != nil && len(existing.Relationships) > 0 {
		prior := model.OntologyFragment{Relationships: existing.Relationships}
		cleaned, _, err = p.Cleaner.Clean(ctx, []model.OntologyFragment{prior, cleaned})
		if err != nil {
			return nil, rep, fmt.Errorf("merge relationship types: %w", err)
		}
	}
	rep.Clean = crep

	var valid []json.RawMessage
	for i, d := range nested {
		if _, _, err := model.DecodeOntology(d); err != nil {
			rep.Properties.Add(model.KindMalformedFragment, StageOntology, fmt.Sprintf("property batch %d", i), err.Error())
			continue
		}
		valid = append(valid, d)
	}
	decls, pdiags, err := ontology.MergePropertyBatches(valid)
	if err != nil {
		return nil, rep, fmt.Errorf("merge property batches: %w", err)
	}
	rep.Properties = append(rep.Properties, pdiags...)

	names := append([]string(nil), cleaned.Entities...)
	names = append(names, decls.Names()...)
	o, hrep := p.Merger.Merge(existing, names)
	rep.Hierarchy = hrep
	p.observer().ObserveStage(StageHierarchy, time.Since(start), hrep.Diagnostics)

	o, adiags := ontology.ApplyProperties(o, decls)
	rep.Properties = append(rep.Properties, adiags...)
	o = ontology.Assemble(o, cleaned)

	o, irep := p.Resolver.Resolve(o)
	rep.Inheritance = irep
	if err := o.Validate(); err != nil {
		return nil, rep, fmt.Errorf("ontology invariant broken: %w", err)
	}
	if err := inheritance.Check(o); err != nil {
		return nil, rep, err
	}

	p.logDiagnostics(rep.Properties)
	// Hierarchy diagnostics were reported with their own stage.
	var rest model.Diagnostics
	rest = append(rest, rep.Clean.Diagnostics...)
	rest = append(rest, rep.Properties...)
	rest = append(rest, rep.Inheritance.Diagnostics...)
	p.observer().ObserveStage(StageOntology, time.Since(start), rest)
	p.log.Info("ontology built",
		"entities", o.Len(),
		"relationship_types", len(o.Relationships),
		"other", len(o.Other()),
		"diagnostics", len(rep.Diagnostics()),
	)
	return o, rep, nil
}

// MergeHierarchy places names into existing.
func (p *Pipeline) MergeHierarchy(existing *model.Ontology, names []string) (*model.Ontology, hierarchy.Report) {
	start := time.Now()
	o, rep := p.Merger.Merge(existing, names)
	p.observer().ObserveStage(StageHierarchy, time.Since(start), rep.Diagnostics)
	return o, rep
}

// ResolveProperties gives every entity type its inherited schema.
func (p *Pipeline) ResolveProperties(o *model.Ontology) (*model.Ontology, inheritance.Report) {
	start := time.Now()
	out, rep := p.Resolver.Resolve(o)
	p.observer().ObserveStage(StageInheritance, time.Since(start), rep.Diagnostics)
	return out, rep
}

// ConsolidateGraph merges raw per-article fragments under o.
func (p *Pipeline) ConsolidateGraph(ctx context.Context, o *model.Ontology, raw []json.RawMessage) (*model.KnowledgeGraph, consolidate.Report, error) {
	start := time.Now()
	g, rep, err := p.Consolidator.Consolidate(ctx, o, raw)
	if err != nil {
		return nil, rep, fmt.Errorf("consolidate: %w", err)
	}
	p.observer().ObserveStage(StageConsolidate, time.Since(start), rep.Diagnostics)
	return g, rep, nil
}

// Structural computes every structural and ontology metric of g under o.
func (p *Pipeline) Structural(g *model.KnowledgeGraph, o *model.Ontology) metrics.Report {
	start := time.Now()
	rep := metrics.Compute(g, o)
	p.observer().ObserveStage(StageStructural, time.Since(start), nil)
	return rep
}

// Accuracy resolves the nodes of g against the reference knowledge base.
func (p *Pipeline) Accuracy(ctx context.Context, g *model.KnowledgeGraph) (accuracy.Result, error) {
	if p.Evaluator == nil {
		return accuracy.Result{}, ErrNoReferenceKB
	}
	start := time.Now()
	res, err := p.Evaluator.Score(ctx, g)
	p.observer().ObserveStage(StageAccuracy, time.Since(start), res.Diagnostics)
	return res, err
}

// Triples scores the triples of g against gold.
func (p *Pipeline) Triples(gold []model.Triple, g *model.KnowledgeGraph) accuracy.TripleReport {
	start := time.Now()
	rep := accuracy.ScoreTriples(gold, accuracy.GenerateTriples(g))
	p.observer().ObserveStage(StageTriples, time.Since(start), nil)
	return rep
}

// Export writes g to the graph store under graphID.
func (p *Pipeline) Export(ctx context.Context, graphID string, g *model.KnowledgeGraph) (driver.ExportReport, error) {
	if p.Exporter == nil {
		return driver.ExportReport{}, ErrNoExporter
	}
	start := time.Now()
	rep, err := p.Exporter.Export(ctx, graphID, g)
	if err != nil {
		return rep, err
	}
	p.observer().ObserveStage(StageExport, time.Since(start), nil)
	return rep, nil
}

func (p *Pipeline) logDiagnostics(diags model.Diagnostics) {
	for _, d := range diags {
		p.log.Warn("diagnostic", "stage", d.Stage, "kind", d.Kind, "subject", d.Subject, "message", d.Message)
	}
}
