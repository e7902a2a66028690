package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/agenthands/ontograph/internal/artifacts"
	"github.com/agenthands/ontograph/internal/config"
	"github.com/agenthands/ontograph/internal/core/accuracy"
	"github.com/agenthands/ontograph/internal/core/metrics"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/core/pipeline"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/agenthands/ontograph/internal/store"
	"github.com/spf13/cobra"
)

// env is what every command needs: the resolved config and a logger.
type env struct {
	cfg *config.Config
	log *logger.Logger
}

func setup(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		cfg.Storage.Model = m
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log}, nil
}

// withPipeline builds the pipeline, runs fn under a signal-aware context
// and releases everything afterwards.
func withPipeline(cmd *cobra.Command, fn func(ctx context.Context, e *env, p *pipeline.Pipeline) error) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, closePipeline, err := pipeline.FromConfig(ctx, e.cfg, e.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePipeline(); err != nil {
			e.log.Warn("failed to close pipeline resources", "error", err)
		}
	}()
	return fn(ctx, e, p)
}

// printResult writes v as JSON with --json, otherwise the summary lines.
func printResult(cmd *cobra.Command, v any, summary ...string) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	for _, s := range summary {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	var kind artifacts.Kind
	switch args[0] {
	case "ontology":
		kind = artifacts.Ontology
	case "kg", "graph":
		kind = artifacts.Graph
	default:
		return fmt.Errorf("unknown batch kind %q (want ontology or kg)", args[0])
	}
	a, err := artifacts.New(e.cfg.Storage.DataDir, e.cfg.Storage.Model)
	if err != nil {
		return err
	}
	if err := a.Init(); err != nil {
		return err
	}
	existing, err := os.ReadDir(a.BatchDir(kind))
	if err != nil {
		return err
	}
	next := len(existing)
	var written []string
	for _, f := range args[1:] {
		docs, err := artifacts.ReadDocuments(f)
		if err != nil {
			return err
		}
		for _, d := range docs {
			path, err := a.WriteBatch(kind, next, d)
			if err != nil {
				return err
			}
			written = append(written, path)
			next++
		}
	}
	e.log.Info("batches stored", "kind", kind, "count", len(written), "dir", a.BatchDir(kind))
	return printResult(cmd, written, fmt.Sprintf("stored %d %s batches in %s", len(written), kind, a.BatchDir(kind)))
}

func runOntology(cmd *cobra.Command, _ []string) error {
	return withPipeline(cmd, func(ctx context.Context, _ *env, p *pipeline.Pipeline) error {
		if err := p.Artifacts.Init(); err != nil {
			return err
		}
		o, rep, err := p.RunOntology(ctx)
		if err != nil {
			return err
		}
		return printResult(cmd, rep,
			fmt.Sprintf("entity types: %d (unplaced %d)", o.Len(), len(o.Other())),
			fmt.Sprintf("relationship types: %d", len(o.Relationships)),
			fmt.Sprintf("fragments: %d (rejected %d)", rep.Clean.Fragments, rep.Clean.Rejected),
			fmt.Sprintf("diagnostics: %d", len(rep.Diagnostics())),
			"written: "+p.Artifacts.FinalPath(artifacts.Ontology),
		)
	})
}

func runGraph(cmd *cobra.Command, _ []string) error {
	return withPipeline(cmd, func(ctx context.Context, _ *env, p *pipeline.Pipeline) error {
		g, rep, err := p.RunGraph(ctx, nil)
		if pipeline.IsMissing(err) {
			return fmt.Errorf("%w (run `kgpipe ontology` first)", err)
		}
		if err != nil {
			return err
		}
		return printResult(cmd, rep,
			fmt.Sprintf("fragments: %d accepted, %d rejected", rep.Accepted, rep.Rejected),
			fmt.Sprintf("nodes: %d -> %d (merged %d)", rep.NodesIn, len(g.Nodes), rep.MergedNodes),
			fmt.Sprintf("relationships: %d -> %d (dropped %d)", rep.RelationshipsIn, len(g.Relationships), rep.DroppedRelationships),
			"written: "+p.Artifacts.FinalPath(artifacts.Graph),
		)
	})
}

type evaluateReport struct {
	Structural metrics.Report         `json:"structural"`
	Accuracy   *accuracy.Result       `json:"accuracy,omitempty"`
	Triples    *accuracy.TripleReport `json:"triples,omitempty"`
	Shared     *int                   `json:"shared_triples,omitempty"`
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	withAccuracy, _ := cmd.Flags().GetBool("accuracy")
	goldPath, _ := cmd.Flags().GetString("gold")
	comparePath, _ := cmd.Flags().GetString("compare")

	return withPipeline(cmd, func(ctx context.Context, _ *env, p *pipeline.Pipeline) error {
		o, err := p.LoadOntology()
		if err != nil {
			return err
		}
		g, err := p.LoadGraph()
		if err != nil {
			return err
		}
		a := p.Artifacts
		if err := a.Init(); err != nil {
			return err
		}

		structural := p.Structural(g, o)
		if err := a.WriteEvaluation(pipeline.EvalStructural, structural); err != nil {
			return err
		}
		generated := accuracy.GenerateTriples(g)
		if err := a.WriteEvaluation(pipeline.EvalTriples, generated); err != nil {
			return err
		}
		rep := evaluateReport{Structural: structural}
		summary := []string{
			fmt.Sprintf("nodes: %d, relationships: %d, triples: %d", len(g.Nodes), len(g.Relationships), len(generated)),
			fmt.Sprintf("ICR: %s  IPR: %s  IMI: %s",
				structural.Structural.ICR, structural.Structural.IPR, structural.Structural.IMI),
		}

		if withAccuracy {
			res, err := p.Accuracy(ctx, g)
			if werr := a.WriteEvaluation(pipeline.EvalAccuracy, res); werr != nil && err == nil {
				err = werr
			}
			if err != nil {
				return err
			}
			rep.Accuracy = &res
			summary = append(summary, fmt.Sprintf("node accuracy: exact %s, partial %s (%d nodes, %d resumed)",
				res.ExactAccuracy, res.PartialAccuracy, res.Nodes, res.Resumed))
		}

		if goldPath != "" {
			data, err := os.ReadFile(goldPath)
			if err != nil {
				return err
			}
			gold, err := accuracy.DecodeTriples(data)
			if err != nil {
				return fmt.Errorf("gold triples %s: %w", goldPath, err)
			}
			tr := p.Triples(gold, g)
			if err := a.WriteEvaluation("triples_score", tr); err != nil {
				return err
			}
			rep.Triples = &tr
			summary = append(summary, fmt.Sprintf("triple accuracy: exact %s, partial %s", tr.ExactAccuracy, tr.PartialAccuracy))
		}

		if comparePath != "" {
			otherGraph, err := readGraph(comparePath)
			if err != nil {
				return err
			}
			n := accuracy.TripleOverlap(generated, accuracy.GenerateTriples(otherGraph))
			rep.Shared = &n
			summary = append(summary, fmt.Sprintf("shared triples with %s: %d", comparePath, n))
		}

		summary = append(summary, "written: "+a.EvaluationPath(pipeline.EvalStructural))
		return printResult(cmd, rep, summary...)
	})
}

func runExport(cmd *cobra.Command, _ []string) error {
	graphID, _ := cmd.Flags().GetString("graph-id")
	return withPipeline(cmd, func(ctx context.Context, e *env, p *pipeline.Pipeline) error {
		if graphID == "" {
			graphID = e.cfg.Storage.Model
		}
		g, err := p.LoadGraph()
		if err != nil {
			return err
		}
		rep, err := p.Export(ctx, graphID, g)
		if err != nil {
			return err
		}
		return printResult(cmd, rep,
			fmt.Sprintf("exported graph %q: %d nodes, %d relationships in %d batches",
				rep.GraphID, rep.Nodes, rep.Relationships, rep.Batches))
	})
}

func runAll(cmd *cobra.Command, _ []string) error {
	return withPipeline(cmd, func(ctx context.Context, _ *env, p *pipeline.Pipeline) error {
		rep, err := p.Run(ctx)
		if err != nil {
			return err
		}
		summary := []string{
			fmt.Sprintf("model: %s", rep.Model),
			fmt.Sprintf("graph: %d nodes, %d relationships", rep.Graph.NodesOut, rep.Graph.RelationshipsOut),
			fmt.Sprintf("ICR: %s  IPR: %s  IMI: %s",
				rep.Metrics.Structural.ICR, rep.Metrics.Structural.IPR, rep.Metrics.Structural.IMI),
		}
		if rep.Accuracy != nil {
			summary = append(summary, fmt.Sprintf("node accuracy: exact %s, partial %s",
				rep.Accuracy.ExactAccuracy, rep.Accuracy.PartialAccuracy))
		}
		if rep.Export != nil {
			summary = append(summary, fmt.Sprintf("exported %d nodes as %q", rep.Export.Nodes, rep.Export.GraphID))
		}
		return printResult(cmd, rep, summary...)
	})
}

func runImportKB(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.log.Sync()
	if e.cfg.Storage.ReferenceKB == "" {
		return fmt.Errorf("%w: storage.reference_kb is not set", config.ErrInvalidConfig)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	triples, err := accuracy.DecodeTriples(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	s, err := store.Open(e.cfg.Storage.ReferenceKB)
	if err != nil {
		return err
	}
	defer s.Close()

	kb := s.KB()
	if err := kb.ImportTriples(cmd.Context(), triples); err != nil {
		return err
	}
	n, err := kb.Len(cmd.Context())
	if err != nil {
		return err
	}
	e.log.Info("reference kb imported", "triples", len(triples), "entities", n)
	return printResult(cmd, map[string]int{"triples": len(triples), "entities": n},
		fmt.Sprintf("imported %d triples; the knowledge base now holds %d entities", len(triples), n))
}

func runCheckpoints(cmd *cobra.Command, _ []string) error {
	clearID, _ := cmd.Flags().GetString("clear")
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.log.Sync()
	if e.cfg.Storage.CheckpointPath == "" {
		return fmt.Errorf("%w: storage.checkpoint_path is not set", config.ErrInvalidConfig)
	}
	s, err := store.Open(e.cfg.Storage.CheckpointPath)
	if err != nil {
		return err
	}
	defer s.Close()

	cp := s.Checkpoints()
	if clearID != "" {
		if err := cp.Clear(cmd.Context(), clearID); err != nil {
			return err
		}
		return printResult(cmd, map[string]string{"cleared": clearID}, "cleared run "+clearID)
	}
	runs, err := cp.Runs(cmd.Context())
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(runs))
	for id := range runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("%s\t%d nodes", id, runs[id]))
	}
	if len(lines) == 0 {
		lines = append(lines, "no checkpoints")
	}
	return printResult(cmd, runs, lines...)
}

func readGraph(path string) (*model.KnowledgeGraph, error) {
	var g model.KnowledgeGraph
	if err := artifacts.ReadJSON(path, &g); err != nil {
		return nil, fmt.Errorf("read graph %s: %w", path, err)
	}
	return &g, nil
}
