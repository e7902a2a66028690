package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agenthands/ontograph/internal/artifacts"
	"github.com/agenthands/ontograph/internal/config"
	"github.com/agenthands/ontograph/internal/core/accuracy"
	"github.com/agenthands/ontograph/internal/core/consolidate"
	"github.com/agenthands/ontograph/internal/core/dedupe"
	"github.com/agenthands/ontograph/internal/core/hierarchy"
	"github.com/agenthands/ontograph/internal/core/ontology"
	"github.com/agenthands/ontograph/internal/driver"
	"github.com/agenthands/ontograph/internal/llm"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/agenthands/ontograph/internal/store"
)

// judgeConfidence is the minimum confidence an LLM duplicate verdict needs.
const judgeConfidence = 0.7

// NewEquivalence builds the node identity policy named in cfg.
func NewEquivalence(cfg config.ConsolidationConfig, gen llm.LLMClient, emb llm.EmbedderClient) (dedupe.Equivalence, error) {
	switch cfg.Equivalence {
	case "", "exact":
		var aliases map[string][]string
		if cfg.AliasPath != "" {
			var err error
			if aliases, err = dedupe.LoadAliases(cfg.AliasPath); err != nil {
				return nil, err
			}
		}
		return dedupe.NewExact(aliases), nil
	case "token":
		return dedupe.TokenOverlap{Threshold: cfg.TokenThreshold}, nil
	case "fuzzy":
		return dedupe.Fuzzy{}, nil
	case "embedding":
		if emb == nil {
			return nil, fmt.Errorf("%w: embedding equivalence needs an llm provider with embeddings", config.ErrInvalidConfig)
		}
		return dedupe.NewEmbedding(emb, cfg.EmbeddingThreshold), nil
	case "llm":
		if gen == nil {
			return nil, fmt.Errorf("%w: llm equivalence needs an llm provider", config.ErrInvalidConfig)
		}
		return dedupe.NewLLMJudge(gen, judgeConfidence), nil
	default:
		return nil, fmt.Errorf("%w: unknown equivalence %q", config.ErrInvalidConfig, cfg.Equivalence)
	}
}

// FromConfig assembles a pipeline from cfg. The returned close function
// releases the databases and graph store connection it opened.
func FromConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Pipeline, func() error, error) {
	log = logger.OrNop(log)
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*Pipeline, func() error, error) {
		_ = closeAll()
		return nil, nil, err
	}

	lex, err := hierarchy.LoadLexicon(cfg.Hierarchy.LexiconPath)
	if err != nil {
		return fail(err)
	}
	p := New(lex, log)

	gen, emb, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return fail(fmt.Errorf("llm client: %w", err))
	}
	if gen != nil {
		gen = &llm.Retrying{LLM: gen}
	}
	if emb != nil {
		emb = &llm.Retrying{Embedder: emb}
	}

	p.Cleaner = ontology.NewCleaner(ontology.DescriptionEquivalence(emb), log)

	eq, err := NewEquivalence(cfg.Consolidation, gen, emb)
	if err != nil {
		return fail(err)
	}
	p.Consolidator = consolidate.New(consolidate.Options{
		Workers:           cfg.Consolidation.Workers,
		SelfLoopWhitelist: cfg.Consolidation.SelfLoopWhitelist,
		Equivalence:       eq,
	}, log)

	if p.Artifacts, err = artifacts.New(cfg.Storage.DataDir, cfg.Storage.Model); err != nil {
		return fail(err)
	}

	if cfg.Storage.ReferenceKB != "" {
		var cp accuracy.Checkpointer
		var cpStore *store.Store
		if cfg.Storage.CheckpointPath != "" {
			if cpStore, err = store.Open(cfg.Storage.CheckpointPath); err != nil {
				return fail(fmt.Errorf("open checkpoints: %w", err))
			}
			closers = append(closers, cpStore.Close)
			cp = cpStore.Checkpoints()
		}
		kb, err := openReferenceKB(cfg.Storage, cpStore, &closers)
		if err != nil {
			return fail(err)
		}
		p.Evaluator = accuracy.NewEvaluator(kb, cp, accuracy.Options{
			PartialThreshold: cfg.Evaluation.PartialThreshold,
			LookupTimeout:    cfg.Evaluation.LookupTimeout.Std(),
			MaxRetries:       cfg.Evaluation.MaxRetries,
			BatchSize:        cfg.Evaluation.BatchSize,
			CandidateLimit:   cfg.Evaluation.CandidateLimit,
			Workers:          cfg.Evaluation.Workers,
		}, log)
	}

	if cfg.Memgraph.Enabled {
		d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
		if err != nil {
			return fail(fmt.Errorf("connect to memgraph: %w", err))
		}
		closers = append(closers, func() error { return d.Close(context.Background()) })
		if err := d.BuildIndices(ctx); err != nil {
			return fail(err)
		}
		p.Exporter = driver.NewExporter(d, cfg.Memgraph.BatchSize, log)
	}

	log.Info("pipeline configured",
		"model", cfg.Storage.Model,
		"equivalence", cfg.Consolidation.Equivalence,
		"llm_provider", cfg.LLM.Provider,
		"reference_kb", cfg.Storage.ReferenceKB != "",
		"export", cfg.Memgraph.Enabled,
	)
	return p, closeAll, nil
}

// openReferenceKB opens a SQLite reference KB for .db/.sqlite paths and a
// JSON one otherwise. A SQLite KB sharing the checkpoint database reuses it.
func openReferenceKB(cfg config.StorageConfig, cpStore *store.Store, closers *[]func() error) (accuracy.ReferenceKB, error) {
	switch strings.ToLower(filepath.Ext(cfg.ReferenceKB)) {
	case ".db", ".sqlite", ".sqlite3":
		if cpStore != nil && filepath.Clean(cfg.ReferenceKB) == filepath.Clean(cfg.CheckpointPath) {
			return cpStore.KB(), nil
		}
		s, err := store.Open(cfg.ReferenceKB)
		if err != nil {
			return nil, fmt.Errorf("open reference kb: %w", err)
		}
		*closers = append(*closers, s.Close)
		return s.KB(), nil
	default:
		return accuracy.LoadMemoryKB(cfg.ReferenceKB)
	}
}
