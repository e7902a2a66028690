package accuracy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agenthands/ontograph/internal/core/dedupe"
	"github.com/agenthands/ontograph/internal/core/metrics"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/logger"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const stage = "accuracy"

type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchPartial MatchKind = "partial"
	MatchNone    MatchKind = "none"
)

type Options struct {
	// PartialThreshold is the minimum word-overlap similarity for a partial match.
	PartialThreshold float64
	// LookupTimeout bounds each attempt of a single KB call.
	LookupTimeout time.Duration
	// MaxRetries is the number of attempts after the first.
	MaxRetries      uint
	InitialInterval time.Duration
	BatchSize       int
	CandidateLimit  int
	Workers         int
	// RunID names the checkpoint set; empty derives one from the graph.
	RunID string
}

func DefaultOptions() Options {
	return Options{
		PartialThreshold: 0.5,
		LookupTimeout:    5 * time.Second,
		MaxRetries:       3,
		InitialInterval:  100 * time.Millisecond,
		BatchSize:        50,
		CandidateLimit:   10,
		Workers:          4,
	}
}

type NodeResult struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Match     MatchKind `json:"match"`
	Reference string    `json:"reference,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type Result struct {
	RunID           string            `json:"run_id"`
	Nodes           int               `json:"nodes"`
	Exact           int               `json:"exact"`
	Partial         int               `json:"partial"`
	ExactAccuracy   metrics.Value     `json:"exact_accuracy"`
	PartialAccuracy metrics.Value     `json:"partial_accuracy"`
	Unmatched       []string          `json:"unmatched"`
	Resumed         int               `json:"resumed"`
	Results         []NodeResult      `json:"results"`
	Diagnostics     model.Diagnostics `json:"diagnostics,omitempty"`
}

// Evaluator resolves graph nodes against a reference knowledge base.
type Evaluator struct {
	kb   ReferenceKB
	cp   Checkpointer
	opts Options
	log  *logger.Logger
}

// NewEvaluator builds an evaluator. cp may be nil to disable resumption.
func NewEvaluator(kb ReferenceKB, cp Checkpointer, opts Options, log *logger.Logger) *Evaluator {
	def := DefaultOptions()
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = def.LookupTimeout
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = def.InitialInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = def.CandidateLimit
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Evaluator{kb: kb, cp: cp, opts: opts, log: logger.OrNop(log)}
}

func (e *Evaluator) Options() Options { return e.opts }

// RunID derives a stable run identifier from the node ids and names of g.
func RunID(g *model.KnowledgeGraph) string {
	var b strings.Builder
	for _, n := range g.Nodes {
		b.WriteString(n.ID)
		b.WriteByte(0)
		b.WriteString(n.DisplayName())
		b.WriteByte('\n')
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(b.String())).String()
}

// Score looks every node up exactly, then by candidate search. Lookup
// failures leave the node unmatched with a diagnostic. Each completed batch
// is checkpointed; on cancellation the partial result is returned with the
// context error and a later call with the same run id resumes.
func (e *Evaluator) Score(ctx context.Context, g *model.KnowledgeGraph) (Result, error) {
	if g == nil {
		g = &model.KnowledgeGraph{}
	}
	runID := e.opts.RunID
	if runID == "" {
		runID = RunID(g)
	}
	done := make(map[string]NodeResult)
	if e.cp != nil {
		prior, err := e.cp.Load(ctx, runID)
		if err != nil {
			return Result{RunID: runID}, fmt.Errorf("load checkpoints: %w", err)
		}
		for _, r := range prior {
			// Failed lookups are retried.
			if r.Error != "" {
				continue
			}
			done[r.ID] = r
		}
	}
	resumed := 0
	var pending []model.GraphNode
	for _, n := range g.Nodes {
		if _, ok := done[n.ID]; ok {
			resumed++
			continue
		}
		pending = append(pending, n)
	}
	if resumed > 0 {
		e.log.Info("resuming accuracy run", "run_id", runID, "resumed", resumed, "pending", len(pending))
	}

	var runErr error
	for batch, start := 0, 0; start < len(pending); batch, start = batch+1, start+e.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		end := min(start+e.opts.BatchSize, len(pending))
		results, err := e.scoreBatch(ctx, pending[start:end])
		if err != nil {
			runErr = err
			break
		}
		if e.cp != nil {
			if err := e.cp.Save(ctx, runID, batch, results); err != nil {
				runErr = fmt.Errorf("save checkpoint %d: %w", batch, err)
				break
			}
		}
		for _, r := range results {
			done[r.ID] = r
		}
		e.log.Debug("accuracy batch done", "run_id", runID, "batch", batch, "nodes", len(results))
	}

	res := e.summarise(runID, g, done)
	res.Resumed = resumed
	if runErr != nil {
		return res, runErr
	}
	e.log.Info("accuracy scored",
		"run_id", runID,
		"nodes", res.Nodes,
		"exact", res.Exact,
		"partial", res.Partial,
		"unmatched", len(res.Unmatched),
	)
	return res, nil
}

func (e *Evaluator) scoreBatch(ctx context.Context, nodes []model.GraphNode) ([]NodeResult, error) {
	results := make([]NodeResult, len(nodes))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.opts.Workers)
	for i, n := range nodes {
		eg.Go(func() error {
			r, err := e.scoreNode(egCtx, n)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// scoreNode returns an error only when the run itself is cancelled.
func (e *Evaluator) scoreNode(ctx context.Context, n model.GraphNode) (NodeResult, error) {
	r := NodeResult{ID: n.ID, Name: n.DisplayName(), Match: MatchNone}
	if r.Name == "" {
		return r, nil
	}
	found, err := retry(ctx, e.opts, func(ctx context.Context) (bool, error) {
		return e.kb.Lookup(ctx, r.Name)
	})
	if err != nil {
		return e.failed(ctx, r, err)
	}
	if found {
		r.Match, r.Reference = MatchExact, r.Name
		return r, nil
	}
	candidates, err := retry(ctx, e.opts, func(ctx context.Context) ([]string, error) {
		return e.kb.Candidates(ctx, r.Name, e.opts.CandidateLimit)
	})
	if err != nil {
		return e.failed(ctx, r, err)
	}
	words := dedupe.Words(r.Name)
	for _, c := range candidates {
		if dedupe.CompareEntities(r.Name, c) || dedupe.Jaccard(words, dedupe.Words(c)) >= e.opts.PartialThreshold {
			r.Match, r.Reference = MatchPartial, c
			break
		}
	}
	return r, nil
}

func (e *Evaluator) failed(ctx context.Context, r NodeResult, err error) (NodeResult, error) {
	if ctx.Err() != nil {
		return r, ctx.Err()
	}
	r.Error = fmt.Errorf("%w: %v", model.ErrExternalLookup, err).Error()
	return r, nil
}

func (e *Evaluator) summarise(runID string, g *model.KnowledgeGraph, done map[string]NodeResult) Result {
	res := Result{RunID: runID, Nodes: len(g.Nodes), Unmatched: []string{}}
	for _, n := range g.Nodes {
		r, ok := done[n.ID]
		if !ok {
			continue
		}
		res.Results = append(res.Results, r)
		switch r.Match {
		case MatchExact:
			res.Exact++
		case MatchPartial:
			res.Partial++
		default:
			res.Unmatched = append(res.Unmatched, r.ID)
		}
		if r.Error != "" {
			res.Diagnostics.Add(model.KindExternalLookupFailure, stage, r.ID, r.Error)
		}
	}
	for _, d := range res.Diagnostics {
		e.log.Warn("diagnostic", "stage", d.Stage, "kind", d.Kind, "subject", d.Subject, "message", d.Message)
	}
	// Partial accuracy counts exact resolutions too.
	res.ExactAccuracy = ratio(res.Exact, res.Nodes)
	res.PartialAccuracy = ratio(res.Exact+res.Partial, res.Nodes)
	return res
}

func ratio(n, d int) metrics.Value {
	if d == 0 {
		return metrics.Undefined()
	}
	return metrics.Value(float64(n) / float64(d))
}

var errLookupTimeout = errors.New("lookup timed out")

// retry runs op with a hard per-attempt timeout and exponential backoff.
// A KB that ignores its context still cannot stall the run.
func retry[T any](ctx context.Context, opts Options, op func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.InitialInterval
	b.MaxInterval = 20 * opts.InitialInterval
	return backoff.Retry(ctx, func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.LookupTimeout)
		defer cancel()
		type outcome struct {
			v   T
			err error
		}
		ch := make(chan outcome, 1)
		go func() {
			v, err := op(attemptCtx)
			ch <- outcome{v, err}
		}()
		select {
		case o := <-ch:
			return o.v, o.err
		case <-attemptCtx.Done():
			var zero T
			if ctx.Err() != nil {
				return zero, backoff.Permanent(ctx.Err())
			}
			return zero, errLookupTimeout
		}
	}, backoff.WithBackOff(b), backoff.WithMaxTries(opts.MaxRetries+1))
}
