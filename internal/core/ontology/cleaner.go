package ontology

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agenthands/ontograph/internal/core/dedupe"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/llm"
	"github.com/agenthands/ontograph/internal/logger"
)

const (
	stage = "ontology"

	// DescriptionThreshold is the similarity above which two relationship
	// descriptions under one type count as the same relationship.
	DescriptionThreshold = 0.55
)

// DescriptionEquivalence compares relationship descriptions by embedding
// cosine when an embedder is available, by word overlap otherwise.
func DescriptionEquivalence(e llm.EmbedderClient) dedupe.Equivalence {
	if e == nil {
		return dedupe.TokenOverlap{Threshold: DescriptionThreshold}
	}
	return dedupe.NewEmbedding(e, DescriptionThreshold)
}

type CleanReport struct {
	Fragments           int               `json:"fragments"`
	Rejected            int               `json:"rejected"`
	Entities            int               `json:"entities"`
	RelationshipTypes   int               `json:"relationship_types"`
	Relationships       int               `json:"relationships"`
	DroppedDescriptions int               `json:"dropped_descriptions"`
	Diagnostics         model.Diagnostics `json:"diagnostics,omitempty"`
}

// Cleaner unions flat ontology fragments into one.
type Cleaner struct {
	eq  dedupe.Equivalence
	log *logger.Logger
}

func NewCleaner(eq dedupe.Equivalence, log *logger.Logger) *Cleaner {
	if eq == nil {
		eq = DescriptionEquivalence(nil)
	}
	return &Cleaner{eq: eq, log: logger.OrNop(log)}
}

// CleanRaw decodes raw fragments, rejecting malformed ones whole, and cleans
// the rest. Numbered batch wrappers are opened first.
func (c *Cleaner) CleanRaw(ctx context.Context, raw []json.RawMessage) (model.OntologyFragment, CleanReport, error) {
	docs := unwrapAll(raw)
	var (
		frags []model.OntologyFragment
		diags model.Diagnostics
	)
	for i, d := range docs {
		f, err := model.DecodeOntologyFragment(d)
		if err != nil {
			diags.Add(model.KindMalformedFragment, stage, fmt.Sprintf("fragment %d", i), err.Error())
			continue
		}
		frags = append(frags, f)
	}
	out, rep, err := c.Clean(ctx, frags)
	rep.Fragments = len(docs)
	rep.Rejected = len(docs) - len(frags)
	rep.Diagnostics = append(diags, rep.Diagnostics...)
	return out, rep, err
}

// Clean unions entity names (canonicalised, first spelling wins) and merges
// relationships by type. A description is lower-cased and kept under its type
// only when no description already kept there is equivalent to it.
func (c *Cleaner) Clean(ctx context.Context, frags []model.OntologyFragment) (model.OntologyFragment, CleanReport, error) {
	rep := CleanReport{Fragments: len(frags)}
	var out model.OntologyFragment
	seen := make(map[string]bool)
	byType := make(map[string][]int)
	var order []string

	for _, f := range frags {
		for _, e := range f.Entities {
			name := model.CanonicalName(e)
			k := model.NameKey(name)
			if k == "" || k == model.NameKey(model.OtherBucket) || seen[k] {
				continue
			}
			seen[k] = true
			out.Entities = append(out.Entities, name)
		}
		for _, r := range f.Relationships {
			if err := ctx.Err(); err != nil {
				return model.OntologyFragment{}, rep, err
			}
			r.Description = strings.ToLower(strings.TrimSpace(r.Description))
			r.Source = model.CanonicalName(r.Source)
			r.Target = model.CanonicalName(r.Target)
			kept, ok := byType[r.Type]
			if !ok {
				order = append(order, r.Type)
			}
			dup, err := c.duplicate(ctx, out.Relationships, kept, r)
			if err != nil {
				if ctx.Err() != nil {
					return model.OntologyFragment{}, rep, ctx.Err()
				}
				rep.Diagnostics.Add(model.KindExternalLookupFailure, stage, r.Type, err.Error())
			}
			if dup {
				rep.DroppedDescriptions++
				continue
			}
			byType[r.Type] = append(kept, len(out.Relationships))
			out.Relationships = append(out.Relationships, r)
		}
	}

	// Group the kept relationships by type in first-seen order.
	grouped := make([]model.RelationshipType, 0, len(out.Relationships))
	for _, t := range order {
		for _, i := range byType[t] {
			grouped = append(grouped, out.Relationships[i])
		}
	}
	out.Relationships = grouped

	rep.Entities = len(out.Entities)
	rep.RelationshipTypes = len(order)
	rep.Relationships = len(out.Relationships)
	for _, d := range rep.Diagnostics {
		c.log.Warn("diagnostic", "stage", d.Stage, "kind", d.Kind, "subject", d.Subject, "message", d.Message)
	}
	c.log.Info("ontology cleaned",
		"fragments", rep.Fragments,
		"entities", rep.Entities,
		"relationship_types", rep.RelationshipTypes,
		"relationships", rep.Relationships,
	)
	return out, rep, nil
}

// duplicate reports whether r repeats a kept description of its type. On an
// equivalence error the description is kept.
func (c *Cleaner) duplicate(ctx context.Context, rels []model.RelationshipType, kept []int, r model.RelationshipType) (bool, error) {
	for _, i := range kept {
		if rels[i].Description == r.Description {
			return true, nil
		}
	}
	for _, i := range kept {
		same, err := c.eq.Equivalent(ctx, rels[i].Description, r.Description)
		if err != nil {
			return false, fmt.Errorf("compare descriptions of %s: %w", r.Type, err)
		}
		if same {
			return true, nil
		}
	}
	return false, nil
}
