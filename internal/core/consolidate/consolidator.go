package consolidate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/agenthands/ontograph/internal/core/dedupe"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/logger"
	"golang.org/x/sync/errgroup"
)

const stage = "consolidate"

type Options struct {
	// Workers bounds concurrent fragment validation.
	Workers int
	// SelfLoopWhitelist lists relationship types allowed to start and end
	// on the same node.
	SelfLoopWhitelist []string
	// Equivalence decides node identity by display name. Defaults to
	// dedupe.Exact without aliases.
	Equivalence dedupe.Equivalence
}

type FragmentStatus struct {
	Index         int    `json:"index"`
	Accepted      bool   `json:"accepted"`
	Nodes         int    `json:"nodes"`
	Relationships int    `json:"relationships"`
	Error         string `json:"error,omitempty"`
}

type Report struct {
	Fragments            []FragmentStatus  `json:"fragments"`
	Accepted             int               `json:"accepted"`
	Rejected             int               `json:"rejected"`
	NodesIn              int               `json:"nodes_in"`
	NodesOut             int               `json:"nodes_out"`
	RelationshipsIn      int               `json:"relationships_in"`
	RelationshipsOut     int               `json:"relationships_out"`
	DroppedRelationships int               `json:"dropped_relationships"`
	MergedNodes          int               `json:"merged_nodes"`
	Diagnostics          model.Diagnostics `json:"diagnostics"`
}

// Consolidator merges per-article graph fragments into one knowledge graph.
type Consolidator struct {
	opts      Options
	selfLoops map[string]bool
	log       *logger.Logger
}

func New(opts Options, log *logger.Logger) *Consolidator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Equivalence == nil {
		opts.Equivalence = dedupe.NewExact(nil)
	}
	wl := make(map[string]bool, len(opts.SelfLoopWhitelist))
	for _, t := range opts.SelfLoopWhitelist {
		wl[t] = true
	}
	return &Consolidator{opts: opts, selfLoops: wl, log: logger.OrNop(log)}
}

// checked is the outcome of validating one fragment.
type checked struct {
	frag  model.Fragment
	err   error
	diags model.Diagnostics
	in    int
}

// Consolidate decodes raw fragment documents and consolidates them. A
// malformed document is rejected whole and reported; only context
// cancellation fails the call.
func (c *Consolidator) Consolidate(ctx context.Context, o *model.Ontology, raw []json.RawMessage) (*model.KnowledgeGraph, Report, error) {
	results := make([]checked, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for k := range raw {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			frag, err := DecodeFragment(k, raw[k])
			if err != nil {
				results[k] = checked{frag: model.Fragment{Index: k}, err: err}
				return nil
			}
			results[k] = c.check(o, frag)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}
	return c.reduce(ctx, o, results)
}

// ConsolidateFragments consolidates already decoded fragments; each is still
// validated and may be rejected.
func (c *Consolidator) ConsolidateFragments(ctx context.Context, o *model.Ontology, frags []model.Fragment) (*model.KnowledgeGraph, Report, error) {
	results := make([]checked, len(frags))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for k := range frags {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f := cloneFragment(frags[k])
			f.Index = k
			if err := ValidateFragment(f); err != nil {
				results[k] = checked{frag: f, err: err}
				return nil
			}
			results[k] = c.check(o, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}
	return c.reduce(ctx, o, results)
}

// check repairs one valid fragment: dangling relationships and
// non-whitelisted self-loops are dropped, ontology mismatches are flagged.
func (c *Consolidator) check(o *model.Ontology, f model.Fragment) checked {
	res := checked{in: len(f.Relationships)}
	where := func(i int) string { return fmt.Sprintf("fragment %d relationship %d", f.Index, i) }

	nodes := make(map[string]model.GraphNode, len(f.Nodes))
	for i := range f.Nodes {
		for j, l := range f.Nodes[i].Labels {
			if known, ok := o.Lookup(l); ok {
				f.Nodes[i].Labels[j] = known
			} else {
				res.diags.Add(model.KindOntologyMismatch, stage, fmt.Sprintf("fragment %d node %s", f.Index, f.Nodes[i].ID),
					fmt.Sprintf("label %q is not an ontology entity type", l))
			}
		}
		nodes[f.Nodes[i].ID] = f.Nodes[i]
	}

	kept := f.Relationships[:0:0]
	for i, r := range f.Relationships {
		start, okS := nodes[r.StartNode]
		end, okE := nodes[r.EndNode]
		switch {
		case !okS || !okE:
			missing := r.StartNode
			if okS {
				missing = r.EndNode
			}
			res.diags.Add(model.KindDanglingReference, stage, where(i), fmt.Sprintf("endpoint %s not in fragment, relationship dropped", missing))
			continue
		case r.StartNode == r.EndNode && !c.selfLoops[r.Type]:
			res.diags.Add(model.KindSelfLoop, stage, where(i), fmt.Sprintf("%s self-loop on %s dropped", r.Type, r.StartNode))
			continue
		}
		if msg, ok := relationshipConforms(o, r.Type, start, end); !ok {
			res.diags.Add(model.KindOntologyMismatch, stage, where(i), msg)
		}
		kept = append(kept, r)
	}
	f.Relationships = kept
	res.frag = f
	return res
}

// relationshipConforms accepts a relationship when some label pair of its
// endpoints, or an ancestor of one, matches a declared source/target pair.
// An ontology without relationship types accepts everything.
func relationshipConforms(o *model.Ontology, typ string, start, end model.GraphNode) (string, bool) {
	if len(o.Relationships) == 0 {
		return "", true
	}
	widen := func(labels []string) []string {
		out := append([]string(nil), labels...)
		for _, l := range labels {
			out = append(out, o.Ancestors(l)...)
		}
		return out
	}
	declared := false
	for _, s := range widen(start.Labels) {
		for _, t := range widen(end.Labels) {
			d, match := o.HasRelationship(typ, s, t)
			if match {
				return "", true
			}
			declared = declared || d
		}
	}
	if !declared {
		return fmt.Sprintf("relationship type %q is not declared", typ), false
	}
	return fmt.Sprintf("%s not declared between %v and %v", typ, start.Labels, end.Labels), false
}

// reduce renumbers, deduplicates and rewrites sequentially in fragment order.
func (c *Consolidator) reduce(ctx context.Context, o *model.Ontology, results []checked) (*model.KnowledgeGraph, Report, error) {
	var rep Report
	var nodes []model.GraphNode
	type rel struct {
		model.GraphRelationship
		selfLoop bool
	}
	var rels []rel

	for _, r := range results {
		st := FragmentStatus{Index: r.frag.Index}
		if r.err != nil {
			st.Error = r.err.Error()
			rep.Rejected++
			rep.Diagnostics.Add(model.KindMalformedFragment, stage, fmt.Sprintf("fragment %d", r.frag.Index), r.err.Error())
			rep.Fragments = append(rep.Fragments, st)
			continue
		}
		st.Accepted = true
		st.Nodes = len(r.frag.Nodes)
		st.Relationships = len(r.frag.Relationships)
		rep.Accepted++
		rep.Fragments = append(rep.Fragments, st)
		rep.Diagnostics = append(rep.Diagnostics, r.diags...)
		rep.NodesIn += len(r.frag.Nodes)
		rep.RelationshipsIn += r.in
		rep.DroppedRelationships += r.in - len(r.frag.Relationships)

		offset := len(nodes)
		global := make(map[string]string, len(r.frag.Nodes))
		for i, n := range r.frag.Nodes {
			id := strconv.Itoa(offset + i)
			global[n.ID] = id
			n.ID = id
			nodes = append(nodes, n)
		}
		for _, gr := range r.frag.Relationships {
			gr.StartNode = global[gr.StartNode]
			gr.EndNode = global[gr.EndNode]
			rels = append(rels, rel{GraphRelationship: gr, selfLoop: gr.StartNode == gr.EndNode})
		}
	}

	uf, err := c.group(ctx, nodes, &rep.Diagnostics)
	if err != nil {
		return nil, Report{}, err
	}

	members := make(map[int][]model.GraphNode)
	for i, n := range nodes {
		root := uf.find(i)
		members[root] = append(members[root], n)
	}
	out := &model.KnowledgeGraph{Nodes: []model.GraphNode{}, Relationships: []model.GraphRelationship{}}
	finalID := make(map[string]string, len(nodes))
	for i := range nodes {
		if uf.find(i) != i {
			continue
		}
		group := members[i]
		merged := model.GraphNode{
			ID:         strconv.Itoa(len(out.Nodes)),
			Labels:     mergeLabels(o, group),
			Properties: make(map[string]any),
		}
		for _, m := range group {
			for _, k := range mergeProps(merged.Properties, m.Properties) {
				rep.Diagnostics.Add(model.KindPropertyConflict, stage, merged.DisplayName(),
					fmt.Sprintf("property %q differs across duplicates, values kept as a list", k))
			}
		}
		for _, m := range group {
			finalID[m.ID] = merged.ID
		}
		rep.MergedNodes += len(group) - 1
		out.Nodes = append(out.Nodes, merged)
	}

	index := make(map[[3]string]int)
	for _, r := range rels {
		r.StartNode = finalID[r.StartNode]
		r.EndNode = finalID[r.EndNode]
		if r.StartNode == r.EndNode && !r.selfLoop {
			rep.DroppedRelationships++
			rep.Diagnostics.Add(model.KindMergeSelfLoop, stage, fmt.Sprintf("node %s", r.StartNode),
				fmt.Sprintf("%s between merged duplicates dropped", r.Type))
			continue
		}
		key := [3]string{r.Type, r.StartNode, r.EndNode}
		if at, dup := index[key]; dup {
			mergeProps(out.Relationships[at].Properties, r.Properties)
			continue
		}
		gr := r.GraphRelationship.Clone()
		index[key] = len(out.Relationships)
		out.Relationships = append(out.Relationships, gr)
	}

	rep.NodesOut = len(out.Nodes)
	rep.RelationshipsOut = len(out.Relationships)
	for _, d := range rep.Diagnostics {
		c.log.Warn("diagnostic", "stage", d.Stage, "kind", d.Kind, "subject", d.Subject, "message", d.Message)
	}
	c.log.Info("graph consolidated",
		"accepted", rep.Accepted, "rejected", rep.Rejected,
		"nodes_in", rep.NodesIn, "nodes_out", rep.NodesOut,
		"relationships_out", rep.RelationshipsOut, "merged", rep.MergedNodes)
	return out, rep, nil
}

// group unions nodes whose display names are equivalent. Keyer
// equivalences group by key; others compare every pair.
func (c *Consolidator) group(ctx context.Context, nodes []model.GraphNode, diags *model.Diagnostics) (unionFind, error) {
	uf := newUnionFind(len(nodes))
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.DisplayName()
	}

	if keyer, ok := c.opts.Equivalence.(dedupe.Keyer); ok {
		first := make(map[string]int)
		for i, name := range names {
			if name == "" {
				continue
			}
			k := keyer.Key(name)
			if k == "" {
				continue
			}
			if j, seen := first[k]; seen {
				uf.union(j, i)
				continue
			}
			first[k] = i
		}
		return uf, nil
	}

	for i := range nodes {
		if names[i] == "" {
			continue
		}
		for j := i + 1; j < len(nodes); j++ {
			if names[j] == "" || uf.find(i) == uf.find(j) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			same, err := c.opts.Equivalence.Equivalent(ctx, names[i], names[j])
			if err != nil {
				diags.Add(model.KindExternalLookupFailure, stage, names[i]+" / "+names[j], "equivalence check failed, kept apart: "+err.Error())
				continue
			}
			if same {
				uf.union(i, j)
			}
		}
	}
	return uf, nil
}

func cloneFragment(f model.Fragment) model.Fragment {
	out := model.Fragment{Index: f.Index}
	for _, n := range f.Nodes {
		out.Nodes = append(out.Nodes, n.Clone())
	}
	for _, r := range f.Relationships {
		out.Relationships = append(out.Relationships, r.Clone())
	}
	return out
}
