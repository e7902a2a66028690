package hierarchy

import (
	"sort"
	"strings"

	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/logger"
)

const stage = "hierarchy"

// Report describes one Merge call.
type Report struct {
	Added       []string          `json:"added"`
	Skipped     []string          `json:"skipped"`
	Moved       []string          `json:"moved"`
	Diagnostics model.Diagnostics `json:"diagnostics"`
}

// Merger places new entity names into an ontology tree.
//
// A candidate parent P of a name N scores
//
//	100 + 10*len(tokens(P))  when P's words are a proper suffix of N's ("Dancer" for "BalletDancer")
//	50 + lexicon depth(P)    when the lexicon puts N inside category P
//
// and the highest score wins, ties going to the deepest candidate and then to
// the lowest name. A new name without any candidate becomes a top-level node
// only when it is a lexicon category or a candidate parent for some other
// known name; otherwise it goes to the Other bucket.
type Merger struct {
	lex *Lexicon
	log *logger.Logger
}

func NewMerger(lex *Lexicon, log *logger.Logger) *Merger {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Merger{lex: lex, log: logger.OrNop(log)}
}

func (m *Merger) Lexicon() *Lexicon { return m.lex }

// Merge returns a new ontology holding existing plus names. existing is not
// modified and may be nil.
func (m *Merger) Merge(existing *model.Ontology, names []string) (*model.Ontology, Report) {
	var o *model.Ontology
	if existing == nil {
		o = model.NewOntology()
	} else {
		o = existing.Clone()
	}
	var rep Report

	fresh := make(map[string]string)
	for _, raw := range names {
		name := model.CanonicalName(raw)
		k := model.NameKey(name)
		switch {
		case k == "" || k == model.NameKey(model.OtherBucket):
			rep.Skipped = append(rep.Skipped, raw)
		case o.Has(name):
			rep.Skipped = append(rep.Skipped, name)
		default:
			if _, dup := fresh[k]; dup {
				rep.Skipped = append(rep.Skipped, name)
				continue
			}
			fresh[k] = name
		}
	}
	keys := make([]string, 0, len(fresh))
	for k := range fresh {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	all := o.Names()
	for _, k := range keys {
		all = append(all, fresh[k])
	}
	pk := m.parentKeys(all)
	for _, k := range keys {
		name := fresh[k]
		var err error
		if m.lex.IsCategory(name) || pk.parents(name) {
			err = o.AddRoot(name)
		} else {
			err = o.AddOther(name)
		}
		if err != nil {
			// Unreachable: names were checked against o above.
			m.log.Error("add entity", "entity", name, "error", err)
			continue
		}
		rep.Added = append(rep.Added, name)
	}

	rep.Moved = m.settle(o)

	for _, k := range keys {
		if name := fresh[k]; o.IsOther(name) {
			rep.Diagnostics.Add(model.KindAmbiguousPlacement, stage, name, "no broader category found, placed in "+model.OtherBucket)
		}
	}
	for _, d := range rep.Diagnostics {
		m.log.Warn("diagnostic", "stage", d.Stage, "kind", d.Kind, "subject", d.Subject, "message", d.Message)
	}
	m.log.Info("hierarchy merged", "added", len(rep.Added), "skipped", len(rep.Skipped), "moved", len(rep.Moved), "size", o.Len())
	return o, rep
}

// MergeBatches folds Merge over batches in order.
func (m *Merger) MergeBatches(existing *model.Ontology, batches [][]string) (*model.Ontology, Report) {
	o := existing
	var total Report
	for _, b := range batches {
		var rep Report
		o, rep = m.Merge(o, b)
		total.Added = append(total.Added, rep.Added...)
		total.Skipped = append(total.Skipped, rep.Skipped...)
		total.Moved = append(total.Moved, rep.Moved...)
		total.Diagnostics = append(total.Diagnostics, rep.Diagnostics...)
	}
	if o == nil {
		o = model.NewOntology()
	}
	return o, total
}

// settle re-places top-level names and Other members under their best parent,
// and refines placements whose best parent lies below the current one, until
// nothing moves.
func (m *Merger) settle(o *model.Ontology) []string {
	cands := m.candidates(o.Names())
	var moved []string
	for pass := 0; pass <= o.Len(); pass++ {
		changed := false
		for _, name := range o.Names() {
			best, ok := bestParent(o, name, cands[model.NameKey(name)])
			if !ok {
				continue
			}
			cur := o.Parent(name)
			switch {
			case o.IsOther(name) || cur == "":
			case model.NameKey(cur) != model.NameKey(best) && o.IsDescendant(best, cur):
			default:
				continue
			}
			if o.IsOther(best) {
				if err := o.Move(best, ""); err != nil {
					continue
				}
			}
			if err := o.Move(name, best); err != nil {
				m.log.Debug("placement rejected", "entity", name, "parent", best, "error", err)
				continue
			}
			moved = append(moved, name)
			changed = true
		}
		if !changed {
			break
		}
	}
	return moved
}

type candidate struct {
	name  string
	score int
	depth int
}

// candidates scores every plausible parent of every name. Scores depend only
// on the names and the lexicon, so they are computed once per settle; only
// descendant exclusion and depth are read from the tree.
func (m *Merger) candidates(names []string) map[string][]candidate {
	byKey := make(map[string]string, len(names))
	byTokens := make(map[string][]string, len(names))
	tokens := make(map[string][]string, len(names))
	for _, n := range names {
		k := model.NameKey(n)
		t := model.NameTokens(n)
		byKey[k] = n
		tokens[k] = t
		tk := tokenKey(t)
		byTokens[tk] = append(byTokens[tk], n)
	}

	out := make(map[string][]candidate, len(names))
	for _, n := range names {
		k := model.NameKey(n)
		scores := make(map[string]int)
		t := tokens[k]
		for i := 1; i < len(t); i++ {
			for _, p := range byTokens[tokenKey(t[i:])] {
				pk := model.NameKey(p)
				if s := 100 + 10*(len(t)-i); pk != k && s > scores[pk] {
					scores[pk] = s
				}
			}
		}
		for _, b := range m.lex.Broader(n) {
			bk := model.NameKey(b)
			p, ok := byKey[bk]
			if !ok || bk == k {
				continue
			}
			if s := 50 + m.lex.Depth(p); s > scores[bk] {
				scores[bk] = s
			}
		}
		if len(scores) == 0 {
			continue
		}
		list := make([]candidate, 0, len(scores))
		for pk, s := range scores {
			list = append(list, candidate{name: byKey[pk], score: s})
		}
		sort.Slice(list, func(i, j int) bool { return model.NameKey(list[i].name) < model.NameKey(list[j].name) })
		out[k] = list
	}
	return out
}

// bestParent picks the most plausible of cands for name, never one of
// name's own descendants.
func bestParent(o *model.Ontology, name string, cands []candidate) (string, bool) {
	var best *candidate
	for _, c := range cands {
		if o.IsDescendant(c.name, name) {
			continue
		}
		c.depth = o.Depth(c.name)
		if best == nil || better(c, *best) {
			best = &c
		}
	}
	if best == nil {
		return "", false
	}
	return best.name, true
}

// parentKeys collects what would make a name a candidate parent of one of
// all: the proper token suffixes of every name and every broader category.
type parentKeys struct {
	suffixes map[string]bool
	broader  map[string]bool
}

func (m *Merger) parentKeys(all []string) parentKeys {
	pk := parentKeys{suffixes: make(map[string]bool), broader: make(map[string]bool)}
	for _, n := range all {
		t := model.NameTokens(n)
		for i := 1; i < len(t); i++ {
			pk.suffixes[tokenKey(t[i:])] = true
		}
		for _, b := range m.lex.Broader(n) {
			pk.broader[model.NameKey(b)] = true
		}
	}
	return pk
}

// parents reports whether name would be a candidate parent of any other name.
func (pk parentKeys) parents(name string) bool {
	return pk.suffixes[tokenKey(model.NameTokens(name))] || pk.broader[model.NameKey(name)]
}

func tokenKey(tokens []string) string { return strings.Join(tokens, "\x00") }

func better(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.depth != b.depth {
		return a.depth > b.depth
	}
	return model.NameKey(a.name) < model.NameKey(b.name)
}
