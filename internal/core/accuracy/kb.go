package accuracy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/agenthands/ontograph/internal/core/dedupe"
	"github.com/agenthands/ontograph/internal/core/model"
)

// ReferenceKB is a read-only external knowledge base of entity names.
type ReferenceKB interface {
	// Lookup reports whether name is present verbatim, up to normalisation.
	Lookup(ctx context.Context, name string) (bool, error)
	// Candidates returns up to limit entries that share a word with name.
	Candidates(ctx context.Context, name string, limit int) ([]string, error)
}

// MemoryKB is an in-process ReferenceKB.
type MemoryKB struct {
	names  map[string]string
	byWord map[string][]string
}

func NewMemoryKB(names ...string) *MemoryKB {
	kb := &MemoryKB{names: make(map[string]string), byWord: make(map[string][]string)}
	for _, n := range names {
		kb.Add(n)
	}
	return kb
}

// Add inserts name. Repeated names are ignored.
func (kb *MemoryKB) Add(name string) {
	k := model.NormalizeText(name)
	if k == "" {
		return
	}
	if _, ok := kb.names[k]; ok {
		return
	}
	kb.names[k] = name
	for _, w := range dedupe.Words(k) {
		kb.byWord[w] = append(kb.byWord[w], name)
	}
}

func (kb *MemoryKB) Len() int { return len(kb.names) }

func (kb *MemoryKB) Lookup(_ context.Context, name string) (bool, error) {
	_, ok := kb.names[model.NormalizeText(name)]
	return ok, nil
}

func (kb *MemoryKB) Candidates(_ context.Context, name string, limit int) ([]string, error) {
	seen := make(map[string]bool)
	var pool []string
	for _, w := range dedupe.Words(name) {
		for _, c := range kb.byWord[w] {
			if !seen[c] {
				seen[c] = true
				pool = append(pool, c)
			}
		}
	}
	return RankCandidates(name, pool, limit), nil
}

// RankCandidates orders pool by word overlap with name, best first, then
// alphabetically, and keeps at most limit entries (all when limit <= 0).
func RankCandidates(name string, pool []string, limit int) []string {
	words := dedupe.Words(name)
	out := append([]string(nil), pool...)
	score := make(map[string]float64, len(out))
	for _, c := range out {
		score[c] = dedupe.Jaccard(words, dedupe.Words(c))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if score[out[i]] != score[out[j]] {
			return score[out[i]] > score[out[j]]
		}
		return out[i] < out[j]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// LoadMemoryKB reads a JSON file holding either a list of names or a list of
// [head, relation, tail] triples, whose heads and tails become the entries.
func LoadMemoryKB(path string) (*MemoryKB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference kb %s: %w", path, err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		return NewMemoryKB(names...), nil
	}
	triples, err := DecodeTriples(data)
	if err != nil {
		return nil, fmt.Errorf("parse reference kb %s: %w", path, err)
	}
	kb := NewMemoryKB()
	for _, t := range triples {
		kb.Add(t.Head)
		kb.Add(t.Tail)
	}
	return kb, nil
}

// DecodeTriples accepts [[head, relation, tail], ...] or a list of
// {"head","relation","tail"} objects.
func DecodeTriples(data []byte) ([]model.Triple, error) {
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err == nil {
		out := make([]model.Triple, 0, len(rows))
		for i, r := range rows {
			if len(r) != 3 {
				return nil, fmt.Errorf("triple %d has %d elements", i, len(r))
			}
			out = append(out, model.Triple{Head: r[0], Relation: r[1], Tail: r[2]})
		}
		return out, nil
	}
	var out []model.Triple
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("triples must be a list of 3-element lists or objects: %w", err)
	}
	return out, nil
}
