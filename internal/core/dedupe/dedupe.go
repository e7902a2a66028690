package dedupe

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/agenthands/ontograph/internal/core/model"
	"gopkg.in/yaml.v3"
)

// Equivalence decides whether two entity strings denote the same real-world
// entity. Implementations must be symmetric.
type Equivalence interface {
	Equivalent(ctx context.Context, a, b string) (bool, error)
}

// Keyer is implemented by equivalences that reduce to key equality. Callers
// may then group by key instead of comparing every pair.
type Keyer interface {
	Key(s string) string
}

// Exact matches strings equal after normalisation, or listed as aliases of
// the same entity.
type Exact struct {
	aliases map[string]string
}

func NewExact(aliases map[string][]string) *Exact {
	e := &Exact{aliases: make(map[string]string)}
	canon := make([]string, 0, len(aliases))
	for c := range aliases {
		canon = append(canon, c)
	}
	sort.Strings(canon)
	for _, c := range canon {
		ck := model.NormalizeText(c)
		for _, a := range aliases[c] {
			ak := model.NormalizeText(a)
			if _, taken := e.aliases[ak]; !taken && ak != ck {
				e.aliases[ak] = ck
			}
		}
	}
	return e
}

type aliasFile struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// LoadAliases reads a YAML alias table:
//
//	aliases:
//	  New York City: [NYC, New York]
func LoadAliases(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases %s: %w", path, err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse aliases %s: %w", path, err)
	}
	return f.Aliases, nil
}

func (e *Exact) Key(s string) string {
	k := model.NormalizeText(s)
	if c, ok := e.aliases[k]; ok {
		return c
	}
	return k
}

func (e *Exact) Equivalent(_ context.Context, a, b string) (bool, error) {
	ka := e.Key(a)
	return ka != "" && ka == e.Key(b), nil
}

// TokenOverlap matches strings whose word sets have a Jaccard similarity of
// at least Threshold.
type TokenOverlap struct {
	Threshold float64
}

func (t TokenOverlap) Equivalent(_ context.Context, a, b string) (bool, error) {
	return Jaccard(Words(a), Words(b)) >= t.Threshold && len(Words(a)) > 0, nil
}

// Fuzzy applies CompareEntities: equality, containment or a large word overlap.
type Fuzzy struct{}

func (Fuzzy) Equivalent(_ context.Context, a, b string) (bool, error) {
	return CompareEntities(a, b), nil
}

// CompareEntities reports a match when the lower-cased strings are equal,
// one contains the other, or they share at least min(|words|)/2 + 1 words.
func CompareEntities(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == "" || b == "" {
		return false
	}
	if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	wa, wb := wordSet(strings.Fields(a)), wordSet(strings.Fields(b))
	common := 0
	for w := range wa {
		if wb[w] {
			common++
		}
	}
	shorter := len(wa)
	if len(wb) < shorter {
		shorter = len(wb)
	}
	return float64(common) >= float64(shorter)/2+1
}

// Words splits normalised text into alphanumeric words.
func Words(s string) []string {
	return strings.FieldsFunc(model.NormalizeText(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Jaccard is |a∩b| / |a∪b| over word sets, 0 when both are empty.
func Jaccard(a, b []string) float64 {
	sa, sb := wordSet(a), wordSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 0
	}
	inter := 0
	for w := range sa {
		if sb[w] {
			inter++
		}
	}
	return float64(inter) / float64(len(sa)+len(sb)-inter)
}

func wordSet(words []string) map[string]bool {
	s := make(map[string]bool, len(words))
	for _, w := range words {
		s[w] = true
	}
	return s
}
