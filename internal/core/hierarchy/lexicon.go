package hierarchy

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/agenthands/ontograph/internal/core/model"
	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Property is one entry of an ordered YAML property list.
type Property struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Category is a broad entity type the merger knows members of.
type Category struct {
	Name       string     `yaml:"name"`
	Parent     string     `yaml:"parent,omitempty"`
	Properties []Property `yaml:"properties,omitempty"`
	Members    []string   `yaml:"members,omitempty"`
}

type lexiconFile struct {
	Base       []Property `yaml:"base"`
	Categories []Category `yaml:"categories"`
}

// Lexicon holds the category knowledge behind placement and base schemas.
type Lexicon struct {
	base       []Property
	categories map[string]*Category
	// memberOf maps a member key to the keys of the categories listing it.
	memberOf map[string][]string
}

// DefaultLexicon returns the built-in lexicon.
func DefaultLexicon() *Lexicon {
	l, err := ParseLexicon(defaultLexicon)
	if err != nil {
		panic(fmt.Sprintf("built-in lexicon: %v", err))
	}
	return l
}

// LoadLexicon reads a YAML lexicon file. An empty path gives the default.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	l := &Lexicon{
		base:       f.Base,
		categories: make(map[string]*Category, len(f.Categories)),
		memberOf:   make(map[string][]string),
	}
	if len(l.base) == 0 {
		l.base = []Property{{Name: "name", Type: "string"}}
	}
	for i := range f.Categories {
		c := &f.Categories[i]
		c.Name = model.CanonicalName(c.Name)
		k := model.NameKey(c.Name)
		if k == "" {
			return nil, fmt.Errorf("parse lexicon: category %d has no name", i)
		}
		if _, dup := l.categories[k]; dup {
			return nil, fmt.Errorf("parse lexicon: category %q defined twice", c.Name)
		}
		l.categories[k] = c
		for _, m := range c.Members {
			mk := model.NameKey(m)
			l.memberOf[mk] = append(l.memberOf[mk], k)
		}
	}
	for k, c := range l.categories {
		seen := map[string]bool{k: true}
		for p := c.Parent; p != ""; {
			pk := model.NameKey(p)
			pc, ok := l.categories[pk]
			if !ok {
				return nil, fmt.Errorf("parse lexicon: %q has unknown parent %q", c.Name, p)
			}
			if seen[pk] {
				return nil, fmt.Errorf("parse lexicon: parent cycle through %q", c.Name)
			}
			seen[pk] = true
			p = pc.Parent
		}
	}
	return l, nil
}

// IsCategory reports whether name is a lexicon category.
func (l *Lexicon) IsCategory(name string) bool {
	_, ok := l.categories[model.NameKey(name)]
	return ok
}

// Depth is the number of lexicon ancestors of a category, -1 for non-categories.
func (l *Lexicon) Depth(name string) int {
	c, ok := l.categories[model.NameKey(name)]
	if !ok {
		return -1
	}
	d := 0
	for c.Parent != "" {
		c = l.categories[model.NameKey(c.Parent)]
		d++
	}
	return d
}

// lineage returns the category keys above name's category, nearest first.
func (l *Lexicon) lineage(categoryKey string) []string {
	var out []string
	for c := l.categories[categoryKey]; c != nil && c.Parent != ""; {
		pk := model.NameKey(c.Parent)
		out = append(out, pk)
		c = l.categories[pk]
	}
	return out
}

// Broader returns every category that semantically contains name: the
// categories listing it (by full name or head word), their lexicon
// ancestors, and the ancestors of name itself when it is a category.
func (l *Lexicon) Broader(name string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(k string) {
		if !seen[k] && k != model.NameKey(name) {
			seen[k] = true
			out = append(out, l.categories[k].Name)
		}
	}
	direct := append([]string(nil), l.memberOf[model.NameKey(name)]...)
	if toks := model.NameTokens(name); len(toks) > 1 {
		direct = append(direct, l.memberOf[toks[len(toks)-1]]...)
	}
	if _, ok := l.categories[model.NameKey(name)]; ok {
		direct = append(direct, l.lineage(model.NameKey(name))...)
	}
	for _, k := range direct {
		add(k)
		for _, a := range l.lineage(k) {
			add(a)
		}
	}
	return out
}

// Domain returns the category whose base schema applies to name: name
// itself when it is a category, else its most specific containing category.
func (l *Lexicon) Domain(name string) (string, bool) {
	if c, ok := l.categories[model.NameKey(name)]; ok {
		return c.Name, true
	}
	best, bestDepth := "", -1
	for _, b := range l.Broader(name) {
		if d := l.Depth(b); d > bestDepth || (d == bestDepth && model.NameKey(b) < model.NameKey(best)) {
			best, bestDepth = b, d
		}
	}
	return best, best != ""
}

// BaseSchema is the generic base plus the properties of domain and its
// lexicon ancestors, outermost first. An unknown domain yields the generic base.
func (l *Lexicon) BaseSchema(domain string) model.PropertySchema {
	var s model.PropertySchema
	for _, p := range l.base {
		s.Set(p.Name, p.Type)
	}
	k := model.NameKey(domain)
	if _, ok := l.categories[k]; !ok {
		return s
	}
	// lineage is nearest first; apply from the outermost ancestor down.
	anc := l.lineage(k)
	for i := len(anc) - 1; i >= 0; i-- {
		for _, p := range l.categories[anc[i]].Properties {
			if !s.Has(p.Name) {
				s.Set(p.Name, p.Type)
			}
		}
	}
	for _, p := range l.categories[k].Properties {
		if !s.Has(p.Name) {
			s.Set(p.Name, p.Type)
		}
	}
	return s
}
