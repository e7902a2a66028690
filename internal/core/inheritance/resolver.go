package inheritance

import (
	"fmt"
	"sort"

	"github.com/agenthands/ontograph/internal/core/hierarchy"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/agenthands/ontograph/internal/logger"
)

const stage = "inheritance"

type Report struct {
	Resolved    int               `json:"resolved"`
	Diagnostics model.Diagnostics `json:"diagnostics"`
}

// Resolver gives every entity type its full property schema. A root starts
// from the lexicon base set of its domain, a child starts from its parent's
// resolved schema, and own properties not already present are appended in
// sorted order. A child redeclaring a parent property with another datatype
// keeps the parent's datatype and the conflict is reported.
type Resolver struct {
	lex *hierarchy.Lexicon
	log *logger.Logger
}

func NewResolver(lex *hierarchy.Lexicon, log *logger.Logger) *Resolver {
	if lex == nil {
		lex = hierarchy.DefaultLexicon()
	}
	return &Resolver{lex: lex, log: logger.OrNop(log)}
}

// Resolve returns a resolved copy of o. Running it on its own output yields
// identical schemas.
func (r *Resolver) Resolve(o *model.Ontology) (*model.Ontology, Report) {
	out := o.Clone()
	var rep Report
	resolved := make(map[string]model.PropertySchema, o.Len())

	o.Walk(func(n model.OntologyNode, depth int) {
		var seed model.PropertySchema
		own := n.Properties.Clone()
		if n.Parent == "" {
			domain, _ := r.lex.Domain(n.Name)
			seed = r.lex.BaseSchema(domain)
		} else {
			seed = resolved[model.NameKey(n.Parent)].Clone()
			if r.lex.IsCategory(n.Name) {
				base := r.lex.BaseSchema(n.Name)
				for _, k := range base.Keys() {
					if !own.Has(k) && !seed.Has(k) {
						t, _ := base.Type(k)
						own.Set(k, t)
					}
				}
			}
		}
		s := r.extend(seed, own, n.Name, &rep.Diagnostics)
		resolved[model.NameKey(n.Name)] = s
		_ = out.SetProperties(n.Name, s)
		rep.Resolved++
	})

	for _, name := range o.Other() {
		n, _ := o.Node(name)
		s := r.extend(r.lex.BaseSchema(""), n.Properties, n.Name, &rep.Diagnostics)
		_ = out.SetProperties(n.Name, s)
		rep.Resolved++
	}

	for _, d := range rep.Diagnostics {
		r.log.Warn("diagnostic", "stage", d.Stage, "kind", d.Kind, "subject", d.Subject, "message", d.Message)
	}
	r.log.Info("properties resolved", "entities", rep.Resolved, "conflicts", len(rep.Diagnostics))
	return out, rep
}

func (r *Resolver) extend(seed, own model.PropertySchema, name string, diags *model.Diagnostics) model.PropertySchema {
	keys := own.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		t, _ := own.Type(k)
		if inherited, ok := seed.Type(k); ok {
			if inherited != t {
				diags.Add(model.KindSchemaConflict, stage, name,
					fmt.Sprintf("property %q declared as %q, inherited %q kept", k, t, inherited))
			}
			continue
		}
		seed.Set(k, t)
	}
	return seed
}

// Check verifies that every tree node's schema contains its parent's,
// key for key with the same datatype.
func Check(o *model.Ontology) error {
	var err error
	o.Walk(func(n model.OntologyNode, _ int) {
		if err != nil || n.Parent == "" {
			return
		}
		p, _ := o.Node(n.Parent)
		if !n.Properties.Superset(p.Properties) {
			err = fmt.Errorf("%w: %s does not extend %s", model.ErrSchemaConflict, n.Name, p.Name)
		}
	})
	return err
}
