package ontology

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agenthands/ontograph/internal/core/model"
)

// PropertyDecls maps an entity name to the properties declared for it.
type PropertyDecls map[string]model.PropertySchema

// Names returns the declared entity names in key order.
func (d PropertyDecls) Names() []string {
	names := make([]string, 0, len(d))
	for n := range d {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return model.NameKey(names[i]) < model.NameKey(names[j]) })
	return names
}

// MergePropertyBatches collects the property schemas of hierarchy-shaped
// batches. An entity declared in several batches gets the union of its
// properties; a datatype disagreement keeps the first and is reported.
func MergePropertyBatches(batches []json.RawMessage) (PropertyDecls, model.Diagnostics, error) {
	decls := make(PropertyDecls)
	spelling := make(map[string]string)
	var diags model.Diagnostics
	for i, b := range unwrapAll(batches) {
		o, decodeDiags, err := model.DecodeOntology(b)
		if err != nil {
			return nil, diags, fmt.Errorf("property batch %d: %w", i, err)
		}
		diags = append(diags, decodeDiags...)
		for _, name := range o.Names() {
			n, _ := o.Node(name)
			k := model.NameKey(name)
			if _, ok := spelling[k]; !ok {
				spelling[k] = name
			}
			merged := decls[spelling[k]]
			mergeSchema(&merged, n.Properties, name, &diags)
			decls[spelling[k]] = merged
		}
	}
	return decls, diags, nil
}

// mergeSchema appends the keys of src missing from dst. A key present in both
// with different datatypes keeps dst's and is reported.
func mergeSchema(dst *model.PropertySchema, src model.PropertySchema, subject string, diags *model.Diagnostics) {
	for _, k := range src.Keys() {
		t, _ := src.Type(k)
		if existing, ok := dst.Type(k); ok {
			if existing != t {
				diags.Add(model.KindPropertyConflict, stage, subject,
					fmt.Sprintf("property %q declared as %s and %s, keeping %s", k, existing, t, existing))
			}
			continue
		}
		dst.Set(k, t)
	}
}

// ApplyProperties returns a copy of o with decls merged into each entity's
// own properties. Declarations for unknown entities are reported and skipped.
func ApplyProperties(o *model.Ontology, decls PropertyDecls) (*model.Ontology, model.Diagnostics) {
	out := o.Clone()
	var diags model.Diagnostics
	for _, name := range decls.Names() {
		n, ok := out.Node(name)
		if !ok {
			diags.Add(model.KindOntologyMismatch, stage, name, "properties declared for an entity not in the ontology")
			continue
		}
		schema := n.Properties.Clone()
		mergeSchema(&schema, decls[name], n.Name, &diags)
		_ = out.SetProperties(n.Name, schema)
	}
	return out, diags
}

// Assemble attaches the cleaned relationship types to a placed hierarchy.
func Assemble(hierarchy *model.Ontology, cleaned model.OntologyFragment) *model.Ontology {
	out := hierarchy.Clone()
	out.Relationships = append([]model.RelationshipType(nil), cleaned.Relationships...)
	return out
}
