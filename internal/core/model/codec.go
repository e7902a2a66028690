package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const (
	keyEntities      = "entities"
	keyRelationships = "relationships"
	keyProperties    = "properties"
	keyChildren      = "childrenEntities"
)

// OntologyFragment is one batch of generator output before hierarchy
// placement: a flat entity list plus proposed relationship types.
type OntologyFragment struct {
	Entities      []string           `json:"entities"`
	Relationships []RelationshipType `json:"relationships"`
}

// DecodeOntologyFragment validates and decodes a flat ontology fragment.
func DecodeOntologyFragment(data []byte) (OntologyFragment, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return OntologyFragment{}, fmt.Errorf("%w: %v", ErrMalformedFragment, err)
	}
	entRaw, ok := raw[keyEntities]
	if !ok {
		return OntologyFragment{}, fmt.Errorf("%w: missing %q", ErrMalformedFragment, keyEntities)
	}
	var frag OntologyFragment
	if err := json.Unmarshal(entRaw, &frag.Entities); err != nil {
		return OntologyFragment{}, fmt.Errorf("%w: %q must be a list of strings", ErrMalformedFragment, keyEntities)
	}
	if relRaw, ok := raw[keyRelationships]; ok {
		rels, err := decodeRelationships(relRaw)
		if err != nil {
			return OntologyFragment{}, err
		}
		frag.Relationships = rels
	}
	return frag, nil
}

// DecodeOntology reads a hierarchy-shaped ontology: either
// {"entities": {<nested>}, "relationships": ...} or the bare nested map.
// Names met twice keep their first position; the repeat is reported.
func DecodeOntology(data []byte) (*Ontology, Diagnostics, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedFragment, err)
	}
	o := NewOntology()
	var diags Diagnostics
	hierarchy := raw
	if entRaw, ok := raw[keyEntities]; ok {
		if err := json.Unmarshal(entRaw, &hierarchy); err != nil {
			return nil, nil, fmt.Errorf("%w: %q must be a nested entity object", ErrMalformedFragment, keyEntities)
		}
		if relRaw, ok := raw[keyRelationships]; ok {
			rels, err := decodeRelationships(relRaw)
			if err != nil {
				return nil, nil, err
			}
			o.Relationships = rels
		}
	}
	d := &hierarchyDecoder{o: o, diags: &diags}
	for _, k := range sortedKeys(hierarchy) {
		var err error
		if NameKey(k) == NameKey(OtherBucket) {
			err = d.other(hierarchy[k])
		} else {
			err = d.entity("", k, hierarchy[k])
		}
		if err != nil {
			return nil, nil, err
		}
	}
	return o, diags, nil
}

type hierarchyDecoder struct {
	o     *Ontology
	diags *Diagnostics
}

func (d *hierarchyDecoder) entity(parent, rawName string, data json.RawMessage) error {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("%w: entity %q must be an object", ErrMalformedFragment, rawName)
	}
	name := CanonicalName(rawName)
	if existing, ok := d.o.Lookup(name); ok {
		d.diags.Add(KindDuplicateEntity, "decode", name, "entity listed more than once, first position kept")
		if !d.o.IsOther(existing) {
			parent = existing
		}
	} else {
		var err error
		if parent == "" {
			err = d.o.AddRoot(name)
		} else {
			err = d.o.AddChild(parent, name)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFragment, err)
		}
		if props, ok := body[keyProperties]; ok {
			var s PropertySchema
			if err := json.Unmarshal(props, &s); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrMalformedFragment, name, err)
			}
			_ = d.o.SetProperties(name, s)
		}
		parent = name
	}
	if ch, ok := body[keyChildren]; ok {
		var children map[string]json.RawMessage
		if err := json.Unmarshal(ch, &children); err != nil {
			return fmt.Errorf("%w: %s.%s must be an object", ErrMalformedFragment, name, keyChildren)
		}
		for _, k := range sortedKeys(children) {
			if err := d.entity(parent, k, children[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *hierarchyDecoder) other(data json.RawMessage) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("%w: %s must be an object", ErrMalformedFragment, OtherBucket)
	}
	for _, k := range sortedKeys(members) {
		switch k {
		case keyProperties:
			continue
		case keyChildren:
			if err := d.other(members[k]); err != nil {
				return err
			}
			continue
		}
		if err := d.otherMember(k, members[k]); err != nil {
			return err
		}
	}
	return nil
}

// otherMember adds one bucket entry. Children wrongly nested under a bucket
// member are flattened into the bucket.
func (d *hierarchyDecoder) otherMember(rawName string, data json.RawMessage) error {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("%w: %s member %q must be an object", ErrMalformedFragment, OtherBucket, rawName)
	}
	name := CanonicalName(rawName)
	if d.o.Has(name) {
		d.diags.Add(KindDuplicateEntity, "decode", name, "entity listed more than once, first position kept")
	} else {
		if err := d.o.AddOther(name); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFragment, err)
		}
		if props, ok := body[keyProperties]; ok {
			var s PropertySchema
			if err := json.Unmarshal(props, &s); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrMalformedFragment, name, err)
			}
			_ = d.o.SetProperties(name, s)
		}
	}
	if ch, ok := body[keyChildren]; ok {
		var children map[string]json.RawMessage
		if err := json.Unmarshal(ch, &children); err != nil {
			return fmt.Errorf("%w: %s.%s must be an object", ErrMalformedFragment, name, keyChildren)
		}
		for _, k := range sortedKeys(children) {
			d.diags.Add(KindAmbiguousPlacement, "decode", CanonicalName(k), "child of an "+OtherBucket+" member flattened into the bucket")
			if err := d.otherMember(k, children[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

// decodeRelationships accepts the list form or the merged map form
// {"TYPE": [{"description","source","target"}]}.
func decodeRelationships(data json.RawMessage) ([]RelationshipType, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '[' {
		var rels []RelationshipType
		if err := json.Unmarshal(data, &rels); err != nil {
			return nil, fmt.Errorf("%w: relationships: %v", ErrMalformedFragment, err)
		}
		for i := range rels {
			if rels[i].Type == "" {
				return nil, fmt.Errorf("%w: relationship %d has no type", ErrMalformedFragment, i)
			}
			rels[i].Source = CanonicalName(rels[i].Source)
			rels[i].Target = CanonicalName(rels[i].Target)
		}
		return rels, nil
	}
	var byType map[string][]RelationshipType
	if err := json.Unmarshal(data, &byType); err != nil {
		return nil, fmt.Errorf("%w: relationships: %v", ErrMalformedFragment, err)
	}
	var rels []RelationshipType
	for _, t := range sortedKeys(byType) {
		for _, r := range byType[t] {
			r.Type = t
			r.Source = CanonicalName(r.Source)
			r.Target = CanonicalName(r.Target)
			rels = append(rels, r)
		}
	}
	return rels, nil
}

// HierarchyDocument renders the tree in the nested external shape.
func (o *Ontology) HierarchyDocument() map[string]any {
	doc := make(map[string]any, len(o.roots)+1)
	var entity func(name string) map[string]any
	entity = func(name string) map[string]any {
		n := o.nodes[NameKey(name)]
		body := map[string]any{keyProperties: n.Properties}
		if len(n.Children) > 0 {
			children := make(map[string]any, len(n.Children))
			for _, c := range n.Children {
				children[c] = entity(c)
			}
			body[keyChildren] = children
		}
		return body
	}
	for _, r := range o.roots {
		doc[r] = entity(r)
	}
	if len(o.other) > 0 {
		bucket := make(map[string]any, len(o.other))
		for _, name := range o.other {
			bucket[name] = map[string]any{keyProperties: o.nodes[NameKey(name)].Properties}
		}
		doc[OtherBucket] = bucket
	}
	return doc
}

func (o *Ontology) MarshalJSON() ([]byte, error) {
	rels := o.Relationships
	if rels == nil {
		rels = []RelationshipType{}
	}
	return json.Marshal(map[string]any{
		keyEntities:      o.HierarchyDocument(),
		keyRelationships: rels,
	})
}

func (o *Ontology) UnmarshalJSON(data []byte) error {
	decoded, _, err := DecodeOntology(data)
	if err != nil {
		return err
	}
	*o = *decoded
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
