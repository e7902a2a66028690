package model

import (
	"fmt"
	"sort"
)

// OtherBucket is the flat catch-all for entity types with no confident place
// in the hierarchy. It has no properties and its members have no children.
const OtherBucket = "Other"

// OntologyNode is one entity type.
type OntologyNode struct {
	Name       string         `json:"name"`
	Parent     string         `json:"parent,omitempty"`
	Children   []string       `json:"children,omitempty"`
	Properties PropertySchema `json:"properties"`
	IsOther    bool           `json:"is_other,omitempty"`
}

func (n OntologyNode) clone() OntologyNode {
	n.Children = append([]string(nil), n.Children...)
	n.Properties = n.Properties.Clone()
	return n
}

// RelationshipType is a declared relationship between two entity types.
type RelationshipType struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Target      string `json:"target"`
}

// Ontology is a node table plus a parent/children index. Names are keyed
// case-insensitively; every name is either in the tree or in the Other
// bucket, never both. Stages clone before changing anything.
type Ontology struct {
	nodes map[string]*OntologyNode
	roots []string
	other []string

	Relationships []RelationshipType `json:"relationships"`
}

func NewOntology() *Ontology {
	return &Ontology{nodes: make(map[string]*OntologyNode)}
}

func (o *Ontology) Clone() *Ontology {
	out := NewOntology()
	for k, n := range o.nodes {
		c := n.clone()
		out.nodes[k] = &c
	}
	out.roots = append([]string(nil), o.roots...)
	out.other = append([]string(nil), o.other...)
	out.Relationships = append([]RelationshipType(nil), o.Relationships...)
	return out
}

func (o *Ontology) Len() int { return len(o.nodes) }

func (o *Ontology) Has(name string) bool {
	_, ok := o.nodes[NameKey(name)]
	return ok
}

// Node returns a copy of the named node.
func (o *Ontology) Node(name string) (OntologyNode, bool) {
	n, ok := o.nodes[NameKey(name)]
	if !ok {
		return OntologyNode{}, false
	}
	return n.clone(), true
}

// Lookup returns the stored spelling of name.
func (o *Ontology) Lookup(name string) (string, bool) {
	n, ok := o.nodes[NameKey(name)]
	if !ok {
		return "", false
	}
	return n.Name, true
}

// Names returns every entity name, tree and Other bucket, sorted by key.
func (o *Ontology) Names() []string {
	keys := make([]string, 0, len(o.nodes))
	for k := range o.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = o.nodes[k].Name
	}
	return names
}

func (o *Ontology) Roots() []string { return append([]string(nil), o.roots...) }

func (o *Ontology) Other() []string { return append([]string(nil), o.other...) }

func (o *Ontology) Children(name string) []string {
	n, ok := o.nodes[NameKey(name)]
	if !ok {
		return nil
	}
	return append([]string(nil), n.Children...)
}

func (o *Ontology) Parent(name string) string {
	if n, ok := o.nodes[NameKey(name)]; ok {
		return n.Parent
	}
	return ""
}

func (o *Ontology) IsOther(name string) bool {
	n, ok := o.nodes[NameKey(name)]
	return ok && n.IsOther
}

// Depth is 0 for roots and Other members, parent depth + 1 otherwise, -1 if unknown.
func (o *Ontology) Depth(name string) int {
	n, ok := o.nodes[NameKey(name)]
	if !ok {
		return -1
	}
	d := 0
	for n.Parent != "" {
		n = o.nodes[NameKey(n.Parent)]
		d++
	}
	return d
}

// Ancestors lists the ancestors of name, nearest first.
func (o *Ontology) Ancestors(name string) []string {
	n, ok := o.nodes[NameKey(name)]
	if !ok {
		return nil
	}
	var out []string
	for n.Parent != "" {
		out = append(out, n.Parent)
		n = o.nodes[NameKey(n.Parent)]
	}
	return out
}

// IsDescendant reports whether name sits strictly below ancestor.
func (o *Ontology) IsDescendant(name, ancestor string) bool {
	ak := NameKey(ancestor)
	for _, a := range o.Ancestors(name) {
		if NameKey(a) == ak {
			return true
		}
	}
	return false
}

// AddRoot inserts a new top-level entity type.
func (o *Ontology) AddRoot(name string) error {
	if err := o.checkNew(name); err != nil {
		return err
	}
	o.nodes[NameKey(name)] = &OntologyNode{Name: name}
	o.roots = insertSorted(o.roots, name)
	return nil
}

// AddChild inserts a new entity type under an existing tree node.
func (o *Ontology) AddChild(parent, name string) error {
	if err := o.checkNew(name); err != nil {
		return err
	}
	p, ok := o.nodes[NameKey(parent)]
	if !ok {
		return fmt.Errorf("parent %q not in ontology", parent)
	}
	if p.IsOther {
		return fmt.Errorf("%q is in the %s bucket and cannot have children", parent, OtherBucket)
	}
	o.nodes[NameKey(name)] = &OntologyNode{Name: name, Parent: p.Name}
	p.Children = insertSorted(p.Children, name)
	return nil
}

// AddOther inserts a new entity type into the Other bucket.
func (o *Ontology) AddOther(name string) error {
	if err := o.checkNew(name); err != nil {
		return err
	}
	o.nodes[NameKey(name)] = &OntologyNode{Name: name, IsOther: true}
	o.other = insertSorted(o.other, name)
	return nil
}

// Move re-attaches an existing node under newParent, or at the top level when
// newParent is empty. Other members are taken out of the bucket.
func (o *Ontology) Move(name, newParent string) error {
	n, ok := o.nodes[NameKey(name)]
	if !ok {
		return fmt.Errorf("%q not in ontology", name)
	}
	var p *OntologyNode
	if newParent != "" {
		if p, ok = o.nodes[NameKey(newParent)]; !ok {
			return fmt.Errorf("parent %q not in ontology", newParent)
		}
		if NameKey(newParent) == NameKey(name) || o.IsDescendant(newParent, name) {
			return fmt.Errorf("moving %q under %q would create a cycle", name, newParent)
		}
		if p.IsOther {
			return fmt.Errorf("%q is in the %s bucket and cannot have children", newParent, OtherBucket)
		}
	}
	o.detach(n)
	if p == nil {
		n.Parent = ""
		o.roots = insertSorted(o.roots, n.Name)
		return nil
	}
	n.Parent = p.Name
	p.Children = insertSorted(p.Children, n.Name)
	return nil
}

// MoveToOther routes a childless node into the Other bucket.
func (o *Ontology) MoveToOther(name string) error {
	n, ok := o.nodes[NameKey(name)]
	if !ok {
		return fmt.Errorf("%q not in ontology", name)
	}
	if len(n.Children) > 0 {
		return fmt.Errorf("%q has children and cannot join the %s bucket", name, OtherBucket)
	}
	if n.IsOther {
		return nil
	}
	o.detach(n)
	n.Parent = ""
	n.IsOther = true
	o.other = insertSorted(o.other, n.Name)
	return nil
}

func (o *Ontology) SetProperties(name string, schema PropertySchema) error {
	n, ok := o.nodes[NameKey(name)]
	if !ok {
		return fmt.Errorf("%q not in ontology", name)
	}
	n.Properties = schema.Clone()
	return nil
}

// Walk visits tree nodes top-down, roots and children in sorted order.
func (o *Ontology) Walk(fn func(n OntologyNode, depth int)) {
	var visit func(name string, depth int)
	visit = func(name string, depth int) {
		n := o.nodes[NameKey(name)]
		fn(n.clone(), depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range o.roots {
		visit(r, 0)
	}
}

// Validate checks the partition, parent/child agreement and acyclicity.
func (o *Ontology) Validate() error {
	seen := make(map[string]bool, len(o.nodes))
	var visit func(name, parent string, depth int) error
	visit = func(name, parent string, depth int) error {
		k := NameKey(name)
		n, ok := o.nodes[k]
		if !ok {
			return fmt.Errorf("%q referenced but not in node table", name)
		}
		if seen[k] {
			return fmt.Errorf("%q reached twice", name)
		}
		if depth > len(o.nodes) {
			return fmt.Errorf("cycle through %q", name)
		}
		seen[k] = true
		if NameKey(n.Parent) != NameKey(parent) || n.IsOther {
			return fmt.Errorf("%q parent mismatch", name)
		}
		for _, c := range n.Children {
			if err := visit(c, n.Name, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range o.roots {
		if err := visit(r, "", 0); err != nil {
			return err
		}
	}
	for _, name := range o.other {
		k := NameKey(name)
		n, ok := o.nodes[k]
		if !ok || !n.IsOther || len(n.Children) > 0 || n.Parent != "" {
			return fmt.Errorf("%s member %q is inconsistent", OtherBucket, name)
		}
		if seen[k] {
			return fmt.Errorf("%q appears in the tree and in %s", name, OtherBucket)
		}
		seen[k] = true
	}
	if len(seen) != len(o.nodes) {
		return fmt.Errorf("%d entity types unreachable", len(o.nodes)-len(seen))
	}
	return nil
}

// HasRelationship reports whether a relationship type is declared, and
// whether it is declared for the given source/target pair.
func (o *Ontology) HasRelationship(typ, source, target string) (declared, endpointsMatch bool) {
	for _, r := range o.Relationships {
		if r.Type != typ {
			continue
		}
		declared = true
		if NameKey(r.Source) == NameKey(source) && NameKey(r.Target) == NameKey(target) {
			return true, true
		}
	}
	return declared, false
}

func (o *Ontology) checkNew(name string) error {
	if name == "" {
		return fmt.Errorf("empty entity name")
	}
	if NameKey(name) == NameKey(OtherBucket) {
		return fmt.Errorf("%q is reserved", OtherBucket)
	}
	if _, ok := o.nodes[NameKey(name)]; ok {
		return fmt.Errorf("%q already in ontology", name)
	}
	return nil
}

func (o *Ontology) detach(n *OntologyNode) {
	switch {
	case n.IsOther:
		o.other = removeName(o.other, n.Name)
		n.IsOther = false
	case n.Parent == "":
		o.roots = removeName(o.roots, n.Name)
	default:
		p := o.nodes[NameKey(n.Parent)]
		p.Children = removeName(p.Children, n.Name)
	}
}

func insertSorted(list []string, name string) []string {
	k := NameKey(name)
	i := sort.Search(len(list), func(i int) bool { return NameKey(list[i]) >= k })
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = name
	return list
}

func removeName(list []string, name string) []string {
	k := NameKey(name)
	out := list[:0]
	for _, n := range list {
		if NameKey(n) != k {
			out = append(out, n)
		}
	}
	return out
}
