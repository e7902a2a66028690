package inheritance

import (
	"encoding/json"
	"testing"

	"github.com/agenthands/ontograph/internal/core/hierarchy"
	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(t *testing.T) *model.Ontology {
	t.Helper()
	m := hierarchy.NewMerger(nil, nil)
	o, _ := m.Merge(nil, []string{"Person", "Author", "Dancer", "BalletDancer", "Artist", "Painter", "Company"})
	require.NoError(t, o.SetProperties("Dancer", model.NewPropertySchema("style", "string", "birthDate", "string")))
	require.NoError(t, o.SetProperties("BalletDancer", model.NewPropertySchema("company", "string", "debut", "date")))
	require.NoError(t, o.SetProperties("Company", model.NewPropertySchema("founded", "date")))
	return o
}

func TestResolveInheritsDownTheTree(t *testing.T) {
	r := NewResolver(nil, nil)
	o, rep := r.Resolve(tree(t))
	require.NoError(t, Check(o))
	require.NoError(t, o.Validate())

	person, _ := o.Node("Person")
	assert.Equal(t, []string{"name", "birthDate", "nationality"}, person.Properties.Keys())

	dancer, _ := o.Node("Dancer")
	assert.Equal(t, []string{"name", "birthDate", "nationality", "style"}, dancer.Properties.Keys())
	typ, _ := dancer.Properties.Type("birthDate")
	assert.Equal(t, "date", typ, "parent datatype wins")

	ballet, _ := o.Node("BalletDancer")
	assert.Equal(t, []string{"name", "birthDate", "nationality", "style", "company", "debut"}, ballet.Properties.Keys())

	artist, _ := o.Node("Artist")
	assert.True(t, artist.Properties.Has("genre"))
	painter, _ := o.Node("Painter")
	assert.True(t, painter.Properties.Superset(artist.Properties))

	company, _ := o.Node("Company")
	assert.Equal(t, []string{"name", "founded"}, company.Properties.Keys())

	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, model.KindSchemaConflict, rep.Diagnostics[0].Kind)
	assert.Equal(t, "Dancer", rep.Diagnostics[0].Subject)
	assert.Equal(t, 7, rep.Resolved)
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewResolver(nil, nil)
	once, _ := r.Resolve(tree(t))
	twice, rep := r.Resolve(once)
	assert.Empty(t, rep.Diagnostics)

	a, err := json.Marshal(once)
	require.NoError(t, err)
	b, err := json.Marshal(twice)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestResolveDoesNotModifyInput(t *testing.T) {
	in := tree(t)
	_, _ = NewResolver(nil, nil).Resolve(in)
	person, _ := in.Node("Person")
	assert.Equal(t, 0, person.Properties.Len())
}

func TestResolveGenericRoot(t *testing.T) {
	o := model.NewOntology()
	require.NoError(t, o.AddRoot("Gadget"))
	require.NoError(t, o.AddChild("Gadget", "Phone"))
	require.NoError(t, o.SetProperties("Phone", model.NewPropertySchema("os", "string", "name", "text")))

	out, rep := NewResolver(nil, nil).Resolve(o)
	phone, _ := out.Node("Phone")
	assert.Equal(t, []string{"name", "os"}, phone.Properties.Keys())
	assert.Equal(t, 1, rep.Diagnostics.Count(model.KindSchemaConflict))
	require.NoError(t, Check(out))
}

func TestCheckDetectsViolation(t *testing.T) {
	o := model.NewOntology()
	require.NoError(t, o.AddRoot("A"))
	require.NoError(t, o.AddChild("A", "B"))
	require.NoError(t, o.SetProperties("A", model.NewPropertySchema("x", "int")))
	assert.ErrorIs(t, Check(o), model.ErrSchemaConflict)
}
