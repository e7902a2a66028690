package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOntology(t *testing.T) *Ontology {
	t.Helper()
	o := NewOntology()
	require.NoError(t, o.AddRoot("Person"))
	require.NoError(t, o.AddChild("Person", "Dancer"))
	require.NoError(t, o.AddChild("Dancer", "BalletDancer"))
	require.NoError(t, o.AddChild("Person", "Author"))
	require.NoError(t, o.AddOther("Company"))
	return o
}

func TestOntologyStructure(t *testing.T) {
	o := sampleOntology(t)
	require.NoError(t, o.Validate())

	assert.Equal(t, []string{"Person"}, o.Roots())
	assert.Equal(t, []string{"Author", "Dancer"}, o.Children("Person"))
	assert.Equal(t, []string{"Company"}, o.Other())
	assert.Equal(t, 2, o.Depth("BalletDancer"))
	assert.Equal(t, []string{"Dancer", "Person"}, o.Ancestors("balletdancer"))
	assert.True(t, o.IsDescendant("BalletDancer", "Person"))
	assert.False(t, o.IsDescendant("Person", "BalletDancer"))
	assert.Len(t, o.Names(), 5)
}

func TestOntologyRejectsDuplicatesAndReserved(t *testing.T) {
	o := sampleOntology(t)
	assert.Error(t, o.AddRoot("person"))
	assert.Error(t, o.AddOther("Dancer"))
	assert.Error(t, o.AddRoot("other"))
	assert.Error(t, o.AddChild("Company", "Startup"), "Other members have no children")
}

func TestOntologyMovePreventsCycles(t *testing.T) {
	o := sampleOntology(t)
	assert.Error(t, o.Move("Person", "BalletDancer"))
	assert.Error(t, o.Move("Dancer", "Dancer"))

	require.NoError(t, o.Move("Company", ""))
	assert.False(t, o.IsOther("Company"))
	assert.Contains(t, o.Roots(), "Company")
	require.NoError(t, o.Validate())

	assert.Error(t, o.MoveToOther("Person"))
	require.NoError(t, o.MoveToOther("Author"))
	assert.True(t, o.IsOther("Author"))
	assert.Equal(t, []string{"Dancer"}, o.Children("Person"))
	require.NoError(t, o.Validate())
}

func TestOntologyCloneIsIndependent(t *testing.T) {
	o := sampleOntology(t)
	c := o.Clone()
	require.NoError(t, c.AddChild("Person", "Actor"))
	require.NoError(t, c.SetProperties("Person", NewPropertySchema("name", "string")))

	assert.False(t, o.Has("Actor"))
	n, _ := o.Node("Person")
	assert.Equal(t, 0, n.Properties.Len())
}

func TestHasRelationship(t *testing.T) {
	o := sampleOntology(t)
	o.Relationships = []RelationshipType{{Type: "WORKS_FOR", Source: "Person", Target: "Company"}}

	declared, match := o.HasRelationship("WORKS_FOR", "person", "Company")
	assert.True(t, declared)
	assert.True(t, match)

	declared, match = o.HasRelationship("WORKS_FOR", "Dancer", "Company")
	assert.True(t, declared)
	assert.False(t, match)

	declared, _ = o.HasRelationship("OWNS", "Person", "Company")
	assert.False(t, declared)
}

func TestPropertySchemaOrder(t *testing.T) {
	s := NewPropertySchema("name", "string", "birthDate", "date")
	s.Set("age", "int")
	s.Set("name", "text")

	assert.Equal(t, []string{"name", "birthDate", "age"}, s.Keys())
	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"text","birthDate":"date","age":"int"}`, string(b))
	assert.Equal(t, `{"name":"text","birthDate":"date","age":"int"}`, string(b))

	parent := NewPropertySchema("birthDate", "date")
	assert.True(t, s.Superset(parent))
	assert.False(t, parent.Superset(s))
}
