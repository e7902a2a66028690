package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nestedOntology = `{
  "entities": {
    "Person": {
      "properties": {"name": "string"},
      "childrenEntities": {
        "Dancer": {
          "properties": {"style": "string"},
          "childrenEntities": {"ballet dancer": {"properties": {}}}
        }
      }
    },
    "Other": {
      "Company": {"properties": {"founded": "date"}},
      "Band": {"properties": {}, "childrenEntities": {"Orchestra": {}}}
    }
  },
  "relationships": {
    "MEMBER_OF": [{"description": "person belongs to band", "source": "Person", "target": "Band"}]
  }
}`

func TestDecodeOntologyNestedShape(t *testing.T) {
	o, diags, err := DecodeOntology([]byte(nestedOntology))
	require.NoError(t, err)
	require.NoError(t, o.Validate())

	assert.Equal(t, []string{"Person"}, o.Roots())
	assert.Equal(t, "Dancer", o.Parent("BalletDancer"))
	assert.ElementsMatch(t, []string{"Band", "Company", "Orchestra"}, o.Other())
	assert.Equal(t, 1, diags.Count(KindAmbiguousPlacement))

	n, ok := o.Node("Company")
	require.True(t, ok)
	typ, _ := n.Properties.Type("founded")
	assert.Equal(t, "date", typ)

	require.Len(t, o.Relationships, 1)
	assert.Equal(t, "MEMBER_OF", o.Relationships[0].Type)
}

func TestDecodeOntologyReportsDuplicates(t *testing.T) {
	doc := `{"A": {"childrenEntities": {"B": {}}}, "C": {"childrenEntities": {"b": {}}}}`
	o, diags, err := DecodeOntology([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "A", o.Parent("B"))
	assert.Equal(t, 1, diags.Count(KindDuplicateEntity))
	require.NoError(t, o.Validate())
}

func TestDecodeOntologyRejectsWrongTypes(t *testing.T) {
	_, _, err := DecodeOntology([]byte(`{"entities": {"Person": "not an object"}}`))
	assert.ErrorIs(t, err, ErrMalformedFragment)

	_, _, err = DecodeOntology([]byte(`{"entities": {"Person": {"properties": ["x"]}}}`))
	assert.ErrorIs(t, err, ErrMalformedFragment)
}

func TestOntologyJSONRoundTrip(t *testing.T) {
	o, _, err := DecodeOntology([]byte(nestedOntology))
	require.NoError(t, err)

	b, err := json.Marshal(o)
	require.NoError(t, err)

	var back Ontology
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, o.Names(), back.Names())
	assert.Equal(t, o.Other(), back.Other())
	assert.Equal(t, o.Relationships, back.Relationships)

	again, err := json.Marshal(&back)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(again))
}

func TestDecodeOntologyFragment(t *testing.T) {
	frag, err := DecodeOntologyFragment([]byte(`{"entities": ["Person", "ballet-dancer"], "relationships": [{"type": "KNOWS", "description": "d", "source": "sports team", "target": "Person"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Person", "ballet-dancer"}, frag.Entities)
	require.Len(t, frag.Relationships, 1)
	assert.Equal(t, "SportsTeam", frag.Relationships[0].Source)

	_, err = DecodeOntologyFragment([]byte(`{"relationships": []}`))
	assert.ErrorIs(t, err, ErrMalformedFragment)
	_, err = DecodeOntologyFragment([]byte(`{"entities": "Person"}`))
	assert.ErrorIs(t, err, ErrMalformedFragment)
}
