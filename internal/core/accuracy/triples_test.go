package accuracy

import (
	"testing"

	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestGenerateTriples(t *testing.T) {
	g := &model.KnowledgeGraph{
		Nodes: []model.GraphNode{
			{ID: "0", Labels: []string{"Person"}, Properties: map[string]any{"name": "Ada Lovelace"}},
			{ID: "1", Labels: []string{"Date"}, Properties: map[string]any{"day": float64(10), "month": float64(12), "year": float64(1815)}},
			{ID: "2", Labels: []string{"City"}, Properties: map[string]any{"name": "London"}},
			{ID: "3", Labels: []string{"Date"}, Properties: map[string]any{"dateValue": "27 November 1852"}},
		},
		Relationships: []model.GraphRelationship{
			{Type: "BORN_ON", StartNode: "0", EndNode: "1"},
			{Type: "BORN_IN", StartNode: "0", EndNode: "2"},
			{Type: "DIED_ON", StartNode: "0", EndNode: "3"},
			{Type: "KNOWS", StartNode: "0", EndNode: "9"},
		},
	}

	assert.Equal(t, []model.Triple{
		{Head: "Ada Lovelace", Relation: "BORN_ON", Tail: "10/12/1815"},
		{Head: "Ada Lovelace", Relation: "BORN_IN", Tail: "London"},
		{Head: "Ada Lovelace", Relation: "DIED_ON", Tail: "27/11/1852"},
		{Head: "Ada Lovelace", Relation: "KNOWS", Tail: "9"},
	}, GenerateTriples(g))
	assert.Nil(t, GenerateTriples(nil))
}

func TestConvertDate(t *testing.T) {
	cases := map[string]string{
		"10 December 1815":  "10/12/1815",
		"1815-12-10":        "10/12/1815",
		"December 10, 1815": "10/12/1815",
		"10.12.1815":        "10/12/1815",
		"1815-12":           "12/1815",
		"December 1815":     "12/1815",
		"AD 800":            "800",
		"1815":              "1815",
		"sometime":          "sometime",
	}
	for in, want := range cases {
		assert.Equal(t, want, ConvertDate(in), in)
	}
}

func TestConvertDateParts(t *testing.T) {
	assert.Equal(t, "10/12/1815", ConvertDateParts("10", "December", "1815"))
	assert.Equal(t, "10/12/1815", ConvertDateParts("10", "12", "1815"))
	assert.Equal(t, "03/1900", ConvertDateParts("", "3", "1900"))
	assert.Equal(t, "1900", ConvertDateParts("", "", "1900"))
	assert.Equal(t, "31/2/2001", ConvertDateParts("31", "2", "2001"))
}

func TestScoreTriples(t *testing.T) {
	gold := []model.Triple{
		{Head: "Ada Lovelace", Relation: "BORN_IN", Tail: "London"},
		{Head: "Ada Lovelace", Relation: "WORKED_WITH", Tail: "Charles Babbage"},
	}
	predicted := []model.Triple{
		{Head: "Ada Lovelace", Relation: "BORN_IN", Tail: "London"},
		{Head: "Ada", Relation: "BORN_IN", Tail: "Paris"},
		{Head: "Bob", Relation: "KNOWS", Tail: "Alice"},
	}

	rep := ScoreTriples(gold, predicted)

	assert.InDelta(t, 1.0/3.0, rep.ExactAccuracy.Float(), 1e-9)
	assert.InDelta(t, 2.0/3.0, rep.PartialAccuracy.Float(), 1e-9)
	assert.True(t, rep.Scores[0].Exact)
	assert.Equal(t, gold[:1], rep.Scores[0].ExactGold)
	assert.False(t, rep.Scores[1].Exact)
	assert.True(t, rep.Scores[1].Partial)
	assert.Equal(t, gold[:1], rep.Scores[1].PartialGold)
	assert.False(t, rep.Scores[2].Partial)
}

func TestScoreTriplesEmpty(t *testing.T) {
	rep := ScoreTriples(nil, nil)
	assert.False(t, rep.ExactAccuracy.Defined())
	assert.Empty(t, rep.Scores)
}

func TestTripleOverlap(t *testing.T) {
	tr := func(h, r, t string) model.Triple { return model.Triple{Head: h, Relation: r, Tail: t} }
	a := []model.Triple{tr("A", "R", "B"), tr("A", "R", "C"), tr("X", "R", "Y")}
	b := []model.Triple{tr("A", "R", "B"), tr("X", "R", "Y"), tr("Q", "R", "Z")}
	assert.Equal(t, 2, TripleOverlap(a, b))
	assert.Zero(t, TripleOverlap(a, nil))
}
