package hierarchy

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shape captures a tree up to isomorphism: parent per name plus the Other set.
func shape(o *model.Ontology) map[string]string {
	out := make(map[string]string, o.Len())
	for _, n := range o.Names() {
		switch {
		case o.IsOther(n):
			out[model.NameKey(n)] = "<other>"
		default:
			out[model.NameKey(n)] = model.NameKey(o.Parent(n))
		}
	}
	return out
}

func TestMergeScenarioPersonDancerCompany(t *testing.T) {
	m := NewMerger(nil, nil)
	o, rep := m.Merge(nil, []string{"Person", "Author", "Dancer", "BalletDancer", "Company"})
	require.NoError(t, o.Validate())

	assert.Equal(t, []string{"Person"}, o.Roots())
	assert.Equal(t, []string{"Author", "Dancer"}, o.Children("Person"))
	assert.Equal(t, []string{"BalletDancer"}, o.Children("Dancer"))
	assert.Equal(t, []string{"Company"}, o.Other())

	require.Len(t, rep.Diagnostics, 1)
	assert.Equal(t, model.KindAmbiguousPlacement, rep.Diagnostics[0].Kind)
	assert.Equal(t, "Company", rep.Diagnostics[0].Subject)
	assert.Len(t, rep.Added, 5)
}

func TestMergeCoversEveryNameOnce(t *testing.T) {
	m := NewMerger(nil, nil)
	batches := [][]string{
		{"Person", "ballet-dancer", "Company", "City"},
		{"dancer", "Painter", "Artist", "Rock Band", "band"},
		{"PERSON", "Festival", "Event", "football player", "Player", "River"},
	}
	o, _ := m.MergeBatches(nil, batches)
	require.NoError(t, o.Validate())

	want := map[string]bool{}
	for _, b := range batches {
		for _, n := range b {
			want[model.NameKey(n)] = true
		}
	}
	got := map[string]bool{}
	for _, n := range o.Names() {
		k := model.NameKey(n)
		assert.False(t, got[k], "duplicate %s", n)
		got[k] = true
	}
	assert.Equal(t, want, got)
}

func TestMergeIsBatchOrderIndependent(t *testing.T) {
	batches := [][]string{
		{"Person", "Author"},
		{"Dancer", "BalletDancer"},
		{"Company"},
		{"Painter", "Artist"},
		{"Organization", "RockBand", "Band"},
	}
	m := NewMerger(nil, nil)
	ref, _ := m.MergeBatches(nil, batches)
	require.NoError(t, ref.Validate())

	orders := [][]int{{4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}, {1, 3, 0, 2, 4}, {3, 4, 1, 0, 2}}
	for _, order := range orders {
		perm := make([][]string, len(order))
		for i, j := range order {
			perm[i] = batches[j]
		}
		o, _ := m.MergeBatches(nil, perm)
		require.NoError(t, o.Validate())
		assert.Equal(t, shape(ref), shape(o), "order %v", order)
	}

	assert.Equal(t, "Artist", ref.Parent("Painter"))
	assert.Equal(t, "Person", ref.Parent("Artist"))
	assert.Equal(t, "Band", ref.Parent("RockBand"))
	assert.Equal(t, "Organization", ref.Parent("Band"))
	assert.Equal(t, "Organization", ref.Parent("Company"))
}

func TestMergeSkipsKnownNames(t *testing.T) {
	m := NewMerger(nil, nil)
	base, _ := m.Merge(nil, []string{"Person", "Company"})
	require.True(t, base.IsOther("Company"))

	o, rep := m.Merge(base, []string{"company", "Person", "Author", "author", "Other", ""})
	require.NoError(t, o.Validate())
	assert.Equal(t, []string{"Author"}, rep.Added)
	assert.Len(t, rep.Skipped, 5)
	assert.Equal(t, 3, o.Len())
	assert.True(t, o.IsOther("Company"))

	assert.False(t, base.Has("Author"), "input ontology must not change")
}

func TestMergeRefinesExistingPlacement(t *testing.T) {
	m := NewMerger(nil, nil)
	o, _ := m.Merge(nil, []string{"Person", "Painter"})
	require.Equal(t, "Person", o.Parent("Painter"))

	o, rep := m.Merge(o, []string{"Artist"})
	require.NoError(t, o.Validate())
	assert.Equal(t, "Person", o.Parent("Artist"))
	assert.Equal(t, "Artist", o.Parent("Painter"))
	assert.Contains(t, rep.Moved, "Painter")
}

func TestMergePromotesOtherMemberThatGainsChildren(t *testing.T) {
	m := NewMerger(nil, nil)
	o, _ := m.Merge(nil, []string{"Dancer"})
	require.True(t, o.IsOther("Dancer"))

	o, _ = m.Merge(o, []string{"BalletDancer"})
	require.NoError(t, o.Validate())
	assert.False(t, o.IsOther("Dancer"))
	assert.Equal(t, "Dancer", o.Parent("BalletDancer"))
}

func TestMergeWithCustomLexicon(t *testing.T) {
	lex, err := ParseLexicon([]byte(`
categories:
  - name: Vehicle
    members: [car, truck]
`))
	require.NoError(t, err)
	m := NewMerger(lex, nil)
	o, _ := m.Merge(nil, []string{"Vehicle", "Car", "Person", "Author"})
	require.NoError(t, o.Validate())

	assert.Equal(t, "Vehicle", o.Parent("Car"))
	assert.ElementsMatch(t, []string{"Author", "Person"}, o.Other())
}

var occupations = []string{"Dancer", "Painter", "Singer", "Writer", "Player", "Driver", "Teacher", "Builder", "Farmer", "Sailor"}

// syntheticBatches returns occupations, 50 variants of each and 10 refinements
// of the first variants, shuffled into batches of size.
func syntheticBatches(size int) [][]string {
	var names []string
	for _, occ := range occupations {
		names = append(names, occ)
		for i := 0; i < 50; i++ {
			names = append(names, fmt.Sprintf("V%d%s", i, occ))
		}
		for i := 0; i < 10; i++ {
			names = append(names, fmt.Sprintf("X%dV%d%s", i, i, occ))
		}
	}
	rand.New(rand.NewSource(7)).Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	var batches [][]string
	for len(names) > 0 {
		n := min(size, len(names))
		batches = append(batches, names[:n])
		names = names[n:]
	}
	return batches
}

func TestMergeLargeOntology(t *testing.T) {
	if testing.Short() {
		t.Skip("large merge")
	}
	m := NewMerger(nil, nil)
	start := time.Now()
	o, _ := m.MergeBatches(nil, syntheticBatches(50))
	elapsed := time.Since(start)

	require.NoError(t, o.Validate())
	assert.Equal(t, len(occupations)*61, o.Len())
	for _, occ := range occupations {
		assert.Equal(t, occ, o.Parent("V7"+occ))
		assert.Equal(t, "V3"+occ, o.Parent("X3V3"+occ))
	}
	assert.Less(t, elapsed, 5*time.Second)
}

func BenchmarkMergeBatches(b *testing.B) {
	m := NewMerger(nil, nil)
	batches := syntheticBatches(50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.MergeBatches(nil, batches)
	}
}
