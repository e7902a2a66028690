package hierarchy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexicon(t *testing.T) {
	lex := DefaultLexicon()
	assert.True(t, lex.IsCategory("Person"))
	assert.True(t, lex.IsCategory("artist"))
	assert.False(t, lex.IsCategory("Company"))
	assert.Equal(t, 1, lex.Depth("Artist"))
	assert.Equal(t, -1, lex.Depth("Dancer"))

	assert.Equal(t, []string{"Person"}, lex.Broader("BalletDancer"))
	assert.Equal(t, []string{"Artist", "Person"}, lex.Broader("Painter"))
	assert.Equal(t, []string{"Person"}, lex.Broader("Artist"))
	assert.Empty(t, lex.Broader("Widget"))

	d, ok := lex.Domain("Painter")
	require.True(t, ok)
	assert.Equal(t, "Artist", d)
	_, ok = lex.Domain("Widget")
	assert.False(t, ok)
}

func TestBaseSchemaOrder(t *testing.T) {
	lex := DefaultLexicon()
	s := lex.BaseSchema("Artist")
	assert.Equal(t, []string{"name", "birthDate", "nationality", "genre"}, s.Keys())

	generic := lex.BaseSchema("Widget")
	assert.Equal(t, []string{"name"}, generic.Keys())
}

func TestParseLexiconErrors(t *testing.T) {
	_, err := ParseLexicon([]byte(`categories: [{name: A, parent: B}]`))
	assert.Error(t, err)

	_, err = ParseLexicon([]byte(`categories: [{name: A, parent: B}, {name: B, parent: A}]`))
	assert.Error(t, err)

	_, err = ParseLexicon([]byte(`categories: [{name: A}, {name: a}]`))
	assert.Error(t, err)

	_, err = ParseLexicon([]byte(`categories: {`))
	assert.Error(t, err)
}

func TestLoadLexicon(t *testing.T) {
	lex, err := LoadLexicon("")
	require.NoError(t, err)
	assert.True(t, lex.IsCategory("Person"))

	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base: [{name: label, type: string}]\ncategories: [{name: Gene, members: [protein]}]\n"), 0o644))
	lex, err = LoadLexicon(path)
	require.NoError(t, err)
	assert.True(t, lex.IsCategory("Gene"))
	assert.Equal(t, []string{"label"}, lex.BaseSchema("Gene").Keys())

	_, err = LoadLexicon(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
