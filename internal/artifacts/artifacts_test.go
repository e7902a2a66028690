package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadModelNames(t *testing.T) {
	for _, m := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := New(t.TempDir(), m)
		assert.Error(t, err, m)
	}
}

func TestLayoutPaths(t *testing.T) {
	l, err := New("data", "gpt-4o")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "gpt-4o", "ontology", "batches"), l.BatchDir(Ontology))
	assert.Equal(t, filepath.Join("data", "gpt-4o", "kg", "merged"), l.MergedDir(Graph))
	assert.Equal(t, filepath.Join("data", "gpt-4o", "kg", "final.json"), l.FinalPath(Graph))
	assert.Equal(t, filepath.Join("data", "gpt-4o", "evaluations", "structural.json"), l.EvaluationPath("structural"))
}

func TestInitCreatesTree(t *testing.T) {
	l, err := New(t.TempDir(), "m")
	require.NoError(t, err)
	require.NoError(t, l.Init())

	for _, d := range []string{l.BatchDir(Ontology), l.MergedDir(Ontology), l.BatchDir(Graph), l.MergedDir(Graph), filepath.Join(l.Dir(), "evaluations")} {
		info, err := os.Stat(d)
		require.NoError(t, err, d)
		assert.True(t, info.IsDir())
	}
}

func TestBatchesRoundTripAndConcatenatedFiles(t *testing.T) {
	l, err := New(t.TempDir(), "m")
	require.NoError(t, err)

	_, err = l.WriteBatch(Graph, 1, json.RawMessage(`{"nodes": [], "relationships": []}`))
	require.NoError(t, err)
	_, err = l.WriteBatch(Graph, 0, json.RawMessage(`{"nodes":[{"id":"0"}],"relationships":[]}`))
	require.NoError(t, err)
	// A legacy file holding two documents back to back.
	require.NoError(t, os.WriteFile(filepath.Join(l.BatchDir(Graph), "batch_0002.json"),
		[]byte(`{"nodes":[],"relationships":[]}{"nodes":[{"id":"9"}],"relationships":[]}`), 0644))

	docs, err := l.ReadBatches(Graph)
	require.NoError(t, err)
	require.Len(t, docs, 4)
	assert.JSONEq(t, `{"nodes":[{"id":"0"}],"relationships":[]}`, string(docs[0]))
	assert.JSONEq(t, `{"nodes":[{"id":"9"}],"relationships":[]}`, string(docs[3]))
}

func TestReadBatchesMissingDir(t *testing.T) {
	l, err := New(t.TempDir(), "m")
	require.NoError(t, err)
	_, err = l.ReadBatches(Ontology)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFinalAndEvaluationArtifacts(t *testing.T) {
	l, err := New(t.TempDir(), "m")
	require.NoError(t, err)

	var out map[string]int
	assert.ErrorIs(t, l.ReadFinal(Ontology, &out), ErrNotFound)

	require.NoError(t, l.WriteFinal(Ontology, map[string]int{"a": 1}))
	require.NoError(t, l.ReadFinal(Ontology, &out))
	assert.Equal(t, map[string]int{"a": 1}, out)

	require.NoError(t, l.WriteFinal(Ontology, map[string]int{"b": 2}))
	out = nil
	require.NoError(t, l.ReadFinal(Ontology, &out))
	assert.Equal(t, map[string]int{"b": 2}, out)

	require.NoError(t, l.WriteEvaluation("structural", map[string]any{"icr": nil}))
	var ev map[string]any
	require.NoError(t, l.ReadEvaluation("structural", &ev))
	assert.Contains(t, ev, "icr")

	path, err := l.WriteMerged(Graph, "step_001", []int{1, 2})
	require.NoError(t, err)
	assert.FileExists(t, path)

	entries, err := os.ReadDir(filepath.Dir(l.FinalPath(Ontology)))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
