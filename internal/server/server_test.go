package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agenthands/ontograph/internal/core/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, err := NewServer(pipeline.New(nil, nil), nil, 0)
	require.NoError(t, err)
	return s.SetupRouter()
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestMergeOntologyNames(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPost, "/ontology/merge",
		`{"names": ["Person", "Author", "Dancer", "BalletDancer", "Company"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	entities := body["ontology"].(map[string]any)["entities"].(map[string]any)
	assert.Contains(t, entities, "Person")
	assert.Contains(t, entities["Other"], "Company")
	report := body["report"].(map[string]any)
	assert.Len(t, report["added"], 5)
}

func TestMergeOntologyBatches(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPost, "/ontology/merge",
		`{"batches": [{"entities": ["Person", "Dancer"], "relationships": []}, {"entities": "oops"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	report := decode(t, w)["report"].(map[string]any)
	clean := report["clean"].(map[string]any)
	assert.EqualValues(t, 2, clean["fragments"])
	assert.EqualValues(t, 1, clean["rejected"])
}

func TestMergeOntologyRejectsMalformedExisting(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPost, "/ontology/merge",
		`{"existing": {"Person": 3}, "names": ["Dancer"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolveOntology(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPost, "/ontology/resolve",
		`{"ontology": {"Person": {"properties": {}, "childrenEntities": {"Dancer": {"properties": {"style": "string"}}}}}}`)
	require.Equal(t, http.StatusOK, w.Code)

	entities := decode(t, w)["ontology"].(map[string]any)["entities"].(map[string]any)
	dancer := entities["Person"].(map[string]any)["childrenEntities"].(map[string]any)["Dancer"].(map[string]any)
	props := dancer["properties"].(map[string]any)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "style")
}

func TestConsolidateCountsFragments(t *testing.T) {
	r := newTestServer(t)
	w := do(t, r, http.MethodPost, "/graph/consolidate", `{
		"ontology": {"Person": {"properties": {}}},
		"fragments": [
			{"nodes": [{"id": "1", "labels": ["Person"], "properties": {"name": "Ada"}}], "relationships": []},
			{"nodes": [{"id": "1", "labels": ["Person"], "properties": {"name": "ada"}}], "relationships": []},
			{"nodes": "broken"}
		]}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Len(t, body["graph"].(map[string]any)["nodes"], 1)
	assert.EqualValues(t, 1, body["report"].(map[string]any)["rejected"])

	m := do(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, m.Code)
	assert.Contains(t, m.Body.String(), `ontograph_fragments_total{kind="graph",status="accepted"} 2`)
	assert.Contains(t, m.Body.String(), `ontograph_fragments_total{kind="graph",status="rejected"} 1`)
	assert.Contains(t, m.Body.String(), `ontograph_stage_duration_seconds_count{stage="consolidate"} 1`)
	assert.Contains(t, m.Body.String(), `ontograph_diagnostics_total{kind="malformed_fragment",stage="consolidate"} 1`)
}

func TestEvaluateStructuralEmptyGraph(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPost, "/evaluate/structural",
		`{"graph": {"nodes": [], "relationships": []}}`)
	require.Equal(t, http.StatusOK, w.Code)

	structural := decode(t, w)["structural"].(map[string]any)
	assert.Contains(t, structural, "icr")
	assert.Nil(t, structural["icr"])
	assert.EqualValues(t, 0, structural["nodes"])
}

func TestEvaluateAccuracy(t *testing.T) {
	r := newTestServer(t)
	graph := `"graph": {"nodes": [
		{"id": "0", "labels": ["Person"], "properties": {"name": "Ada Lovelace"}},
		{"id": "1", "labels": ["City"], "properties": {"name": "London"}}],
		"relationships": [{"type": "LIVES_IN", "startNode": "0", "endNode": "1", "properties": {}}]}`

	w := do(t, r, http.MethodPost, "/evaluate/accuracy", `{`+graph+`}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "no reference kb configured")

	w = do(t, r, http.MethodPost, "/evaluate/accuracy",
		`{`+graph+`, "gold_triples": [{"head": "Ada Lovelace", "relation": "LIVES_IN", "tail": "London"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	triples := decode(t, w)["triples"].(map[string]any)
	assert.EqualValues(t, 1, triples["exact_accuracy"])
}

func TestExportWithoutStore(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPost, "/graph/export",
		`{"graph_id": "g", "graph": {"nodes": [{"id": "0", "labels": ["Person"], "properties": {}}], "relationships": []}}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestInvalidRequest(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodPost, "/graph/consolidate", `{"fragments": [`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
