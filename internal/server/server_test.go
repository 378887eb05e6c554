package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/biokgraph/biokg/internal/config"
	"github.com/biokgraph/biokg/internal/models"
	"github.com/biokgraph/biokg/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "kg.db"), 5, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	patterns, err := models.DefaultPatterns()
	require.NoError(t, err)
	validate, err := models.NewValidator(patterns)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:           "0",
		Env:            "test",
		MaxOpenConns:   5,
		MaxPageSize:    100,
		MaxFilterDepth: 16,
		DefaultTopK:    10,
	}
	return New(cfg, store, validate, zap.NewNop()), store
}

func seedAPIFixture(t *testing.T, store *storage.Store) {
	t.Helper()
	db := store.DB()

	entities := [][]any{
		{"DOID:2022", "gingival hypertrophy", "Disease", "DOID", ""},
		{"MESH:C000601183", "compound x", "Chemical", "MESH", ""},
		{"MESH:C000700", "compound y", "Chemical", "MESH", ""},
		{"ENTREZ:3569", "IL6", "Gene", "ENTREZ", ""},
	}
	for _, e := range entities {
		_, err := db.Exec(
			"INSERT INTO kg_entity (id, name, label, resource, description) VALUES (?, ?, ?, ?, ?)", e...)
		require.NoError(t, err)
	}

	relations := [][]any{
		{"treats", "MESH:C000601183", "Chemical", "DOID:2022", "Disease", 0.9},
		{"associated_with", "ENTREZ:3569", "Gene", "DOID:2022", "Disease", 0.7},
	}
	for _, r := range relations {
		_, err := db.Exec(
			`INSERT INTO kg_relation (relation_type, source_id, source_type, target_id, target_type, score, key_sentence, resource)
			 VALUES (?, ?, ?, ?, ?, ?, '', 'DRKG')`, r...)
		require.NoError(t, err)
	}

	sims := [][]any{
		{"MESH:C000601183", "MESH:C000700", 0.97},
		{"MESH:C000601183", "ENTREZ:3569", 0.61},
	}
	for _, r := range sims {
		_, err := db.Exec(
			"INSERT INTO kg_similarity (entity_id, neighbor_id, score) VALUES (?, ?, ?)", r...)
		require.NoError(t, err)
	}
}

func doGet(t *testing.T, s *Server, path string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	req := httptest.NewRequest(http.MethodGet, path+"?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
}

type pageBody struct {
	Records  []map[string]any `json:"records"`
	Total    uint64           `json:"total"`
	Page     uint64           `json:"page"`
	PageSize uint64           `json:"page_size"`
}

type graphBody struct {
	Nodes []map[string]any `json:"nodes"`
	Edges []map[string]any `json:"edges"`
}

func TestListEntitiesByID(t *testing.T) {
	s, store := newTestServer(t)
	seedAPIFixture(t, store)

	w := doGet(t, s, "/api/v1/entities", map[string]string{
		"query_str": `{"operator": "=", "field": "id", "value": "DOID:2022"}`,
		"page":      "1",
		"page_size": "10",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body pageBody
	decodeBody(t, w, &body)
	assert.Equal(t, uint64(1), body.Total)
	assert.Equal(t, uint64(1), body.Page)
	assert.Equal(t, uint64(10), body.PageSize)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "gingival hypertrophy", body.Records[0]["name"])
}

func TestListEntitiesCompositeFilter(t *testing.T) {
	s, store := newTestServer(t)
	seedAPIFixture(t, store)

	w := doGet(t, s, "/api/v1/entities", map[string]string{
		"query_str": `{"operator": "and", "items": [
			{"operator": "eq", "field": "label", "value": "Chemical"},
			{"operator": "like", "field": "name", "value": "compound%"}
		]}`,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body pageBody
	decodeBody(t, w, &body)
	assert.Equal(t, uint64(2), body.Total)
	assert.Equal(t, uint64(0), body.Page, "unpaged response carries the zero sentinel")
	assert.Equal(t, uint64(0), body.PageSize)
}

func TestListEntitiesNoMatches(t *testing.T) {
	s, store := newTestServer(t)
	seedAPIFixture(t, store)

	w := doGet(t, s, "/api/v1/entities", map[string]string{
		"query_str": `{"operator": "eq", "field": "id", "value": "DOID:404404"}`,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body pageBody
	decodeBody(t, w, &body)
	assert.Equal(t, uint64(0), body.Total)
	assert.NotNil(t, body.Records)
	assert.Empty(t, body.Records)
}

func TestListEntitiesBadInput(t *testing.T) {
	s, store := newTestServer(t)
	seedAPIFixture(t, store)

	for name, params := range map[string]map[string]string{
		"malformed filter": {"query_str": `{"operator":`},
		"unknown field":    {"query_str": `{"operator": "eq", "field": "nope", "value": 1}`},
		"bad operator":     {"query_str": `{"operator": "regex", "field": "id", "value": "x"}`},
		"page zero":        {"page": "0"},
		"oversized page":   {"page_size": "100000"},
	} {
		t.Run(name, func(t *testing.T) {
			w := doGet(t, s, "/api/v1/entities", params)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestFetchNodesEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	seedAPIFixture(t, store)

	w := doGet(t, s, "/api/v1/nodes", map[string]string{
		"node_ids": "DOID:2022,ENTREZ:3569,DOID:9999",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body graphBody
	decodeBody(t, w, &body)
	assert.Len(t, body.Nodes, 2)
	assert.Empty(t, body.Edges)

	// empty node_ids is an empty graph, not an error
	w = doGet(t, s, "/api/v1/nodes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &body)
	assert.Empty(t, body.Nodes)
	assert.Empty(t, body.Edges)
}

func TestAutoConnectNodesEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	seedAPIFixture(t, store)

	w := doGet(t, s, "/api/v1/auto-connect-nodes", map[string]string{
		"node_ids": "MESH:C000601183,DOID:2022",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body graphBody
	decodeBody(t, w, &body)
	assert.Len(t, body.Nodes, 2)
	require.Len(t, body.Edges, 1)
	assert.Equal(t, "treats", body.Edges[0]["relation_type"])
}

func TestLinkedNodesEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	seedAPIFixture(t, store)

	w := doGet(t, s, "/api/v1/one-step-linked-nodes", map[string]string{
		"query_str": `{"operator": "eq", "field": "target_id", "value": "DOID:2022"}`,
		"page":      "1",
		"page_size": "10",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body graphBody
	decodeBody(t, w, &body)
	assert.Len(t, body.Edges, 2)
	assert.Len(t, body.Nodes, 3)
}

func TestSimilarityNodesEndpoint(t *testing.T) {
	s, store := newTestServer(t)
	seedAPIFixture(t, store)

	w := doGet(t, s, "/api/v1/similarity-nodes", map[string]string{
		"node_id": "MESH:C000601183",
		"topk":    "5",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body graphBody
	decodeBody(t, w, &body)
	assert.Len(t, body.Nodes, 3)
	require.Len(t, body.Edges, 2)
	for _, e := range body.Edges {
		assert.Equal(t, "similar_with", e["relation_type"])
		assert.Equal(t, "MESH:C000601183", e["source_id"])
	}

	w = doGet(t, s, "/api/v1/similarity-nodes", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurationLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	payload := map[string]any{
		"relation_type": "treats",
		"source_name":   "aspirin",
		"source_type":   "Chemical",
		"source_id":     "MESH:D001241",
		"target_name":   "headache",
		"target_type":   "Disease",
		"target_id":     "MESH:D006261",
		"key_sentence":  "Aspirin relieves headache.",
		"curator":       "alice",
		"pmid":          12345,
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/curated-knowledges", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.KnowledgeCuration
	decodeBody(t, w, &created)
	assert.NotZero(t, created.ID)

	// invalid entity id is rejected by validation
	payload["source_id"] = "not a curie"
	raw, err = json.Marshal(payload)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/curated-knowledges", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/curated-knowledges/%d", created.ID), nil)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/curated-knowledges/%d", created.ID), nil)
	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubgraphLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	payload := map[string]any{
		"name":       "il6 neighborhood",
		"payload":    `{"nodes": [], "edges": []}`,
		"owner":      "alice",
		"version":    "v1",
		"db_version": "2026.08",
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subgraphs", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Subgraph
	decodeBody(t, w, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, created.ID, created.Parent)

	w = doGet(t, s, "/api/v1/subgraphs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page pageBody
	decodeBody(t, w, &page)
	assert.Equal(t, uint64(1), page.Total)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/subgraphs/"+created.ID, nil)
	w2 := httptest.NewRecorder()
	s.engine.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusNoContent, w2.Code)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	w := doGet(t, s, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
