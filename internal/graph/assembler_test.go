package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/biokgraph/biokg/internal/kgerr"
	"github.com/biokgraph/biokg/internal/query"
	"github.com/biokgraph/biokg/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "kg.db"), 5, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedGraphFixture(t *testing.T, s *storage.Store) {
	t.Helper()
	db := s.DB()

	entities := [][]any{
		{"DOID:2022", "gingival hypertrophy", "Disease", "DOID", ""},
		{"MESH:C000601183", "compound x", "Chemical", "MESH", ""},
		{"MESH:C000700", "compound y", "Chemical", "MESH", ""},
		{"ENTREZ:3569", "IL6", "Gene", "ENTREZ", "interleukin 6"},
		{"ENTREZ:7124", "TNF", "Gene", "ENTREZ", ""},
	}
	for _, e := range entities {
		_, err := db.Exec(
			"INSERT INTO kg_entity (id, name, label, resource, description) VALUES (?, ?, ?, ?, ?)", e...)
		require.NoError(t, err)
	}

	relations := [][]any{
		{"treats", "MESH:C000601183", "Chemical", "DOID:2022", "Disease", 0.9, "", "DRKG"},
		{"upregulates", "MESH:C000601183", "Chemical", "ENTREZ:3569", "Gene", 0.4, "", "DRKG"},
		{"associated_with", "ENTREZ:3569", "Gene", "DOID:2022", "Disease", 0.7, "", "GNBR"},
		{"interacts_with", "ENTREZ:3569", "Gene", "ENTREZ:7124", "Gene", 0.2, "", "STRING"},
	}
	for _, r := range relations {
		_, err := db.Exec(
			`INSERT INTO kg_relation (relation_type, source_id, source_type, target_id, target_type, score, key_sentence, resource)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, r...)
		require.NoError(t, err)
	}

	neighbors := [][]any{
		{"MESH:C000601183", "MESH:C000700", 0.97},
		{"MESH:C000601183", "ENTREZ:3569", 0.61},
		{"MESH:C000601183", "DOID:2022", 0.42},
	}
	for _, n := range neighbors {
		_, err := db.Exec(
			"INSERT INTO kg_similarity (entity_id, neighbor_id, score) VALUES (?, ?, ?)", n...)
		require.NoError(t, err)
	}

	coords := [][]any{
		{1, "DOID:2022", "Disease", "gingival hypertrophy", 0.1, 0.2, 5.0, 6.0},
		{2, "ENTREZ:3569", "Gene", "IL6", -1.0, 3.5, 7.0, 8.0},
	}
	for _, c := range coords {
		_, err := db.Exec(
			`INSERT INTO kg_entity2d (embedding_id, entity_id, entity_type, entity_name, umap_x, umap_y, tsne_x, tsne_y)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, c...)
		require.NoError(t, err)
	}
}

func TestFetchNodesByIDs(t *testing.T) {
	s := newTestStore(t)
	seedGraphFixture(t, s)
	ctx := context.Background()

	b := NewBuilder(s)
	require.NoError(t, b.FetchNodesByIDs(ctx, []string{"DOID:2022", "ENTREZ:3569", "DOID:9999"}))

	g, err := b.Finalize(ctx, nil)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2) // unknown id silently dropped
	assert.Empty(t, g.Edges)
}

func TestFetchNodesByIDsEmptyInput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := NewBuilder(s)
	require.NoError(t, b.FetchNodesByIDs(ctx, nil))

	g, err := b.Finalize(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestFetchNodesByIDsIdempotent(t *testing.T) {
	s := newTestStore(t)
	seedGraphFixture(t, s)
	ctx := context.Background()

	b := NewBuilder(s)
	require.NoError(t, b.FetchNodesByIDs(ctx, []string{"DOID:2022", "ENTREZ:3569"}))
	require.NoError(t, b.FetchNodesByIDs(ctx, []string{"DOID:2022", "ENTREZ:3569"}))

	assert.Len(t, b.Graph().Nodes, 2)
}

func TestAutoConnectNodes(t *testing.T) {
	s := newTestStore(t)
	seedGraphFixture(t, s)
	ctx := context.Background()

	b := NewBuilder(s)
	ids := []string{"MESH:C000601183", "DOID:2022", "ENTREZ:3569"}
	require.NoError(t, b.AutoConnectNodes(ctx, ids))

	g := b.Graph()
	assert.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 3) // the IL6-TNF edge leaves the id set

	member := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		member[id] = struct{}{}
	}
	for _, e := range g.Edges {
		_, srcOK := member[e.SourceID]
		_, tgtOK := member[e.TargetID]
		assert.True(t, srcOK, "edge source %s outside id set", e.SourceID)
		assert.True(t, tgtOK, "edge target %s outside id set", e.TargetID)
	}
}

func TestAutoConnectNodesSingleID(t *testing.T) {
	s := newTestStore(t)
	seedGraphFixture(t, s)
	ctx := context.Background()

	b := NewBuilder(s)
	require.NoError(t, b.AutoConnectNodes(ctx, []string{"DOID:2022"}))

	g := b.Graph()
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestFetchLinkedNodes(t *testing.T) {
	s := newTestStore(t)
	seedGraphFixture(t, s)
	ctx := context.Background()

	filter, err := query.Parse(`{"operator": "eq", "field": "source_id", "value": "MESH:C000601183"}`)
	require.NoError(t, err)

	b := NewBuilder(s)
	require.NoError(t, b.FetchLinkedNodes(ctx, filter, &storage.Pagination{Page: 1, PageSize: 10}))

	g := b.Graph()
	assert.Len(t, g.Edges, 2)
	assert.Len(t, g.Nodes, 3) // origin chemical plus both endpoints

	nodeIDs := make(map[string]struct{})
	for _, n := range g.Nodes {
		nodeIDs[n.ID] = struct{}{}
	}
	for _, e := range g.Edges {
		_, srcOK := nodeIDs[e.SourceID]
		_, tgtOK := nodeIDs[e.TargetID]
		assert.True(t, srcOK && tgtOK, "edge %s->%s missing an endpoint node", e.SourceID, e.TargetID)
	}
}

func TestFetchLinkedNodesPageBoundsRelations(t *testing.T) {
	s := newTestStore(t)
	seedGraphFixture(t, s)
	ctx := context.Background()

	b := NewBuilder(s)
	require.NoError(t, b.FetchLinkedNodes(ctx, nil, &storage.Pagination{Page: 1, PageSize: 2}))

	g := b.Graph()
	assert.Len(t, g.Edges, 2)
	// node count may exceed the page size; only the relation count is bounded
	assert.GreaterOrEqual(t, len(g.Nodes), len(g.Edges))
}

func TestFetchSimilarityNodes(t *testing.T) {
	s := newTestStore(t)
	seedGraphFixture(t, s)
	ctx := context.Background()

	b := NewBuilder(s)
	require.NoError(t, b.FetchSimilarityNodes(ctx, "MESH:C000601183", nil, 2))

	g := b.Graph()
	require.Len(t, g.Nodes, 3) // origin + top 2
	assert.Equal(t, "MESH:C000601183", g.Nodes[0].ID)

	require.Len(t, g.Edges, 2)
	assert.Equal(t, "MESH:C000700", g.Edges[0].TargetID) // best score first
	assert.Equal(t, 0.97, g.Edges[0].Score)
	for _, e := range g.Edges {
		assert.Equal(t, SimilarityRelType, e.RelType)
		assert.Equal(t, "MESH:C000601183", e.SourceID)
	}
}

func TestFetchSimilarityNodesFiltered(t *testing.T) {
	s := newTestStore(t)
	seedGraphFixture(t, s)
	ctx := context.Background()

	filter, err := query.Parse(`{"operator": "eq", "field": "label", "value": "Gene"}`)
	require.NoError(t, err)

	b := NewBuilder(s)
	require.NoError(t, b.FetchSimilarityNodes(ctx, "MESH:C000601183", filter, 10))

	g := b.Graph()
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "ENTREZ:3569", g.Edges[0].TargetID)
}

func TestFetchSimilarityNodesUnknownOrigin(t *testing.T) {
	s := newTestStore(t)
	seedGraphFixture(t, s)
	ctx := context.Background()

	b := NewBuilder(s)
	require.NoError(t, b.FetchSimilarityNodes(ctx, "DOID:2022", nil, 5))

	g := b.Graph()
	assert.Len(t, g.Nodes, 1) // no precomputed neighbors: origin only
	assert.Empty(t, g.Edges)
}

func TestFinalizeWithLayout(t *testing.T) {
	s := newTestStore(t)
	seedGraphFixture(t, s)
	ctx := context.Background()

	b := NewBuilder(s)
	require.NoError(t, b.FetchNodesByIDs(ctx, []string{"DOID:2022", "MESH:C000601183"}))

	layout := "umap"
	g, err := b.Finalize(ctx, &layout)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 2)
	require.NotNil(t, g.Nodes[0].X)
	assert.Equal(t, 0.1, *g.Nodes[0].X)
	assert.Equal(t, 0.2, *g.Nodes[0].Y)
	assert.Nil(t, g.Nodes[1].X) // no 2D row for the chemical

	// the builder is sealed now
	assert.ErrorIs(t, b.FetchNodesByIDs(ctx, []string{"ENTREZ:3569"}), kgerr.ErrFinalized)
}

func TestFinalizeRejectsUnknownLayout(t *testing.T) {
	s := newTestStore(t)
	seedGraphFixture(t, s)
	ctx := context.Background()

	b := NewBuilder(s)
	require.NoError(t, b.FetchNodesByIDs(ctx, []string{"DOID:2022"}))

	layout := "pca"
	_, err := b.Finalize(ctx, &layout)
	assert.Error(t, err)
}
