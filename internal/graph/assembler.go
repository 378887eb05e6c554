package graph

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/biokgraph/biokg/internal/models"
	"github.com/biokgraph/biokg/internal/query"
	"github.com/biokgraph/biokg/internal/storage"
)

// SimilarityRelType labels edges produced by similarity expansion.
const SimilarityRelType = "similar_with"

// endpointChunk bounds how many entity ids one fan-out lookup carries.
const endpointChunk = 64

// Source is the relational surface a Builder assembles from.
type Source interface {
	EntitiesByIDs(ctx context.Context, ids []string) ([]models.Entity, error)
	RelationsAmong(ctx context.Context, ids []string) ([]models.Relation, error)
	Relations(ctx context.Context, filter *query.Node, pg *storage.Pagination, order *storage.OrderSpec) (*storage.RecordPage[models.Relation], error)
	Neighbors(ctx context.Context, nodeID string, filter *query.Node, topK uint64) ([]storage.Neighbor, error)
	Coordinates(ctx context.Context, ids []string, projection string) (map[string][2]float64, error)
}

// Builder assembles one graph per request. It is safe for the fan-out
// goroutines it spawns internally, but a Builder is not meant to be
// shared across requests.
type Builder struct {
	src   Source
	store *store
}

// NewBuilder returns an empty Builder reading from src.
func NewBuilder(src Source) *Builder {
	return &Builder{src: src, store: newStore()}
}

// FetchNodesByIDs loads the given entities as nodes. Unknown ids are
// skipped; an empty id list merges nothing and runs no query.
func (b *Builder) FetchNodesByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	entities, err := b.src.EntitiesByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetch nodes: %w", err)
	}
	return b.store.mergeNodes(nodesFromEntities(entities))
}

// AutoConnectNodes loads the given entities and every relation whose
// source AND target are both in ids. Fewer than two ids yields no edges.
func (b *Builder) AutoConnectNodes(ctx context.Context, ids []string) error {
	if err := b.FetchNodesByIDs(ctx, ids); err != nil {
		return err
	}
	relations, err := b.src.RelationsAmong(ctx, ids)
	if err != nil {
		return fmt.Errorf("auto connect: %w", err)
	}
	return b.store.mergeEdges(edgesFromRelations(relations))
}

// FetchLinkedNodes pages through relations matching the filter and pulls
// in both endpoints of every relation on the page. Pagination bounds the
// RELATION count; the node count can be up to twice that. Endpoint
// lookups fan out in id chunks, with merges serialized by the store.
func (b *Builder) FetchLinkedNodes(ctx context.Context, filter *query.Node, pg *storage.Pagination) error {
	page, err := b.src.Relations(ctx, filter, pg, nil)
	if err != nil {
		return fmt.Errorf("fetch linked nodes: %w", err)
	}

	seen := make(map[string]struct{}, len(page.Records)*2)
	var ids []string
	for _, r := range page.Records {
		for _, id := range []string{r.SourceID, r.TargetID} {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(ids); start += endpointChunk {
		chunk := ids[start:min(start+endpointChunk, len(ids))]
		g.Go(func() error {
			entities, err := b.src.EntitiesByIDs(gctx, chunk)
			if err != nil {
				return err
			}
			return b.store.mergeNodes(nodesFromEntities(entities))
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetch linked nodes: %w", err)
	}

	return b.store.mergeEdges(edgesFromRelations(page.Records))
}

// FetchSimilarityNodes merges the origin entity plus up to topK of its
// precomputed nearest neighbors, one weighted edge per neighbor. A
// nodeID with no neighbors yields an origin-only graph, not an error.
func (b *Builder) FetchSimilarityNodes(ctx context.Context, nodeID string, filter *query.Node, topK uint64) error {
	if err := b.FetchNodesByIDs(ctx, []string{nodeID}); err != nil {
		return err
	}

	neighbors, err := b.src.Neighbors(ctx, nodeID, filter, topK)
	if err != nil {
		return fmt.Errorf("fetch similarity nodes: %w", err)
	}

	nodes := make([]Node, 0, len(neighbors))
	edges := make([]Edge, 0, len(neighbors))
	for _, n := range neighbors {
		nodes = append(nodes, NodeFromEntity(n.Entity))
		edges = append(edges, Edge{
			SourceID: nodeID,
			TargetID: n.Entity.ID,
			RelType:  SimilarityRelType,
			Score:    n.Score,
		})
	}
	if err := b.store.mergeNodes(nodes); err != nil {
		return err
	}
	return b.store.mergeEdges(edges)
}

// Graph returns the current contents without finalizing, for callers
// that compose several assembly steps.
func (b *Builder) Graph() Graph {
	return b.store.snapshot()
}

// Finalize seals the builder and returns the assembled graph. A non-nil
// layout ("umap" or "tsne") first joins 2D coordinates onto the nodes;
// nodes without a projection keep nil coordinates.
func (b *Builder) Finalize(ctx context.Context, layout *string) (Graph, error) {
	if layout != nil {
		coords, err := b.src.Coordinates(ctx, b.store.nodeIDs(), *layout)
		if err != nil {
			return Graph{}, fmt.Errorf("apply layout: %w", err)
		}
		b.store.setCoordinates(coords)
	}
	return b.store.finalize(), nil
}

func nodesFromEntities(entities []models.Entity) []Node {
	nodes := make([]Node, 0, len(entities))
	for _, e := range entities {
		nodes = append(nodes, NodeFromEntity(e))
	}
	return nodes
}

func edgesFromRelations(relations []models.Relation) []Edge {
	edges := make([]Edge, 0, len(relations))
	for _, r := range relations {
		edges = append(edges, EdgeFromRelation(r))
	}
	return edges
}
