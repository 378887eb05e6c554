package storage

import (
	"context"

	"github.com/biokgraph/biokg/internal/kgerr"
	"github.com/biokgraph/biokg/internal/models"
	"github.com/biokgraph/biokg/internal/query"
)

// DefaultTopK bounds similarity expansion when the caller gives no topk.
const DefaultTopK = 10

// Neighbor is one ranked nearest-neighbor hit.
type Neighbor struct {
	Entity models.Entity `json:"entity"`
	Score  float64       `json:"score"`
}

// SimilaritySource serves precomputed nearest neighbors for an entity,
// ranked by similarity score. How the neighbors were computed is outside
// this interface.
type SimilaritySource interface {
	// Neighbors returns up to topK neighbors of nodeID, best first,
	// optionally filtered on the neighbor entity's columns. An unknown
	// nodeID yields an empty result, not an error.
	Neighbors(ctx context.Context, nodeID string, filter *query.Node, topK uint64) ([]Neighbor, error)
}

// Neighbors implements SimilaritySource on the kg_similarity table.
func (s *Store) Neighbors(ctx context.Context, nodeID string, filter *query.Node, topK uint64) ([]Neighbor, error) {
	if topK == 0 {
		topK = DefaultTopK
	}

	pred, err := s.compiler().Compile(filter, EntityColumns)
	if err != nil {
		return nil, err
	}

	q := `SELECT e.id, e.name, e.label, e.resource, e.description, s.score
	      FROM kg_similarity s
	      JOIN kg_entity e ON e.id = s.neighbor_id
	      WHERE s.entity_id = ? AND (` + pred.Text + `)
	      ORDER BY s.score DESC
	      LIMIT ?`
	args := append([]any{nodeID}, pred.Args...)
	args = append(args, topK)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, kgerr.Queryf("select neighbors of %s: %v", nodeID, err)
	}
	defer rows.Close()

	var neighbors []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.Entity.ID, &n.Entity.Name, &n.Entity.Label,
			&n.Entity.Resource, &n.Entity.Description, &n.Score); err != nil {
			return nil, kgerr.Queryf("scan neighbor: %v", err)
		}
		neighbors = append(neighbors, n)
	}
	return neighbors, rows.Err()
}
