package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/biokgraph/biokg/internal/kgerr"
	"github.com/biokgraph/biokg/internal/models"
	"github.com/biokgraph/biokg/internal/query"
)

var subgraphSelectColumns = []string{"id", "name", "description", "payload",
	"created_time", "owner", "version", "db_version", "parent"}

func scanSubgraph(rows *sql.Rows) (models.Subgraph, error) {
	var g models.Subgraph
	err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.Payload, &g.CreatedTime,
		&g.Owner, &g.Version, &g.DBVersion, &g.Parent)
	return g, err
}

// Subgraphs returns one page of saved subgraphs matching the filter,
// newest first by default.
func (s *Store) Subgraphs(ctx context.Context, filter *query.Node, pg *Pagination, order *OrderSpec) (*RecordPage[models.Subgraph], error) {
	pred, err := s.compiler().Compile(filter, SubgraphColumns)
	if err != nil {
		return nil, err
	}
	if order == nil {
		order = &OrderSpec{Column: "created_time", Descending: true}
	}
	return FetchRecords(ctx, s.db, TableSubgraph, subgraphSelectColumns, SubgraphColumns, pred, pg, order, scanSubgraph)
}

// InsertSubgraph stores a subgraph under a fresh uuid. A root subgraph
// (no parent given) becomes its own parent.
func (s *Store) InsertSubgraph(ctx context.Context, g *models.Subgraph) (*models.Subgraph, error) {
	id := uuid.New().String()
	parent := g.Parent
	if parent == "" {
		parent = id
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO kg_subgraph (id, name, description, payload, created_time, owner, version, db_version, parent)
		 VALUES (?, ?, ?, ?, datetime('now'), ?, ?, ?, ?)
		 RETURNING id, name, description, payload, created_time, owner, version, db_version, parent`,
		id, g.Name, g.Description, g.Payload, g.Owner, g.Version, g.DBVersion, parent,
	)
	return scanSubgraphRow(row, "insert subgraph")
}

// UpdateSubgraph rewrites a subgraph's name, description and payload.
func (s *Store) UpdateSubgraph(ctx context.Context, id string, g *models.Subgraph) (*models.Subgraph, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE kg_subgraph SET name = ?, description = ?, payload = ? WHERE id = ?
		 RETURNING id, name, description, payload, created_time, owner, version, db_version, parent`,
		g.Name, g.Description, g.Payload, id,
	)
	return scanSubgraphRow(row, fmt.Sprintf("update subgraph %s", id))
}

// DeleteSubgraph removes a saved subgraph by id.
func (s *Store) DeleteSubgraph(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM kg_subgraph WHERE id = ?`, id)
	if err != nil {
		return kgerr.Queryf("delete subgraph %s: %v", id, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: subgraph %s", kgerr.ErrNotFound, id)
	}
	return nil
}

func scanSubgraphRow(row *sql.Row, op string) (*models.Subgraph, error) {
	var g models.Subgraph
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.Payload, &g.CreatedTime,
		&g.Owner, &g.Version, &g.DBVersion, &g.Parent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", kgerr.ErrNotFound, op)
	}
	if err != nil {
		return nil, kgerr.Queryf("%s: %v", op, err)
	}
	return &g, nil
}
