package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/biokgraph/biokg/internal/kgerr"
	"github.com/biokgraph/biokg/internal/models"
	"github.com/biokgraph/biokg/internal/query"
)

var entitySelectColumns = []string{"id", "name", "label", "resource", "description"}

func scanEntity(rows *sql.Rows) (models.Entity, error) {
	var e models.Entity
	err := rows.Scan(&e.ID, &e.Name, &e.Label, &e.Resource, &e.Description)
	return e, err
}

var relationSelectColumns = []string{"id", "relation_type", "source_id", "source_type",
	"target_id", "target_type", "score", "key_sentence", "resource"}

func scanRelation(rows *sql.Rows) (models.Relation, error) {
	var r models.Relation
	err := rows.Scan(&r.ID, &r.RelType, &r.SourceID, &r.SourceType,
		&r.TargetID, &r.TargetType, &r.Score, &r.KeySentence, &r.Resource)
	return r, err
}

// Entities returns one page of entities matching the filter.
func (s *Store) Entities(ctx context.Context, filter *query.Node, pg *Pagination, order *OrderSpec) (*RecordPage[models.Entity], error) {
	pred, err := s.compiler().Compile(filter, EntityColumns)
	if err != nil {
		return nil, err
	}
	if order == nil {
		order = &OrderSpec{Column: "id"}
	}
	return FetchRecords(ctx, s.db, TableEntity, entitySelectColumns, EntityColumns, pred, pg, order, scanEntity)
}

// EntitiesByIDs batch-loads entities by primary key. Unknown ids are
// silently omitted, so the result may be smaller than the input. An empty
// input returns nil without touching the database.
func (s *Store) EntitiesByIDs(ctx context.Context, ids []string) ([]models.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	q := "SELECT id, name, label, resource, description FROM kg_entity WHERE id IN (" +
		strings.Join(placeholders, ", ") + ")"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, kgerr.Queryf("select entities by ids: %v", err)
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, kgerr.Queryf("scan entity: %v", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// Relations returns one page of relations matching the filter.
func (s *Store) Relations(ctx context.Context, filter *query.Node, pg *Pagination, order *OrderSpec) (*RecordPage[models.Relation], error) {
	pred, err := s.compiler().Compile(filter, RelationColumns)
	if err != nil {
		return nil, err
	}
	if order == nil {
		order = &OrderSpec{Column: "id"}
	}
	return FetchRecords(ctx, s.db, TableRelation, relationSelectColumns, RelationColumns, pred, pg, order, scanRelation)
}

// RelationsAmong returns every relation whose source AND target both
// belong to ids. Fewer than two ids cannot form such an edge, so the
// query is skipped entirely.
func (s *Store) RelationsAmong(ctx context.Context, ids []string) ([]models.Relation, error) {
	if len(ids) < 2 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)*2)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	in := strings.Join(placeholders, ", ")
	for _, id := range ids {
		args = append(args, id)
	}

	q := "SELECT id, relation_type, source_id, source_type, target_id, target_type, score, key_sentence, resource " +
		"FROM kg_relation WHERE source_id IN (" + in + ") AND target_id IN (" + in + ")"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, kgerr.Queryf("select relations among ids: %v", err)
	}
	defer rows.Close()

	var relations []models.Relation
	for rows.Next() {
		r, err := scanRelation(rows)
		if err != nil {
			return nil, kgerr.Queryf("scan relation: %v", err)
		}
		relations = append(relations, r)
	}
	return relations, rows.Err()
}

// EntityMetadata returns the whole kg_entity_metadata table.
func (s *Store) EntityMetadata(ctx context.Context) ([]models.EntityMetadata, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, resource, entity_type, entity_count FROM kg_entity_metadata ORDER BY id")
	if err != nil {
		return nil, kgerr.Queryf("select entity metadata: %v", err)
	}
	defer rows.Close()

	out := []models.EntityMetadata{}
	for rows.Next() {
		var m models.EntityMetadata
		if err := rows.Scan(&m.ID, &m.Resource, &m.EntityType, &m.EntityCount); err != nil {
			return nil, kgerr.Queryf("scan entity metadata: %v", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RelationMetadata returns the whole kg_relation_metadata table.
func (s *Store) RelationMetadata(ctx context.Context) ([]models.RelationMetadata, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, resource, relation_type, relation_count, start_entity_type, end_entity_type FROM kg_relation_metadata ORDER BY id")
	if err != nil {
		return nil, kgerr.Queryf("select relation metadata: %v", err)
	}
	defer rows.Close()

	out := []models.RelationMetadata{}
	for rows.Next() {
		var m models.RelationMetadata
		if err := rows.Scan(&m.ID, &m.Resource, &m.RelType, &m.RelationCount, &m.StartEntityType, &m.EndEntityType); err != nil {
			return nil, kgerr.Queryf("scan relation metadata: %v", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Entity2D returns one page of precomputed 2D projections.
func (s *Store) Entity2D(ctx context.Context, filter *query.Node, pg *Pagination, order *OrderSpec) (*RecordPage[models.Entity2D], error) {
	pred, err := s.compiler().Compile(filter, Entity2DColumns)
	if err != nil {
		return nil, err
	}
	if order == nil {
		order = &OrderSpec{Column: "embedding_id"}
	}
	columns := []string{"embedding_id", "entity_id", "entity_type", "entity_name", "umap_x", "umap_y", "tsne_x", "tsne_y"}
	return FetchRecords(ctx, s.db, TableEntity2D, columns, Entity2DColumns, pred, pg, order,
		func(rows *sql.Rows) (models.Entity2D, error) {
			var e models.Entity2D
			err := rows.Scan(&e.EmbeddingID, &e.EntityID, &e.EntityType, &e.EntityName, &e.UmapX, &e.UmapY, &e.TsneX, &e.TsneY)
			return e, err
		})
}

// Coordinates returns the layout coordinates for the given entity ids
// under the named projection ("umap" or "tsne"). Entities without a
// projection are simply absent from the map.
func (s *Store) Coordinates(ctx context.Context, ids []string, projection string) (map[string][2]float64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var xCol, yCol string
	switch projection {
	case "umap":
		xCol, yCol = "umap_x", "umap_y"
	case "tsne":
		xCol, yCol = "tsne_x", "tsne_y"
	default:
		return nil, kgerr.Malformedf("unknown layout %q (want umap or tsne)", projection)
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	q := "SELECT entity_id, " + xCol + ", " + yCol + " FROM kg_entity2d WHERE entity_id IN (" +
		strings.Join(placeholders, ", ") + ")"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, kgerr.Queryf("select coordinates: %v", err)
	}
	defer rows.Close()

	coords := make(map[string][2]float64)
	for rows.Next() {
		var id string
		var x, y float64
		if err := rows.Scan(&id, &x, &y); err != nil {
			return nil, kgerr.Queryf("scan coordinates: %v", err)
		}
		coords[id] = [2]float64{x, y}
	}
	return coords, rows.Err()
}
