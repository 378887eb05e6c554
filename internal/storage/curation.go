package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/biokgraph/biokg/internal/kgerr"
	"github.com/biokgraph/biokg/internal/models"
	"github.com/biokgraph/biokg/internal/query"
)

var curationSelectColumns = []string{"id", "relation_type", "source_name", "source_type",
	"source_id", "target_name", "target_type", "target_id", "key_sentence",
	"created_at", "curator", "pmid"}

func scanCuration(rows *sql.Rows) (models.KnowledgeCuration, error) {
	var k models.KnowledgeCuration
	err := rows.Scan(&k.ID, &k.RelType, &k.SourceName, &k.SourceType, &k.SourceID,
		&k.TargetName, &k.TargetType, &k.TargetID, &k.KeySentence, &k.CreatedAt,
		&k.Curator, &k.PMID)
	return k, err
}

// Curations returns one page of curated knowledge rows matching the filter.
func (s *Store) Curations(ctx context.Context, filter *query.Node, pg *Pagination, order *OrderSpec) (*RecordPage[models.KnowledgeCuration], error) {
	pred, err := s.compiler().Compile(filter, KnowledgeCurationColumns)
	if err != nil {
		return nil, err
	}
	if order == nil {
		order = &OrderSpec{Column: "id"}
	}
	return FetchRecords(ctx, s.db, TableKnowledgeCuration, curationSelectColumns, KnowledgeCurationColumns, pred, pg, order, scanCuration)
}

// InsertCuration stores a curated relation and returns it with its
// generated id and timestamp.
func (s *Store) InsertCuration(ctx context.Context, k *models.KnowledgeCuration) (*models.KnowledgeCuration, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO kg_knowledge_curation
		 (relation_type, source_name, source_type, source_id, target_name, target_type, target_id, key_sentence, created_at, curator, pmid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'), ?, ?)
		 RETURNING id, relation_type, source_name, source_type, source_id, target_name, target_type, target_id, key_sentence, created_at, curator, pmid`,
		k.RelType, k.SourceName, k.SourceType, k.SourceID,
		k.TargetName, k.TargetType, k.TargetID, k.KeySentence, k.Curator, k.PMID,
	)
	return scanCurationRow(row, "insert curation")
}

// UpdateCuration rewrites an existing curated relation.
func (s *Store) UpdateCuration(ctx context.Context, id int64, k *models.KnowledgeCuration) (*models.KnowledgeCuration, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE kg_knowledge_curation
		 SET relation_type = ?, source_name = ?, source_type = ?, source_id = ?,
		     target_name = ?, target_type = ?, target_id = ?, key_sentence = ?, curator = ?, pmid = ?
		 WHERE id = ?
		 RETURNING id, relation_type, source_name, source_type, source_id, target_name, target_type, target_id, key_sentence, created_at, curator, pmid`,
		k.RelType, k.SourceName, k.SourceType, k.SourceID,
		k.TargetName, k.TargetType, k.TargetID, k.KeySentence, k.Curator, k.PMID,
		id,
	)
	return scanCurationRow(row, fmt.Sprintf("update curation %d", id))
}

// DeleteCuration removes a curated relation by id.
func (s *Store) DeleteCuration(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM kg_knowledge_curation WHERE id = ?`, id)
	if err != nil {
		return kgerr.Queryf("delete curation %d: %v", id, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: curation %d", kgerr.ErrNotFound, id)
	}
	return nil
}

func scanCurationRow(row *sql.Row, op string) (*models.KnowledgeCuration, error) {
	var k models.KnowledgeCuration
	err := row.Scan(&k.ID, &k.RelType, &k.SourceName, &k.SourceType, &k.SourceID,
		&k.TargetName, &k.TargetType, &k.TargetID, &k.KeySentence, &k.CreatedAt,
		&k.Curator, &k.PMID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", kgerr.ErrNotFound, op)
	}
	if err != nil {
		return nil, kgerr.Queryf("%s: %v", op, err)
	}
	return &k, nil
}
