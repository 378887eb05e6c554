// Package importer loads knowledge graph tables from CSV files. Columns
// are matched by header name, rows are validated before insert, and each
// file is written in batched transactions with bound parameters.
package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/biokgraph/biokg/internal/models"
	"github.com/biokgraph/biokg/internal/storage"
)

// batchSize bounds how many rows one transaction inserts.
const batchSize = 500

// Importer writes CSV rows into the knowledge graph tables.
type Importer struct {
	db       *sql.DB
	validate *models.Validator
	log      *zap.Logger
}

// New returns an Importer writing through db.
func New(db *sql.DB, validate *models.Validator, log *zap.Logger) *Importer {
	return &Importer{db: db, validate: validate, log: log}
}

// row gives a table spec access to one CSV record by header name.
type row struct {
	header map[string]int
	record []string
}

func (r row) get(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return r.record[i]
}

func (r row) getFloat(col string) (float64, error) {
	raw := r.get(col)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not a number", col, raw)
	}
	return v, nil
}

func (r row) getInt(col string) (int64, error) {
	raw := r.get(col)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not an integer", col, raw)
	}
	return v, nil
}

// tableSpec binds one importable table to its required headers, its
// INSERT statement and a row converter that validates and produces the
// bound arguments.
type tableSpec struct {
	table    string
	required []string
	insert   string
	convert  func(im *Importer, r row) ([]any, error)
}

var tableSpecs = map[string]tableSpec{
	"entity": {
		table:    storage.TableEntity,
		required: []string{"id", "name", "label", "resource"},
		insert:   "INSERT INTO kg_entity (id, name, label, resource, description) VALUES (?, ?, ?, ?, ?)",
		convert: func(im *Importer, r row) ([]any, error) {
			e := models.Entity{
				ID:          r.get("id"),
				Name:        r.get("name"),
				Label:       r.get("label"),
				Resource:    r.get("resource"),
				Description: r.get("description"),
			}
			if err := im.validate.Struct(&e); err != nil {
				return nil, err
			}
			return []any{e.ID, e.Name, e.Label, e.Resource, e.Description}, nil
		},
	},
	"relation": {
		table:    storage.TableRelation,
		required: []string{"relation_type", "source_id", "source_type", "target_id", "target_type", "resource"},
		insert: "INSERT INTO kg_relation (relation_type, source_id, source_type, target_id, target_type, score, key_sentence, resource) " +
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		convert: func(im *Importer, r row) ([]any, error) {
			score, err := r.getFloat("score")
			if err != nil {
				return nil, err
			}
			rel := models.Relation{
				RelType:     r.get("relation_type"),
				SourceID:    r.get("source_id"),
				SourceType:  r.get("source_type"),
				TargetID:    r.get("target_id"),
				TargetType:  r.get("target_type"),
				Score:       score,
				KeySentence: r.get("key_sentence"),
				Resource:    r.get("resource"),
			}
			if err := im.validate.Struct(&rel); err != nil {
				return nil, err
			}
			return []any{rel.RelType, rel.SourceID, rel.SourceType, rel.TargetID, rel.TargetType,
				rel.Score, rel.KeySentence, rel.Resource}, nil
		},
	},
	"entity_metadata": {
		table:    storage.TableEntityMetadata,
		required: []string{"resource", "entity_type", "entity_count"},
		insert:   "INSERT INTO kg_entity_metadata (resource, entity_type, entity_count) VALUES (?, ?, ?)",
		convert: func(im *Importer, r row) ([]any, error) {
			count, err := r.getInt("entity_count")
			if err != nil {
				return nil, err
			}
			m := models.EntityMetadata{
				Resource:    r.get("resource"),
				EntityType:  r.get("entity_type"),
				EntityCount: count,
			}
			if err := im.validate.Struct(&m); err != nil {
				return nil, err
			}
			return []any{m.Resource, m.EntityType, m.EntityCount}, nil
		},
	},
	"relation_metadata": {
		table:    storage.TableRelationMetadata,
		required: []string{"resource", "relation_type", "relation_count", "start_entity_type", "end_entity_type"},
		insert: "INSERT INTO kg_relation_metadata (resource, relation_type, relation_count, start_entity_type, end_entity_type) " +
			"VALUES (?, ?, ?, ?, ?)",
		convert: func(im *Importer, r row) ([]any, error) {
			count, err := r.getInt("relation_count")
			if err != nil {
				return nil, err
			}
			m := models.RelationMetadata{
				Resource:        r.get("resource"),
				RelType:         r.get("relation_type"),
				RelationCount:   count,
				StartEntityType: r.get("start_entity_type"),
				EndEntityType:   r.get("end_entity_type"),
			}
			if err := im.validate.Struct(&m); err != nil {
				return nil, err
			}
			return []any{m.Resource, m.RelType, m.RelationCount, m.StartEntityType, m.EndEntityType}, nil
		},
	},
	"entity2d": {
		table:    storage.TableEntity2D,
		required: []string{"embedding_id", "entity_id", "entity_type", "entity_name", "umap_x", "umap_y", "tsne_x", "tsne_y"},
		insert: "INSERT INTO kg_entity2d (embedding_id, entity_id, entity_type, entity_name, umap_x, umap_y, tsne_x, tsne_y) " +
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		convert: func(im *Importer, r row) ([]any, error) {
			id, err := r.getInt("embedding_id")
			if err != nil {
				return nil, err
			}
			coords := make([]float64, 4)
			for i, col := range []string{"umap_x", "umap_y", "tsne_x", "tsne_y"} {
				if coords[i], err = r.getFloat(col); err != nil {
					return nil, err
				}
			}
			e := models.Entity2D{
				EmbeddingID: id,
				EntityID:    r.get("entity_id"),
				EntityType:  r.get("entity_type"),
				EntityName:  r.get("entity_name"),
				UmapX:       coords[0],
				UmapY:       coords[1],
				TsneX:       coords[2],
				TsneY:       coords[3],
			}
			if err := im.validate.Struct(&e); err != nil {
				return nil, err
			}
			return []any{e.EmbeddingID, e.EntityID, e.EntityType, e.EntityName,
				e.UmapX, e.UmapY, e.TsneX, e.TsneY}, nil
		},
	},
	"similarity": {
		table:    storage.TableSimilarity,
		required: []string{"entity_id", "neighbor_id", "score"},
		insert:   "INSERT INTO kg_similarity (entity_id, neighbor_id, score) VALUES (?, ?, ?)",
		convert: func(im *Importer, r row) ([]any, error) {
			score, err := r.getFloat("score")
			if err != nil {
				return nil, err
			}
			rec := models.SimilarityRecord{
				EntityID:   r.get("entity_id"),
				NeighborID: r.get("neighbor_id"),
				Score:      score,
			}
			if err := im.validate.Struct(&rec); err != nil {
				return nil, err
			}
			return []any{rec.EntityID, rec.NeighborID, rec.Score}, nil
		},
	},
}

// Tables lists the importable table names.
func Tables() []string {
	return []string{"entity", "relation", "entity_metadata", "relation_metadata", "entity2d", "similarity"}
}

// Import reads CSV rows from r into the named table and returns the
// number of rows inserted. With drop set the table is emptied first.
// Any invalid row aborts the import; completed batches stay committed.
func (im *Importer) Import(ctx context.Context, table string, r io.Reader, drop bool) (int, error) {
	spec, ok := tableSpecs[table]
	if !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headerRecord, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(headerRecord))
	for i, col := range headerRecord {
		header[col] = i
	}
	for _, col := range spec.required {
		if _, ok := header[col]; !ok {
			return 0, fmt.Errorf("missing required column %q", col)
		}
	}

	if drop {
		if _, err := im.db.ExecContext(ctx, "DELETE FROM "+spec.table); err != nil {
			return 0, fmt.Errorf("empty %s: %w", spec.table, err)
		}
		im.log.Info("emptied table before import", zap.String("table", spec.table))
	}

	total := 0
	line := 1
	for {
		batch := make([][]any, 0, batchSize)
		for len(batch) < batchSize {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return total, fmt.Errorf("read csv: %w", err)
			}
			line++
			args, err := spec.convert(im, row{header: header, record: record})
			if err != nil {
				return total, fmt.Errorf("line %d: %w", line, err)
			}
			batch = append(batch, args)
		}
		if len(batch) == 0 {
			break
		}

		if err := im.insertBatch(ctx, spec.insert, batch); err != nil {
			return total, err
		}
		total += len(batch)
		im.log.Debug("imported batch", zap.String("table", spec.table), zap.Int("rows", total))
	}

	im.log.Info("import finished", zap.String("table", spec.table), zap.Int("rows", total))
	return total, nil
}

func (im *Importer) insertBatch(ctx context.Context, insert string, batch [][]any) error {
	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, args := range batch {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}
	return tx.Commit()
}
