package storage

// Table names are fixed by the schema; only these ever reach SQL text.
const (
	TableEntity            = "kg_entity"
	TableRelation          = "kg_relation"
	TableEntityMetadata    = "kg_entity_metadata"
	TableRelationMetadata  = "kg_relation_metadata"
	TableKnowledgeCuration = "kg_knowledge_curation"
	TableSubgraph          = "kg_subgraph"
	TableEntity2D          = "kg_entity2d"
	TableSimilarity        = "kg_similarity"
)

// Column whitelists. Filter fields and order-by columns are validated
// against these sets before any SQL is assembled; everything else is
// rejected as an unknown field.
var (
	EntityColumns = columnSet("id", "name", "label", "resource", "description")

	RelationColumns = columnSet("id", "relation_type", "source_id", "source_type",
		"target_id", "target_type", "score", "key_sentence", "resource")

	EntityMetadataColumns = columnSet("id", "resource", "entity_type", "entity_count")

	RelationMetadataColumns = columnSet("id", "resource", "relation_type",
		"relation_count", "start_entity_type", "end_entity_type")

	KnowledgeCurationColumns = columnSet("id", "relation_type", "source_name",
		"source_type", "source_id", "target_name", "target_type", "target_id",
		"key_sentence", "created_at", "curator", "pmid")

	SubgraphColumns = columnSet("id", "name", "description", "payload",
		"created_time", "owner", "version", "db_version", "parent")

	Entity2DColumns = columnSet("embedding_id", "entity_id", "entity_type",
		"entity_name", "umap_x", "umap_y", "tsne_x", "tsne_y")

	SimilarityColumns = columnSet("entity_id", "neighbor_id", "score")
)

func columnSet(cols ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	return set
}
