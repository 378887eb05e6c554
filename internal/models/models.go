package models

// Entity represents a row in the kg_entity table: one biomedical concept
// such as a disease, gene, chemical or symptom.
type Entity struct {
	ID          string `json:"id" validate:"required,max=64,entity_id"`
	Name        string `json:"name" validate:"required,max=255"`
	Label       string `json:"label" validate:"required,max=64,entity_label"`
	Resource    string `json:"resource" validate:"required,max=64"`
	Description string `json:"description,omitempty"`
}

// Relation represents a row in the kg_relation table: a directed typed
// edge between two entities.
type Relation struct {
	ID          int64   `json:"id"`
	RelType     string  `json:"relation_type" validate:"required,max=64"`
	SourceID    string  `json:"source_id" validate:"required,max=64,entity_id"`
	SourceType  string  `json:"source_type" validate:"required,max=64,entity_label"`
	TargetID    string  `json:"target_id" validate:"required,max=64,entity_id"`
	TargetType  string  `json:"target_type" validate:"required,max=64,entity_label"`
	Score       float64 `json:"score"`
	KeySentence string  `json:"key_sentence,omitempty"`
	Resource    string  `json:"resource" validate:"required,max=64"`
}

// EntityMetadata summarizes how many entities each resource contributed
// per entity type.
type EntityMetadata struct {
	ID          int64  `json:"id"`
	Resource    string `json:"resource" validate:"required,max=64"`
	EntityType  string `json:"entity_type" validate:"required,max=64,entity_label"`
	EntityCount int64  `json:"entity_count"`
}

// RelationMetadata summarizes how many relations each resource contributed
// per relation type and endpoint-type pair.
type RelationMetadata struct {
	ID              int64  `json:"id"`
	Resource        string `json:"resource" validate:"required,max=64"`
	RelType         string `json:"relation_type" validate:"required,max=64"`
	RelationCount   int64  `json:"relation_count"`
	StartEntityType string `json:"start_entity_type" validate:"required,max=64,entity_label"`
	EndEntityType   string `json:"end_entity_type" validate:"required,max=64,entity_label"`
}

// KnowledgeCuration is a manually curated relation, attributed to a
// curator and a PubMed article.
type KnowledgeCuration struct {
	ID          int64  `json:"id"`
	RelType     string `json:"relation_type" validate:"required,max=64"`
	SourceName  string `json:"source_name" validate:"required,max=255"`
	SourceType  string `json:"source_type" validate:"required,max=64,entity_label"`
	SourceID    string `json:"source_id" validate:"required,max=64,entity_id"`
	TargetName  string `json:"target_name" validate:"required,max=255"`
	TargetType  string `json:"target_type" validate:"required,max=64,entity_label"`
	TargetID    string `json:"target_id" validate:"required,max=64,entity_id"`
	KeySentence string `json:"key_sentence" validate:"required"`
	CreatedAt   string `json:"created_at"`
	Curator     string `json:"curator" validate:"required,max=64"`
	PMID        int64  `json:"pmid" validate:"required"`
}

// Subgraph is a named, user-owned snapshot of a graph selection. Payload is
// the serialized {"nodes": [...], "edges": [...]} document.
type Subgraph struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required,max=64"`
	Description string `json:"description,omitempty"`
	Payload     string `json:"payload" validate:"required"`
	CreatedTime string `json:"created_time"`
	Owner       string `json:"owner" validate:"required,max=36"`
	Version     string `json:"version" validate:"required,max=36"`
	DBVersion   string `json:"db_version" validate:"required,max=36"`
	Parent      string `json:"parent,omitempty" validate:"omitempty,uuid4"`
}

// Entity2D carries precomputed 2D projection coordinates for an entity,
// used for optional layout enrichment of assembled graphs.
type Entity2D struct {
	EmbeddingID int64   `json:"embedding_id"`
	EntityID    string  `json:"entity_id" validate:"required,max=64,entity_id"`
	EntityType  string  `json:"entity_type" validate:"required,max=64,entity_label"`
	EntityName  string  `json:"entity_name" validate:"required,max=255"`
	UmapX       float64 `json:"umap_x"`
	UmapY       float64 `json:"umap_y"`
	TsneX       float64 `json:"tsne_x"`
	TsneY       float64 `json:"tsne_y"`
}

// SimilarityRecord is a row of the precomputed nearest-neighbor table.
type SimilarityRecord struct {
	EntityID   string  `json:"entity_id" validate:"required,max=64,entity_id"`
	NeighborID string  `json:"neighbor_id" validate:"required,max=64,entity_id"`
	Score      float64 `json:"score" validate:"gte=0,lte=1"`
}
