package storage

// Schema is the SQL schema for the knowledge graph database.
const Schema = `
CREATE TABLE IF NOT EXISTS kg_entity (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    label       TEXT NOT NULL,
    resource    TEXT NOT NULL,
    description TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS kg_relation (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    relation_type TEXT NOT NULL,
    source_id     TEXT NOT NULL,
    source_type   TEXT NOT NULL,
    target_id     TEXT NOT NULL,
    target_type   TEXT NOT NULL,
    score         REAL DEFAULT 0,
    key_sentence  TEXT DEFAULT '',
    resource      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS kg_entity_metadata (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    resource     TEXT NOT NULL,
    entity_type  TEXT NOT NULL,
    entity_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS kg_relation_metadata (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    resource          TEXT NOT NULL,
    relation_type     TEXT NOT NULL,
    relation_count    INTEGER NOT NULL,
    start_entity_type TEXT NOT NULL,
    end_entity_type   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS kg_knowledge_curation (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    relation_type TEXT NOT NULL,
    source_name   TEXT NOT NULL,
    source_type   TEXT NOT NULL,
    source_id     TEXT NOT NULL,
    target_name   TEXT NOT NULL,
    target_type   TEXT NOT NULL,
    target_id     TEXT NOT NULL,
    key_sentence  TEXT NOT NULL,
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    curator       TEXT NOT NULL,
    pmid          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS kg_subgraph (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    description  TEXT DEFAULT '',
    payload      TEXT NOT NULL,
    created_time TEXT NOT NULL DEFAULT (datetime('now')),
    owner        TEXT NOT NULL,
    version      TEXT NOT NULL,
    db_version   TEXT NOT NULL,
    parent       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS kg_entity2d (
    embedding_id INTEGER PRIMARY KEY,
    entity_id    TEXT NOT NULL,
    entity_type  TEXT NOT NULL,
    entity_name  TEXT NOT NULL,
    umap_x       REAL NOT NULL,
    umap_y       REAL NOT NULL,
    tsne_x       REAL NOT NULL,
    tsne_y       REAL NOT NULL
);

-- Precomputed nearest neighbors, ranked by similarity score. Populated by
-- the import CLI from an offline embedding pipeline.
CREATE TABLE IF NOT EXISTS kg_similarity (
    entity_id   TEXT NOT NULL,
    neighbor_id TEXT NOT NULL,
    score       REAL NOT NULL,
    PRIMARY KEY (entity_id, neighbor_id)
);

CREATE INDEX IF NOT EXISTS idx_entity_label ON kg_entity(label);
CREATE INDEX IF NOT EXISTS idx_entity_resource ON kg_entity(resource);
CREATE INDEX IF NOT EXISTS idx_relation_source ON kg_relation(source_id);
CREATE INDEX IF NOT EXISTS idx_relation_target ON kg_relation(target_id);
CREATE INDEX IF NOT EXISTS idx_relation_type ON kg_relation(relation_type);
CREATE INDEX IF NOT EXISTS idx_curation_curator ON kg_knowledge_curation(curator);
CREATE INDEX IF NOT EXISTS idx_subgraph_owner ON kg_subgraph(owner);
CREATE INDEX IF NOT EXISTS idx_entity2d_entity ON kg_entity2d(entity_id);
CREATE INDEX IF NOT EXISTS idx_similarity_score ON kg_similarity(entity_id, score DESC);
`
