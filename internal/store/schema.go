package store

const schemaSQL = `
-- Per-node accuracy results, one row per node and run
CREATE TABLE IF NOT EXISTS checkpoints (
    run_id TEXT NOT NULL,
    node_id TEXT NOT NULL,
    batch INTEGER NOT NULL,
    result JSON NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (run_id, node_id)
);

-- Reference knowledge base entities keyed by normalised name
CREATE TABLE IF NOT EXISTS kb_entities (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    norm TEXT NOT NULL UNIQUE
);

-- Word index for candidate search
CREATE TABLE IF NOT EXISTS kb_words (
    word TEXT NOT NULL,
    entity_id INTEGER NOT NULL REFERENCES kb_entities(id) ON DELETE CASCADE,
    PRIMARY KEY (word, entity_id)
);

-- Gold triples the entities were imported from
CREATE TABLE IF NOT EXISTS kb_triples (
    id INTEGER PRIMARY KEY,
    head TEXT NOT NULL,
    relation TEXT NOT NULL,
    tail TEXT NOT NULL,
    UNIQUE (head, relation, tail)
);
`
