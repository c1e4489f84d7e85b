package store

import "fmt"

// SchemaSQL returns the schema DDL for the interaction table. The HNSW
// index dimension is parameterized so the schema always matches the
// configured embedding model.
func SchemaSQL(dimension int) string {
	return fmt.Sprintf(`
    -- ==========================================================================
    -- INTERACTION TABLE (prompt/response memory)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS interaction SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS prompt ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS response ON interaction TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON interaction TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS concepts ON interaction TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS timestamp ON interaction TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS created ON interaction TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS accessed ON interaction TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS access_count ON interaction TYPE int DEFAULT 0;

    DEFINE INDEX IF NOT EXISTS interaction_timestamp ON interaction FIELDS timestamp;
    DEFINE INDEX IF NOT EXISTS interaction_embedding ON interaction FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
`, dimension)
}
