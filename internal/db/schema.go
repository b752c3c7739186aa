package db

import "fmt"

// schemaTemplate is the database schema, parameterized by the embedding
// dimension of the HNSW vector indexes. The dimension is fixed per
// deployment; changing it requires rebuilding the indexes.
const schemaTemplate = `
    -- ==========================================================================
    -- USER TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS user SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS display_name ON user TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS preferences ON user TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON user TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS last_interaction ON user TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- STM TABLE (short-term memory: session-scoped conversational turns)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS stm SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user ON stm TYPE string;
    DEFINE FIELD IF NOT EXISTS session ON stm TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON stm TYPE string;
    DEFINE FIELD IF NOT EXISTS role ON stm TYPE string ASSERT $value IN ["user", "assistant", "system"];
    DEFINE FIELD IF NOT EXISTS embedding ON stm TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS turn_number ON stm TYPE int;
    DEFINE FIELD IF NOT EXISTS created ON stm TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS expires ON stm TYPE option<datetime>;

    DEFINE INDEX IF NOT EXISTS stm_user_session ON stm FIELDS user, session;
    DEFINE INDEX IF NOT EXISTS stm_expires ON stm FIELDS expires;
    -- Unique backstop for race-safe turn number assignment: two concurrent
    -- appends to the same session cannot both commit the same turn_number.
    DEFINE INDEX IF NOT EXISTS stm_turn_unique ON stm FIELDS user, session, turn_number UNIQUE;

    -- ==========================================================================
    -- LTM TABLE (long-term memory: durable user facts and preferences)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS ltm SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user ON ltm TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON ltm TYPE string;
    DEFINE FIELD IF NOT EXISTS memory_type ON ltm TYPE string;
    DEFINE FIELD IF NOT EXISTS summary ON ltm TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS importance ON ltm TYPE float DEFAULT 0.5;
    DEFINE FIELD IF NOT EXISTS embedding ON ltm TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS access_count ON ltm TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS accessed ON ltm TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS verified ON ltm TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS created ON ltm TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON ltm TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS ltm_user ON ltm FIELDS user;
    DEFINE INDEX IF NOT EXISTS ltm_embedding ON ltm FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;

    -- ==========================================================================
    -- CHUNK TABLE (shared knowledge base, not user-owned)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS chunk SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS headers ON chunk TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS content ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS summary ON chunk TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS keywords ON chunk TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS type ON chunk TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON chunk TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created ON chunk TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON chunk TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS chunk_type ON chunk FIELDS type;
    DEFINE INDEX IF NOT EXISTS chunk_embedding ON chunk FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
`

// schemaSQL renders the schema for the given embedding dimension.
func schemaSQL(dimension int) string {
	return fmt.Sprintf(schemaTemplate, dimension, dimension)
}
