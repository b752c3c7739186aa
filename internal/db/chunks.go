package db

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/memoraio/memora/internal/metrics"
	"github.com/memoraio/memora/internal/models"
)

// CreateChunk persists a knowledge chunk.
func (c *Client) CreateChunk(ctx context.Context, chunk models.KnowledgeChunk) (*models.KnowledgeChunk, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	if err := c.checkDimension(chunk.Embedding); err != nil {
		return nil, fmt.Errorf("create chunk: %w", err)
	}

	id, err := models.RecordIDString(chunk.ID)
	if err != nil {
		return nil, fmt.Errorf("create chunk: %w", err)
	}

	results, err := surrealdb.Query[[]models.KnowledgeChunk](ctx, c.db, `
		CREATE type::record("chunk", $id) SET
			headers = $headers,
			content = $content,
			summary = $summary,
			keywords = $keywords,
			type = $type,
			embedding = $embedding
		RETURN AFTER
	`, map[string]any{
		"id":        id,
		"headers":   emptyIfNil(chunk.Headers),
		"content":   chunk.Content,
		"summary":   chunk.Summary,
		"keywords":  emptyIfNil(chunk.Keywords),
		"type":      chunk.Type,
		"embedding": chunk.Embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("create chunk: %w", wrapQueryError(err))
	}

	rec := firstRecord(results)
	if rec == nil {
		return nil, fmt.Errorf("create chunk: no result returned")
	}
	return rec, nil
}

// CreateChunks persists multiple chunks in a single insert.
func (c *Client) CreateChunks(ctx context.Context, chunks []models.KnowledgeChunk) ([]models.KnowledgeChunk, error) {
	if len(chunks) == 0 {
		return []models.KnowledgeChunk{}, nil
	}
	defer c.observe(metrics.OpDBQuery, time.Now())

	rows := make([]map[string]any, len(chunks))
	for i, chunk := range chunks {
		if err := c.checkDimension(chunk.Embedding); err != nil {
			return nil, fmt.Errorf("create chunks: %w", err)
		}
		rows[i] = map[string]any{
			"id":        chunk.ID,
			"headers":   emptyIfNil(chunk.Headers),
			"content":   chunk.Content,
			"summary":   chunk.Summary,
			"keywords":  emptyIfNil(chunk.Keywords),
			"type":      chunk.Type,
			"embedding": chunk.Embedding,
		}
	}

	results, err := surrealdb.Query[[]models.KnowledgeChunk](ctx, c.db, `
		INSERT INTO chunk $rows
	`, map[string]any{"rows": rows})
	if err != nil {
		return nil, fmt.Errorf("create chunks: %w", wrapQueryError(err))
	}
	return resultSlice(results), nil
}

// GetChunk retrieves a chunk by ID. Returns nil if not found.
func (c *Client) GetChunk(ctx context.Context, id string) (*models.KnowledgeChunk, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	results, err := surrealdb.Query[[]models.KnowledgeChunk](ctx, c.db, `
		SELECT * FROM type::record("chunk", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	return firstRecord(results), nil
}

// UpdateChunk applies the given field changes to a chunk. The caller is
// responsible for including a fresh embedding whenever content changes.
// Returns nil if the chunk does not exist.
func (c *Client) UpdateChunk(ctx context.Context, id string, fields map[string]any) (*models.KnowledgeChunk, error) {
	if len(fields) == 0 {
		return c.GetChunk(ctx, id)
	}
	defer c.observe(metrics.OpDBQuery, time.Now())

	if emb, ok := fields["embedding"].([]float32); ok {
		if err := c.checkDimension(emb); err != nil {
			return nil, fmt.Errorf("update chunk: %w", err)
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	setParts := make([]string, 0, len(keys)+1)
	vars := map[string]any{"id": id}
	for i, k := range keys {
		param := "v" + strconv.Itoa(i)
		setParts = append(setParts, k+" = $"+param)
		vars[param] = fields[k]
	}
	setParts = append(setParts, "updated = time::now()")

	sql := fmt.Sprintf(`
		UPDATE type::record("chunk", $id) SET %s RETURN AFTER
	`, strings.Join(setParts, ", "))

	results, err := surrealdb.Query[[]models.KnowledgeChunk](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("update chunk: %w", wrapQueryError(err))
	}
	return firstRecord(results), nil
}

// DeleteChunk deletes a chunk by ID. Returns false if it did not exist.
func (c *Client) DeleteChunk(ctx context.Context, id string) (bool, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	results, err := surrealdb.Query[[]models.KnowledgeChunk](ctx, c.db, `
		DELETE type::record("chunk", $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("delete chunk: %w", err)
	}
	return len(resultSlice(results)) > 0, nil
}

// SearchChunks ranks knowledge chunks by cosine similarity against the
// query embedding, optionally filtered by chunk type. Same threshold,
// limit, and recency tie-break semantics as SearchMemories.
func (c *Client) SearchChunks(ctx context.Context, embedding []float32, chunkType *string, threshold float64, limit int) ([]models.ScoredChunk, error) {
	defer c.observe(metrics.OpDBSearch, time.Now())

	if err := c.checkDimension(embedding); err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	typeClause := ""
	vars := map[string]any{
		"emb":       embedding,
		"threshold": threshold,
		"limit":     limit,
	}
	if chunkType != nil {
		typeClause = "AND type = $type"
		vars["type"] = *chunkType
	}

	sql := fmt.Sprintf(`
		SELECT *, vector::similarity::cosine(embedding, $emb) AS similarity
		FROM chunk
		WHERE embedding <|%d,40|> $emb
			AND vector::similarity::cosine(embedding, $emb) >= $threshold
			%s
		ORDER BY similarity DESC, created DESC
		LIMIT $limit
	`, limit*2, typeClause)

	results, err := surrealdb.Query[[]models.ScoredChunk](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return resultSlice(results), nil
}

// ListChunks pages through chunks newest first, with id as a stable
// tie-break for rows created in the same batch.
func (c *Client) ListChunks(ctx context.Context, chunkType *string, limit, offset int) ([]models.KnowledgeChunk, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	typeClause := ""
	vars := map[string]any{"limit": limit, "offset": offset}
	if chunkType != nil {
		typeClause = "WHERE type = $type"
		vars["type"] = *chunkType
	}

	sql := fmt.Sprintf(`
		SELECT * FROM chunk %s
		ORDER BY created DESC, id
		LIMIT $limit
		START $offset
	`, typeClause)

	results, err := surrealdb.Query[[]models.KnowledgeChunk](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return resultSlice(results), nil
}

// CountChunks returns the total number of chunks, optionally by type.
func (c *Client) CountChunks(ctx context.Context, chunkType *string) (int, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	typeClause := ""
	vars := map[string]any{}
	if chunkType != nil {
		typeClause = "WHERE type = $type"
		vars["type"] = *chunkType
	}

	sql := fmt.Sprintf(`
		SELECT count() AS count FROM chunk %s GROUP ALL
	`, typeClause)

	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}

	row := firstRecord(results)
	if row == nil {
		return 0, nil
	}
	return row.Count, nil
}

// emptyIfNil keeps SCHEMAFULL array fields from receiving NONE.
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
