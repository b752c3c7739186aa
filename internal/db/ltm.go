package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/memoraio/memora/internal/metrics"
	"github.com/memoraio/memora/internal/models"
)

// CreateMemory persists a long-term memory record.
func (c *Client) CreateMemory(ctx context.Context, mem models.LongTermMemory) (*models.LongTermMemory, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	if err := c.checkDimension(mem.Embedding); err != nil {
		return nil, fmt.Errorf("create memory: %w", err)
	}

	id, err := models.RecordIDString(mem.ID)
	if err != nil {
		return nil, fmt.Errorf("create memory: %w", err)
	}

	results, err := surrealdb.Query[[]models.LongTermMemory](ctx, c.db, `
		CREATE type::record("ltm", $id) SET
			user = $user,
			content = $content,
			memory_type = $memory_type,
			summary = $summary,
			importance = $importance,
			embedding = $embedding
		RETURN AFTER
	`, map[string]any{
		"id":          id,
		"user":        mem.User,
		"content":     mem.Content,
		"memory_type": string(mem.Type),
		"summary":     mem.Summary,
		"importance":  mem.Importance,
		"embedding":   mem.Embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("create memory: %w", wrapQueryError(err))
	}

	rec := firstRecord(results)
	if rec == nil {
		return nil, fmt.Errorf("create memory: no result returned")
	}
	return rec, nil
}

// GetMemory retrieves a long-term memory by ID. Returns nil if not found.
func (c *Client) GetMemory(ctx context.Context, id string) (*models.LongTermMemory, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	results, err := surrealdb.Query[[]models.LongTermMemory](ctx, c.db, `
		SELECT * FROM type::record("ltm", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return firstRecord(results), nil
}

// SearchMemories ranks a user's long-term memories by cosine similarity
// against the query embedding. Results below threshold are excluded; ties
// break by most recent created. The HNSW candidate set is oversized
// (2x limit) for recall, matching the index's ef=40 search width.
func (c *Client) SearchMemories(ctx context.Context, userID string, embedding []float32, threshold float64, limit int) ([]models.ScoredMemory, error) {
	defer c.observe(metrics.OpDBSearch, time.Now())

	if err := c.checkDimension(embedding); err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}

	sql := fmt.Sprintf(`
		SELECT *, vector::similarity::cosine(embedding, $emb) AS similarity
		FROM ltm
		WHERE user = $user
			AND embedding <|%d,40|> $emb
			AND vector::similarity::cosine(embedding, $emb) >= $threshold
		ORDER BY similarity DESC, created DESC
		LIMIT $limit
	`, limit*2)

	results, err := surrealdb.Query[[]models.ScoredMemory](ctx, c.db, sql, map[string]any{
		"user":      userID,
		"emb":       embedding,
		"threshold": threshold,
		"limit":     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	return resultSlice(results), nil
}

// TouchMemories atomically bumps access bookkeeping for the given
// memories. The increment happens at the storage layer so concurrent
// reads of the same record never lose updates.
func (c *Client) TouchMemories(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	defer c.observe(metrics.OpDBQuery, time.Now())

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE ltm SET
			access_count += 1,
			accessed = time::now()
		WHERE id IN $ids
	`, map[string]any{"ids": recordIDs("ltm", ids)})
	if err != nil {
		return fmt.Errorf("touch memories: %w", err)
	}
	return nil
}

// VerifyMemory marks a memory as externally confirmed.
// Returns nil if the memory does not exist.
func (c *Client) VerifyMemory(ctx context.Context, id string) (*models.LongTermMemory, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	results, err := surrealdb.Query[[]models.LongTermMemory](ctx, c.db, `
		UPDATE type::record("ltm", $id) SET
			verified = true,
			updated = time::now()
		RETURN AFTER
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("verify memory: %w", err)
	}
	return firstRecord(results), nil
}

// DecayMemories multiplies importance by factor for every memory last
// accessed before cutoff AND with access_count below minAccess, then
// re-clamps into [0, 1]. Returns the number of memories affected.
func (c *Client) DecayMemories(ctx context.Context, cutoff time.Time, minAccess int, factor float64) (int, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	results, err := surrealdb.Query[[]models.LongTermMemory](ctx, c.db, `
		UPDATE ltm SET
			importance = math::min(math::max(importance * $factor, 0.0), 1.0),
			updated = time::now()
		WHERE accessed < $cutoff AND access_count < $min_access
		RETURN BEFORE
	`, map[string]any{
		"cutoff":     cutoff,
		"min_access": minAccess,
		"factor":     factor,
	})
	if err != nil {
		return 0, fmt.Errorf("decay memories: %w", err)
	}
	return len(resultSlice(results)), nil
}

// ListMemories returns a user's memories ordered by importance, optionally
// filtered by type and minimum importance.
func (c *Client) ListMemories(ctx context.Context, userID string, memType *models.MemoryType, minImportance float64, limit int) ([]models.LongTermMemory, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	typeClause := ""
	vars := map[string]any{
		"user":           userID,
		"min_importance": minImportance,
		"limit":          limit,
	}
	if memType != nil {
		typeClause = "AND memory_type = $memory_type"
		vars["memory_type"] = string(*memType)
	}

	sql := fmt.Sprintf(`
		SELECT * FROM ltm
		WHERE user = $user AND importance >= $min_importance %s
		ORDER BY importance DESC
		LIMIT $limit
	`, typeClause)

	results, err := surrealdb.Query[[]models.LongTermMemory](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	return resultSlice(results), nil
}
