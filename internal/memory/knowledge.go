package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/memoraio/memora/internal/models"
)

// ChunkInput describes a knowledge chunk to ingest.
type ChunkInput struct {
	Headers  []string
	Content  string
	Summary  string
	Keywords []string
	Type     string
}

// ChunkUpdate holds field changes for an existing chunk. Nil fields
// are left untouched. A content change re-embeds the chunk.
type ChunkUpdate struct {
	Headers  *[]string
	Content  *string
	Summary  *string
	Keywords *[]string
	Type     *string
}

// KnowledgeService manages the shared, user-independent knowledge
// chunk store.
type KnowledgeService struct {
	store    ChunkStore
	embedder Embedder
	logger   *slog.Logger
}

// NewKnowledgeService creates a knowledge chunk service.
func NewKnowledgeService(store ChunkStore, embedder Embedder, logger *slog.Logger) *KnowledgeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeService{store: store, embedder: embedder, logger: logger}
}

// AddChunk embeds and stores one knowledge chunk.
func (k *KnowledgeService) AddChunk(ctx context.Context, in ChunkInput) (*models.KnowledgeChunk, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, validationErr("content", "must not be empty")
	}

	embedding, err := k.embedder.Embed(ctx, in.Content)
	if err != nil {
		return nil, fmt.Errorf("embed chunk: %w", err)
	}

	chunk, err := k.store.CreateChunk(ctx, models.KnowledgeChunk{
		ID:        surrealmodels.NewRecordID("chunk", uuid.NewString()),
		Headers:   in.Headers,
		Content:   in.Content,
		Summary:   in.Summary,
		Keywords:  in.Keywords,
		Type:      in.Type,
		Embedding: embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("create chunk: %w", err)
	}
	return chunk, nil
}

// AddChunks embeds and stores a batch of chunks in one insert.
func (k *KnowledgeService) AddChunks(ctx context.Context, inputs []ChunkInput) ([]models.KnowledgeChunk, error) {
	if len(inputs) == 0 {
		return []models.KnowledgeChunk{}, nil
	}

	texts := make([]string, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.Content) == "" {
			return nil, validationErr("content", "chunk %d must not be empty", i)
		}
		texts[i] = in.Content
	}

	embeddings, err := k.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	chunks := make([]models.KnowledgeChunk, len(inputs))
	for i, in := range inputs {
		chunks[i] = models.KnowledgeChunk{
			ID:        surrealmodels.NewRecordID("chunk", uuid.NewString()),
			Headers:   in.Headers,
			Content:   in.Content,
			Summary:   in.Summary,
			Keywords:  in.Keywords,
			Type:      in.Type,
			Embedding: embeddings[i],
		}
	}

	saved, err := k.store.CreateChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("create chunks: %w", err)
	}
	k.logger.Info("chunks ingested", "count", len(saved))
	return saved, nil
}

// Get returns a chunk by ID or ErrNotFound.
func (k *KnowledgeService) Get(ctx context.Context, id string) (*models.KnowledgeChunk, error) {
	chunk, err := k.store.GetChunk(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	if chunk == nil {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	return chunk, nil
}

// Update applies field changes to a chunk, re-embedding when the
// content changes.
func (k *KnowledgeService) Update(ctx context.Context, id string, upd ChunkUpdate) (*models.KnowledgeChunk, error) {
	fields := map[string]any{}
	if upd.Headers != nil {
		fields["headers"] = *upd.Headers
	}
	if upd.Summary != nil {
		fields["summary"] = *upd.Summary
	}
	if upd.Keywords != nil {
		fields["keywords"] = *upd.Keywords
	}
	if upd.Type != nil {
		fields["type"] = *upd.Type
	}
	if upd.Content != nil {
		content := *upd.Content
		if strings.TrimSpace(content) == "" {
			return nil, validationErr("content", "must not be empty")
		}
		embedding, err := k.embedder.Embed(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("embed chunk: %w", err)
		}
		fields["content"] = content
		fields["embedding"] = embedding
	}
	if len(fields) == 0 {
		return nil, validationErr("update", "no fields to change")
	}

	chunk, err := k.store.UpdateChunk(ctx, id, fields)
	if err != nil {
		return nil, fmt.Errorf("update chunk: %w", err)
	}
	if chunk == nil {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	return chunk, nil
}

// Delete removes a chunk. Missing chunks surface ErrNotFound.
func (k *KnowledgeService) Delete(ctx context.Context, id string) error {
	deleted, err := k.store.DeleteChunk(ctx, id)
	if err != nil {
		return fmt.Errorf("delete chunk: %w", err)
	}
	if !deleted {
		return fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	return nil
}

// Search ranks chunks against the query by cosine similarity,
// optionally restricted to one chunk type.
func (k *KnowledgeService) Search(ctx context.Context, query string, chunkType *string, threshold float64, limit int) ([]models.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, validationErr("query", "must not be empty")
	}
	if limit <= 0 {
		limit = 5
	}

	embedding, err := k.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := k.store.SearchChunks(ctx, embedding, chunkType, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	return results, nil
}

// List pages through chunks.
func (k *KnowledgeService) List(ctx context.Context, chunkType *string, limit, offset int) ([]models.KnowledgeChunk, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	chunks, err := k.store.ListChunks(ctx, chunkType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return chunks, nil
}

// Count returns the number of stored chunks, optionally by type.
func (k *KnowledgeService) Count(ctx context.Context, chunkType *string) (int, error) {
	n, err := k.store.CountChunks(ctx, chunkType)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
