package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/memoraio/memora/internal/models"
)

// DecayParams control the periodic importance decay pass.
type DecayParams struct {
	// MaxAge is how long a memory may go unaccessed before decaying.
	MaxAge time.Duration
	// MinAccessCount exempts memories accessed at least this often.
	MinAccessCount int
	// Factor multiplies importance on each decay pass.
	Factor float64
}

// LTMManager manages long-term semantic memory.
type LTMManager struct {
	store    MemoryStore
	embedder Embedder
	logger   *slog.Logger
}

// NewLTMManager creates a long-term memory manager.
func NewLTMManager(store MemoryStore, embedder Embedder, logger *slog.Logger) *LTMManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LTMManager{store: store, embedder: embedder, logger: logger}
}

// Remember embeds and stores a long-term memory. Importance outside
// [0, 1] and unknown memory types are rejected.
func (m *LTMManager) Remember(ctx context.Context, userID, content string, memType models.MemoryType, summary string, importance float64) (*models.LongTermMemory, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationErr("content", "must not be empty")
	}
	if userID == "" {
		return nil, validationErr("user_id", "must not be empty")
	}
	if !memType.Valid() {
		return nil, validationErr("type", "unknown memory type %q", memType)
	}
	if importance < 0 || importance > 1 {
		return nil, validationErr("importance", "must be in [0, 1], got %g", importance)
	}

	return m.create(ctx, userID, content, memType, summary, importance)
}

// rememberClamped stores a memory, clamping importance into [0, 1]
// instead of rejecting it. Used for machine-produced insights whose
// scores are advisory.
func (m *LTMManager) rememberClamped(ctx context.Context, userID, content string, memType models.MemoryType, summary string, importance float64) (*models.LongTermMemory, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationErr("content", "must not be empty")
	}
	if !memType.Valid() {
		memType = models.MemoryTypeGeneral
	}
	return m.create(ctx, userID, content, memType, summary, models.ClampImportance(importance))
}

func (m *LTMManager) create(ctx context.Context, userID, content string, memType models.MemoryType, summary string, importance float64) (*models.LongTermMemory, error) {
	embedding, err := m.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed memory: %w", err)
	}

	mem := models.LongTermMemory{
		ID:         surrealmodels.NewRecordID("ltm", uuid.NewString()),
		User:       userID,
		Content:    content,
		Type:       memType,
		Summary:    summary,
		Importance: importance,
		Embedding:  embedding,
	}

	saved, err := m.store.CreateMemory(ctx, mem)
	if err != nil {
		return nil, fmt.Errorf("create memory: %w", err)
	}

	m.logger.Debug("memory stored",
		"user", userID, "type", string(memType), "importance", importance)
	return saved, nil
}

// Get returns a memory by ID or ErrNotFound.
func (m *LTMManager) Get(ctx context.Context, id string) (*models.LongTermMemory, error) {
	mem, err := m.store.GetMemory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	if mem == nil {
		return nil, fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}
	return mem, nil
}

// Search ranks the user's memories against the query by cosine
// similarity. Returned memories have their access bookkeeping bumped;
// a failed bump fails the search so access counts stay honest.
func (m *LTMManager) Search(ctx context.Context, userID, query string, threshold float64, limit int) ([]models.ScoredMemory, error) {
	if strings.TrimSpace(query) == "" {
		return nil, validationErr("query", "must not be empty")
	}
	if limit <= 0 {
		limit = 5
	}

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := m.store.SearchMemories(ctx, userID, embedding, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	if len(results) == 0 {
		return results, nil
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		id, err := models.RecordIDString(r.ID)
		if err != nil {
			return nil, fmt.Errorf("search memories: %w", err)
		}
		ids = append(ids, id)
	}
	if err := m.store.TouchMemories(ctx, ids); err != nil {
		return nil, fmt.Errorf("touch memories: %w", err)
	}

	// Reflect the bump in the returned records.
	now := time.Now().UTC()
	for i := range results {
		results[i].AccessCount++
		results[i].Accessed = &now
	}
	return results, nil
}

// Verify marks a memory as user-confirmed.
func (m *LTMManager) Verify(ctx context.Context, id string) (*models.LongTermMemory, error) {
	mem, err := m.store.VerifyMemory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("verify memory: %w", err)
	}
	if mem == nil {
		return nil, fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}
	return mem, nil
}

// Decay multiplies the importance of stale, rarely accessed memories
// by params.Factor. Returns the number of memories decayed.
func (m *LTMManager) Decay(ctx context.Context, params DecayParams) (int, error) {
	if params.Factor <= 0 || params.Factor >= 1 {
		return 0, validationErr("factor", "must be in (0, 1), got %g", params.Factor)
	}

	cutoff := time.Now().UTC().Add(-params.MaxAge)
	n, err := m.store.DecayMemories(ctx, cutoff, params.MinAccessCount, params.Factor)
	if err != nil {
		return 0, fmt.Errorf("decay memories: %w", err)
	}
	if n > 0 {
		m.logger.Info("importance decay applied", "memories", n, "factor", params.Factor)
	}
	return n, nil
}

// List returns the user's memories ordered by importance, optionally
// filtered by type and minimum importance.
func (m *LTMManager) List(ctx context.Context, userID string, memType *models.MemoryType, minImportance float64, limit int) ([]models.LongTermMemory, error) {
	if memType != nil && !memType.Valid() {
		return nil, validationErr("type", "unknown memory type %q", *memType)
	}
	if limit <= 0 {
		limit = 20
	}

	mems, err := m.store.ListMemories(ctx, userID, memType, minImportance, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	return mems, nil
}
