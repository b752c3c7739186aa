package memory

import (
	"context"
	"time"

	"github.com/memoraio/memora/internal/models"
)

// The managers in this package talk to persistence through narrow
// interfaces. *db.Client satisfies all of them; tests substitute
// in-memory fakes.

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, id string, name *string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	TouchUser(ctx context.Context, id string) error
	DeleteUserData(ctx context.Context, id string) (int, error)
}

// TurnStore persists short-term conversation turns.
type TurnStore interface {
	AppendTurn(ctx context.Context, turn models.ShortTermMemory) (*models.ShortTermMemory, error)
	RecentTurns(ctx context.Context, userID, session string, limit int) ([]models.ShortTermMemory, error)
	ActiveTurns(ctx context.Context, userID string, limit int) ([]models.ShortTermMemory, error)
	SessionTurns(ctx context.Context, userID string, session *string) ([]models.ShortTermMemory, error)
	CountActiveTurns(ctx context.Context, userID, session string) (int, error)
	ExpiredTurnIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
	DeleteTurns(ctx context.Context, ids []string) (int, error)
}

// MemoryStore persists long-term memories.
type MemoryStore interface {
	CreateMemory(ctx context.Context, mem models.LongTermMemory) (*models.LongTermMemory, error)
	GetMemory(ctx context.Context, id string) (*models.LongTermMemory, error)
	SearchMemories(ctx context.Context, userID string, embedding []float32, threshold float64, limit int) ([]models.ScoredMemory, error)
	TouchMemories(ctx context.Context, ids []string) error
	VerifyMemory(ctx context.Context, id string) (*models.LongTermMemory, error)
	DecayMemories(ctx context.Context, cutoff time.Time, minAccess int, factor float64) (int, error)
	ListMemories(ctx context.Context, userID string, memType *models.MemoryType, minImportance float64, limit int) ([]models.LongTermMemory, error)
}

// ChunkStore persists shared knowledge chunks.
type ChunkStore interface {
	CreateChunk(ctx context.Context, chunk models.KnowledgeChunk) (*models.KnowledgeChunk, error)
	CreateChunks(ctx context.Context, chunks []models.KnowledgeChunk) ([]models.KnowledgeChunk, error)
	GetChunk(ctx context.Context, id string) (*models.KnowledgeChunk, error)
	UpdateChunk(ctx context.Context, id string, fields map[string]any) (*models.KnowledgeChunk, error)
	DeleteChunk(ctx context.Context, id string) (bool, error)
	SearchChunks(ctx context.Context, embedding []float32, chunkType *string, threshold float64, limit int) ([]models.ScoredChunk, error)
	ListChunks(ctx context.Context, chunkType *string, limit, offset int) ([]models.KnowledgeChunk, error)
	CountChunks(ctx context.Context, chunkType *string) (int, error)
}

// Embedder produces embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// InsightModel extracts durable insights from conversation text.
type InsightModel interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
