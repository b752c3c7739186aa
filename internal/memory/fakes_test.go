package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/memoraio/memora/internal/models"
)

const testDimension = 8

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeEmbedder produces deterministic unit vectors from text so
// identical texts are identical vectors and similar tests are
// reproducible.
type fakeEmbedder struct {
	failNext bool
	calls    int
}

func (e *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failNext {
		e.failNext = false
		return nil, fmt.Errorf("%w: backend down", ErrEmbeddingFailure)
	}
	return hashVector(text), nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *fakeEmbedder) Dimension() int { return testDimension }

func hashVector(text string) []float32 {
	v := make([]float32, testDimension)
	var norm float64
	for i := range v {
		h := fnv.New32a()
		fmt.Fprintf(h, "%d:%s", i, text)
		v[i] = float32(h.Sum32()%1000)/500 - 1
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	touched map[string]int
	deleted int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:   map[string]*models.User{},
		touched: map[string]int{},
	}
}

func (s *fakeUserStore) CreateUser(_ context.Context, id string, name *string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	user := &models.User{
		ID:              surrealmodels.NewRecordID("user", id),
		DisplayName:     name,
		Created:         now,
		LastInteraction: now,
	}
	s.users[id] = user
	return user, nil
}

func (s *fakeUserStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *fakeUserStore) TouchUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[id]++
	return nil
}

func (s *fakeUserStore) DeleteUserData(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	n := s.deleted
	s.deleted = 0
	return n, nil
}

// fakeTurnStore is an in-memory TurnStore with the same max+1 turn
// numbering the real store performs, plus injectable conflicts.
type fakeTurnStore struct {
	mu            sync.Mutex
	turns         []models.ShortTermMemory
	conflictsLeft int
	failAppend    error
}

func (s *fakeTurnStore) AppendTurn(_ context.Context, turn models.ShortTermMemory) (*models.ShortTermMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend != nil {
		return nil, s.failAppend
	}
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return nil, ErrConcurrencyConflict
	}
	next := 0
	for _, t := range s.turns {
		if t.User == turn.User && t.Session == turn.Session && t.TurnNumber > next {
			next = t.TurnNumber
		}
	}
	turn.TurnNumber = next + 1
	turn.Created = time.Now().UTC()
	s.turns = append(s.turns, turn)
	saved := turn
	return &saved, nil
}

func (s *fakeTurnStore) active(now time.Time) []models.ShortTermMemory {
	out := make([]models.ShortTermMemory, 0, len(s.turns))
	for _, t := range s.turns {
		if !t.Expired(now) {
			out = append(out, t)
		}
	}
	return out
}

func (s *fakeTurnStore) RecentTurns(_ context.Context, userID, session string, limit int) ([]models.ShortTermMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ShortTermMemory
	for _, t := range s.active(time.Now()) {
		if t.User == userID && t.Session == session {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnNumber > out[j].TurnNumber })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeTurnStore) ActiveTurns(_ context.Context, userID string, limit int) ([]models.ShortTermMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ShortTermMemory
	for _, t := range s.active(time.Now()) {
		if t.User == userID {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeTurnStore) SessionTurns(_ context.Context, userID string, session *string) ([]models.ShortTermMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ShortTermMemory
	for _, t := range s.active(time.Now()) {
		if t.User != userID {
			continue
		}
		if session != nil && t.Session != *session {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnNumber < out[j].TurnNumber })
	return out, nil
}

func (s *fakeTurnStore) CountActiveTurns(_ context.Context, userID, session string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.active(time.Now()) {
		if t.User == userID && t.Session == session {
			n++
		}
	}
	return n, nil
}

func (s *fakeTurnStore) ExpiredTurnIDs(_ context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, t := range s.turns {
		if t.Expired(now) {
			ids = append(ids, models.MustRecordIDString(t.ID))
			if len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

func (s *fakeTurnStore) DeleteTurns(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	var kept []models.ShortTermMemory
	removed := 0
	for _, t := range s.turns {
		if drop[models.MustRecordIDString(t.ID)] {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.turns = kept
	return removed, nil
}

// fakeMemoryStore is an in-memory MemoryStore ranking with the same
// cosine measure as production.
type fakeMemoryStore struct {
	mu         sync.Mutex
	mems       []models.LongTermMemory
	failSearch error
	failTouch  error
	touched    [][]string
}

func (s *fakeMemoryStore) CreateMemory(_ context.Context, mem models.LongTermMemory) (*models.LongTermMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	mem.Created = now
	mem.Updated = now
	s.mems = append(s.mems, mem)
	saved := mem
	return &saved, nil
}

func (s *fakeMemoryStore) GetMemory(_ context.Context, id string) (*models.LongTermMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.mems {
		if models.MustRecordIDString(s.mems[i].ID) == id {
			mem := s.mems[i]
			return &mem, nil
		}
	}
	return nil, nil
}

func (s *fakeMemoryStore) SearchMemories(_ context.Context, userID string, embedding []float32, threshold float64, limit int) ([]models.ScoredMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSearch != nil {
		return nil, s.failSearch
	}
	var out []models.ScoredMemory
	for _, mem := range s.mems {
		if mem.User != userID {
			continue
		}
		sim := Cosine(mem.Embedding, embedding)
		if sim < threshold {
			continue
		}
		out = append(out, models.ScoredMemory{LongTermMemory: mem, Similarity: sim})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeMemoryStore) TouchMemories(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTouch != nil {
		return s.failTouch
	}
	s.touched = append(s.touched, ids)
	for _, id := range ids {
		for i := range s.mems {
			if models.MustRecordIDString(s.mems[i].ID) == id {
				s.mems[i].AccessCount++
				now := time.Now().UTC()
				s.mems[i].Accessed = &now
			}
		}
	}
	return nil
}

func (s *fakeMemoryStore) VerifyMemory(_ context.Context, id string) (*models.LongTermMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.mems {
		if models.MustRecordIDString(s.mems[i].ID) == id {
			s.mems[i].Verified = true
			mem := s.mems[i]
			return &mem, nil
		}
	}
	return nil, nil
}

func (s *fakeMemoryStore) DecayMemories(_ context.Context, cutoff time.Time, minAccess int, factor float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.mems {
		if s.mems[i].AccessCount >= minAccess {
			continue
		}
		if s.mems[i].Accessed != nil && !s.mems[i].Accessed.Before(cutoff) {
			continue
		}
		s.mems[i].Importance = models.ClampImportance(s.mems[i].Importance * factor)
		n++
	}
	return n, nil
}

func (s *fakeMemoryStore) ListMemories(_ context.Context, userID string, memType *models.MemoryType, minImportance float64, limit int) ([]models.LongTermMemory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.LongTermMemory
	for _, mem := range s.mems {
		if mem.User != userID || mem.Importance < minImportance {
			continue
		}
		if memType != nil && mem.Type != *memType {
			continue
		}
		out = append(out, mem)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeChunkStore is an in-memory ChunkStore.
type fakeChunkStore struct {
	mu     sync.Mutex
	chunks []models.KnowledgeChunk
}

func (s *fakeChunkStore) CreateChunk(_ context.Context, chunk models.KnowledgeChunk) (*models.KnowledgeChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunk.Created = time.Now().UTC()
	chunk.Updated = chunk.Created
	s.chunks = append(s.chunks, chunk)
	saved := chunk
	return &saved, nil
}

func (s *fakeChunkStore) CreateChunks(ctx context.Context, chunks []models.KnowledgeChunk) ([]models.KnowledgeChunk, error) {
	out := make([]models.KnowledgeChunk, 0, len(chunks))
	for _, c := range chunks {
		saved, err := s.CreateChunk(ctx, c)
		if err != nil {
			return nil, err
		}
		out = append(out, *saved)
	}
	return out, nil
}

func (s *fakeChunkStore) GetChunk(_ context.Context, id string) (*models.KnowledgeChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chunks {
		if models.MustRecordIDString(s.chunks[i].ID) == id {
			c := s.chunks[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeChunkStore) UpdateChunk(_ context.Context, id string, fields map[string]any) (*models.KnowledgeChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chunks {
		if models.MustRecordIDString(s.chunks[i].ID) != id {
			continue
		}
		c := &s.chunks[i]
		if v, ok := fields["content"].(string); ok {
			c.Content = v
		}
		if v, ok := fields["summary"].(string); ok {
			c.Summary = v
		}
		if v, ok := fields["type"].(string); ok {
			c.Type = v
		}
		if v, ok := fields["headers"].([]string); ok {
			c.Headers = v
		}
		if v, ok := fields["keywords"].([]string); ok {
			c.Keywords = v
		}
		if v, ok := fields["embedding"].([]float32); ok {
			c.Embedding = v
		}
		c.Updated = time.Now().UTC()
		out := *c
		return &out, nil
	}
	return nil, nil
}

func (s *fakeChunkStore) DeleteChunk(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.chunks {
		if models.MustRecordIDString(s.chunks[i].ID) == id {
			s.chunks = append(s.chunks[:i], s.chunks[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeChunkStore) SearchChunks(_ context.Context, embedding []float32, chunkType *string, threshold float64, limit int) ([]models.ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScoredChunk
	for _, c := range s.chunks {
		if chunkType != nil && c.Type != *chunkType {
			continue
		}
		sim := Cosine(c.Embedding, embedding)
		if sim < threshold {
			continue
		}
		out = append(out, models.ScoredChunk{KnowledgeChunk: c, Similarity: sim})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeChunkStore) ListChunks(_ context.Context, chunkType *string, limit, offset int) ([]models.KnowledgeChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.KnowledgeChunk
	for _, c := range s.chunks {
		if chunkType != nil && c.Type != *chunkType {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return models.MustRecordIDString(out[i].ID) < models.MustRecordIDString(out[j].ID)
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeChunkStore) CountChunks(_ context.Context, chunkType *string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chunkType == nil {
		return len(s.chunks), nil
	}
	n := 0
	for _, c := range s.chunks {
		if c.Type == *chunkType {
			n++
		}
	}
	return n, nil
}

// fakeModel returns a canned response for insight extraction.
type fakeModel struct {
	response string
	err      error
	prompts  []string
}

func (m *fakeModel) GenerateWithSystem(_ context.Context, _, userPrompt string) (string, error) {
	m.prompts = append(m.prompts, userPrompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// sameWords is a convenience for transcript assertions.
func sameWords(s string, words ...string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}
