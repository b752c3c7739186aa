package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/memoraio/memora/internal/models"
)

// turnRetries bounds retries when two writers race for the same
// turn number.
const turnRetries = 3

// STMManager manages short-term conversational memory.
type STMManager struct {
	store    TurnStore
	users    UserStore
	embedder Embedder
	ttl      time.Duration
	logger   *slog.Logger
}

// NewSTMManager creates a short-term memory manager. ttl controls how
// long appended turns live before the sweeper reclaims them; a
// non-positive ttl means turns never expire.
func NewSTMManager(store TurnStore, users UserStore, embedder Embedder, ttl time.Duration, logger *slog.Logger) *STMManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &STMManager{
		store:    store,
		users:    users,
		embedder: embedder,
		ttl:      ttl,
		logger:   logger,
	}
}

// AppendTurn embeds and stores a conversation turn, assigning it the
// next turn number in its session. Concurrent appends to the same
// session are retried a bounded number of times before surfacing
// ErrConcurrencyConflict.
func (m *STMManager) AppendTurn(ctx context.Context, userID, session, content string, role models.Role) (*models.ShortTermMemory, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationErr("content", "must not be empty")
	}
	if !role.Valid() {
		return nil, validationErr("role", "unknown role %q", role)
	}
	if userID == "" {
		return nil, validationErr("user_id", "must not be empty")
	}
	if session == "" {
		return nil, validationErr("session_id", "must not be empty")
	}

	embedding, err := m.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed turn: %w", err)
	}

	var expires *time.Time
	if m.ttl > 0 {
		t := time.Now().UTC().Add(m.ttl)
		expires = &t
	}

	var saved *models.ShortTermMemory
	for attempt := 1; ; attempt++ {
		turn := models.ShortTermMemory{
			ID:        surrealmodels.NewRecordID("stm", uuid.NewString()),
			User:      userID,
			Session:   session,
			Content:   content,
			Role:      role,
			Embedding: embedding,
			Expires:   expires,
		}

		saved, err = m.store.AppendTurn(ctx, turn)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConcurrencyConflict) || attempt >= turnRetries {
			return nil, fmt.Errorf("append turn: %w", err)
		}
		m.logger.Debug("turn number conflict, retrying", "user", userID, "session", session, "attempt", attempt)
	}

	if err := m.users.TouchUser(ctx, userID); err != nil {
		m.logger.Warn("touch user failed", "user", userID, "error", err)
	}

	m.logger.Debug("turn appended",
		"user", userID, "session", session,
		"turn", saved.TurnNumber, "role", string(role))
	return saved, nil
}

// Recent returns the last limit non-expired turns of a session in
// chronological order.
func (m *STMManager) Recent(ctx context.Context, userID, session string, limit int) ([]models.ShortTermMemory, error) {
	if limit <= 0 {
		limit = 10
	}

	turns, err := m.store.RecentTurns(ctx, userID, session, limit)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}

	// Store returns newest first; present oldest first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Relevant ranks the user's active turns against the query by cosine
// similarity, across all sessions.
func (m *STMManager) Relevant(ctx context.Context, userID, query string, threshold float64, limit int) ([]models.ScoredTurn, error) {
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

	// STM stays small per user, so candidates are pulled and ranked
	// in-process rather than through the vector index.
	candidates, err := m.store.ActiveTurns(ctx, userID, candidateLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("load candidate turns: %w", err)
	}

	ranked, err := rankTurns(candidates, embedding, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("rank turns: %w", err)
	}
	return ranked, nil
}

// History returns all non-expired turns of a user in chronological
// order, optionally restricted to one session.
func (m *STMManager) History(ctx context.Context, userID string, session *string) ([]models.ShortTermMemory, error) {
	turns, err := m.store.SessionTurns(ctx, userID, session)
	if err != nil {
		return nil, fmt.Errorf("session turns: %w", err)
	}
	return turns, nil
}

// Count returns the number of active turns in a session.
func (m *STMManager) Count(ctx context.Context, userID, session string) (int, error) {
	n, err := m.store.CountActiveTurns(ctx, userID, session)
	if err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return n, nil
}

// candidateLimit oversizes the candidate pull so the threshold filter
// still leaves enough turns to fill the requested limit.
func candidateLimit(limit int) int {
	const floor = 200
	if n := limit * 20; n > floor {
		return n
	}
	return floor
}
