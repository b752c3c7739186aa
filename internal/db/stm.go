package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/memoraio/memora/internal/metrics"
	"github.com/memoraio/memora/internal/models"
)

// AppendTurn persists a conversational turn, assigning the next
// turn_number for the (user, session) pair inside a single transaction.
// The stm_turn_unique index backstops the max+1 read: a lost race
// surfaces as ErrConflict and the caller retries.
func (c *Client) AppendTurn(ctx context.Context, turn models.ShortTermMemory) (*models.ShortTermMemory, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	if err := c.checkDimension(turn.Embedding); err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}

	id, err := models.RecordIDString(turn.ID)
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}

	results, err := surrealdb.Query[[]models.ShortTermMemory](ctx, c.db, `
		BEGIN TRANSACTION;
		LET $last = (SELECT VALUE math::max(turn_number) FROM stm
			WHERE user = $user AND session = $session GROUP ALL)[0] ?? 0;
		LET $rec = (CREATE type::record("stm", $id) SET
			user = $user,
			session = $session,
			content = $content,
			role = $role,
			embedding = $embedding,
			turn_number = $last + 1,
			expires = $expires
		RETURN AFTER);
		RETURN $rec;
		COMMIT TRANSACTION;
	`, map[string]any{
		"id":        id,
		"user":      turn.User,
		"session":   turn.Session,
		"content":   turn.Content,
		"role":      string(turn.Role),
		"embedding": turn.Embedding,
		"expires":   turn.Expires,
	})
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", wrapQueryError(err))
	}

	rec := lastRecord(results)
	if rec == nil {
		return nil, fmt.Errorf("append turn: no result returned")
	}
	return rec, nil
}

// RecentTurns returns the most recent non-expired turns of a session,
// newest first by turn_number.
func (c *Client) RecentTurns(ctx context.Context, userID, sessionID string, limit int) ([]models.ShortTermMemory, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	results, err := surrealdb.Query[[]models.ShortTermMemory](ctx, c.db, `
		SELECT * FROM stm
		WHERE user = $user AND session = $session
			AND (expires IS NONE OR expires > time::now())
		ORDER BY turn_number DESC
		LIMIT $limit
	`, map[string]any{"user": userID, "session": sessionID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	return resultSlice(results), nil
}

// ActiveTurns returns up to limit non-expired turns of a user across all
// sessions, newest first. Used as the candidate set for in-process
// similarity ranking; per-user STM corpora stay small by design.
func (c *Client) ActiveTurns(ctx context.Context, userID string, limit int) ([]models.ShortTermMemory, error) {
	defer c.observe(metrics.OpDBSearch, time.Now())

	results, err := surrealdb.Query[[]models.ShortTermMemory](ctx, c.db, `
		SELECT * FROM stm
		WHERE user = $user AND (expires IS NONE OR expires > time::now())
		ORDER BY created DESC
		LIMIT $limit
	`, map[string]any{"user": userID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("active turns: %w", err)
	}
	return resultSlice(results), nil
}

// SessionTurns returns all non-expired turns for a user in chronological
// order, optionally restricted to one session.
func (c *Client) SessionTurns(ctx context.Context, userID string, sessionID *string) ([]models.ShortTermMemory, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	sessionClause := ""
	vars := map[string]any{"user": userID}
	if sessionID != nil {
		sessionClause = "AND session = $session"
		vars["session"] = *sessionID
	}

	sql := fmt.Sprintf(`
		SELECT * FROM stm
		WHERE user = $user %s
			AND (expires IS NONE OR expires > time::now())
		ORDER BY turn_number ASC
	`, sessionClause)

	results, err := surrealdb.Query[[]models.ShortTermMemory](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("session turns: %w", err)
	}
	return resultSlice(results), nil
}

// CountActiveTurns counts non-expired turns of one session.
func (c *Client) CountActiveTurns(ctx context.Context, userID, session string) (int, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, `
		SELECT count() AS count FROM stm
		WHERE user = $user AND session = $session
			AND (expires IS NONE OR expires > time::now())
		GROUP ALL
	`, map[string]any{"user": userID, "session": session})
	if err != nil {
		return 0, fmt.Errorf("count active turns: %w", err)
	}

	row := firstRecord(results)
	if row == nil {
		return 0, nil
	}
	return row.Count, nil
}

// ExpiredTurnIDs returns up to limit IDs of turns whose expiry is at or
// before the given instant. The instant is fixed by the caller so a sweep
// operates on a snapshot and never touches records created after it began.
func (c *Client) ExpiredTurnIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	defer c.observe(metrics.OpDBQuery, time.Now())

	results, err := surrealdb.Query[[]string](ctx, c.db, `
		SELECT VALUE record::id(id) FROM stm
		WHERE expires IS NOT NONE AND expires <= $now
		LIMIT $limit
	`, map[string]any{"now": now, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("expired turn ids: %w", err)
	}
	return resultSlice(results), nil
}

// DeleteTurns deletes turns by ID. Returns the number actually removed;
// absent IDs are skipped, not errors.
func (c *Client) DeleteTurns(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	defer c.observe(metrics.OpDBQuery, time.Now())

	results, err := surrealdb.Query[[]models.ShortTermMemory](ctx, c.db, `
		DELETE stm WHERE id IN $ids RETURN BEFORE
	`, map[string]any{"ids": recordIDs("stm", ids)})
	if err != nil {
		return 0, fmt.Errorf("delete turns: %w", err)
	}
	return len(resultSlice(results)), nil
}
