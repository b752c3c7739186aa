package db

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"golang.org/x/sync/errgroup"

	"github.com/memoraio/memora/internal/models"
)

func TestUserLifecycle(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	t.Run("get missing user", func(t *testing.T) {
		user, err := testDB.GetUser(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("create and get", func(t *testing.T) {
		name := "Test Person"
		created, err := testDB.CreateUser(ctx, userID, &name)
		require.NoError(t, err)
		require.NotNil(t, created.DisplayName)
		assert.Equal(t, "Test Person", *created.DisplayName)

		got, err := testDB.GetUser(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, userID, got.ID.ID)
	})

	t.Run("touch updates last interaction", func(t *testing.T) {
		before, err := testDB.GetUser(ctx, userID)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, testDB.TouchUser(ctx, userID))

		after, err := testDB.GetUser(ctx, userID)
		require.NoError(t, err)
		assert.True(t, after.LastInteraction.After(before.LastInteraction))
	})

	t.Run("cascade delete", func(t *testing.T) {
		_, err := testDB.AppendTurn(ctx, newTurn(userID, "s1", "a turn", 1))
		require.NoError(t, err)
		_, err = testDB.CreateMemory(ctx, newMemory(userID, "a memory", 0.5, 2))
		require.NoError(t, err)

		removed, err := testDB.DeleteUserData(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		user, err := testDB.GetUser(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestAppendTurnNumbering(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	first, err := testDB.AppendTurn(ctx, newTurn(userID, "s1", "first", 1))
	require.NoError(t, err)
	second, err := testDB.AppendTurn(ctx, newTurn(userID, "s1", "second", 2))
	require.NoError(t, err)
	other, err := testDB.AppendTurn(ctx, newTurn(userID, "s2", "other session", 3))
	require.NoError(t, err)

	assert.Equal(t, 1, first.TurnNumber)
	assert.Equal(t, 2, second.TurnNumber)
	assert.Equal(t, 1, other.TurnNumber, "numbering restarts per session")
}

func TestAppendTurnConcurrent(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	const writers = 8

	var mu sync.Mutex
	numbers := make([]int, 0, writers)

	var g errgroup.Group
	for i := 0; i < writers; i++ {
		seed := i
		g.Go(func() error {
			for attempt := 0; ; attempt++ {
				saved, err := testDB.AppendTurn(ctx, newTurn(userID, "race", "racing turn", seed))
				if err == nil {
					mu.Lock()
					numbers = append(numbers, saved.TurnNumber)
					mu.Unlock()
					return nil
				}
				if !errors.Is(err, ErrConflict) || attempt >= 4*writers {
					return err
				}
			}
		})
	}
	require.NoError(t, g.Wait())

	// Every writer landed exactly one number, contiguous from 1.
	sort.Ints(numbers)
	want := make([]int, writers)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, numbers)
}

func TestAppendTurnDimensionCheck(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	turn := newTurn("user-"+uuid.NewString(), "s1", "bad vector", 1)
	turn.Embedding = []float32{1, 2, 3}

	_, err := testDB.AppendTurn(ctx, turn)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestRecentAndSessionTurns(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	for i, content := range []string{"one", "two", "three"} {
		_, err := testDB.AppendTurn(ctx, newTurn(userID, "s1", content, i+1))
		require.NoError(t, err)
	}

	recent, err := testDB.RecentTurns(ctx, userID, "s1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Content, "newest first")
	assert.Equal(t, "two", recent[1].Content)

	session := "s1"
	all, err := testDB.SessionTurns(ctx, userID, &session)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].Content, "chronological")

	n, err := testDB.CountActiveTurns(ctx, userID, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestExpiredTurnSweep(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	past := time.Now().UTC().Add(-time.Minute)
	future := time.Now().UTC().Add(time.Hour)

	expired := newTurn(userID, "s1", "expired", 1)
	expired.Expires = &past
	_, err := testDB.AppendTurn(ctx, expired)
	require.NoError(t, err)

	alive := newTurn(userID, "s1", "alive", 2)
	alive.Expires = &future
	_, err = testDB.AppendTurn(ctx, alive)
	require.NoError(t, err)

	// Expired turns disappear from reads before the sweep removes them.
	n, err := testDB.CountActiveTurns(ctx, userID, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := testDB.ExpiredTurnIDs(ctx, time.Now().UTC(), 100)
	require.NoError(t, err)
	require.NotEmpty(t, ids)

	removed, err := testDB.DeleteTurns(ctx, ids)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, 1)

	ids, err = testDB.ExpiredTurnIDs(ctx, time.Now().UTC(), 100)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearchMemories(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	target, err := testDB.CreateMemory(ctx, newMemory(userID, "likes hiking in the alps", 0.8, 10))
	require.NoError(t, err)
	_, err = testDB.CreateMemory(ctx, newMemory(userID, "afraid of spiders", 0.6, 200))
	require.NoError(t, err)
	_, err = testDB.CreateMemory(ctx, newMemory("someone-else", "likes hiking in the alps", 0.8, 10))
	require.NoError(t, err)

	results, err := testDB.SearchMemories(ctx, userID, testEmbedding(10), 0.95, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, target.Content, results[0].Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	for _, r := range results {
		assert.Equal(t, userID, r.User, "results scoped to user")
	}
}

func TestTouchAndVerifyMemory(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	mem, err := testDB.CreateMemory(ctx, newMemory(userID, "drinks oat milk", 0.5, 42))
	require.NoError(t, err)
	id := models.MustRecordIDString(mem.ID)

	require.NoError(t, testDB.TouchMemories(ctx, []string{id}))
	require.NoError(t, testDB.TouchMemories(ctx, []string{id}))

	got, err := testDB.GetMemory(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.AccessCount)
	assert.NotNil(t, got.Accessed)

	verified, err := testDB.VerifyMemory(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.True(t, verified.Verified)

	missing, err := testDB.VerifyMemory(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDecayMemories(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	mem, err := testDB.CreateMemory(ctx, newMemory(userID, "stale detail", 0.8, 7))
	require.NoError(t, err)
	id := models.MustRecordIDString(mem.ID)

	// Backdate the access timestamp so the cutoff catches it.
	_, err = testDB.Query(ctx, `UPDATE type::record("ltm", $id) SET accessed = $when`,
		map[string]any{"id": id, "when": time.Now().UTC().Add(-60 * 24 * time.Hour)})
	require.NoError(t, err)

	n, err := testDB.DecayMemories(ctx, time.Now().UTC().Add(-30*24*time.Hour), 3, 0.5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	got, err := testDB.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, got.Importance, 1e-6)
}

func TestListMemories(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	userID := "user-" + uuid.NewString()

	low := newMemory(userID, "low importance", 0.2, 3)
	low.Type = models.MemoryTypeContext
	_, err := testDB.CreateMemory(ctx, low)
	require.NoError(t, err)
	high := newMemory(userID, "high importance", 0.9, 4)
	high.Type = models.MemoryTypePreference
	_, err = testDB.CreateMemory(ctx, high)
	require.NoError(t, err)

	mems, err := testDB.ListMemories(ctx, userID, nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, mems, 2)
	assert.Equal(t, "high importance", mems[0].Content)

	pref := models.MemoryTypePreference
	filtered, err := testDB.ListMemories(ctx, userID, &pref, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, models.MemoryTypePreference, filtered[0].Type)
}

func TestChunkLifecycle(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	chunk, err := testDB.CreateChunk(ctx, models.KnowledgeChunk{
		ID:        surrealmodels.NewRecordID("chunk", uuid.NewString()),
		Headers:   []string{"Guide", "Setup"},
		Content:   "initial setup steps",
		Summary:   "setup",
		Keywords:  []string{"setup"},
		Type:      "howto",
		Embedding: testEmbedding(21),
	})
	require.NoError(t, err)
	id := models.MustRecordIDString(chunk.ID)

	t.Run("get", func(t *testing.T) {
		got, err := testDB.GetChunk(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, []string{"Guide", "Setup"}, got.Headers)
	})

	t.Run("update", func(t *testing.T) {
		updated, err := testDB.UpdateChunk(ctx, id, map[string]any{
			"summary": "revised setup",
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "revised setup", updated.Summary)
		assert.True(t, updated.Updated.After(updated.Created) || updated.Updated.Equal(updated.Created))
	})

	t.Run("update missing", func(t *testing.T) {
		updated, err := testDB.UpdateChunk(ctx, uuid.NewString(), map[string]any{"summary": "x"})
		require.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := testDB.DeleteChunk(ctx, id)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = testDB.DeleteChunk(ctx, id)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestChunkBatchAndSearch(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	chunks := []models.KnowledgeChunk{
		{ID: surrealmodels.NewRecordID("chunk", uuid.NewString()), Content: "scheduler configuration", Type: "reference", Embedding: testEmbedding(31)},
		{ID: surrealmodels.NewRecordID("chunk", uuid.NewString()), Content: "scheduler tuning", Type: "howto", Embedding: testEmbedding(31)},
		{ID: surrealmodels.NewRecordID("chunk", uuid.NewString()), Content: "release notes", Type: "reference", Embedding: testEmbedding(300)},
	}
	saved, err := testDB.CreateChunks(ctx, chunks)
	require.NoError(t, err)
	assert.Len(t, saved, 3)

	results, err := testDB.SearchChunks(ctx, testEmbedding(31), nil, 0.95, 5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(results), 2)

	ref := "reference"
	typed, err := testDB.SearchChunks(ctx, testEmbedding(31), &ref, 0.95, 5)
	require.NoError(t, err)
	for _, r := range typed {
		assert.Equal(t, "reference", r.Type)
	}

	total, err := testDB.CountChunks(ctx, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 3)

	page, err := testDB.ListChunks(ctx, nil, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}
