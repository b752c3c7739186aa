package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoraio/memora/internal/models"
)

func newTestAssembler(turns *fakeTurnStore, mems *fakeMemoryStore) *Assembler {
	stm, _ := newTestSTM(turns, newFakeUserStore())
	ltm := NewLTMManager(mems, &fakeEmbedder{}, testLogger())
	return NewAssembler(stm, ltm, testLogger())
}

func seedContext(t *testing.T, turns *fakeTurnStore, mems *fakeMemoryStore) {
	t.Helper()
	ctx := context.Background()
	stm, _ := newTestSTM(turns, newFakeUserStore())
	ltm := NewLTMManager(mems, &fakeEmbedder{}, testLogger())

	for _, c := range []string{"turn one", "turn two", "turn three"} {
		_, err := stm.AppendTurn(ctx, "u1", "s1", c, models.RoleUser)
		require.NoError(t, err)
	}
	_, err := ltm.Remember(ctx, "u1", "favorite topic: astronomy", models.MemoryTypePreference, "", 0.8)
	require.NoError(t, err)
}

func TestAssemble(t *testing.T) {
	ctx := context.Background()

	t.Run("joins both tiers", func(t *testing.T) {
		turns := &fakeTurnStore{}
		mems := &fakeMemoryStore{}
		seedContext(t, turns, mems)
		asm := newTestAssembler(turns, mems)

		bundle, err := asm.Assemble(ctx, "u1", "s1", "favorite topic: astronomy", AssembleOptions{})
		require.NoError(t, err)
		assert.False(t, bundle.Partial)
		assert.Len(t, bundle.RecentTurns, 3)
		require.Len(t, bundle.Relevant, 1)
		assert.Equal(t, "favorite topic: astronomy", bundle.Relevant[0].Content)
	})

	t.Run("caps recent turns", func(t *testing.T) {
		turns := &fakeTurnStore{}
		mems := &fakeMemoryStore{}
		seedContext(t, turns, mems)
		asm := newTestAssembler(turns, mems)

		bundle, err := asm.Assemble(ctx, "u1", "s1", "anything", AssembleOptions{MaxTurns: 2})
		require.NoError(t, err)
		require.Len(t, bundle.RecentTurns, 2)
		assert.Equal(t, "turn two", bundle.RecentTurns[0].Content, "chronological order")
		assert.Equal(t, "turn three", bundle.RecentTurns[1].Content)
	})

	t.Run("degrades to partial on long-term failure", func(t *testing.T) {
		turns := &fakeTurnStore{}
		mems := &fakeMemoryStore{}
		seedContext(t, turns, mems)
		mems.failSearch = errors.New("vector index offline")
		asm := newTestAssembler(turns, mems)

		bundle, err := asm.Assemble(ctx, "u1", "s1", "anything", AssembleOptions{})
		require.NoError(t, err)
		assert.True(t, bundle.Partial)
		assert.Nil(t, bundle.Relevant)
		assert.Len(t, bundle.RecentTurns, 3, "short-term half still present")
	})

	t.Run("validates input", func(t *testing.T) {
		asm := newTestAssembler(&fakeTurnStore{}, &fakeMemoryStore{})

		var verr *ValidationError
		_, err := asm.Assemble(ctx, "", "s1", "query", AssembleOptions{})
		assert.ErrorAs(t, err, &verr)
		_, err = asm.Assemble(ctx, "u1", "s1", "  ", AssembleOptions{})
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("empty stores yield empty bundle", func(t *testing.T) {
		asm := newTestAssembler(&fakeTurnStore{}, &fakeMemoryStore{})

		bundle, err := asm.Assemble(ctx, "u1", "s1", "query", AssembleOptions{})
		require.NoError(t, err)
		assert.False(t, bundle.Partial)
		assert.Empty(t, bundle.RecentTurns)
		assert.Empty(t, bundle.Relevant)
	})
}
