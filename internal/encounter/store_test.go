package encounter

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_InsertFind(t *testing.T) {
	ctx := context.Background()
	s := NewInMemorySessionStore()

	g := newTestSession(true, false)
	require.NoError(t, s.Insert(ctx, g))
	require.ErrorIs(t, s.Insert(ctx, g), errIDTaken)

	got, ok, err := s.Find(ctx, g.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, g, got)

	// Find returns a copy: mutating it must not leak into the store
	got.App.Round = 42
	again, _, _ := s.Find(ctx, g.ID)
	assert.Equal(t, 1, again.App.Round)

	_, ok, err = s.Find(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryStore_UpdateCommitsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewInMemorySessionStore()

	g := newTestSession(true, false)
	require.NoError(t, s.Insert(ctx, g))

	_, err := s.Update(ctx, g.ID, func(g *GameSession) error {
		g.App.Round = 2
		return reject("changed my mind")
	})
	require.ErrorIs(t, err, ErrRejected)

	got, _, _ := s.Find(ctx, g.ID)
	assert.Equal(t, 1, got.App.Round, "failed apply must leave the record untouched")

	updated, err := s.Update(ctx, g.ID, func(g *GameSession) error {
		g.App.Round = 2
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.App.Round)

	_, err = s.Update(ctx, "missing", func(*GameSession) error { return nil })
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_ConcurrentFirstWrites(t *testing.T) {
	ctx := context.Background()
	s := NewInMemorySessionStore()

	g := newTestSession(true, true)
	require.NoError(t, s.Insert(ctx, g))

	// Many concurrent "first" faction writes: exactly one may pass the
	// unset check, the rest must see the field populated.
	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Update(ctx, g.ID, func(g *GameSession) error {
				return ChooseFaction{Value: "Guild"}.apply(RoleCreator, g)
			})
		}(i)
	}
	wg.Wait()

	okCount := 0
	for _, err := range errs {
		if err == nil {
			okCount++
		} else {
			require.ErrorIs(t, err, ErrRejected)
		}
	}
	assert.Equal(t, 1, okCount)
}
