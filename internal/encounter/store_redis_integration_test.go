//go:build integration

package encounter

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, rdb.Ping(ctx).Err(), "redis is not reachable")
	return rdb
}

func TestRedisStore_InsertFindUpdate(t *testing.T) {
	ctx := context.Background()
	rdb := newRedisClient(t)
	require.NoError(t, rdb.FlushDB(ctx).Err())

	s := NewRedisSessionStore(rdb, time.Hour)

	g := newTestSession(true, true)
	require.NoError(t, s.Insert(ctx, g))
	require.ErrorIs(t, s.Insert(ctx, g), errIDTaken)

	got, ok, err := s.Find(ctx, g.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, 1, got.App.Round)

	updated, err := s.Update(ctx, g.ID, func(g *GameSession) error {
		return ChooseFaction{Value: "Guild"}.apply(RoleCreator, g)
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Players.Creator.Crew.Faction)

	// write-once survives the round-trip
	_, err = s.Update(ctx, g.ID, func(g *GameSession) error {
		return ChooseFaction{Value: "Outcasts"}.apply(RoleCreator, g)
	})
	require.ErrorIs(t, err, ErrRejected)

	reloaded, _, err := s.Find(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Guild", *reloaded.Players.Creator.Crew.Faction)

	_, err = s.Update(ctx, "missing", func(*GameSession) error { return nil })
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_SurvivesServiceRestart(t *testing.T) {
	ctx := context.Background()
	rdb := newRedisClient(t)
	require.NoError(t, rdb.FlushDB(ctx).Err())

	store := NewRedisSessionStore(rdb, time.Hour)

	svc1 := NewService(store, nil, nil)
	g, err := svc1.Create(ctx, "003459", Options{Multiplayer: true, ChooseCrew: true}, "alice@example.com")
	require.NoError(t, err)
	_, err = svc1.Join(ctx, g.ID, "bob@example.com")
	require.NoError(t, err)
	_, err = svc1.Apply(ctx, g.ID, "alice@example.com", ChooseFaction{Value: "Guild"})
	require.NoError(t, err)

	// "restart": a fresh service over the same redis
	svc2 := NewService(NewRedisSessionStore(rdb, time.Hour), nil, nil)

	view, err := svc2.View(ctx, g.ID, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, view.Me.Crew.Faction)
	assert.Equal(t, "Guild", *view.Me.Crew.Faction)
	assert.Equal(t, StepLeader, view.Me.ChooseStep)

	// and the guard still holds on the new instance
	_, err = svc2.Apply(ctx, g.ID, "alice@example.com", ChooseFaction{Value: "Outcasts"})
	require.ErrorIs(t, err, ErrRejected)
}

func TestRedisStore_ConcurrentFirstWrites(t *testing.T) {
	ctx := context.Background()
	rdb := newRedisClient(t)
	require.NoError(t, rdb.FlushDB(ctx).Err())

	s := NewRedisSessionStore(rdb, time.Hour)
	g := newTestSession(true, true)
	require.NoError(t, s.Insert(ctx, g))

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := s.Update(ctx, g.ID, func(g *GameSession) error {
				return ChooseFaction{Value: "Guild"}.apply(RoleCreator, g)
			})
			errs <- err
		}()
	}

	okCount := 0
	for i := 0; i < n; i++ {
		if err := <-errs; err == nil {
			okCount++
		} else {
			require.ErrorIs(t, err, ErrRejected)
		}
	}
	assert.Equal(t, 1, okCount)
}
