package encounter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// RedisSessionStore keeps each session as a JSON document under
// game:<id>:session with a TTL.
//
// Update runs under WATCH: if another writer commits between our read and our
// write the transaction fails and is retried, so apply always sees the latest
// record and its precondition checks cannot be bypassed by a concurrent
// first-write.
type RedisSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (s *RedisSessionStore) key(id string) string {
	return fmt.Sprintf("game:%s:session", id)
}

func (s *RedisSessionStore) Insert(ctx context.Context, g *GameSession) error {
	b, err := json.Marshal(g)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.key(g.ID), b, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errIDTaken
	}
	return nil
}

func (s *RedisSessionStore) Find(ctx context.Context, id string) (*GameSession, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var g GameSession
	if err := json.Unmarshal(val, &g); err != nil {
		return nil, false, err
	}
	return &g, true, nil
}

func (s *RedisSessionStore) Update(ctx context.Context, id string, apply func(*GameSession) error) (*GameSession, error) {
	key := s.key(id)

	var out *GameSession
	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var g GameSession
		if err := json.Unmarshal(val, &g); err != nil {
			return err
		}
		if err := apply(&g); err != nil {
			return err // nothing written, stored record untouched
		}

		b, err := json.Marshal(&g)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = &g
		return nil
	}

	// Two cooperating players rarely collide, so a handful of quick retries
	// on WATCH contention is plenty.
	backoff := retry.WithMaxRetries(5, retry.NewConstant(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.rdb.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
