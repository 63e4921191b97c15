package score

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/tables/internal/domain"
)

const maxClearRetries = 5

type lranger interface {
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RedisStore keeps the collection as a Redis list of JSON records under a single key.
type RedisStore struct {
	redis redis.UniversalClient
	key   string
}

func NewRedisStore(r redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		redis: r,
		key:   fmt.Sprintf("%s:scores", prefix),
	}
}

func (s *RedisStore) LoadAll(ctx context.Context) ([]domain.ScoreRecord, error) {
	return s.load(ctx, s.redis)
}

func (s *RedisStore) load(ctx context.Context, c lranger) ([]domain.ScoreRecord, error) {
	vals, err := c.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", s.key, err)
	}

	rs := make([]domain.ScoreRecord, 0, len(vals))
	for _, v := range vals {
		var r domain.ScoreRecord
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode score: %w", err)
		}
		rs = append(rs, r)
	}

	return rs, nil
}

func (s *RedisStore) Append(ctx context.Context, r domain.ScoreRecord) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}

	return s.redis.RPush(ctx, s.key, b).Err()
}

func (s *RedisStore) Clear(ctx context.Context, username string) error {
	if username == "" {
		return s.redis.Del(ctx, s.key).Err()
	}

	// Rewrite the list without the user's records; retry if it changed meanwhile.
	rewrite := func(tx *redis.Tx) error {
		rs, err := s.load(ctx, tx)
		if err != nil {
			return err
		}

		keep := make([]any, 0, len(rs))
		for _, r := range rs {
			if r.Username == username {
				continue
			}
			b, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encode score: %w", err)
			}
			keep = append(keep, b)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, s.key)
			if len(keep) > 0 {
				p.RPush(ctx, s.key, keep...)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxClearRetries; i++ {
		err := s.redis.Watch(ctx, rewrite, s.key)
		if !stderrors.Is(err, redis.TxFailedErr) {
			return err
		}
	}

	return fmt.Errorf("clear scores of %s: too many concurrent updates", username)
}
