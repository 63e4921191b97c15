package leaderboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/errors"
	"github.com/victornm/tables/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
	defaultSize     = 10
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
	// Size is the number of entries returned by GetLeaderboard.
	Size int
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
	size   int
}

func NewService(c Config) *Service {
	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
		size:   c.Size,
	}

	if s.size <= 0 {
		s.size = defaultSize
	}

	s.eb.Subscribe(domain.EventNameScoreRecorded, func(ctx context.Context, e event.Event) error {
		return s.UpdateLeaderboard(ctx, e.(domain.EventScoreRecorded))
	})

	s.eb.Subscribe(domain.EventNameScoresCleared, func(ctx context.Context, e event.Event) error {
		return s.ResetLeaderboard(ctx, e.(domain.EventScoresCleared))
	})

	return s
}

// GetLeaderboard returns the fastest users of a table, one entry per user.
// The label may be written with '.' or ','.
func (s *Service) GetLeaderboard(ctx context.Context, table string) (*domain.Leaderboard, error) {
	operand, op, err := domain.ParseTableLabel(table)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid table %q", table),
			errors.WithCause(err),
		)
	}
	label := domain.TableLabel(operand, op)

	res, err := s.redis.ZRangeWithScores(ctx, s.getLeaderboardKey(label), 0, int64(s.size-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("leaderboard not found: table=%s", label))
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.LeaderboardEntry{
			Username:   z.Member.(string),
			DurationMs: int64(math.Round(z.Score)),
		})
	}

	return &domain.Leaderboard{
		Table:   label,
		Entries: entries,
	}, nil
}

// UpdateLeaderboard keeps the user's time on the table if it beats their previous best.
func (s *Service) UpdateLeaderboard(ctx context.Context, e domain.EventScoreRecorded) error {
	sc := e.Score

	_, err := s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAddArgs(ctx, s.getLeaderboardKey(sc.TableLabel), redis.ZAddArgs{
			LT: true,
			Members: []redis.Z{{
				Score:  float64(sc.DurationMs),
				Member: sc.Username,
			}},
		})
		p.SAdd(ctx, s.getTablesKey(), sc.TableLabel)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	return s.schedulePublishLeaderboard(ctx, sc)
}

// ResetLeaderboard removes a cleared user from every table, or every table when all scores were cleared.
func (s *Service) ResetLeaderboard(ctx context.Context, e domain.EventScoresCleared) error {
	tables, err := s.redis.SMembers(ctx, s.getTablesKey()).Result()
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	_, err = s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, t := range tables {
			if e.Username == "" {
				p.Del(ctx, s.getLeaderboardKey(t))
				continue
			}
			p.ZRem(ctx, s.getLeaderboardKey(t), e.Username)
		}

		if e.Username == "" {
			p.Del(ctx, s.getTablesKey())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset leaderboard: %w", err)
	}

	return nil
}

// schedulePublishLeaderboard publishes at most one leaderboard.updated event
// per table and publish interval, across all instances sharing the Redis.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, sc domain.ScoreRecord) error {
	ok, err := s.redis.SetNX(ctx, s.getLeaderboardTimeKey(sc.TableLabel), sc.Timestamp.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	return s.publishLeaderboard(ctx, sc)
}

func (s *Service) publishLeaderboard(ctx context.Context, sc domain.ScoreRecord) error {
	l, err := s.GetLeaderboard(ctx, sc.TableLabel)
	if err != nil {
		return fmt.Errorf("get leaderboard failed: table=%s: %w", sc.TableLabel, err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return nil
}

func (s *Service) getLeaderboardKey(table string) string {
	return fmt.Sprintf("%s:table:%s:leaderboard", s.prefix, table)
}

func (s *Service) getLeaderboardTimeKey(table string) string {
	return fmt.Sprintf("%s:table:%s:time", s.prefix, table)
}

func (s *Service) getTablesKey() string {
	return fmt.Sprintf("%s:tables", s.prefix)
}
