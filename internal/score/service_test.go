package score_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/errors"
	"github.com/victornm/tables/internal/event"
	"github.com/victornm/tables/internal/score"
	"github.com/victornm/tables/internal/score/scoretest"
)

func TestService(t *testing.T) {
	repos := map[string]func(t *testing.T) score.Repository{
		"memory": func(*testing.T) score.Repository { return score.NewMemoryStore() },
		"redis":  func(t *testing.T) score.Repository { return score.NewRedisStore(makeRedis(t), "test") },
	}

	for name, makeRepo := range repos {
		makeRepo := makeRepo
		t.Run(name, func(t *testing.T) {
			scoretest.RunRepositoryTests(t, makeRepo)
		})
	}
}

func TestService_Insert_Validation(t *testing.T) {
	tests := map[string]domain.ScoreRecord{
		"missing username":  {Username: "  ", TableLabel: "7", DurationMs: 1},
		"missing table":     {Username: "Ann", DurationMs: 1},
		"negative duration": {Username: "Ann", TableLabel: "7", DurationMs: -1},
	}

	for name, r := range tests {
		r := r
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			repo := score.NewMemoryStore()
			s := score.NewService(score.Config{Repository: repo})

			err := s.Insert(context.Background(), r)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeInvalidArgument))

			all, _ := repo.LoadAll(context.Background())
			assert.Empty(t, all)
		})
	}
}

func TestService_Insert_DefaultsTimestamp(t *testing.T) {
	repo := score.NewMemoryStore()
	s := score.NewService(score.Config{
		Repository: repo,
		Now:        func() time.Time { return scoretest.Base },
	})

	require.NoError(t, s.Insert(context.Background(), domain.ScoreRecord{Username: "Ann", TableLabel: " 7 ", DurationMs: 0}))

	all, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.ScoreRecord{Username: "Ann", TableLabel: "7", Timestamp: scoretest.Base}, all[0])
}

func TestService_Insert_KeepsUsername(t *testing.T) {
	s := score.NewService(score.Config{Repository: score.NewMemoryStore()})
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, scoretest.Record(" Ann ", "7", 1000, 0)))

	rs, err := s.QueryForUser(ctx, "Ann")
	require.NoError(t, err)
	assert.Empty(t, rs)

	rs, err = s.QueryForUser(ctx, " Ann ")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, " Ann ", rs[0].Username)

	require.NoError(t, s.Clear(ctx, "Ann"))
	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestService_PersistenceError(t *testing.T) {
	failure := stderrors.New("disk full")
	s := score.NewService(score.Config{Repository: failingRepo{err: failure}})
	ctx := context.Background()

	err := s.Insert(ctx, scoretest.Record("Ann", "7", 1000, 0))
	require.ErrorIs(t, err, score.ErrPersistence)
	require.ErrorIs(t, err, failure)
	assert.True(t, errors.HasCode(err, errors.CodeUnavailable))

	_, err = s.QueryForUser(ctx, "Ann")
	require.ErrorIs(t, err, score.ErrPersistence)

	_, err = s.ListAll(ctx)
	require.ErrorIs(t, err, score.ErrPersistence)

	err = s.Clear(ctx, "")
	require.ErrorIs(t, err, score.ErrPersistence)
}

func TestService_Events(t *testing.T) {
	var (
		mu       sync.Mutex
		received []event.Event
	)

	eb := event.NewBus()
	for _, name := range []string{domain.EventNameScoreRecorded, domain.EventNameScoresCleared} {
		eb.Subscribe(name, func(_ context.Context, e event.Event) error {
			mu.Lock()
			received = append(received, e)
			mu.Unlock()
			return nil
		})
	}

	s := score.NewService(score.Config{Repository: score.NewMemoryStore(), EventBus: eb})
	r := scoretest.Record("Ann", "7", 1000, 0)
	require.NoError(t, s.Insert(context.Background(), r))
	require.NoError(t, s.Clear(context.Background(), "Ann"))
	eb.Stop()

	assert.ElementsMatch(t, []event.Event{
		domain.EventScoreRecorded{Score: r},
		domain.EventScoresCleared{Username: "Ann"},
	}, received)
}

func makeRedis(t *testing.T) redis.UniversalClient {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	t.Cleanup(func() { rc.Close() })
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	return rc
}

type failingRepo struct {
	err error
}

func (f failingRepo) LoadAll(context.Context) ([]domain.ScoreRecord, error) { return nil, f.err }

func (f failingRepo) Append(context.Context, domain.ScoreRecord) error { return f.err }

func (f failingRepo) Clear(context.Context, string) error { return f.err }
