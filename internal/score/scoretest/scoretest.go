// Package scoretest checks score repository backends against the score service contract.
package scoretest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/score"
)

// Base is the timestamp of the first record built by Record.
var Base = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// Record builds a score record created minute minutes after Base.
func Record(user, table string, durationMs int64, minute int) domain.ScoreRecord {
	return domain.ScoreRecord{
		Username:   user,
		TableLabel: table,
		DurationMs: durationMs,
		Timestamp:  Base.Add(time.Duration(minute) * time.Minute),
	}
}

// RunRepositoryTests runs the service contract against a repository backend.
func RunRepositoryTests(t *testing.T, makeRepo func(t *testing.T) score.Repository) {
	t.Run("query for user returns only that user's records", func(t *testing.T) {
		s := score.NewService(score.Config{Repository: makeRepo(t)})
		ctx := context.Background()

		for i, u := range []string{"Ann", "Bob", "Ann", "Bob", "Ann"} {
			require.NoError(t, s.Insert(ctx, Record(u, "7", int64(1000*(i+1)), i)))
		}

		rs, err := s.QueryForUser(ctx, "Ann")
		require.NoError(t, err)
		require.Len(t, rs, 3)
		for _, r := range rs {
			assert.Equal(t, "Ann", r.Username)
		}

		rs, err = s.QueryForUser(ctx, "ann")
		require.NoError(t, err)
		assert.Empty(t, rs, "matching should be case-sensitive")

		all, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})

	t.Run("sort by duration ascending", func(t *testing.T) {
		s := score.NewService(score.Config{Repository: makeRepo(t)})
		ctx := context.Background()

		for i, d := range []int64{12000, 8000, 15000} {
			require.NoError(t, s.Insert(ctx, Record("Ann", "7", d, i)))
		}

		rs, err := s.QueryForUser(ctx, "Ann")
		require.NoError(t, err)

		var got []int64
		for _, r := range score.SortBy(rs, domain.SortKeyDuration, true) {
			got = append(got, r.DurationMs)
		}
		assert.Equal(t, []int64{8000, 12000, 15000}, got)
	})

	t.Run("insert keeps the record fields", func(t *testing.T) {
		s := score.NewService(score.Config{Repository: makeRepo(t)})
		ctx := context.Background()

		want := Record("Ann", ":2,5", 9500, 3)
		require.NoError(t, s.Insert(ctx, want))

		rs, err := s.QueryForUser(ctx, "Ann")
		require.NoError(t, err)
		require.Len(t, rs, 1)
		assert.Equal(t, want.TableLabel, rs[0].TableLabel)
		assert.Equal(t, want.DurationMs, rs[0].DurationMs)
		assert.True(t, want.Timestamp.Equal(rs[0].Timestamp))
	})

	t.Run("clear a single user", func(t *testing.T) {
		s := score.NewService(score.Config{Repository: makeRepo(t)})
		ctx := context.Background()

		for i, u := range []string{"Ann", "Bob", "Ann"} {
			require.NoError(t, s.Insert(ctx, Record(u, "3", 1000, i)))
		}

		require.NoError(t, s.Clear(ctx, "Ann"))

		all, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Bob", all[0].Username)
	})

	t.Run("clear matches the username exactly", func(t *testing.T) {
		s := score.NewService(score.Config{Repository: makeRepo(t)})
		ctx := context.Background()

		for i, u := range []string{"Ann", "ann", "Ann"} {
			require.NoError(t, s.Insert(ctx, Record(u, "3", 1000, i)))
		}

		require.NoError(t, s.Clear(ctx, "ann"))

		rs, err := s.QueryForUser(ctx, "Ann")
		require.NoError(t, err)
		assert.Len(t, rs, 2)

		rs, err = s.QueryForUser(ctx, "ann")
		require.NoError(t, err)
		assert.Empty(t, rs)
	})

	t.Run("clear everything", func(t *testing.T) {
		s := score.NewService(score.Config{Repository: makeRepo(t)})
		ctx := context.Background()

		for i, u := range []string{"Ann", "Bob"} {
			require.NoError(t, s.Insert(ctx, Record(u, "3", 1000, i)))
		}

		require.NoError(t, s.Clear(ctx, ""))

		all, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}
