package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/numeric"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Leaderboard struct {
		Table   string             `json:"table"`
		Entries []LeaderboardEntry `json:"entries"`
	}

	LeaderboardEntry struct {
		Rank       int    `json:"rank"`
		Username   string `json:"username"`
		DurationMs int64  `json:"duration_ms"`
		// Duration is the time in seconds written with a decimal comma, e.g. "12,5".
		Duration string `json:"duration"`
	}
)

// PublishLeaderboardUpdated notifies every ranked user of a table that its leaderboard changed.
func (a *API) PublishLeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	data := toLeaderboard(e.Leaderboard)

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range data.Entries {
		eg.Go(func() error {
			return a.publishNotification(ctx, entry.Username, e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, user, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, UserChannel(a.prefix, user), b).Err()
}

// UserChannel is the Redis channel on which a user receives notifications.
func UserChannel(prefix, user string) string {
	return fmt.Sprintf("%s:user:%s", prefix, user)
}

func toLeaderboard(l domain.Leaderboard) Leaderboard {
	data := Leaderboard{
		Table:   l.Table,
		Entries: make([]LeaderboardEntry, 0, len(l.Entries)),
	}

	for i, entry := range l.Entries {
		data.Entries = append(data.Entries, LeaderboardEntry{
			Rank:       i + 1,
			Username:   entry.Username,
			DurationMs: entry.DurationMs,
			Duration:   numeric.FormatMillis(entry.DurationMs),
		})
	}

	return data
}
