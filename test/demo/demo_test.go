//go:build integration_test

package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/tables/internal/api"
	"github.com/victornm/tables/internal/domain"
)

const (
	httpAddr = "http://localhost:8080"
	grpcAddr = "localhost:8081"
	prefix   = "tables"
)

// TestDemo plays the table of 1 for several users at once against a running
// server and prints the leaderboard notifications the first user receives.
func TestDemo(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	checkHealth(ctx, t)

	var (
		wg    = new(sync.WaitGroup)
		users = []string{"u1", "u2", "u3"}
	)

	// Prepare Redis subscriber
	subscribeAsUser(t, makeRedis(t), wg, "U1")

	var eg errgroup.Group
	for _, u := range users {
		u := u
		eg.Go(func() error {
			c := client{id: "demo-" + u}

			if _, err := c.do(ctx, http.MethodPost, "/api/v1/login", api.LoginRequest{Username: u}, nil); err != nil {
				return fmt.Errorf("user %q login: %w", u, err)
			}

			var ss api.Session
			if _, err := c.do(ctx, http.MethodPost, "/api/v1/sessions", api.StartSessionRequest{Table: "1", Operation: "multiply"}, &ss); err != nil {
				return fmt.Errorf("user %q start session: %w", u, err)
			}

			for ss.Prompt != "" {
				var res api.SubmitAnswerResponse
				answer := strings.Fields(ss.Prompt)[0]
				if _, err := c.do(ctx, http.MethodPost, "/api/v1/sessions/"+ss.ID+"/answers", api.SubmitAnswerRequest{Answer: answer}, &res); err != nil {
					return fmt.Errorf("user %q submit answer: %w", u, err)
				}
				ss = res.Session
			}

			t.Logf("User %q finished in %dms", u, ss.DurationMs)
			return nil
		})
	}

	require.NoError(t, eg.Wait())

	var l api.Leaderboard
	_, err := client{}.do(ctx, http.MethodGet, "/api/v1/leaderboard?table=1", nil, &l)
	require.NoError(t, err)
	t.Logf("leaderboard:\n%s", formatLeaderboard(l))

	wg.Wait()
}

type client struct {
	id string
}

func (c client) do(ctx context.Context, method, path string, body, resp any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, httpAddr+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.id != "" {
		req.Header.Set(api.HeaderClientID, c.id)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return res.StatusCode, fmt.Errorf("status %d", res.StatusCode)
	}

	if resp != nil {
		return res.StatusCode, json.NewDecoder(res.Body).Decode(resp)
	}
	return res.StatusCode, nil
}

func checkHealth(ctx context.Context, t *testing.T) {
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func subscribeAsUser(t *testing.T, rc redis.UniversalClient, wg *sync.WaitGroup, u string) {
	wg.Add(1)
	sub := subscribeRedis(t, rc, api.UserChannel(prefix, u))
	go func() {
		defer wg.Done()

		for msg := range sub {
			var n struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				t.Logf("unmarshal notification: %v", err)
				continue
			}

			switch n.Event {
			case domain.EventNameLeaderboardUpdated:
				var l api.Leaderboard
				if err := json.Unmarshal(n.Data, &l); err != nil {
					t.Logf("unmarshal leaderboard: %v", err)
					continue
				}

				t.Logf("%s leaderboard:\n%s", u, formatLeaderboard(l))
			}
		}
	}()
}

func subscribeRedis(t *testing.T, rc redis.UniversalClient, pattern string) <-chan *redis.Message {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	sub := rc.PSubscribe(ctx, pattern)
	t.Cleanup(func() {
		cancel()
		sub.Close()
	})

	c := make(chan *redis.Message)
	go func() {
		defer close(c)

		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				t.Log(err)
				return
			}

			c <- msg
		}
	}()

	return c
}

func makeRedis(t *testing.T) redis.UniversalClient {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{"localhost:6379"},
	})
	t.Cleanup(func() { r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.Ping(ctx).Err(); err != nil {
		t.Fatal(err)
	}

	return r
}

func formatLeaderboard(l api.Leaderboard) string {
	var s string
	for _, e := range l.Entries {
		s += fmt.Sprintf("%d. %s: %ss\n", e.Rank, e.Username, e.Duration)
	}
	return s
}
