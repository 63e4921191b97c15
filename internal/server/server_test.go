package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/tables/internal/score"
	"github.com/victornm/tables/internal/score/scoretest"
	"github.com/victornm/tables/internal/server"
)

func TestOpenScoreRepository(t *testing.T) {
	tests := map[string]struct {
		config  func(t *testing.T) server.StoreConfig
		wantErr bool
	}{
		"memory": {
			config: func(*testing.T) server.StoreConfig { return server.StoreConfig{Driver: server.DriverMemory} },
		},
		"sqlite": {
			config: func(t *testing.T) server.StoreConfig {
				return server.StoreConfig{Driver: server.DriverSQLite, Path: filepath.Join(t.TempDir(), "scores.db")}
			},
		},
		"redis": {
			config: func(t *testing.T) server.StoreConfig {
				c := server.StoreConfig{Driver: server.DriverRedis}
				c.Redis.Addrs = []string{miniredis.RunT(t).Addr()}
				c.Redis.Prefix = "test"
				return c
			},
		},
		"unknown driver": {
			config:  func(*testing.T) server.StoreConfig { return server.StoreConfig{Driver: "csv"} },
			wantErr: true,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			repo, closeRepo, err := server.OpenScoreRepository(context.Background(), tt.config(t))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { assert.NoError(t, closeRepo()) })

			scoretest.RunRepositoryTests(t, func(t *testing.T) score.Repository {
				require.NoError(t, repo.Clear(context.Background(), ""))
				return repo
			})
		})
	}
}

func TestInit(t *testing.T) {
	c := server.DefaultConfig()
	c.Store.Driver = server.DriverMemory
	c.Redis.Leaderboard.Addrs = []string{miniredis.RunT(t).Addr()}
	c.RateLimit.RPS = 0

	s, err := server.Init(c)
	require.NoError(t, err)
	t.Cleanup(s.Shutdown)

	for path, want := range map[string]int{
		"/api/v1/tables":              http.StatusOK,
		"/metrics":                    http.StatusOK,
		"/api/v1/leaderboard?table=7": http.StatusNotFound,
		"/api/v1/nope":                http.StatusNotFound,
	} {
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestInit_StoreError(t *testing.T) {
	c := server.DefaultConfig()
	c.Store.Driver = "csv"

	_, err := server.Init(c)
	require.Error(t, err)
}
