package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/tables/internal/config"
)

type testConfig struct {
	HTTP struct {
		Port int32
	}

	Store struct {
		Driver string
		Path   string
	}

	Redis struct {
		Addrs []string
	}

	Session struct {
		TTL time.Duration
	}
}

func defaults() testConfig {
	var c testConfig
	c.HTTP.Port = 8080
	c.Store.Driver = "memory"
	c.Redis.Addrs = []string{"localhost:6379"}
	c.Session.TTL = time.Hour
	return c
}

func TestLoad(t *testing.T) {
	tests := map[string]struct {
		file    string
		env     map[string]string
		opts    []config.Option
		want    func() testConfig
		wantErr bool
	}{
		"defaults only": {
			want: defaults,
		},
		"file overrides defaults": {
			file: "store:\n  driver: sqlite\n  path: /tmp/x.db\nsession:\n  ttl: 30m\n",
			want: func() testConfig {
				c := defaults()
				c.Store.Driver = "sqlite"
				c.Store.Path = "/tmp/x.db"
				c.Session.TTL = 30 * time.Minute
				return c
			},
		},
		"env overrides file": {
			file: "http:\n  port: 9000\n",
			env: map[string]string{
				"TABLES_HTTP_PORT":   "9100",
				"TABLES_REDIS_ADDRS": "a:6379,b:6379",
			},
			opts: []config.Option{config.WithEnvPrefix("TABLES")},
			want: func() testConfig {
				c := defaults()
				c.HTTP.Port = 9100
				c.Redis.Addrs = []string{"a:6379", "b:6379"}
				return c
			},
		},
		"env sets keys the file leaves out": {
			file: "http:\n  port: 9000\n",
			env:  map[string]string{"TABLES_STORE_DRIVER": "redis"},
			opts: []config.Option{config.WithEnvPrefix("TABLES")},
			want: func() testConfig {
				c := defaults()
				c.HTTP.Port = 9000
				c.Store.Driver = "redis"
				return c
			},
		},
		"env without prefix": {
			env: map[string]string{"STORE_DRIVER": "redis"},
			want: func() testConfig {
				c := defaults()
				c.Store.Driver = "redis"
				return c
			},
		},
		"missing file": {
			file:    "-",
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var file string
			switch tt.file {
			case "":
			case "-":
				file = filepath.Join(t.TempDir(), "missing.yaml")
			default:
				file = filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(file, []byte(tt.file), 0o600))
			}

			c := defaults()
			err := config.Load(file, &c, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want(), c)
		})
	}
}
