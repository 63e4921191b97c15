package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/tables/internal/score"
	"github.com/victornm/tables/internal/score/mysql"
	"github.com/victornm/tables/internal/score/postgres"
	"github.com/victornm/tables/internal/score/sqlite"
	"github.com/victornm/tables/internal/telemetry"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type RedisConfig struct {
	Addrs  []string
	Pass   string
	Prefix string
}

type StoreConfig struct {
	// Driver is one of memory, redis, sqlite, postgres, mysql.
	Driver string
	// Path of the sqlite database file.
	Path string
	// DSN of the mysql database, or of the postgres one when Postgres.Addr is empty.
	DSN string

	Postgres struct {
		Addr string
		User string
		Pass string
		Name string
	}

	Redis RedisConfig
}

// OpenScoreRepository opens the score backend selected by c.Driver. The
// returned function releases its connections.
func OpenScoreRepository(ctx context.Context, c StoreConfig) (score.Repository, func() error, error) {
	switch c.Driver {
	case DriverMemory:
		return score.NewMemoryStore(), noop, nil

	case DriverRedis:
		r, err := connectRedis(ctx, c.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		return score.NewRedisStore(r, c.Redis.Prefix), r.Close, nil

	case "", DriverSQLite:
		s, err := sqlite.Open(ctx, c.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case DriverPostgres:
		db, err := connectPostgres(ctx, c)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}

		s := postgres.NewStore(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return s, func() error { db.Close(); return nil }, nil

	case DriverMySQL:
		s, err := mysql.Open(c.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", c.Driver)
	}
}

func connectRedis(ctx context.Context, c RedisConfig) (redis.UniversalClient, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    c.Addrs,
		Password: c.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return nil, err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, err
	}

	return r, nil
}

func connectPostgres(ctx context.Context, c StoreConfig) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	dsn := c.DSN
	if p := c.Postgres; p.Addr != "" {
		dsn = fmt.Sprintf("postgres://%s:%s@%s/%s", p.User, p.Pass, p.Addr, p.Name)
	}

	cc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func noop() error { return nil }
