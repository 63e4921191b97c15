package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/victornm/tables/internal/api"
	"github.com/victornm/tables/internal/event"
	"github.com/victornm/tables/internal/leaderboard"
	"github.com/victornm/tables/internal/quiz"
	"github.com/victornm/tables/internal/score"
	"github.com/victornm/tables/internal/session"
	"github.com/victornm/tables/internal/telemetry"
	"github.com/victornm/tables/internal/user"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Log telemetry.LogConfig

	Store StoreConfig

	Redis struct {
		// Leaderboard and Pubsub are optional: without addresses the
		// leaderboard and the notifications are disabled.
		Leaderboard RedisConfig
		Pubsub      RedisConfig
		// User keeps client identities; in memory when it has no addresses.
		User RedisConfig
	}

	Session struct {
		TTL           time.Duration
		SweepInterval time.Duration
	}

	Leaderboard struct {
		Size int
	}

	RateLimit api.RateLimitConfig
}

// DefaultConfig returns the configuration used for keys missing from the file and the environment.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 8081
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Store.Driver = DriverSQLite
	c.Store.Path = "tables.db"
	c.Store.Redis.Prefix = "tables"
	c.Redis.Leaderboard.Prefix = "tables"
	c.Redis.Pubsub.Prefix = "tables"
	c.Redis.User.Prefix = "tables"
	c.Session.TTL = time.Hour
	c.Session.SweepInterval = 5 * time.Minute
	c.Leaderboard.Size = 10
	c.RateLimit.RPS = 20
	c.RateLimit.Burst = 40
	return c
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			leaderboard redis.UniversalClient
			pubsub      redis.UniversalClient
			user        redis.UniversalClient
		}

		score      score.Repository
		closeScore func() error
	}

	service struct {
		user        *user.Service
		session     *session.Service
		score       *score.Service
		leaderboard *leaderboard.Service
	}

	http   *http.Server
	grpc   *grpc.Server
	health *health.Server

	// ctx is cancelled by Shutdown to stop background loops.
	ctx  context.Context
	stop context.CancelFunc
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}
	s.ctx, s.stop = context.WithCancel(context.Background())

	s.eb = event.NewBus()
	telemetry.ObserveEvents(s.eb)

	if err := s.initInfra(); err != nil {
		s.stop()
		s.closeInfra()
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	repo, closeRepo, err := OpenScoreRepository(context.Background(), s.c.Store)
	if err != nil {
		return fmt.Errorf("score store: %w", err)
	}
	s.infra.score, s.infra.closeScore = repo, closeRepo

	return nil
}

func (s *Server) initRedis() error {
	connect := func(c RedisConfig) (redis.UniversalClient, error) {
		if len(c.Addrs) == 0 {
			return nil, nil
		}
		return connectRedis(context.Background(), c)
	}

	var err error
	s.infra.redis.leaderboard, err = connect(s.c.Redis.Leaderboard)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	s.infra.redis.pubsub, err = connect(s.c.Redis.Pubsub)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}

	s.infra.redis.user, err = connect(s.c.Redis.User)
	if err != nil {
		return fmt.Errorf("user: %w", err)
	}

	return nil
}

func (s *Server) initService() {
	s.service.score = score.NewService(score.Config{
		Repository: s.infra.score,
		EventBus:   s.eb,
	})

	var users user.Repository = user.NewMemoryStore()
	if r := s.infra.redis.user; r != nil {
		users = user.NewRedisStore(r, s.c.Redis.User.Prefix)
	}
	s.service.user = user.NewService(user.Config{
		Repository: users,
	})

	s.service.session = session.NewService(session.Config{
		Engine:   quiz.NewEngine(quiz.Config{}),
		Score:    s.service.score,
		EventBus: s.eb,
		TTL:      s.c.Session.TTL,
	})

	if r := s.infra.redis.leaderboard; r != nil {
		s.service.leaderboard = leaderboard.NewService(leaderboard.Config{
			EventBus: s.eb,
			Redis:    r,
			Prefix:   s.c.Redis.Leaderboard.Prefix,
			Size:     s.c.Leaderboard.Size,
		})
	}
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery(), telemetry.MetricsMiddleware())

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor()...)
	s.health = health.NewServer()
	healthpb.RegisterHealthServer(s.grpc, s.health)

	c := api.Config{
		Router:       e,
		EventBus:     s.eb,
		User:         s.service.user,
		Session:      s.service.session,
		Score:        s.service.score,
		Leaderboard:  s.service.leaderboard,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
		RateLimit:    s.c.RateLimit,
	}
	if r := s.infra.redis.pubsub; r != nil {
		c.Redis = r
	}
	api.New(c)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Handler serves the HTTP API.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() {
	ctx := s.ctx

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		return s.service.session.Run(ctx, s.c.Session.SweepInterval)
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.stop()

	s.eb.Stop()
	s.closeInfra()

	slog.InfoContext(ctx, "server: shutdown completed")
}

func (s *Server) closeInfra() {
	for _, r := range []redis.UniversalClient{
		s.infra.redis.leaderboard,
		s.infra.redis.pubsub,
		s.infra.redis.user,
	} {
		if r != nil {
			_ = r.Close()
		}
	}

	if s.infra.closeScore != nil {
		if err := s.infra.closeScore(); err != nil {
			slog.Error("server: close score store failed", "error", err)
		}
	}
}
