package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/codes"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/errors"
	"github.com/victornm/tables/internal/event"
	"github.com/victornm/tables/internal/leaderboard"
	"github.com/victornm/tables/internal/score"
	"github.com/victornm/tables/internal/session"
	"github.com/victornm/tables/internal/user"
)

const (
	HeaderClientID = "X-Client-ID"

	ctxKeyClient = "client"
)

type Config struct {
	Router   gin.IRouter
	EventBus *event.Bus
	User     *user.Service
	Session  *session.Service
	Score    *score.Service
	// Leaderboard and Redis are optional; without them the leaderboard
	// endpoint answers 503 and no notifications are sent.
	Leaderboard  *leaderboard.Service
	Redis        Redis
	PubsubPrefix string
	RateLimit    RateLimitConfig
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type API struct {
	us  *user.Service
	qss *session.Service
	ss  *score.Service
	ls  *leaderboard.Service

	redis  Redis
	prefix string
}

func New(c Config) *API {
	a := &API{
		us:     c.User,
		qss:    c.Session,
		ss:     c.Score,
		ls:     c.Leaderboard,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
	}

	// HTTP APIs
	v1 := c.Router.Group("/api/v1", RateLimiter(c.RateLimit))
	v1.GET("/tables", a.ListTables)
	v1.GET("/leaderboard", a.GetLeaderboard)
	v1.GET("/scores", a.ListScores)
	v1.DELETE("/scores", a.ClearScores)

	client := v1.Group("", requireClient())
	client.POST("/login", a.Login)
	client.GET("/me", a.Me)
	client.DELETE("/me", a.Logout)
	client.POST("/sessions", a.StartSession)
	client.GET("/sessions/:id", a.GetSession)
	client.DELETE("/sessions/:id", a.EndSession)
	client.POST("/sessions/:id/answers", a.SubmitAnswer)
	client.POST("/sessions/:id/score", a.RecordScore)

	// Register event handlers
	if a.redis != nil {
		c.EventBus.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
			return a.PublishLeaderboardUpdated(ctx, e.(domain.EventLeaderboardUpdated))
		})
	}

	return a
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func renderError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), errorResponse{
		Code:    codes.Code(e.Code).String(),
		Message: e.Message,
	})
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid request body: %v", err),
			errors.WithCause(err),
		))
		return false
	}

	return true
}

func (a *API) ListTables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": domain.PredefinedTables})
}
