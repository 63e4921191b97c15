package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/victornm/tables/internal/errors"
)

const visitorExpiry = 3 * time.Minute

type RateLimitConfig struct {
	// RPS is the sustained number of requests per second per client IP. Zero disables limiting.
	RPS   float64
	Burst int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP. Idle visitors are forgotten after a few minutes.
func RateLimiter(c RateLimitConfig) gin.HandlerFunc {
	if c.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	burst := c.Burst
	if burst <= 0 {
		burst = max(int(c.RPS), 1)
	}

	var (
		mu        sync.Mutex
		visitors  = make(map[string]*visitor)
		lastSweep = time.Now()
	)

	return func(ctx *gin.Context) {
		now := time.Now()
		key := ctx.ClientIP()

		mu.Lock()
		if now.Sub(lastSweep) > time.Minute {
			for ip, v := range visitors {
				if now.Sub(v.lastSeen) > visitorExpiry {
					delete(visitors, ip)
				}
			}
			lastSweep = now
		}

		v, ok := visitors[key]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(rate.Limit(c.RPS), burst)}
			visitors[key] = v
		}
		v.lastSeen = now
		mu.Unlock()

		if !v.limiter.Allow() {
			renderError(ctx, errors.New(errors.CodeResourceExhausted, errors.WithMessagef("too many requests")))
			return
		}

		ctx.Next()
	}
}

func requireClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderClientID))
		if id == "" {
			renderError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("header %s is required", HeaderClientID)))
			return
		}

		c.Set(ctxKeyClient, id)
		c.Next()
	}
}

func clientID(c *gin.Context) string {
	return c.GetString(ctxKeyClient)
}
