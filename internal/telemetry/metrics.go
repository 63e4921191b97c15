package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/event"
)

var (
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tables_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tables_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tables_sessions_started_total",
			Help: "Total number of quiz sessions started",
		},
		[]string{"operation"},
	)

	SessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tables_sessions_finished_total",
			Help: "Total number of quiz sessions finished",
		},
		[]string{"operation"},
	)

	SessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tables_session_duration_seconds",
			Help:    "Time taken to finish a quiz session",
			Buckets: []float64{5, 10, 15, 20, 30, 45, 60, 90, 120, 300},
		},
		[]string{"operation"},
	)

	AnswersChecked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tables_answers_total",
			Help: "Total number of checked answers",
		},
		[]string{"correct"},
	)

	ScoresRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tables_scores_recorded_total",
			Help: "Total number of score records saved",
		},
	)
)

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// ObserveEvents feeds the domain metrics from the events published on eb.
func ObserveEvents(eb *event.Bus) {
	eb.Subscribe(domain.EventNameSessionStarted, func(_ context.Context, e event.Event) error {
		SessionsStarted.WithLabelValues(string(e.(domain.EventSessionStarted).Operation)).Inc()
		return nil
	})

	eb.Subscribe(domain.EventNameSessionFinished, func(_ context.Context, e event.Event) error {
		f := e.(domain.EventSessionFinished)
		SessionsFinished.WithLabelValues(string(f.Operation)).Inc()
		SessionDuration.WithLabelValues(string(f.Operation)).Observe(f.Duration.Seconds())
		return nil
	})

	eb.Subscribe(domain.EventNameAnswerChecked, func(_ context.Context, e event.Event) error {
		AnswersChecked.WithLabelValues(strconv.FormatBool(e.(domain.EventAnswerChecked).Correct)).Inc()
		return nil
	})

	eb.Subscribe(domain.EventNameScoreRecorded, func(context.Context, event.Event) error {
		ScoresRecorded.Inc()
		return nil
	})
}
