package score

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/errors"
	"github.com/victornm/tables/internal/event"
)

var ErrPersistence = stderrors.New("score persistence failed")

// Repository is the persisted collection of score records.
type Repository interface {
	// LoadAll returns every record in insertion order.
	LoadAll(ctx context.Context) ([]domain.ScoreRecord, error)
	Append(ctx context.Context, r domain.ScoreRecord) error
	// Clear removes the records of username, or all records when username is empty.
	Clear(ctx context.Context, username string) error
}

// UserLoader is implemented by repositories that can filter by user themselves.
type UserLoader interface {
	LoadForUser(ctx context.Context, username string) ([]domain.ScoreRecord, error)
}

type Config struct {
	Repository Repository
	EventBus   *event.Bus
	Now        func() time.Time
}

type Service struct {
	repo Repository
	eb   *event.Bus
	now  func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		repo: c.Repository,
		eb:   c.EventBus,
		now:  c.Now,
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// Insert appends a score record. The record is visible to queries as soon as Insert returns.
// The username is stored as given: it is formatted once at login.
func (s *Service) Insert(ctx context.Context, r domain.ScoreRecord) error {
	r.TableLabel = strings.TrimSpace(r.TableLabel)

	switch {
	case strings.TrimSpace(r.Username) == "":
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("username is required"))
	case r.TableLabel == "":
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("table is required"))
	case r.DurationMs < 0:
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("duration must not be negative: %d", r.DurationMs))
	}

	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}

	if err := s.repo.Append(ctx, r); err != nil {
		return persistenceError(err, "save score for %s", r.Username)
	}

	s.eb.Publish(ctx, domain.EventScoreRecorded{Score: r})
	return nil
}

// QueryForUser returns the records of username, unordered. Matching is exact and case-sensitive.
func (s *Service) QueryForUser(ctx context.Context, username string) ([]domain.ScoreRecord, error) {
	if l, ok := s.repo.(UserLoader); ok {
		rs, err := l.LoadForUser(ctx, username)
		if err != nil {
			return nil, persistenceError(err, "load scores for %s", username)
		}
		return rs, nil
	}

	all, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, persistenceError(err, "load scores for %s", username)
	}

	rs := make([]domain.ScoreRecord, 0, len(all))
	for _, r := range all {
		if r.Username == username {
			rs = append(rs, r)
		}
	}

	return rs, nil
}

// ListAll returns the records of all users.
func (s *Service) ListAll(ctx context.Context) ([]domain.ScoreRecord, error) {
	rs, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, persistenceError(err, "load scores")
	}

	return rs, nil
}

// Clear removes the records of username, or every record when username is empty.
// There is no undo.
func (s *Service) Clear(ctx context.Context, username string) error {
	if err := s.repo.Clear(ctx, username); err != nil {
		return persistenceError(err, "clear scores")
	}

	s.eb.Publish(ctx, domain.EventScoresCleared{Username: username})
	return nil
}

func persistenceError(err error, format string, args ...any) error {
	return errors.New(errors.CodeUnavailable,
		errors.WithMessagef(format, args...),
		errors.WithCauses(ErrPersistence, err),
	)
}
