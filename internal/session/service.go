package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/errors"
	"github.com/victornm/tables/internal/event"
	"github.com/victornm/tables/internal/quiz"
)

const defaultTTL = time.Hour

var ErrSessionNotFound = stderrors.New("session not found")

// Recorder stores the score of a finished session.
type Recorder interface {
	Insert(ctx context.Context, r domain.ScoreRecord) error
}

type Config struct {
	Engine   *quiz.Engine
	Score    Recorder
	EventBus *event.Bus
	// TTL is how long a session may stay idle before Sweep drops it.
	TTL time.Duration
	Now func() time.Time
}

// Service keeps the live quiz sessions of API clients. Calls against the same
// session are serialized; different sessions proceed in parallel.
type Service struct {
	engine *quiz.Engine
	score  Recorder
	eb     *event.Bus
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	mu sync.Mutex

	id       string
	username string
	quiz     *quiz.Session
	lastSeen time.Time
	recorded bool
	ended    bool
}

func NewService(c Config) *Service {
	s := &Service{
		engine:   c.Engine,
		score:    c.Score,
		eb:       c.EventBus,
		ttl:      c.TTL,
		now:      c.Now,
		sessions: make(map[string]*entry),
	}

	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}

	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// Snapshot is the client-visible state of a session. The expected answer is never exposed.
type Snapshot struct {
	ID        string
	Username  string
	Table     string
	Operation domain.Operation
	// Prompt is the current question, empty once the session is finished.
	Prompt     string
	Answered   int
	Total      int
	Finished   bool
	DurationMs int64
	Recorded   bool
}

type StartRequest struct {
	Username  string
	Table     string
	Operation domain.Operation
}

func (s *Service) Start(ctx context.Context, req StartRequest) (Snapshot, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return Snapshot{}, errors.New(errors.CodeUnauthenticated, errors.WithMessagef("login required"))
	}

	qs, err := s.engine.Start(req.Table, req.Operation)
	if err != nil {
		return Snapshot{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Snapshot{}, fmt.Errorf("generate session ID: %w", err)
	}

	e := &entry{
		id:       id.String(),
		username: username,
		quiz:     qs,
		lastSeen: s.now(),
	}

	s.mu.Lock()
	s.sessions[e.id] = e
	s.mu.Unlock()

	s.eb.Publish(ctx, domain.EventSessionStarted{
		SessionID: e.id,
		Operation: qs.Operation(),
	})

	return e.snapshot(s.engine), nil
}

func (s *Service) Get(_ context.Context, id string) (Snapshot, error) {
	e, err := s.acquire(id)
	if err != nil {
		return Snapshot{}, err
	}
	defer e.mu.Unlock()

	return e.snapshot(s.engine), nil
}

type SubmitResult struct {
	Correct bool
	Session Snapshot
}

// Submit checks an answer. When it completes the session the score is
// inserted before Submit returns. If that insert fails the error is returned
// and the finished session is kept so the score can be saved with Record.
func (s *Service) Submit(ctx context.Context, id, answer string) (SubmitResult, error) {
	e, err := s.acquire(id)
	if err != nil {
		return SubmitResult{}, err
	}
	defer e.mu.Unlock()

	res := s.engine.SubmitAnswer(e.quiz, answer)

	s.eb.Publish(ctx, domain.EventAnswerChecked{
		SessionID: e.id,
		Correct:   res.Correct,
	})

	if res.Finished {
		d, _ := s.engine.Duration(e.quiz)
		slog.InfoContext(ctx, "session: finished",
			"session", e.id,
			"table", e.quiz.TableLabel(),
			"duration", d,
		)

		s.eb.Publish(ctx, domain.EventSessionFinished{
			SessionID: e.id,
			Operation: e.quiz.Operation(),
			Duration:  d,
		})

		if err := s.record(ctx, e); err != nil {
			return SubmitResult{}, err
		}
	}

	return SubmitResult{
		Correct: res.Correct,
		Session: e.snapshot(s.engine),
	}, nil
}

// Record saves the score of a finished session whose first save failed.
// It does nothing when the score is already saved.
func (s *Service) Record(ctx context.Context, id string) (Snapshot, error) {
	e, err := s.acquire(id)
	if err != nil {
		return Snapshot{}, err
	}
	defer e.mu.Unlock()

	if err := s.record(ctx, e); err != nil {
		return Snapshot{}, err
	}

	return e.snapshot(s.engine), nil
}

func (s *Service) record(ctx context.Context, e *entry) error {
	if e.recorded {
		return nil
	}

	r, err := s.engine.Result(e.quiz, e.username)
	if err != nil {
		return err
	}

	if err := s.score.Insert(ctx, r); err != nil {
		slog.ErrorContext(ctx, "session: record score failed", "session", e.id, "error", err)
		return err
	}

	e.recorded = true
	return nil
}

// End discards a session. Nothing is saved for an unfinished session.
func (s *Service) End(_ context.Context, id string) error {
	e, err := s.acquire(id)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	e.ended = true

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	return nil
}

// Sweep drops sessions idle for longer than the TTL and returns how many were dropped.
// Sessions busy with a call are skipped.
func (s *Service) Sweep(ctx context.Context) int {
	deadline := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.sessions {
		if !e.mu.TryLock() {
			continue
		}

		if e.lastSeen.Before(deadline) {
			e.ended = true
			delete(s.sessions, id)
			n++
		}
		e.mu.Unlock()
	}

	if n > 0 {
		slog.InfoContext(ctx, "session: swept idle sessions", "count", n)
	}

	return n
}

// Run sweeps every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = s.ttl / 4
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Sweep(ctx)
		}
	}
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// acquire returns the entry locked. The caller must unlock it.
func (s *Service) acquire(id string) (*entry, error) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()

	if ok {
		e.mu.Lock()
		if !e.ended {
			e.lastSeen = s.now()
			return e, nil
		}
		e.mu.Unlock()
	}

	return nil, errors.New(errors.CodeNotFound,
		errors.WithMessagef("session %s not found", id),
		errors.WithCause(ErrSessionNotFound),
	)
}

func (e *entry) snapshot(engine *quiz.Engine) Snapshot {
	ss := Snapshot{
		ID:        e.id,
		Username:  e.username,
		Table:     e.quiz.TableLabel(),
		Operation: e.quiz.Operation(),
		Answered:  e.quiz.CurrentIndex(),
		Total:     len(e.quiz.Questions()),
		Finished:  e.quiz.Finished(),
		Recorded:  e.recorded,
	}

	if q, ok := e.quiz.Current(); ok {
		ss.Prompt = q.Prompt
	}

	if d, err := engine.Duration(e.quiz); err == nil {
		ss.DurationMs = d.Milliseconds()
	}

	return ss
}
