package quiz

import (
	stderrors "errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/errors"
	"github.com/victornm/tables/internal/numeric"
)

// QuestionCount is the number of questions in a session, one per multiplier 1..QuestionCount.
const QuestionCount = 10

// answerTolerance is the maximum accepted distance between an answer and the expected value.
var answerTolerance = decimal.New(1, -4)

var (
	ErrInvalidOperand     = stderrors.New("invalid operand")
	ErrInvalidOperation   = stderrors.New("invalid operation")
	ErrSessionNotFinished = stderrors.New("session not finished")
)

type Config struct {
	// Now defaults to time.Now. The returned times should carry a monotonic reading.
	Now func() time.Time
	// Rand is used to shuffle questions. Defaults to the auto-seeded global source.
	Rand *rand.Rand
}

// Engine creates quiz sessions and checks answers against them.
// Sessions are not synchronized: callers must serialize calls on the same session.
type Engine struct {
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

func NewEngine(c Config) *Engine {
	e := &Engine{
		now:     c.Now,
		shuffle: rand.Shuffle,
	}

	if e.now == nil {
		e.now = time.Now
	}

	if r := c.Rand; r != nil {
		var mu sync.Mutex
		e.shuffle = func(n int, swap func(i, j int)) {
			mu.Lock()
			defer mu.Unlock()
			r.Shuffle(n, swap)
		}
	}

	return e
}

// AnswerResult is the outcome of SubmitAnswer.
type AnswerResult struct {
	Correct bool
	// Finished is true only for the answer that completed the session.
	Finished bool
}

// Start parses the operand text ('.' or ',' as decimal separator) and starts a new session.
func (e *Engine) Start(operand string, op domain.Operation) (*Session, error) {
	d, err := numeric.Parse(operand)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid table %q: not a number", operand),
			errors.WithCauses(ErrInvalidOperand, err),
		)
	}

	return e.StartWithOperand(d, op)
}

// StartWithOperand starts a new session for a parsed operand.
func (e *Engine) StartWithOperand(operand decimal.Decimal, op domain.Operation) (*Session, error) {
	if !operand.IsPositive() {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid table %s: must be greater than zero", numeric.Format(operand)),
			errors.WithCause(ErrInvalidOperand),
		)
	}

	if op != domain.OperationMultiply && op != domain.OperationDivide {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid operation %q", op),
			errors.WithCause(ErrInvalidOperation),
		)
	}

	multipliers := make([]int, QuestionCount)
	for i := range multipliers {
		multipliers[i] = i + 1
	}
	e.shuffle(len(multipliers), func(i, j int) {
		multipliers[i], multipliers[j] = multipliers[j], multipliers[i]
	})

	questions := make([]domain.Question, 0, QuestionCount)
	for _, m := range multipliers {
		questions = append(questions, newQuestion(operand, m, op))
	}

	return &Session{
		operand:   operand,
		operation: op,
		questions: questions,
		startedAt: e.now(),
	}, nil
}

func newQuestion(operand decimal.Decimal, multiplier int, op domain.Operation) domain.Question {
	m := decimal.NewFromInt(int64(multiplier))
	product := operand.Mul(m)

	q := domain.Question{
		Operand:    operand,
		Multiplier: multiplier,
		Operation:  op,
	}

	switch op {
	case domain.OperationDivide:
		q.Prompt = fmt.Sprintf("%s : %s = ?", numeric.Format(product), numeric.Format(operand))
		q.ExpectedAnswer = m
	default:
		q.Prompt = fmt.Sprintf("%d × %s = ?", multiplier, numeric.Format(operand))
		q.ExpectedAnswer = product
	}

	return q
}

// SubmitAnswer checks raw against the current question. Text that is not a
// number is a wrong answer, not an error. A correct answer advances the
// session; a wrong one leaves it unchanged so the question can be retried.
func (e *Engine) SubmitAnswer(s *Session, raw string) AnswerResult {
	q, ok := s.Current()
	if !ok {
		return AnswerResult{}
	}

	answer, err := numeric.Parse(raw)
	if err != nil {
		return AnswerResult{}
	}

	if !answer.Sub(q.ExpectedAnswer).Abs().LessThan(answerTolerance) {
		return AnswerResult{}
	}

	s.current++
	if s.current < len(s.questions) {
		return AnswerResult{Correct: true}
	}

	s.completedAt = e.now()
	return AnswerResult{Correct: true, Finished: true}
}

// Duration returns the time between the start and the completion of a finished session.
func (e *Engine) Duration(s *Session) (time.Duration, error) {
	if !s.Finished() {
		return 0, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("session not finished: %d of %d questions answered", s.current, len(s.questions)),
			errors.WithCause(ErrSessionNotFinished),
		)
	}

	return max(s.completedAt.Sub(s.startedAt), 0), nil
}

// Result builds the score record of a finished session.
func (e *Engine) Result(s *Session, username string) (domain.ScoreRecord, error) {
	d, err := e.Duration(s)
	if err != nil {
		return domain.ScoreRecord{}, err
	}

	return domain.ScoreRecord{
		Username:   username,
		TableLabel: s.TableLabel(),
		DurationMs: d.Milliseconds(),
		Timestamp:  s.completedAt,
	}, nil
}
