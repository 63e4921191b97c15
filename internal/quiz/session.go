package quiz

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/tables/internal/domain"
)

// Session is one run through a table. It moves from in progress to finished
// exactly once and never back; a new table always needs a new session.
type Session struct {
	operand   decimal.Decimal
	operation domain.Operation
	questions []domain.Question

	current     int
	startedAt   time.Time
	completedAt time.Time
}

func (s *Session) Operand() decimal.Decimal { return s.operand }

func (s *Session) Operation() domain.Operation { return s.operation }

// TableLabel is the label stored with the session's score.
func (s *Session) TableLabel() string { return domain.TableLabel(s.operand, s.operation) }

// Questions returns a copy of the questions in the order they are asked.
func (s *Session) Questions() []domain.Question {
	qs := make([]domain.Question, len(s.questions))
	copy(qs, s.questions)
	return qs
}

// CurrentIndex is the number of questions answered correctly so far.
func (s *Session) CurrentIndex() int { return s.current }

// Current returns the question awaiting an answer, false once the session is finished.
func (s *Session) Current() (domain.Question, bool) {
	if s.current >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[s.current], true
}

func (s *Session) Finished() bool { return s.current >= len(s.questions) }

func (s *Session) StartedAt() time.Time { return s.startedAt }

// CompletedAt returns the completion time, false while the session is in progress.
func (s *Session) CompletedAt() (time.Time, bool) {
	return s.completedAt, s.Finished()
}
