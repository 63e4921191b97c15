package domain

import "time"

const (
	EventNameSessionStarted     = "session.started"
	EventNameSessionFinished    = "session.finished"
	EventNameAnswerChecked      = "answer.checked"
	EventNameScoreRecorded      = "score.recorded"
	EventNameScoresCleared      = "scores.cleared"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

type EventSessionStarted struct {
	SessionID string
	Operation Operation
}

func (EventSessionStarted) Name() string { return EventNameSessionStarted }

type EventSessionFinished struct {
	SessionID string
	Operation Operation
	Duration  time.Duration
}

func (EventSessionFinished) Name() string { return EventNameSessionFinished }

type EventAnswerChecked struct {
	SessionID string
	Correct   bool
}

func (EventAnswerChecked) Name() string { return EventNameAnswerChecked }

type EventScoreRecorded struct {
	Score ScoreRecord
}

func (EventScoreRecorded) Name() string { return EventNameScoreRecorded }

// EventScoresCleared is published after a clear. An empty Username means all users.
type EventScoresCleared struct {
	Username string
}

func (EventScoresCleared) Name() string { return EventNameScoresCleared }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
