package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victornm/tables/internal/numeric"
)

// Operation is the arithmetic drilled in a quiz session.
type Operation string

const (
	OperationMultiply Operation = "multiply"
	OperationDivide   Operation = "divide"
)

func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OperationMultiply, OperationDivide:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// divideLabelPrefix marks a table label of a division session, e.g. ":2,5".
const divideLabelPrefix = ":"

// PredefinedTables are the tables offered for selection, in display form.
var PredefinedTables = []string{
	"0,125", "0,2", "0,25", "0,5", "1", "2", "2,5", "3",
	"4", "5", "6", "7", "8", "9", "10", "12", "15", "25",
}

// Question is one step of a quiz session.
type Question struct {
	Operand    decimal.Decimal
	Multiplier int
	Operation  Operation
	Prompt     string
	// ExpectedAnswer is computed once when the question is built.
	ExpectedAnswer decimal.Decimal
}

// ScoreRecord is the outcome of one completed quiz session.
type ScoreRecord struct {
	Username   string    `json:"username"`
	TableLabel string    `json:"table"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// TableLabel encodes the operand and operation of a session, e.g. "7" or ":2,5".
func TableLabel(operand decimal.Decimal, op Operation) string {
	l := numeric.Format(operand)
	if op == OperationDivide {
		return divideLabelPrefix + l
	}
	return l
}

// ParseTableLabel reverses TableLabel. A leading "×" is tolerated for labels
// written by older clients.
func ParseTableLabel(label string) (decimal.Decimal, Operation, error) {
	l := strings.TrimSpace(label)
	op := OperationMultiply
	if rest, ok := strings.CutPrefix(l, divideLabelPrefix); ok {
		l, op = rest, OperationDivide
	}
	l = strings.TrimPrefix(l, "×")

	d, err := numeric.Parse(l)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("table label %q: %w", label, err)
	}

	return d, op, nil
}

// SortKey is a scoreboard column.
type SortKey string

const (
	SortKeyTable    SortKey = "table"
	SortKeyDuration SortKey = "duration"
	SortKeyDatetime SortKey = "datetime"
)

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortKeyTable, SortKeyDuration, SortKeyDatetime:
		return k, nil
	case "date":
		return SortKeyDatetime, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// User is the identity stored for a client.
type User struct {
	Username  string    `json:"username"`
	LastLogin time.Time `json:"last_login"`
}

// Leaderboard lists the best time of each user on a table, fastest first.
type Leaderboard struct {
	Table   string
	Entries []LeaderboardEntry
}

type LeaderboardEntry struct {
	Username   string
	DurationMs int64
}
