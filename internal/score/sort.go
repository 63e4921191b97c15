package score

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/victornm/tables/internal/domain"
)

// SortBy returns a sorted copy of rs. The sort is stable. Records whose table
// label cannot be parsed go last in both directions.
func SortBy(rs []domain.ScoreRecord, key domain.SortKey, ascending bool) []domain.ScoreRecord {
	out := slices.Clone(rs)

	dir := 1
	if !ascending {
		dir = -1
	}

	switch key {
	case domain.SortKeyTable:
		type keyed struct {
			r  domain.ScoreRecord
			v  decimal.Decimal
			ok bool
		}

		ks := make([]keyed, len(out))
		for i, r := range out {
			v, _, err := domain.ParseTableLabel(r.TableLabel)
			ks[i] = keyed{r: r, v: v, ok: err == nil}
		}

		slices.SortStableFunc(ks, func(a, b keyed) int {
			switch {
			case !a.ok && !b.ok:
				return 0
			case !a.ok:
				return 1
			case !b.ok:
				return -1
			}
			return dir * a.v.Cmp(b.v)
		})

		for i := range ks {
			out[i] = ks[i].r
		}

	case domain.SortKeyDuration:
		slices.SortStableFunc(out, func(a, b domain.ScoreRecord) int {
			return dir * cmp.Compare(a.DurationMs, b.DurationMs)
		})

	case domain.SortKeyDatetime:
		slices.SortStableFunc(out, func(a, b domain.ScoreRecord) int {
			return dir * a.Timestamp.Compare(b.Timestamp)
		})
	}

	return out
}

// DefaultAscending is the direction a column gets when it becomes the active one.
// Datetime starts newest first; the other columns start ascending.
func DefaultAscending(key domain.SortKey) bool {
	return key != domain.SortKeyDatetime
}

// Sorter is the active scoreboard column and direction.
type Sorter struct {
	Key       domain.SortKey
	Ascending bool
}

// DefaultSorter sorts by table, ascending.
func DefaultSorter() Sorter {
	return Sorter{Key: domain.SortKeyTable, Ascending: true}
}

// Toggle returns the sorter after a click on key: the active column reverses
// its direction, another column becomes active with its default direction.
func (s Sorter) Toggle(key domain.SortKey) Sorter {
	if s.Key == key {
		return Sorter{Key: key, Ascending: !s.Ascending}
	}

	return Sorter{Key: key, Ascending: DefaultAscending(key)}
}

func (s Sorter) Sort(rs []domain.ScoreRecord) []domain.ScoreRecord {
	return SortBy(rs, s.Key, s.Ascending)
}
