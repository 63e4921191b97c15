package score_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/victornm/tables/internal/domain"
	"github.com/victornm/tables/internal/score"
	"github.com/victornm/tables/internal/score/scoretest"
)

func TestSortBy(t *testing.T) {
	var (
		a = scoretest.Record("Ann", "7", 12000, 0)
		b = scoretest.Record("Ann", ":0,125", 8000, 2)
		c = scoretest.Record("Ann", "12", 15000, 1)
		d = scoretest.Record("Ann", "tafel", 9000, 3)
		e = scoretest.Record("Ann", "2.5", 12000, 4)
	)
	in := []domain.ScoreRecord{a, b, c, d, e}

	tests := map[string]struct {
		key       domain.SortKey
		ascending bool
		want      []domain.ScoreRecord
	}{
		"table ascending, unparseable last":  {key: domain.SortKeyTable, ascending: true, want: []domain.ScoreRecord{b, e, a, c, d}},
		"table descending, unparseable last": {key: domain.SortKeyTable, ascending: false, want: []domain.ScoreRecord{c, a, e, b, d}},
		"duration ascending, ties stable":    {key: domain.SortKeyDuration, ascending: true, want: []domain.ScoreRecord{b, d, a, e, c}},
		"duration descending, ties stable":   {key: domain.SortKeyDuration, ascending: false, want: []domain.ScoreRecord{c, a, e, d, b}},
		"datetime ascending":                 {key: domain.SortKeyDatetime, ascending: true, want: []domain.ScoreRecord{a, c, b, d, e}},
		"datetime descending":                {key: domain.SortKeyDatetime, ascending: false, want: []domain.ScoreRecord{e, d, b, c, a}},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := score.SortBy(in, tt.key, tt.ascending)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, score.SortBy(got, tt.key, tt.ascending), "sorting sorted input should be a no-op")
		})
	}

	assert.Equal(t, []domain.ScoreRecord{a, b, c, d, e}, in, "input should not be modified")
}

func TestSortBy_ToggleTwice(t *testing.T) {
	in := []domain.ScoreRecord{
		scoretest.Record("Ann", "7", 1000, 0),
		scoretest.Record("Bob", "7", 1000, 1),
		scoretest.Record("Cas", "3", 1000, 2),
		scoretest.Record("Dee", "x", 1000, 3),
		scoretest.Record("Eve", "3", 2000, 4),
	}

	for _, key := range []domain.SortKey{domain.SortKeyTable, domain.SortKeyDuration, domain.SortKeyDatetime} {
		s := score.Sorter{Key: key, Ascending: true}
		first := s.Sort(in)

		s = s.Toggle(key)
		reversed := s.Sort(first)
		s = s.Toggle(key)

		assert.True(t, s.Ascending)
		assert.Equal(t, first, s.Sort(reversed), "key %s", key)
	}
}

func TestSorter_Toggle(t *testing.T) {
	s := score.DefaultSorter()
	assert.Equal(t, score.Sorter{Key: domain.SortKeyTable, Ascending: true}, s)

	s = s.Toggle(domain.SortKeyTable)
	assert.Equal(t, score.Sorter{Key: domain.SortKeyTable, Ascending: false}, s, "active column reverses")

	s = s.Toggle(domain.SortKeyDuration)
	assert.Equal(t, score.Sorter{Key: domain.SortKeyDuration, Ascending: true}, s, "new column starts ascending")

	s = s.Toggle(domain.SortKeyDatetime)
	assert.Equal(t, score.Sorter{Key: domain.SortKeyDatetime, Ascending: false}, s, "datetime starts newest first")

	s = s.Toggle(domain.SortKeyDatetime)
	assert.Equal(t, score.Sorter{Key: domain.SortKeyDatetime, Ascending: true}, s)
}
