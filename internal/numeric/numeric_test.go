package numeric_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/tables/internal/numeric"
)

func TestParse(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    string
		wantErr bool
	}{
		"integer":                  {in: "10", want: "10"},
		"dot separator":            {in: "2.5", want: "2.5"},
		"comma separator":          {in: "2,5", want: "2.5"},
		"trailing zero with comma": {in: "10,0", want: "10"},
		"surrounding spaces":       {in: "  7 ", want: "7"},
		"leading separator":        {in: ",125", want: "0.125"},
		"trailing separator":       {in: "3,", want: "3"},
		"negative":                 {in: "-1,5", want: "-1.5"},
		"small fraction":           {in: "0,125", want: "0.125"},
		"empty":                    {in: "", wantErr: true},
		"only separator":           {in: ",", wantErr: true},
		"letters":                  {in: "abc", wantErr: true},
		"two separators":           {in: "1.000,5", wantErr: true},
		"exponent":                 {in: "1e3", wantErr: true},
		"inner space":              {in: "1 0", wantErr: true},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := numeric.Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "2,5", numeric.Format(decimal.RequireFromString("2.50")))
	assert.Equal(t, "10", numeric.Format(decimal.RequireFromString("10.000")))
	assert.Equal(t, "0,125", numeric.Format(decimal.RequireFromString("0.125")))
}

func TestFormatMillis(t *testing.T) {
	tests := map[int64]string{
		0:     "0",
		999:   "0,999",
		12500: "12,5",
		60000: "60",
	}

	for in, want := range tests {
		assert.Equal(t, want, numeric.FormatMillis(in), "input %d", in)
	}
}
