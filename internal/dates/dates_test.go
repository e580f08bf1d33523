package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "valid", input: "2020-01-01", want: Date{2020, time.January, 1}},
		{name: "surrounding whitespace", input: " 2021-12-31 ", want: Date{2021, time.December, 31}},
		{name: "leap day", input: "2024-02-29", want: Date{2024, time.February, 29}},
		{name: "not a leap year", input: "2023-02-29", wantErr: true},
		{name: "month out of range", input: "2023-13-01", wantErr: true},
		{name: "wrong layout", input: "01/02/2023", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_SingleDateSetsBothBounds(t *testing.T) {
	r, err := Parse("2020-03-15", "", "")
	require.NoError(t, err)
	require.NotNil(t, r.From)
	require.NotNil(t, r.To)
	assert.Equal(t, "2020-03-15", r.From.String())
	assert.True(t, r.From.Equal(*r.To))
}

func TestParse_OpenEnded(t *testing.T) {
	r, err := Parse("", "", "")
	require.NoError(t, err)
	assert.Nil(t, r.From)
	assert.Nil(t, r.To)

	r, err = Parse("", "2020-01-01", "")
	require.NoError(t, err)
	require.NotNil(t, r.From)
	assert.Nil(t, r.To)

	r, err = Parse("", "", "2020-01-01")
	require.NoError(t, err)
	assert.Nil(t, r.From)
	require.NotNil(t, r.To)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("2020-01-01", "2020-01-01", "")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = Parse("2020-01-01", "", "2020-01-02")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = Parse("", "2020-02-01", "2020-01-01")
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.Contains(t, err.Error(), "later than")

	_, err = Parse("", "bogus", "")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDate_Arithmetic(t *testing.T) {
	d := Date{2020, time.February, 28}
	assert.Equal(t, "2020-02-29", d.AddDays(1).String())
	assert.Equal(t, "2020-03-01", d.AddDays(2).String())
	assert.Equal(t, "2019-12-31", Date{2020, time.January, 1}.AddDays(-1).String())

	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d))
	assert.True(t, d.AddDays(1).After(d))
}

func TestDate_Start(t *testing.T) {
	loc := time.FixedZone("test", -6*3600)
	start := Date{2020, time.July, 4}.Start(loc)
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, loc, start.Location())
	assert.Equal(t, Date{2020, time.July, 4}, FromTime(start))
}
