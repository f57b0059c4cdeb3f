package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2024-03-07", want: Date{2024, 3, 7}},
		{in: "2024-3-7", want: Date{2024, 3, 7}},
		{in: " 1999-12-31 ", want: Date{1999, 12, 31}},
		{in: "2024/03/07", wantErr: true},
		{in: "2024-03", wantErr: true},
		{in: "abcd-01-02", wantErr: true},
		{in: "2024-13-01", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateString(t *testing.T) {
	assert.Equal(t, "2024-03-07", Date{2024, 3, 7}.String())
	assert.Equal(t, "0999-01-02", Date{999, 1, 2}.String())
	assert.True(t, Date{}.IsZero())
}

func TestTimeSeriesValidate(t *testing.T) {
	ts := NewTimeSeries("close", 2)
	ts.Append(MustParseDate("2024-01-01"), 1)
	ts.Append(MustParseDate("2024-01-02"), 2)
	require.NoError(t, ts.Validate())
	assert.Equal(t, 2, ts.Len())

	ts.Values = append(ts.Values, 3)
	assert.ErrorIs(t, ts.Validate(), ErrLengthMismatch)
}

func TestTimeSeriesSliceDoesNotAlias(t *testing.T) {
	ts := NewTimeSeries("close", 3)
	for i, v := range []float64{1, 2, 3} {
		ts.Append(Date{2024, 1, i + 1}, v)
	}

	sub := ts.Slice(1, 3)
	sub.Values[0] = 99

	assert.Equal(t, []float64{99, 3}, sub.Values)
	assert.Equal(t, 2.0, ts.Values[1])
	assert.Equal(t, Date{2024, 1, 2}, sub.First())
	assert.Equal(t, Date{2024, 1, 3}, sub.Last())
}

func TestGenerateMatchIDDeterministic(t *testing.T) {
	a := GenerateMatchID("s.csv", "d.csv", 4, 2)
	b := GenerateMatchID("s.csv", "d.csv", 4, 2)
	c := GenerateMatchID("s.csv", "d.csv", 5, 2)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestMatchAccessors(t *testing.T) {
	m := Match{
		StartIndex: 4,
		Values:     []float64{2, 3},
		Dates:      []Date{{2024, 1, 5}, {2024, 1, 6}},
	}

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 6, m.EndIndex())
	assert.Equal(t, Date{2024, 1, 5}, m.FirstDate())
	assert.Equal(t, Date{2024, 1, 6}, m.LastDate())
	assert.False(t, m.HasDescriptors())
}
