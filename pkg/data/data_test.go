package data

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunogya/motif/pkg/model"
)

func TestCSVLoaderRead(t *testing.T) {
	input := strings.Join([]string{
		"Date,Close",
		"2024-01-02,100.5",
		"2024-01-03,\"1,234.25\"",
		"2024-01-04,1,500.75",
		"not-a-date,10",
		"2024-01-05,abc",
		"2024-01-06",
		"2024-01-07,99",
	}, "\n")

	loader := NewCSVLoader().WithLogger(zerolog.Nop())
	ts, stats, err := loader.Read(context.Background(), "close.csv", strings.NewReader(input))
	require.NoError(t, err)
	require.NoError(t, ts.Validate())

	assert.Equal(t, "close.csv", ts.Name)
	assert.Equal(t, []float64{100.5, 1234.25, 1500.75, 99}, ts.Values)
	assert.Equal(t, model.Date{Year: 2024, Month: 1, Day: 2}, ts.First())
	assert.Equal(t, model.Date{Year: 2024, Month: 1, Day: 7}, ts.Last())
	assert.Equal(t, ReadStats{Rows: 7, Skipped: 3}, stats)
}

func TestCSVLoaderEmptyInput(t *testing.T) {
	ts, _, err := NewCSVLoader().WithLogger(zerolog.Nop()).Read(context.Background(), "empty.csv", strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, ts.Len())
}

func TestCSVLoaderLoadSeries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,value\n2024-02-01,2\n2024-02-02,3\n"), 0o644))

	ts, err := NewCSVLoader().LoadSeries(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "sample.csv", ts.Name)
	assert.Equal(t, []float64{2, 3}, ts.Values)

	_, err = NewCSVLoader().LoadSeries(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "42", want: 42},
		{in: " 1,234.5 ", want: 1234.5},
		{in: "-0.25", want: -0.25},
		{in: "1e3", want: 1000},
		{in: "", wantErr: true},
		{in: "12abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValue(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.CSV", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.csv"), 0o755))

	paths, err := Discover(dir, "csv")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.CSV"), filepath.Join(dir, "b.csv")}, paths)

	paths, err = Discover(dir, ".txt")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "notes.txt")}, paths)
}

func TestDiscoverUnreadableRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), "")
	assert.ErrorIs(t, err, ErrUnreadableRoot)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryLoader(t *testing.T) {
	ts := model.NewTimeSeries("data.csv", 1)
	ts.Append(model.Date{Year: 2024, Month: 1, Day: 1}, 1)

	loader := NewMemoryLoader()
	loader.Add(ts)

	got, err := loader.LoadSeries(context.Background(), "/some/root/data.csv")
	require.NoError(t, err)
	assert.Equal(t, ts.Values, got.Values)

	got.Values[0] = 5
	again, _ := loader.LoadSeries(context.Background(), "data.csv")
	assert.Equal(t, 1.0, again.Values[0])

	_, err = loader.LoadSeries(context.Background(), "other.csv")
	assert.Error(t, err)
}
