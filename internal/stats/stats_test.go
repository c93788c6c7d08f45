package stats

import (
	"bytes"
	"math"
	"testing"

	"github.com/pipebench/pipebench/pkg/log"
	"github.com/pipebench/pipebench/pkg/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		pct    float64
		want   float64
	}{
		{"single", []float64{4}, 50, 4},
		{"odd median", []float64{1, 2, 3}, 50, 2},
		{"even median interpolates", []float64{1, 2, 3, 4}, 50, 2.5},
		{"quarter", []float64{0, 10, 20, 30, 40}, 25, 10},
		{"between ranks", []float64{0, 10}, 90, 9},
		{"max", []float64{1, 2, 3}, 100, 3},
		{"min", []float64{1, 2, 3}, 0, 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(tt.sorted, tt.pct), 1e-9)
		})
	}
}

func TestMeanVariance(t *testing.T) {
	_, ok := Mean(nil)
	assert.False(t, ok)
	_, ok = Variance([]float64{1})
	assert.False(t, ok)

	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	m, ok := Mean(xs)
	require.True(t, ok)
	assert.InDelta(t, 5.0, m, 1e-12)

	v, ok := Variance(xs)
	require.True(t, ok)
	assert.InDelta(t, 32.0/7.0, v, 1e-12)

	// large offsets do not swallow the spread
	shifted := make([]float64, len(xs))
	for i, x := range xs {
		shifted[i] = x + 1e9
	}
	v2, ok := Variance(shifted)
	require.True(t, ok)
	assert.InDelta(t, v, v2, 1e-6)
}

func TestSummarizeSortsBeforeMedian(t *testing.T) {
	s := Summarize([]float64{0.3, 0.1, 0.2})
	assert.Equal(t, 3, s.N)
	assert.InDelta(t, 0.2, s.Median, 1e-12)
	assert.InDelta(t, 0.2, s.Mean, 1e-12)
	assert.Equal(t, 0.1, s.Min)
	assert.Equal(t, 0.3, s.Max)
	require.NotNil(t, s.Variance)
	require.NotNil(t, s.StdDev)
	assert.InDelta(t, 0.01, *s.Variance, 1e-12)
	assert.InDelta(t, 0.1, *s.StdDev, 1e-9)
	assert.InDelta(t, 0.3, s.P99, 0.001)

	single := Summarize([]float64{0.5})
	assert.Nil(t, single.Variance)
	assert.Nil(t, single.StdDev)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestSummarizePercentiles(t *testing.T) {
	xs := make([]float64, 1000)
	for i := range xs {
		xs[i] = float64(i+1) / 1000
	}
	s := Summarize(xs)
	assert.InDelta(t, 0.9, s.P90, 0.001)
	assert.InDelta(t, 0.99, s.P99, 0.001)
	assert.False(t, math.IsNaN(s.Mean))
}

func entry(bench string, workers int, ok bool, working, whole float64) *result.Entry {
	e := &result.Entry{
		Preamble:         "GOMAXPROCS=1",
		Benchmark:        bench,
		Workers:          workers,
		Messages:         100,
		ResultStatus:     true,
		WholeProcessTime: whole,
	}
	if working >= 0 {
		e.ResultData = &result.Record{Workers: workers, RequestsPerBatch: 100, Time: working, Success: ok}
	}
	return e
}

func TestAnalyze(t *testing.T) {
	c := &result.Collection{
		Results: result.Entries{
			entry("reactor", 10, true, 0.1, 0.2),
			entry("reactor", 10, true, 0.3, 0.4),
			entry("reactor", 10, false, 9, 9),
			entry("goroutine", 10, true, 0.5, 0.6),
			entry("goroutine", 100, false, 1, 1),
			entry("goroutine", 100, true, -1, 1),
		},
	}

	groups := Analyze(c)
	require.Len(t, groups, 3)

	assert.Equal(t, Key{"GOMAXPROCS=1", "goroutine", 10, 100}, groups[0].Key)
	assert.Equal(t, Key{"GOMAXPROCS=1", "goroutine", 100, 100}, groups[1].Key)
	assert.Equal(t, Key{"GOMAXPROCS=1", "reactor", 10, 100}, groups[2].Key)

	assert.False(t, groups[1].HasData())
	assert.Equal(t, 2, groups[1].Trials)

	r := groups[2]
	assert.Equal(t, 3, r.Trials)
	assert.Equal(t, 2, r.Working.N)
	assert.InDelta(t, 0.2, r.Working.Mean, 1e-12)
	assert.InDelta(t, 0.3, r.WholeProcess.Mean, 1e-12)
}

func TestRenderTable(t *testing.T) {
	require.NoError(t, log.SetFormat("text"))
	defer log.SetFormat("json")

	groups := Analyze(&result.Collection{
		Results: result.Entries{
			entry("reactor", 1000, true, 0.000412, 0.5),
			entry("goroutine", 10, false, 1, 1),
		},
	})

	var buf bytes.Buffer
	Render(&buf, groups)
	out := buf.String()
	assert.Contains(t, out, "BENCHMARK")
	assert.Contains(t, out, "reactor")
	assert.Contains(t, out, "1,000")
	assert.Contains(t, out, "412 µs")
	assert.Contains(t, out, "no data")
}
