package stats

import (
	"math"
	"sort"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Percentile returns the pct-th percentile of sorted, interpolating linearly between the two
// closest ranks. sorted must be in ascending order and non-empty
func Percentile(sorted []float64, pct float64) float64 {
	n := len(sorted)
	howFar := pct * 0.01 * float64(n-1)
	prev := int(howFar)
	if prev >= n-1 {
		return sorted[n-1]
	}
	if prev < 0 {
		return sorted[0]
	}
	frac := howFar - float64(prev)
	return sorted[prev] + (sorted[prev+1]-sorted[prev])*frac
}

// Mean returns the arithmetic mean, and false for an empty sample
func Mean(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), true
}

// Variance returns the sample variance with Bessel's correction, computed on data shifted by the
// first element to limit cancellation. It returns false when there are fewer than 2 values
func Variance(xs []float64) (float64, bool) {
	n := len(xs)
	if n < 2 {
		return 0, false
	}
	var ex, ex2 float64
	k := xs[0]
	for _, x := range xs {
		d := x - k
		ex += d
		ex2 += d * d
	}
	return (ex2 - ex*ex/float64(n)) / float64(n-1), true
}

// histogram bounds in microseconds: 1µs to one hour
const (
	histMin     = 1
	histMax     = 3600 * 1000 * 1000
	histSigFigs = 3
)

// Summary describes a sample of durations in seconds. Variance and StdDev are nil for fewer than
// two values
type Summary struct {
	N        int
	Mean     float64
	Median   float64
	Min      float64
	Max      float64
	Variance *float64
	StdDev   *float64
	P90      float64
	P99      float64
}

// Summarize computes the summary of xs. It returns the zero Summary for an empty sample
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	s := Summary{
		N:      len(xs),
		Median: Percentile(sorted, 50),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
	s.Mean, _ = Mean(xs)
	if v, ok := Variance(xs); ok {
		sd := math.Sqrt(v)
		s.Variance = &v
		s.StdDev = &sd
	}

	h := hdrhistogram.New(histMin, histMax, histSigFigs)
	for _, x := range xs {
		us := int64(math.Round(x * 1e6))
		if us < histMin {
			us = histMin
		}
		if us > histMax {
			us = histMax
		}
		// bounds are clamped above so recording cannot fail
		_ = h.RecordValue(us)
	}
	s.P90 = float64(h.ValueAtQuantile(90)) / 1e6
	s.P99 = float64(h.ValueAtQuantile(99)) / 1e6
	return s
}
