package stats

import (
	"math"
	"sort"
	"testing"

	"pgregory.net/rapid"
)

// the median and the tail percentiles stay within the sample, in order, whatever the input order
func TestPropertySummarizeBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		xs := rapid.SliceOfN(rapid.Float64Range(0.000001, 100), 1, 64).Draw(t, "xs")
		s := Summarize(xs)

		if s.N != len(xs) {
			t.Fatalf("n = %d, want %d", s.N, len(xs))
		}
		if s.Median < s.Min || s.Median > s.Max {
			t.Fatalf("median %v outside [%v, %v]", s.Median, s.Min, s.Max)
		}
		if s.Mean < s.Min-1e-9 || s.Mean > s.Max+1e-9 {
			t.Fatalf("mean %v outside [%v, %v]", s.Mean, s.Min, s.Max)
		}
		if s.P90 > s.P99 {
			t.Fatalf("p90 %v above p99 %v", s.P90, s.P99)
		}

		sorted := append([]float64(nil), xs...)
		sort.Float64s(sorted)
		if s.Median != Percentile(sorted, 50) {
			t.Fatalf("median %v differs from sorted percentile %v", s.Median, Percentile(sorted, 50))
		}

		if len(xs) < 2 {
			if s.Variance != nil {
				t.Fatalf("variance set for a single value")
			}
			return
		}
		if *s.Variance < -1e-9 {
			t.Fatalf("negative variance %v", *s.Variance)
		}
		if math.Abs(*s.StdDev**s.StdDev-math.Max(*s.Variance, 0)) > 1e-6 {
			t.Fatalf("std dev %v does not match variance %v", *s.StdDev, *s.Variance)
		}
	})
}

// shifting every value leaves the variance unchanged
func TestPropertyVarianceShiftInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		xs := rapid.SliceOfN(rapid.Float64Range(0, 10), 2, 32).Draw(t, "xs")
		shift := rapid.Float64Range(0, 1000).Draw(t, "shift")

		shifted := make([]float64, len(xs))
		for i, x := range xs {
			shifted[i] = x + shift
		}
		a, _ := Variance(xs)
		b, _ := Variance(shifted)
		if math.Abs(a-b) > 1e-6 {
			t.Fatalf("variance %v changed to %v after shifting by %v", a, b, shift)
		}
	})
}
