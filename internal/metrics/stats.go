package metrics

import (
	"math"
	"sort"
)

func finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return sum(xs) / float64(len(xs))
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// quantile uses linear interpolation between closest ranks.
func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	return s[lo] + (s[hi]-s[lo])*(pos-float64(lo))
}

func median(xs []float64) float64 {
	return quantile(xs, 0.5)
}

// regression fits y = intercept + slope*x over x = 0..n-1 and returns the
// correlation coefficient alongside.
func regression(ys []float64) (slope, intercept, r float64) {
	n := float64(len(ys))
	var sx, sy, sxx, syy, sxy float64
	for i, y := range ys {
		x := float64(i)
		sx += x
		sy += y
		sxx += x * x
		syy += y * y
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, sy / n, 0
	}
	slope = (n*sxy - sx*sy) / den
	intercept = (sy - slope*sx) / n

	vy := n*syy - sy*sy
	if vy <= 0 {
		return slope, intercept, 0
	}
	r = (n*sxy - sx*sy) / math.Sqrt(den*vy)
	return slope, intercept, r
}

// movingAverage is a centered rolling mean. Positions without a full window
// are NaN.
func movingAverage(ys []float64, window int) []float64 {
	out := make([]float64, len(ys))
	half := window / 2
	for i := range ys {
		start := i - half
		end := start + window
		if start < 0 || end > len(ys) {
			out[i] = math.NaN()
			continue
		}
		out[i] = mean(ys[start:end])
	}
	return out
}

func pct(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return round2(part / whole * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
