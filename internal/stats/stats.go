// Package stats holds the small rolling-statistics helpers shared by the
// indicator engine, the sleeves, and the risk overlay.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean, NaN for an empty slice
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Std returns the sample standard deviation (ddof=1)
func Std(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := Mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

// StdPop returns the population standard deviation (ddof=0)
func StdPop(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	m := Mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// Quantile returns the q-th linearly interpolated quantile of xs, q in
// [0, 1]. The input is not modified.
func Quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Beta returns the OLS slope of ys regressed on xs (cov(x,y)/var(x))
func Beta(ys, xs []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return math.NaN()
	}
	mx := Mean(xs)
	my := Mean(ys)
	cov := 0.0
	varx := 0.0
	for i := range xs {
		dx := xs[i] - mx
		cov += dx * (ys[i] - my)
		varx += dx * dx
	}
	if varx == 0 {
		return math.NaN()
	}
	return cov / varx
}

// ZScore standardizes x against the mean and sample std of window
func ZScore(x float64, window []float64) float64 {
	sd := Std(window)
	if math.IsNaN(sd) || sd == 0 {
		return math.NaN()
	}
	return (x - Mean(window)) / sd
}

// Clip bounds x to [lo, hi]
func Clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Sign returns -1, 0, or +1
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// RankPct returns the fraction of window values <= x
func RankPct(x float64, window []float64) float64 {
	if len(window) == 0 {
		return math.NaN()
	}
	count := 0
	for _, v := range window {
		if v <= x {
			count++
		}
	}
	return float64(count) / float64(len(window))
}
