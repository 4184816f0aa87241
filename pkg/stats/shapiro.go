package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/astriolab/pmfuse/pkg/errors"
)

// Royston AS R94 polynomial coefficients, lowest order first.
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.5440, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

// ShapiroWilk tests a sample for normality, returning the W statistic and
// its p-value (Royston's AS R94 approximation). At least 3 samples are
// required; beyond 5000 samples the p-value approximation degrades.
func ShapiroWilk(sample []float64) (w, p float64, err error) {
	n := len(sample)
	if n < 3 {
		return 0, 0, errors.NewFitError("shapiro-wilk", n, "at least 3 samples required", errors.ErrInsufficientStars)
	}

	x := make([]float64, n)
	copy(x, sample)
	sort.Float64s(x)

	if x[n-1]-x[0] <= 0 {
		return 0, 0, errors.NewFitError("shapiro-wilk", n, "sample has zero range", errors.ErrInvalidInput)
	}

	a := swWeights(n)

	mean := Mean(x)
	var num, den float64
	for i := 0; i < n; i++ {
		num += a[i] * x[i]
		d := x[i] - mean
		den += d * d
	}
	w = num * num / den
	if w > 1 {
		w = 1
	}

	return w, swPValue(w, n), nil
}

// swWeights builds the expected-order-statistic weight vector. The vector
// is antisymmetric, so only extremes need Royston's corrections.
func swWeights(n int) []float64 {
	a := make([]float64, n)
	if n == 3 {
		a[0] = -math.Sqrt(0.5)
		a[2] = math.Sqrt(0.5)
		return a
	}

	m := make([]float64, n)
	an25 := float64(n) + 0.25
	var ssq float64
	for i := 0; i < n; i++ {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / an25)
		ssq += m[i] * m[i]
	}
	c := math.Sqrt(ssq)
	rsn := 1 / math.Sqrt(float64(n))

	an := swPoly(swC1, rsn) + m[n-1]/c
	var phi float64
	if n > 5 {
		an1 := swPoly(swC2, rsn) + m[n-2]/c
		phi = (ssq - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) /
			(1 - 2*an*an - 2*an1*an1)
		a[n-2], a[1] = an1, -an1
	} else {
		phi = (ssq - 2*m[n-1]*m[n-1]) / (1 - 2*an*an)
	}
	a[n-1], a[0] = an, -an

	inner := 2
	if n <= 5 {
		inner = 1
	}
	sphi := math.Sqrt(phi)
	for i := inner; i < n-inner; i++ {
		a[i] = m[i] / sphi
	}
	return a
}

// swPValue maps the W statistic to a p-value via Royston's normalizing
// transforms.
func swPValue(w float64, n int) float64 {
	switch {
	case n == 3:
		// Exact for n=3
		const pi6 = 6 / math.Pi
		stqr := math.Asin(math.Sqrt(0.75))
		p := pi6 * (math.Asin(math.Sqrt(w)) - stqr)
		return math.Min(math.Max(p, 0), 1)
	case n <= 11:
		gamma := swPoly(swG, float64(n))
		y := -math.Log(gamma - math.Log(1-w))
		mu := swPoly(swC3, float64(n))
		sigma := math.Exp(swPoly(swC4, float64(n)))
		return distuv.UnitNormal.Survival((y - mu) / sigma)
	default:
		y := math.Log(1 - w)
		u := math.Log(float64(n))
		mu := swPoly(swC5, u)
		sigma := math.Exp(swPoly(swC6, u))
		return distuv.UnitNormal.Survival((y - mu) / sigma)
	}
}

// swPoly evaluates a polynomial with coefficients in ascending order.
func swPoly(coef []float64, x float64) float64 {
	var v float64
	for i := len(coef) - 1; i >= 0; i-- {
		v = v*x + coef[i]
	}
	return v
}
