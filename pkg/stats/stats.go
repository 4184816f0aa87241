// Package stats provides the scalar statistics behind the pipeline:
// inverse-variance weighted averages, descriptive statistics with explicit
// sample/population conventions, and the Shapiro-Wilk normality test.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/astriolab/pmfuse/pkg/errors"
)

// Aggregate summarizes one scalar kind across repeated measurements.
type Aggregate struct {
	WeightedMean float64 `json:"weighted_mean" yaml:"weighted_mean"` // Inverse-variance weighted mean
	WeightedErr  float64 `json:"weighted_error" yaml:"weighted_error"` // Error of the weighted mean
	Mean         float64 `json:"mean" yaml:"mean"`                   // Plain mean
	MeanErr      float64 `json:"mean_error" yaml:"mean_error"`       // Standard error of the mean
	Std          float64 `json:"std" yaml:"std"`                     // Sample standard deviation
	N            int     `json:"n" yaml:"n"`                         // Number of samples
}

// WeightedAverage aggregates values with their 1-sigma errors. Weights are
// 1/err². Every error must be positive and finite; substituting a usable
// error for a missing one is the caller's concern.
func WeightedAverage(values, errs []float64) (Aggregate, error) {
	if len(values) == 0 {
		return Aggregate{}, errors.NewFitError("weighted-mean", 0, "empty sample", errors.ErrInsufficientStars)
	}
	if len(values) != len(errs) {
		return Aggregate{}, errors.NewValidationError("errors", len(errs), "values and errors differ in length")
	}

	weights := make([]float64, len(errs))
	var sumw float64
	for i, e := range errs {
		if e <= 0 || math.IsNaN(e) || math.IsInf(e, 0) {
			return Aggregate{}, errors.NewValidationError("errors", e, "errors must be positive and finite")
		}
		weights[i] = 1 / (e * e)
		sumw += weights[i]
	}

	agg := Aggregate{
		WeightedMean: stat.Mean(values, weights),
		WeightedErr:  math.Sqrt(1 / sumw),
		Mean:         stat.Mean(values, nil),
		N:            len(values),
	}
	if len(values) > 1 {
		agg.Std = stat.StdDev(values, nil)
		agg.MeanErr = agg.Std / math.Sqrt(float64(len(values)))
	}
	return agg, nil
}

// Mean returns the arithmetic mean of x.
func Mean(x []float64) float64 {
	return stat.Mean(x, nil)
}

// Std returns the sample (n-1) standard deviation of x, or 0 when x has
// fewer than two elements.
func Std(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return stat.StdDev(x, nil)
}

// PopStd returns the population (n) standard deviation of x, or 0 when x
// is empty. Clipping thresholds and missing-error substitution use this
// convention.
func PopStd(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.PopStdDev(x, nil)
}

// Median returns the median of x, averaging the two middle values for even
// lengths. NaN for an empty sample.
func Median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	sorted := make([]float64, n)
	copy(sorted, x)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
