package stats

import "math"

// RoundToError rounds value and err to the decimal place of err's leading
// significant figure, the convention used when reporting a measurement with
// its uncertainty. Non-finite or zero errors leave both untouched.
func RoundToError(value, err float64) (float64, float64) {
	if err == 0 || math.IsNaN(err) || math.IsInf(err, 0) {
		return value, err
	}
	digits := -math.Floor(math.Log10(math.Abs(err)))
	scale := math.Pow(10, digits)
	return math.Round(value*scale) / scale, math.Round(err*scale) / scale
}
