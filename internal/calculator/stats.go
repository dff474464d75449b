package calculator

import (
	"errors"
	"math"
)

// ErrNoValues is returned when a statistic is requested over an empty window.
var ErrNoValues = errors.New("no values provided")

// CalculateMean returns the arithmetic mean of values.
func CalculateMean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoValues
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// CalculateGuardedMean divides the sum by max(1, len(values)), so an empty
// window yields 0 instead of NaN.
func CalculateGuardedMean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / math.Max(1, float64(len(values)))
}

// CalculateStdDev computes the population standard deviation (divisor n, not n-1).
func CalculateStdDev(values []float64) (float64, error) {
	avg, err := CalculateMean(values)
	if err != nil {
		return 0, err
	}
	variance := 0.0
	for _, v := range values {
		d := v - avg
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance), nil
}

// RoundTenth rounds to one decimal place, halves away from zero.
func RoundTenth(x float64) float64 {
	return math.Round(x*10) / 10
}
