package analysis

import (
	"fmt"
	"math"
)

// Preprocess drops missing and non-finite entries from a raw series without
// reordering it. It returns ErrInsufficientData when fewer than min points
// survive cleaning. Pure, no side effects.
func Preprocess(raw []float64, min int) ([]float64, error) {
	clean := make([]float64, 0, len(raw))
	for _, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		clean = append(clean, v)
	}
	if len(clean) < min {
		return clean, fmt.Errorf("%w: %d points after cleaning, need %d", ErrInsufficientData, len(clean), min)
	}
	return clean, nil
}

func mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

func minMax(series []float64) (float64, float64) {
	if len(series) == 0 {
		return 0, 0
	}
	lo, hi := series[0], series[0]
	for _, v := range series[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// linearFit returns the OLS intercept and slope of series against its
// sample index. A constant or single-point series yields slope 0.
func linearFit(series []float64) (float64, float64) {
	n := len(series)
	if n == 0 {
		return 0, 0
	}
	meanX := float64(n-1) / 2
	meanY := mean(series)

	var num, den float64
	for i, v := range series {
		dx := float64(i) - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}
	if den == 0 {
		return meanY, 0
	}
	slope := num / den
	return meanY - slope*meanX, slope
}

// regress fits y against x and returns slope, intercept and the coefficient
// of determination.
func regress(x, y []float64) (float64, float64, float64) {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0, 0, 0
	}
	meanX := mean(x)
	meanY := mean(y)

	var num, den float64
	for i := range x {
		dx := x[i] - meanX
		num += dx * (y[i] - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0, meanY, 0
	}
	slope := num / den
	intercept := meanY - slope*meanX

	var ssRes, ssTot float64
	for i := range x {
		fit := intercept + slope*x[i]
		ssRes += (y[i] - fit) * (y[i] - fit)
		ssTot += (y[i] - meanY) * (y[i] - meanY)
	}
	if ssTot == 0 {
		return slope, intercept, 0
	}
	return slope, intercept, 1 - ssRes/ssTot
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
