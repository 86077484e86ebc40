package analysis

import "math"

const (
	// maxSNRdB is the sentinel ceiling reported when the residual noise is
	// effectively zero.
	maxSNRdB = 100.0

	// noiseTrendWindow is the centered moving-average window used to separate
	// the informative signal from its residual noise. Must be odd.
	noiseTrendWindow = 5

	zeroEpsilon = 1e-12
)

// Bias returns the mean deviation of the series from the zero reference,
// measuring steady-state offset.
func Bias(series []float64) float64 {
	return mean(series)
}

// Slope returns the ordinary least-squares regression coefficient of value
// against sample index, measuring drift rate per reading. A constant series
// yields 0.
func Slope(series []float64) float64 {
	_, slope := linearFit(series)
	return slope
}

// NoiseSNR returns the standard deviation of the residual after removing the
// smoothed signal trend, and the signal-to-noise ratio in decibels computed
// as 20·log10(amplitude / noise_std) with the amplitude taken from the
// smoothed trend. The SNR is capped at the sentinel ceiling, which is also
// reported when the residual noise is effectively zero. A constant series
// yields noise 0 and the sentinel.
func NoiseSNR(series []float64) (float64, float64) {
	if len(series) == 0 {
		return 0, maxSNRdB
	}
	trend := movingAverage(series, noiseTrendWindow)

	var ss float64
	for i, v := range series {
		r := v - trend[i]
		ss += r * r
	}
	noiseStd := math.Sqrt(ss / float64(len(series)))
	if noiseStd < zeroEpsilon {
		return noiseStd, maxSNRdB
	}

	lo, hi := minMax(trend)
	amplitude := (hi - lo) / 2
	if amplitude < zeroEpsilon {
		return noiseStd, 0
	}
	snr := 20 * math.Log10(amplitude/noiseStd)
	if snr > maxSNRdB {
		snr = maxSNRdB
	}
	return noiseStd, snr
}

// movingAverage returns a centered moving average; the window shrinks at the
// edges so output length matches input length.
func movingAverage(series []float64, window int) []float64 {
	half := window / 2
	out := make([]float64, len(series))
	for i := range series {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(series)-1 {
			hi = len(series) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += series[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// Hysteresis embeds the series as a lag-1 phase portrait (each value against
// its predecessor), computes the signed loop area of the closed polyline via
// the shoelace formula and normalizes it by the squared series range so the
// ratio is dimensionless. A flat series yields 0. The (x, y) polyline is
// returned for visualization.
func Hysteresis(series []float64) (float64, []float64, []float64) {
	n := len(series)
	if n < 2 {
		return 0, []float64{}, []float64{}
	}

	x := make([]float64, n-1)
	y := make([]float64, n-1)
	copy(x, series[:n-1])
	copy(y, series[1:])

	if len(x) < 3 {
		return 0, x, y
	}

	var twice float64
	m := len(x)
	for i := 0; i < m; i++ {
		j := (i + 1) % m
		twice += x[i]*y[j] - x[j]*y[i]
	}
	area := twice / 2

	lo, hi := minMax(series)
	span := hi - lo
	if span < zeroEpsilon {
		return 0, x, y
	}
	return area / (span * span), x, y
}
