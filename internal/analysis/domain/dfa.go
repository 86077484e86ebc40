package analysis

import "math"

const (
	dfaMinScale   = 4
	dfaScaleCount = 10
)

// DFA estimates the series' long-range-correlation (Hurst) exponent via
// detrended fluctuation analysis: the mean-centered cumulative profile is
// split into non-overlapping windows across logarithmically spaced scales, a
// local order-1 trend is removed per window, and the slope of log F(scale)
// against log(scale) is the exponent. The regression's R² is returned along
// with the scale/fluctuation lists for visualization.
//
// Fewer than 2 usable scales (short or zero-variance input) yields the
// uncorrelated default of 0.5 with R² 0. The exponent is clamped to [0, 1].
func DFA(series []float64) (float64, float64, []float64, []float64) {
	scales := []float64{}
	flucts := []float64{}

	n := len(series)
	maxScale := n / 4
	if maxScale < dfaMinScale {
		return 0.5, 0, scales, flucts
	}

	center := mean(series)
	profile := make([]float64, n)
	var cum float64
	for i, v := range series {
		cum += v - center
		profile[i] = cum
	}

	prev := 0
	logMin := math.Log(float64(dfaMinScale))
	logMax := math.Log(float64(maxScale))
	for k := 0; k < dfaScaleCount; k++ {
		frac := 0.0
		if dfaScaleCount > 1 {
			frac = float64(k) / float64(dfaScaleCount-1)
		}
		scale := int(math.Round(math.Exp(logMin + frac*(logMax-logMin))))
		if scale <= prev {
			continue
		}
		if scale > maxScale {
			break
		}
		prev = scale

		f := fluctuation(profile, scale)
		if f < zeroEpsilon || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		scales = append(scales, float64(scale))
		flucts = append(flucts, f)
	}

	if len(scales) < 2 {
		return 0.5, 0, scales, flucts
	}

	logScales := make([]float64, len(scales))
	logFlucts := make([]float64, len(flucts))
	for i := range scales {
		logScales[i] = math.Log(scales[i])
		logFlucts[i] = math.Log(flucts[i])
	}
	slope, _, r2 := regress(logScales, logFlucts)

	return clamp(slope, 0, 1), clamp(r2, 0, 1), scales, flucts
}

// fluctuation returns the RMS detrended residual averaged across all
// non-overlapping windows of the given scale.
func fluctuation(profile []float64, scale int) float64 {
	windows := len(profile) / scale
	if windows == 0 {
		return 0
	}

	idx := make([]float64, scale)
	for i := range idx {
		idx[i] = float64(i)
	}

	var total float64
	for w := 0; w < windows; w++ {
		segment := profile[w*scale : (w+1)*scale]
		intercept, slope := linearFit(segment)

		var ss float64
		for i, v := range segment {
			r := v - (intercept + slope*idx[i])
			ss += r * r
		}
		total += math.Sqrt(ss / float64(scale))
	}
	return total / float64(windows)
}
