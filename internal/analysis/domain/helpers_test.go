package analysis

import "math"

// pseudoNormal returns a deterministic, zero-mean, unit-variance noise
// series so tests are reproducible across runs and platforms.
func pseudoNormal(n int, seed uint64) []float64 {
	state := seed
	next := func() float64 {
		state = state*6364136223846793005 + 1442695040888963407
		return float64(state>>11) / float64(1<<53)
	}

	out := make([]float64, n)
	for i := range out {
		var sum float64
		for k := 0; k < 12; k++ {
			sum += next()
		}
		out[i] = sum - 6
	}

	var m float64
	for _, v := range out {
		m += v
	}
	m /= float64(n)

	var ss float64
	for i := range out {
		out[i] -= m
		ss += out[i] * out[i]
	}
	std := math.Sqrt(ss / float64(n))
	if std > 0 {
		for i := range out {
			out[i] /= std
		}
	}
	return out
}

// sinusoid returns amplitude·sin(t) sampled on t = linspace(0, 10, n).
func sinusoid(n int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := 10 * float64(i) / float64(n-1)
		out[i] = amplitude * math.Sin(t)
	}
	return out
}

func addScaled(base, noise []float64, scale float64) []float64 {
	out := make([]float64, len(base))
	for i := range base {
		out[i] = base[i] + scale*noise[i]
	}
	return out
}

func constantSeries(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func rampSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
