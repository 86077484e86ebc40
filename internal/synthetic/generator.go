package synthetic

import (
	"fmt"
	"math"
	"math/rand"
)

// Kind selects the failure mode the generated series exhibits.
type Kind string

const (
	KindNormal      Kind = "normal"
	KindDrifting    Kind = "drifting"
	KindNoisy       Kind = "noisy"
	KindOscillation Kind = "oscillation"
)

const (
	defaultLength = 100
	maxLength     = 10000

	baseAmplitude   = 10.0
	normalNoiseStd  = 0.5
	noisyNoiseStd   = 3.0
	driftPerSample  = 0.05
	oscillationGain = 4.0
)

// ParseKind maps a request string onto a known kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindNormal, KindDrifting, KindNoisy, KindOscillation:
		return Kind(raw), nil
	case "":
		return KindNormal, nil
	default:
		return "", fmt.Errorf("unknown series kind %q", raw)
	}
}

// Generate produces a deterministic synthetic sensor series. The base
// signal is a sine sweep over [0, 10]; each kind layers its own defect
// on top. The same seed always yields the same series.
func Generate(kind Kind, length int, seed int64) ([]float64, error) {
	if length <= 0 {
		length = defaultLength
	}
	if length > maxLength {
		return nil, fmt.Errorf("series length %d exceeds limit %d", length, maxLength)
	}

	rng := rand.New(rand.NewSource(seed))
	series := make([]float64, length)
	span := float64(length - 1)
	if span == 0 {
		span = 1
	}
	for i := range series {
		t := 10.0 * float64(i) / span
		base := baseAmplitude * math.Sin(t)
		switch kind {
		case KindNormal:
			series[i] = base + normalNoiseStd*rng.NormFloat64()
		case KindDrifting:
			series[i] = base + normalNoiseStd*rng.NormFloat64() + driftPerSample*float64(i)
		case KindNoisy:
			series[i] = base + noisyNoiseStd*rng.NormFloat64()
		case KindOscillation:
			series[i] = base + oscillationGain*math.Sin(8*t) + normalNoiseStd*rng.NormFloat64()
		default:
			return nil, fmt.Errorf("unknown series kind %q", kind)
		}
	}
	return series, nil
}
