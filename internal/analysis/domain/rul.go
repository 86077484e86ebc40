package analysis

import (
	"fmt"
	"math"
)

const (
	// RULNotAvailable is reported when no failure horizon can be projected.
	RULNotAvailable = "N/A"

	slopeEpsilon = 1e-6
)

// RUL extrapolates the degradation trend from the last observed value toward
// the configured failure boundary and phrases the remaining horizon as a
// reading count. It reports "N/A" when the trend is flat or no boundary is
// configured.
//
// This is a coarse linear projection, not a stochastic survival model: it
// assumes the fitted drift rate stays constant and ignores noise, so treat
// the horizon as an order-of-magnitude maintenance hint only.
func RUL(series []float64, slope float64, cfg Config) string {
	if len(series) == 0 || cfg.FailureBoundary == nil {
		return RULNotAvailable
	}
	if math.Abs(slope) < slopeEpsilon {
		return RULNotAvailable
	}

	last := series[len(series)-1]
	remaining := math.Abs(*cfg.FailureBoundary-last) / math.Abs(slope)
	readings := int(math.Ceil(remaining))
	if readings < 1 {
		readings = 1
	}
	return fmt.Sprintf("~%d readings until failure boundary %.2f at the current drift rate", readings, *cfg.FailureBoundary)
}
