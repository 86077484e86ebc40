package analysis

import "math"

// Status classifies an assessment.
type Status string

const (
	StatusNormal   Status = "Normal"
	StatusWarning  Status = "Warning"
	StatusCritical Status = "Critical"
	StatusNoData   Status = "No Data"
)

// Score bands.
const (
	normalScoreFloor  = 85.0
	warningScoreFloor = 60.0
)

// persistentTrendMinR2 is the minimum DFA fit quality for PERSISTENT_TREND.
// Below it the log-log scaling is not a power law, so the exponent carries
// no trend information.
const persistentTrendMinR2 = 0.6

// Assessment is the composite health verdict for one series.
type Assessment struct {
	Score          float64  `json:"score"`
	Status         Status   `json:"status"`
	Diagnosis      string   `json:"diagnosis"`
	Flags          []string `json:"flags"`
	Recommendation string   `json:"recommendation"`
}

// rule is one threshold check. Rules are ordered by descending severity so
// the most critical fired rule dominates the diagnosis and recommendation.
type rule struct {
	flag           string
	severity       int
	deduction      float64
	applies        func(m Metrics, sampleCount int, cfg Config) bool
	diagnosis      string
	recommendation string
}

var scoreRules = []rule{
	{
		flag:      "HIGH_DRIFT",
		severity:  5,
		deduction: 30,
		applies: func(m Metrics, _ int, cfg Config) bool {
			return math.Abs(m.Slope) >= cfg.SlopeCritical
		},
		diagnosis:      "Severe signal drift indicates progressive sensor degradation",
		recommendation: "Recalibrate or replace the sensor",
	},
	{
		flag:      "EXCESSIVE_NOISE",
		severity:  4,
		deduction: 25,
		applies: func(m Metrics, _ int, cfg Config) bool {
			return m.NoiseStd >= cfg.NoiseCritical
		},
		diagnosis:      "Residual noise exceeds the critical threshold",
		recommendation: "Inspect wiring, grounding and shielding",
	},
	{
		flag:      "HIGH_BIAS",
		severity:  4,
		deduction: 20,
		applies: func(m Metrics, _ int, cfg Config) bool {
			return math.Abs(m.Bias) >= cfg.BiasCritical
		},
		diagnosis:      "Steady-state offset exceeds the critical threshold",
		recommendation: "Re-zero the sensor against a known reference",
	},
	{
		flag:      "HYSTERESIS_DETECTED",
		severity:  3,
		deduction: 15,
		applies: func(m Metrics, _ int, cfg Config) bool {
			return math.Abs(m.Hysteresis) >= cfg.HysteresisCritical
		},
		diagnosis:      "Response differs between rising and falling excursions",
		recommendation: "Check for mechanical wear or backlash in the sensing element",
	},
	{
		flag:      "DRIFT_WARNING",
		severity:  2,
		deduction: 15,
		applies: func(m Metrics, _ int, cfg Config) bool {
			abs := math.Abs(m.Slope)
			return abs >= cfg.SlopeWarning && abs < cfg.SlopeCritical
		},
		diagnosis:      "Signal drift is approaching the critical threshold",
		recommendation: "Schedule a recalibration",
	},
	{
		flag:      "PERSISTENT_TREND",
		severity:  2,
		deduction: 10,
		applies: func(m Metrics, _ int, cfg Config) bool {
			// An exponent pinned at the ceiling means the series is
			// deterministic rather than stochastically persistent; smooth
			// periodic signals land there and the drift rules own actual
			// ramps.
			return m.Hurst >= cfg.DFACritical && m.Hurst < 1 && m.HurstR2 >= persistentTrendMinR2
		},
		diagnosis:      "Long-range correlation suggests a persistent underlying trend",
		recommendation: "Review recent process or environment changes",
	},
	{
		flag:      "BIAS_WARNING",
		severity:  1,
		deduction: 5,
		applies: func(m Metrics, _ int, cfg Config) bool {
			abs := math.Abs(m.Bias)
			return abs >= cfg.BiasWarning && abs < cfg.BiasCritical
		},
		diagnosis:      "Steady-state offset is above the warning threshold",
		recommendation: "Verify the zero reference at the next service window",
	},
	{
		flag:      "LOW_SAMPLE_COUNT",
		severity:  1,
		deduction: 5,
		applies: func(_ Metrics, sampleCount int, cfg Config) bool {
			return sampleCount < cfg.MinDataPoints
		},
		diagnosis:      "Sample count is below the configured minimum; descriptors are less reliable",
		recommendation: "Collect more data points before acting on this assessment",
	},
}

// Score deducts points from a 100 baseline for each descriptor crossing a
// configured threshold and derives status from fixed score bands.
// Deterministic: identical metrics and config always yield an identical
// assessment.
func Score(m Metrics, sampleCount int, cfg Config) Assessment {
	score := 100.0
	flags := []string{}
	diagnosis := "All health indicators within normal limits"
	recommendation := "No action required"

	fired := false
	for _, r := range scoreRules {
		if !r.applies(m, sampleCount, cfg) {
			continue
		}
		score -= r.deduction
		flags = append(flags, r.flag)
		if !fired {
			diagnosis = r.diagnosis
			recommendation = r.recommendation
			fired = true
		}
	}

	score = clamp(score, 0, 100)
	return Assessment{
		Score:          score,
		Status:         statusForScore(score),
		Diagnosis:      diagnosis,
		Flags:          flags,
		Recommendation: recommendation,
	}
}

func statusForScore(score float64) Status {
	switch {
	case score >= normalScoreFloor:
		return StatusNormal
	case score >= warningScoreFloor:
		return StatusWarning
	default:
		return StatusCritical
	}
}
