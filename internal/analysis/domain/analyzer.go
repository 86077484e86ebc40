package analysis

// Metrics is the descriptor bundle produced by one analysis pass.
// Invariants: Hurst and HurstR2 lie within [0,1]; HysteresisX and
// HysteresisY have equal length; list fields are never nil.
type Metrics struct {
	Bias            float64   `json:"bias"`
	Slope           float64   `json:"slope"`
	NoiseStd        float64   `json:"noise_std"`
	SNRdB           float64   `json:"snr_db"`
	Hysteresis      float64   `json:"hysteresis"`
	HysteresisX     []float64 `json:"hysteresis_x"`
	HysteresisY     []float64 `json:"hysteresis_y"`
	Hurst           float64   `json:"hurst"`
	HurstR2         float64   `json:"hurst_r2"`
	DFAScales       []float64 `json:"dfa_scales"`
	DFAFluctuations []float64 `json:"dfa_fluctuations"`
}

// Result combines the descriptor bundle, health assessment and RUL estimate
// for one series.
type Result struct {
	Metrics    Metrics    `json:"metrics"`
	Health     Assessment `json:"health"`
	Prediction string     `json:"prediction"`
}

// minAnalysisPoints is the hard floor below which the analyzer short-circuits
// to a "No Data" result instead of invoking descriptor math. Several
// calculators, DFA in particular, misbehave below it.
const minAnalysisPoints = 5

// Analyzer is the engine facade. It carries no state beyond its read-only
// config, so a single value is safe for concurrent use and two analyzers with
// equal configs are interchangeable.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer constructs an Analyzer after validating the config.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{cfg: cfg}, nil
}

// Config returns the analyzer's thresholds.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Analyze cleans the raw series, runs every descriptor calculator, scores the
// bundle and projects the remaining useful life. A series shorter than the
// hard floor after cleaning yields a well-formed "No Data" result rather than
// an error. Analyze is a pure function of its inputs: identical input and
// config produce identical output.
func (a *Analyzer) Analyze(raw []float64) (Result, error) {
	clean, err := Preprocess(raw, minAnalysisPoints)
	if err != nil {
		return noDataResult(), nil
	}

	var m Metrics
	m.Bias = Bias(clean)
	m.Slope = Slope(clean)
	m.NoiseStd, m.SNRdB = NoiseSNR(clean)
	m.Hysteresis, m.HysteresisX, m.HysteresisY = Hysteresis(clean)
	m.Hurst, m.HurstR2, m.DFAScales, m.DFAFluctuations = DFA(clean)

	health := Score(m, len(clean), a.cfg)
	prediction := RUL(clean, m.Slope, a.cfg)

	return Result{Metrics: m, Health: health, Prediction: prediction}, nil
}

func noDataResult() Result {
	return Result{
		Metrics: Metrics{
			Hurst:           0.5,
			HysteresisX:     []float64{},
			HysteresisY:     []float64{},
			DFAScales:       []float64{},
			DFAFluctuations: []float64{},
		},
		Health: Assessment{
			Score:          0,
			Status:         StatusNoData,
			Diagnosis:      "Insufficient data for analysis",
			Flags:          []string{},
			Recommendation: "Ingest more data points",
		},
		Prediction: RULNotAvailable,
	}
}
