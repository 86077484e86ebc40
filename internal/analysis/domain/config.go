package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Config holds the classification thresholds for the health scorer and RUL
// estimator. It alters classification only, never descriptor math, and is
// never mutated by the engine.
type Config struct {
	SlopeCritical      float64 `json:"slope_critical" yaml:"slope_critical"`
	SlopeWarning       float64 `json:"slope_warning" yaml:"slope_warning"`
	BiasCritical       float64 `json:"bias_critical" yaml:"bias_critical"`
	BiasWarning        float64 `json:"bias_warning" yaml:"bias_warning"`
	NoiseCritical      float64 `json:"noise_critical" yaml:"noise_critical"`
	HysteresisCritical float64 `json:"hysteresis_critical" yaml:"hysteresis_critical"`
	DFACritical        float64 `json:"dfa_critical" yaml:"dfa_critical"`
	MinDataPoints      int     `json:"min_data_points" yaml:"min_data_points"`

	// FailureBoundary is the signal level treated as the failure horizon by
	// the RUL estimator. RUL reports "N/A" when it is not configured.
	FailureBoundary *float64 `json:"failure_boundary,omitempty" yaml:"failure_boundary"`
}

// DefaultConfig returns the documented threshold defaults.
func DefaultConfig() Config {
	return Config{
		SlopeCritical:      0.1,
		SlopeWarning:       0.05,
		BiasCritical:       2.0,
		BiasWarning:        1.0,
		NoiseCritical:      1.5,
		HysteresisCritical: 0.5,
		DFACritical:        0.8,
		MinDataPoints:      50,
	}
}

// Validate checks that thresholds are usable.
func (c Config) Validate() error {
	if c.SlopeCritical < 0 || c.SlopeWarning < 0 {
		return fmt.Errorf("%w: negative slope threshold", ErrBadInput)
	}
	if c.BiasCritical < 0 || c.BiasWarning < 0 {
		return fmt.Errorf("%w: negative bias threshold", ErrBadInput)
	}
	if c.NoiseCritical < 0 {
		return fmt.Errorf("%w: negative noise threshold", ErrBadInput)
	}
	if c.HysteresisCritical < 0 {
		return fmt.Errorf("%w: negative hysteresis threshold", ErrBadInput)
	}
	if c.DFACritical < 0 || c.DFACritical > 1 {
		return fmt.Errorf("%w: dfa_critical must be within [0,1]", ErrBadInput)
	}
	if c.MinDataPoints < 0 {
		return fmt.Errorf("%w: negative min_data_points", ErrBadInput)
	}
	return nil
}

// ParseConfigJSON decodes a caller-supplied config on top of the defaults.
// Unknown fields are rejected so a misspelled threshold never silently
// passes as valid configuration.
func ParseConfigJSON(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrBadInput, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
