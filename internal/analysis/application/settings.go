package application

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	analysis "qorsense-cloud/internal/analysis/domain"
)

// EngineSettings carries the scorer thresholds plus per-sensor overrides.
type EngineSettings struct {
	Defaults analysis.Config           `yaml:"defaults"`
	Sensors  map[string]ConfigOverride `yaml:"sensors"`
	Watchdog WatchdogSettings          `yaml:"watchdog"`
}

// ConfigOverride is a partial per-sensor config. Nil fields keep the
// defaults; set fields replace them, so zero is a legitimate override
// value (e.g. bias_warning: 0 to flag any measurable bias).
type ConfigOverride struct {
	SlopeCritical      *float64 `yaml:"slope_critical"`
	SlopeWarning       *float64 `yaml:"slope_warning"`
	BiasCritical       *float64 `yaml:"bias_critical"`
	BiasWarning        *float64 `yaml:"bias_warning"`
	NoiseCritical      *float64 `yaml:"noise_critical"`
	HysteresisCritical *float64 `yaml:"hysteresis_critical"`
	DFACritical        *float64 `yaml:"dfa_critical"`
	MinDataPoints      *int     `yaml:"min_data_points"`
	FailureBoundary    *float64 `yaml:"failure_boundary"`
}

// WatchdogSettings configures the background health sweep.
type WatchdogSettings struct {
	Interval string   `yaml:"interval"`
	Sensors  []string `yaml:"sensors"`
}

// LoadSettings loads engine settings from the yaml file named by
// ANALYSIS_CONFIG, falling back to the documented defaults. Unknown yaml
// keys are rejected.
func LoadSettings() (EngineSettings, error) {
	settings := EngineSettings{Defaults: analysis.DefaultConfig()}

	path := os.Getenv("ANALYSIS_CONFIG")
	if path == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return settings, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&settings); err != nil {
		return settings, fmt.Errorf("analysis settings: %w", err)
	}
	if err := settings.Defaults.Validate(); err != nil {
		return settings, err
	}
	for sensorID, override := range settings.Sensors {
		merged := mergeConfig(settings.Defaults, override)
		if err := merged.Validate(); err != nil {
			return settings, fmt.Errorf("analysis settings: sensor %s: %w", sensorID, err)
		}
	}
	return settings, nil
}

// ForSensor returns the effective config for a sensor: the defaults with any
// per-sensor override applied on top.
func (s EngineSettings) ForSensor(sensorID string) analysis.Config {
	if s.Sensors != nil {
		if override, ok := s.Sensors[sensorID]; ok {
			return mergeConfig(s.Defaults, override)
		}
	}
	return s.Defaults
}

func mergeConfig(base analysis.Config, override ConfigOverride) analysis.Config {
	if override.SlopeCritical != nil {
		base.SlopeCritical = *override.SlopeCritical
	}
	if override.SlopeWarning != nil {
		base.SlopeWarning = *override.SlopeWarning
	}
	if override.BiasCritical != nil {
		base.BiasCritical = *override.BiasCritical
	}
	if override.BiasWarning != nil {
		base.BiasWarning = *override.BiasWarning
	}
	if override.NoiseCritical != nil {
		base.NoiseCritical = *override.NoiseCritical
	}
	if override.HysteresisCritical != nil {
		base.HysteresisCritical = *override.HysteresisCritical
	}
	if override.DFACritical != nil {
		base.DFACritical = *override.DFACritical
	}
	if override.MinDataPoints != nil {
		base.MinDataPoints = *override.MinDataPoints
	}
	if override.FailureBoundary != nil {
		base.FailureBoundary = override.FailureBoundary
	}
	return base
}
