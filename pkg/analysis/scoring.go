package analysis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VitalRange is the inclusive physiological normal range for one parameter.
type VitalRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// ScoringConfig carries the clinical weighting constants. The defaults mirror
// the values used in production dashboards; they are heuristic and pending
// clinical validation, so deployments may override them from a YAML file.
type ScoringConfig struct {
	AgeThreshold       int     `yaml:"age_threshold"`
	AgeWeight          int     `yaml:"age_weight"`
	SystolicThreshold  float64 `yaml:"systolic_threshold"`
	SystolicWeight     int     `yaml:"systolic_weight"`
	RecentVitalsCount  int     `yaml:"recent_vitals_count"`
	PolypharmacyCount  int     `yaml:"polypharmacy_count"`
	PolypharmacyWeight int     `yaml:"polypharmacy_weight"`

	// Risk-score bucket floors.
	CriticalFloor int `yaml:"critical_floor"`
	HighFloor     int `yaml:"high_floor"`
	ModerateFloor int `yaml:"moderate_floor"`

	// Health-score deductions.
	RiskDeductions   map[RiskLevel]int `yaml:"risk_deductions"`
	AnomalyDeduction int               `yaml:"anomaly_deduction"`
	MedDeduction     int               `yaml:"med_deduction"`

	VitalRanges map[string]VitalRange `yaml:"vital_ranges"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		AgeThreshold:       65,
		AgeWeight:          2,
		SystolicThreshold:  140,
		SystolicWeight:     1,
		RecentVitalsCount:  5,
		PolypharmacyCount:  5,
		PolypharmacyWeight: 2,

		CriticalFloor: 5,
		HighFloor:     3,
		ModerateFloor: 1,

		RiskDeductions: map[RiskLevel]int{
			RiskLow:      0,
			RiskModerate: 10,
			RiskHigh:     25,
			RiskCritical: 40,
		},
		AnomalyDeduction: 5,
		MedDeduction:     2,

		VitalRanges: map[string]VitalRange{
			"systolic":          {Min: 90, Max: 140},
			"diastolic":         {Min: 60, Max: 90},
			"heart_rate":        {Min: 60, Max: 100},
			"temperature":       {Min: 36.1, Max: 37.2},
			"oxygen_saturation": {Min: 95, Max: 100},
			"respiratory_rate":  {Min: 12, Max: 20},
		},
	}
}

// LoadScoringConfig overlays YAML values onto the defaults. An empty path
// returns the defaults unchanged.
func LoadScoringConfig(path string) (ScoringConfig, error) {
	cfg := DefaultScoringConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read scoring config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse scoring config: %w", err)
	}
	return cfg, nil
}
