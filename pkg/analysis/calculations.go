package analysis

import (
	"fmt"
	"math"

	"github.com/meditrack-ai/platform/pkg/clinical"
)

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// LinearTrend classifies the least-squares slope over an ordered series.
// Slopes within [-1, 1] read as stable.
func LinearTrend(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}

	n := float64(len(values))
	var xMean, yMean float64
	for i, v := range values {
		xMean += float64(i)
		yMean += v
	}
	xMean /= n
	yMean /= n

	var numerator, denominator float64
	for i, v := range values {
		dx := float64(i) - xMean
		numerator += dx * (v - yMean)
		denominator += dx * dx
	}
	if denominator == 0 {
		return TrendStable
	}

	slope := numerator / denominator
	switch {
	case slope > 1:
		return TrendIncreasing
	case slope < -1:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// VitalStatus compares a reading against the configured physiological range.
// Unknown parameters read as normal.
func (c ScoringConfig) VitalStatus(kind string, value float64) string {
	r, ok := c.VitalRanges[kind]
	if !ok {
		return "normal"
	}
	switch {
	case value < r.Min:
		return "low"
	case value > r.Max:
		return "high"
	default:
		return "normal"
	}
}

// RiskScore computes the integer risk score and its level bucket. Vitals are
// expected newest-first; only the most recent readings contribute.
func (c ScoringConfig) RiskScore(patient *clinical.Patient, vitals []clinical.Vital, medications []clinical.Medication) (int, RiskLevel) {
	score := 0

	if patient.Age > c.AgeThreshold {
		score += c.AgeWeight
	}

	recent := vitals
	if len(recent) > c.RecentVitalsCount {
		recent = recent[:c.RecentVitalsCount]
	}
	for _, v := range recent {
		if v.BloodPressureSystolic > c.SystolicThreshold {
			score += c.SystolicWeight
		}
	}

	active := 0
	for _, m := range medications {
		if m.IsActive {
			active++
		}
	}
	if active > c.PolypharmacyCount {
		score += c.PolypharmacyWeight
	}

	var level RiskLevel
	switch {
	case score >= c.CriticalFloor:
		level = RiskCritical
	case score >= c.HighFloor:
		level = RiskHigh
	case score >= c.ModerateFloor:
		level = RiskModerate
	default:
		level = RiskLow
	}

	return score, level
}

// HealthScore starts at 100 and deducts for risk level, vital anomalies and
// polypharmacy, clamped to [0, 100].
func (c ScoringConfig) HealthScore(riskLevel RiskLevel, anomalies int, activeMedications int) int {
	score := 100

	score -= c.RiskDeductions[riskLevel]
	score -= anomalies * c.AnomalyDeduction
	if activeMedications > c.PolypharmacyCount {
		score -= (activeMedications - c.PolypharmacyCount) * c.MedDeduction
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// BMI returns body mass index rounded to two decimals.
func BMI(weightKg, heightM float64) (float64, error) {
	if weightKg <= 0 || heightM <= 0 {
		return 0, fmt.Errorf("weight and height must be positive")
	}
	return math.Round(weightKg/(heightM*heightM)*100) / 100, nil
}
