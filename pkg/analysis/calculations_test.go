package analysis

import (
	"testing"

	"github.com/meditrack-ai/platform/pkg/clinical"
)

func TestLinearTrend(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   Trend
	}{
		{"rising systolic series", []float64{120, 125, 130, 135, 140, 145, 150}, TrendIncreasing},
		{"falling series", []float64{150, 145, 140, 135, 130}, TrendDecreasing},
		{"flat series", []float64{120, 120, 120, 120}, TrendStable},
		{"noisy but flat", []float64{120, 121, 119, 120, 121}, TrendStable},
		{"single reading", []float64{120}, TrendStable},
		{"empty series", nil, TrendStable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LinearTrend(tc.values); got != tc.want {
				t.Fatalf("LinearTrend(%v) = %s, want %s", tc.values, got, tc.want)
			}
		})
	}
}

func TestVitalStatus(t *testing.T) {
	cfg := DefaultScoringConfig()

	cases := []struct {
		kind  string
		value float64
		want  string
	}{
		{"systolic", 120, "normal"},
		{"systolic", 85, "low"},
		{"systolic", 160, "high"},
		{"heart_rate", 60, "normal"}, // boundary is inclusive
		{"heart_rate", 101, "high"},
		{"oxygen_saturation", 93, "low"},
		{"unknown_parameter", 999, "normal"},
	}
	for _, tc := range cases {
		if got := cfg.VitalStatus(tc.kind, tc.value); got != tc.want {
			t.Fatalf("VitalStatus(%q, %v) = %q, want %q", tc.kind, tc.value, got, tc.want)
		}
	}
}

func TestRiskScoreBuckets(t *testing.T) {
	cfg := DefaultScoringConfig()

	young := &clinical.Patient{Age: 40}
	elderly := &clinical.Patient{Age: 70}

	highBP := func(n int) []clinical.Vital {
		vitals := make([]clinical.Vital, n)
		for i := range vitals {
			vitals[i] = clinical.Vital{BloodPressureSystolic: 150}
		}
		return vitals
	}
	activeMeds := func(n int) []clinical.Medication {
		meds := make([]clinical.Medication, n)
		for i := range meds {
			meds[i] = clinical.Medication{IsActive: true}
		}
		return meds
	}

	t.Run("no factors is low", func(t *testing.T) {
		score, level := cfg.RiskScore(young, nil, nil)
		if score != 0 || level != RiskLow {
			t.Fatalf("got score=%d level=%s", score, level)
		}
	})

	t.Run("age alone is moderate", func(t *testing.T) {
		score, level := cfg.RiskScore(elderly, nil, nil)
		if score != 2 || level != RiskModerate {
			t.Fatalf("got score=%d level=%s", score, level)
		}
	})

	t.Run("age plus hypertension is high", func(t *testing.T) {
		score, level := cfg.RiskScore(elderly, highBP(2), nil)
		if score != 4 || level != RiskHigh {
			t.Fatalf("got score=%d level=%s", score, level)
		}
	})

	t.Run("all factors is critical", func(t *testing.T) {
		score, level := cfg.RiskScore(elderly, highBP(3), activeMeds(6))
		if score != 7 || level != RiskCritical {
			t.Fatalf("got score=%d level=%s", score, level)
		}
	})

	t.Run("only recent vitals count", func(t *testing.T) {
		// Eight elevated readings, but only the newest five contribute.
		score, _ := cfg.RiskScore(young, highBP(8), nil)
		if score != 5 {
			t.Fatalf("got score=%d, want 5", score)
		}
	})

	t.Run("inactive medications ignored", func(t *testing.T) {
		meds := activeMeds(3)
		meds = append(meds, make([]clinical.Medication, 4)...)
		score, _ := cfg.RiskScore(young, nil, meds)
		if score != 0 {
			t.Fatalf("got score=%d, want 0", score)
		}
	})
}

func TestHealthScore(t *testing.T) {
	cfg := DefaultScoringConfig()

	cases := []struct {
		name      string
		level     RiskLevel
		anomalies int
		meds      int
		want      int
	}{
		{"perfect", RiskLow, 0, 0, 100},
		{"moderate with anomalies", RiskModerate, 2, 0, 80},
		{"polypharmacy deduction", RiskLow, 0, 8, 94},
		{"high everything clamps at zero", RiskCritical, 15, 20, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cfg.HealthScore(tc.level, tc.anomalies, tc.meds); got != tc.want {
				t.Fatalf("HealthScore(%s, %d, %d) = %d, want %d", tc.level, tc.anomalies, tc.meds, got, tc.want)
			}
		})
	}
}

func TestBMI(t *testing.T) {
	bmi, err := BMI(70, 1.75)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bmi != 22.86 {
		t.Fatalf("BMI(70, 1.75) = %v, want 22.86", bmi)
	}

	if _, err := BMI(70, 0); err == nil {
		t.Fatal("expected error for zero height")
	}
	if _, err := BMI(-1, 1.75); err == nil {
		t.Fatal("expected error for negative weight")
	}
}
