package analysis

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// DateRange bounds the analysis window. Values are ISO dates; empty means
// open ended.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

func (d DateRange) ParseFrom() (*time.Time, error) { return parseOptionalDate(d.From) }
func (d DateRange) ParseTo() (*time.Time, error)   { return parseOptionalDate(d.To) }

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", value)
}

// Options selects which report sections are computed.
type Options struct {
	IncludeVitals         bool `json:"include_vitals"`
	IncludeMedications    bool `json:"include_medications"`
	IncludeRiskAssessment bool `json:"include_risk_assessment"`
}

// PatientSummary is the demographic snapshot embedded in a report.
type PatientSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Age       int     `json:"age"`
	Sex       string  `json:"sex"`
	BMI       float64 `json:"bmi"`
	RiskLevel string  `json:"risk_level"`
}

type VitalTrend struct {
	Parameter string  `json:"parameter"`
	Current   float64 `json:"current"`
	Average   float64 `json:"average"`
	Trend     Trend   `json:"trend"`
	Status    string  `json:"status"`
	Unit      string  `json:"unit"`
}

type VitalsAnalysis struct {
	Trends            []VitalTrend `json:"trends"`
	AnomaliesDetected int          `json:"anomalies_detected"`
	Narrative         string       `json:"narrative"`
}

type MedicationSummary struct {
	Name       string `json:"name"`
	Dosage     string `json:"dosage"`
	Frequency  string `json:"frequency"`
	Indication string `json:"indication"`
}

type MedicationReview struct {
	ActiveMedicationsCount int                 `json:"active_medications_count"`
	Medications            []MedicationSummary `json:"medications"`
	Narrative              string              `json:"narrative"`
}

type RiskAssessment struct {
	RiskLevel RiskLevel `json:"risk_level"`
	RiskScore int       `json:"risk_score"`
	Factors   []string  `json:"factors"`
}

// ReportSections always carries all four analysis categories. Categories
// whose input data was absent hold an explanatory narrative, never a missing
// key.
type ReportSections struct {
	VitalsAnalysis   VitalsAnalysis   `json:"vitals_analysis"`
	MedicationReview MedicationReview `json:"medication_review"`
	RiskAssessment   RiskAssessment   `json:"risk_assessment"`
	Recommendations  []Recommendation `json:"recommendations"`
}

type ReportMetadata struct {
	Confidence         int       `json:"confidence"`
	DataPointsAnalyzed int       `json:"data_points_analyzed"`
	AnalysisTimestamp  time.Time `json:"analysis_timestamp"`
}

// Report is the finished analysis artifact. It is immutable after assembly,
// cached by fingerprint, and persisted asynchronously.
type Report struct {
	ReportID           string         `json:"report_id"`
	Patient            PatientSummary `json:"patient"`
	ReportDate         time.Time      `json:"report_date"`
	AnalysisDateRange  DateRange      `json:"analysis_date_range"`
	GeneratedBy        string         `json:"generated_by"`
	ExecutiveSummary   string         `json:"executive_summary"`
	OverallHealthScore *int           `json:"overall_health_score"`
	Sections           ReportSections `json:"sections"`
	Metadata           ReportMetadata `json:"metadata"`
}

// Fingerprint derives the deterministic cache key for one generation request
// from its semantically significant inputs.
func Fingerprint(patientID string, dateRange DateRange, options Options) string {
	optBytes, _ := json.Marshal(options)
	sum := sha1.Sum(optBytes)
	return fmt.Sprintf("ai_analysis:%s:%s:%s:%s",
		patientID, dateRange.From, dateRange.To, hex.EncodeToString(sum[:])[:12])
}
