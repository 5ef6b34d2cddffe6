package analysis

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseAnalysisStructuredSections(t *testing.T) {
	raw := `## Executive Summary
Patient is stable overall.

## Vitals Analysis
Blood pressure trending upward.

**Medication Review**
Five active medications.

## Risk Assessment
Moderate risk profile.

## Recommendations
- Monitor blood pressure daily
- Continue current medications`

	sections := ParseAnalysis(raw)

	if sections.ExecutiveSummary != "Patient is stable overall." {
		t.Fatalf("unexpected summary: %q", sections.ExecutiveSummary)
	}
	if sections.VitalsAnalysis != "Blood pressure trending upward." {
		t.Fatalf("unexpected vitals: %q", sections.VitalsAnalysis)
	}
	if sections.MedicationReview != "Five active medications." {
		t.Fatalf("unexpected medications: %q", sections.MedicationReview)
	}
	if sections.RiskAssessment != "Moderate risk profile." {
		t.Fatalf("unexpected risk: %q", sections.RiskAssessment)
	}
	if len(sections.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(sections.Recommendations))
	}
	if sections.Recommendations[0].Priority != PriorityMedium {
		t.Fatalf("expected medium priority for monitor item, got %s", sections.Recommendations[0].Priority)
	}
	if sections.Recommendations[1].Priority != PriorityLow {
		t.Fatalf("expected low priority for continue item, got %s", sections.Recommendations[1].Priority)
	}
}

func TestParseAnalysisDiscardsUnrecognizedSections(t *testing.T) {
	raw := `Preamble before any header is dropped.

## Vitals Analysis
Readings within range.

## Billing Notes
This section is unknown and its content discarded.

## Risk Assessment
Low risk.`

	sections := ParseAnalysis(raw)

	if sections.VitalsAnalysis != "Readings within range." {
		t.Fatalf("unexpected vitals: %q", sections.VitalsAnalysis)
	}
	if sections.RiskAssessment != "Low risk." {
		t.Fatalf("unexpected risk: %q", sections.RiskAssessment)
	}
	if sections.ExecutiveSummary != "" {
		t.Fatalf("preamble must be discarded, got %q", sections.ExecutiveSummary)
	}
	if strings.Contains(sections.VitalsAnalysis, "unknown") {
		t.Fatal("unrecognized section content leaked into a mapped section")
	}
}

func TestParseAnalysisUnstructuredFallback(t *testing.T) {
	raw := "The patient presents with elevated blood pressure and should rest."

	sections := ParseAnalysis(raw)

	if sections.ExecutiveSummary != raw {
		t.Fatalf("expected full text in summary, got %q", sections.ExecutiveSummary)
	}
	if sections.VitalsAnalysis != "" || sections.RiskAssessment != "" {
		t.Fatal("fallback must leave other sections empty")
	}
}

func TestParseAnalysisIdempotent(t *testing.T) {
	sections := Sections{
		ExecutiveSummary: "Patient is stable.",
		VitalsAnalysis:   "Blood pressure within range.",
		MedicationReview: "Two active medications.",
		RiskAssessment:   "Low risk overall.",
		Recommendations: []Recommendation{
			{Text: "Monitor blood pressure weekly", Priority: PriorityMedium},
			{Text: "Continue current treatment plan", Priority: PriorityLow},
		},
	}

	reparsed := ParseAnalysis(FormatForExport(sections))
	if !reflect.DeepEqual(sections, reparsed) {
		t.Fatalf("reparse mismatch:\nwant %+v\ngot  %+v", sections, reparsed)
	}
}

func TestExtractRiskLevelPriorityOrder(t *testing.T) {
	cases := []struct {
		text string
		want RiskLevel
	}{
		{"The patient shows CRITICAL risk factors", RiskCritical},
		{"requires urgent attention", RiskCritical},
		{"elevated risk of cardiac events", RiskHigh},
		{"an intermediate risk profile", RiskModerate},
		{"overall a stable risk outlook", RiskLow},
	}
	for _, tc := range cases {
		if got := ExtractRiskLevel(tc.text); got != tc.want {
			t.Fatalf("ExtractRiskLevel(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestExtractRiskLevelDefaultsToModerate(t *testing.T) {
	// Under-triage is the unsafe default: text without any keyword must never
	// come back as low.
	got := ExtractRiskLevel("Patient was seen for a routine follow-up visit.")
	if got != RiskModerate {
		t.Fatalf("expected moderate default, got %s", got)
	}
}

func TestExtractRecommendationsStripsMarkers(t *testing.T) {
	text := `- Monitor blood pressure daily
* Adjust medication dosage immediately
1. Continue current exercise program
`
	recs := ExtractRecommendations(text)
	if len(recs) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(recs))
	}
	if recs[0].Text != "Monitor blood pressure daily" || recs[0].Priority != PriorityMedium {
		t.Fatalf("unexpected first rec: %+v", recs[0])
	}
	if recs[1].Priority != PriorityHigh {
		t.Fatalf("expected high priority for immediate item, got %s", recs[1].Priority)
	}
	if recs[2].Priority != PriorityLow {
		t.Fatalf("expected low priority for continue item, got %s", recs[2].Priority)
	}
}

func TestSanitizeStripsTagsAndBounds(t *testing.T) {
	out := Sanitize("<script>alert('x')</script>  Hello   <b>world</b>", 100)
	if strings.Contains(out, "<") || strings.Contains(out, ">") {
		t.Fatalf("tags left in output: %q", out)
	}
	if strings.Contains(out, "  ") {
		t.Fatalf("whitespace runs left in output: %q", out)
	}

	long := strings.Repeat("a", 500)
	truncated := Sanitize(long, 100)
	if len(truncated) > 100+len("... (truncated)") {
		t.Fatalf("output exceeds bound: %d", len(truncated))
	}
	if !strings.HasSuffix(truncated, "... (truncated)") {
		t.Fatalf("missing truncation marker: %q", truncated)
	}
}
