// Package export renders finished analysis reports for download. It is pure
// formatting over the report value; nothing here touches storage or the LLM.
package export

import (
	"fmt"
	"strings"

	"github.com/meditrack-ai/platform/pkg/analysis"
)

// FormatMarkdown renders the report as a human-readable markdown document.
func FormatMarkdown(report analysis.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Clinical Analysis Report %s\n\n", report.ReportID)
	fmt.Fprintf(&b, "**Patient:** %s (%dyo %s)\n", report.Patient.Name, report.Patient.Age, report.Patient.Sex)
	fmt.Fprintf(&b, "**Report Date:** %s\n", report.ReportDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Generated By:** %s\n", report.GeneratedBy)
	if report.OverallHealthScore != nil {
		fmt.Fprintf(&b, "**Overall Health Score:** %d/100\n", *report.OverallHealthScore)
	}
	b.WriteString("\n")

	if report.ExecutiveSummary != "" {
		fmt.Fprintf(&b, "## Executive Summary\n\n%s\n\n", report.ExecutiveSummary)
	}

	vitals := report.Sections.VitalsAnalysis
	fmt.Fprintf(&b, "## Vitals Analysis\n\n%s\n\n", vitals.Narrative)
	for _, trend := range vitals.Trends {
		fmt.Fprintf(&b, "- %s: current %.1f %s (avg %.1f, %s, %s)\n",
			trend.Parameter, trend.Current, trend.Unit, trend.Average, trend.Trend, trend.Status)
	}
	if len(vitals.Trends) > 0 {
		b.WriteString("\n")
	}

	meds := report.Sections.MedicationReview
	fmt.Fprintf(&b, "## Medication Review\n\n%s\n\n", meds.Narrative)
	for _, m := range meds.Medications {
		fmt.Fprintf(&b, "- %s %s, %s", m.Name, m.Dosage, m.Frequency)
		if m.Indication != "" {
			fmt.Fprintf(&b, " (%s)", m.Indication)
		}
		b.WriteString("\n")
	}
	if len(meds.Medications) > 0 {
		b.WriteString("\n")
	}

	risk := report.Sections.RiskAssessment
	fmt.Fprintf(&b, "## Risk Assessment\n\nRisk level: %s (score %d)\n", risk.RiskLevel, risk.RiskScore)
	for _, factor := range risk.Factors {
		fmt.Fprintf(&b, "- %s\n", factor)
	}
	b.WriteString("\n")

	b.WriteString("## Recommendations\n\n")
	for i, rec := range report.Sections.Recommendations {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, rec.Priority, rec.Text)
	}

	return b.String()
}
