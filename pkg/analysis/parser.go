package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// RiskLevel classifies patient risk. The zero default for unrecognized text
// is moderate, never low: under-triage is the unsafe direction.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Recommendation struct {
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
	Category string   `json:"category,omitempty"`
}

// Sections holds the structured content extracted from a free-text clinical
// narrative.
type Sections struct {
	ExecutiveSummary string           `json:"executive_summary"`
	VitalsAnalysis   string           `json:"vitals_analysis"`
	MedicationReview string           `json:"medication_review"`
	RiskAssessment   string           `json:"risk_assessment"`
	Recommendations  []Recommendation `json:"recommendations"`
}

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionSummary
	sectionVitals
	sectionMedication
	sectionRisk
	sectionRecommendations
)

// ParseAnalysis scans markdown-like narrative text line by line, tracking the
// current section. A header is a "##" heading or a **bold**-wrapped line.
// Text before any recognized header, or under an unrecognized one, is
// discarded. If nothing matched, the whole sanitized input becomes the
// executive summary so a successful parse never yields an empty result.
func ParseAnalysis(raw string) Sections {
	var sections Sections
	var recommendationText string

	current := sectionNone
	var buf []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		switch current {
		case sectionSummary:
			sections.ExecutiveSummary = content
		case sectionVitals:
			sections.VitalsAnalysis = content
		case sectionMedication:
			sections.MedicationReview = content
		case sectionRisk:
			sections.RiskAssessment = content
		case sectionRecommendations:
			recommendationText = content
		}
		buf = buf[:0]
	}

	for _, line := range strings.Split(raw, "\n") {
		if isSectionHeader(line) {
			flush()
			current = classifyHeader(line)
			continue
		}
		if current != sectionNone {
			buf = append(buf, line)
		}
	}
	flush()

	if recommendationText != "" {
		sections.Recommendations = ExtractRecommendations(recommendationText)
	}

	if sections.ExecutiveSummary == "" && sections.VitalsAnalysis == "" &&
		sections.MedicationReview == "" && sections.RiskAssessment == "" {
		sections.ExecutiveSummary = Sanitize(raw, DefaultMaxOutputLen)
	}

	return sections
}

func isSectionHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "##") {
		return true
	}
	return strings.HasPrefix(trimmed, "**") && strings.HasSuffix(trimmed, "**") && len(trimmed) > 4
}

func classifyHeader(line string) sectionKind {
	header := strings.ToLower(strings.Trim(strings.TrimSpace(line), "#* "))
	switch {
	case strings.Contains(header, "summary"):
		return sectionSummary
	case strings.Contains(header, "vital"):
		return sectionVitals
	case strings.Contains(header, "medication"):
		return sectionMedication
	case strings.Contains(header, "risk"):
		return sectionRisk
	case strings.Contains(header, "recommend"):
		return sectionRecommendations
	default:
		return sectionNone
	}
}

var (
	criticalRiskRe = regexp.MustCompile(`\b(critical|severe|emergency|urgent)\b`)
	highRiskRe     = regexp.MustCompile(`\b(high|elevated|significant)\s+risk\b`)
	moderateRiskRe = regexp.MustCompile(`\b(moderate|medium|intermediate)\s+risk\b`)
	lowRiskRe      = regexp.MustCompile(`\b(low|minimal|stable)\s+risk\b`)
)

// ExtractRiskLevel scans text for risk keywords in strict severity order.
func ExtractRiskLevel(text string) RiskLevel {
	lower := strings.ToLower(text)
	switch {
	case criticalRiskRe.MatchString(lower):
		return RiskCritical
	case highRiskRe.MatchString(lower):
		return RiskHigh
	case moderateRiskRe.MatchString(lower):
		return RiskModerate
	case lowRiskRe.MatchString(lower):
		return RiskLow
	default:
		return RiskModerate
	}
}

var (
	bulletRe       = regexp.MustCompile(`^[\s\-\*\x{2022}\d\.]+`)
	highPriorityRe = regexp.MustCompile(`\b(urgent|immediately|critical|asap)\b`)
	medPriorityRe  = regexp.MustCompile(`\b(monitor|consider|review)\b`)
	lowPriorityRe  = regexp.MustCompile(`\b(continue|maintain|optional)\b`)
)

// ExtractRecommendations splits bulleted or numbered text into structured
// recommendations, classifying priority by keyword.
func ExtractRecommendations(text string) []Recommendation {
	var recs []Recommendation
	for _, line := range strings.Split(text, "\n") {
		cleaned := strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
		if cleaned == "" {
			continue
		}

		lower := strings.ToLower(cleaned)
		priority := PriorityMedium
		switch {
		case highPriorityRe.MatchString(lower):
			priority = PriorityHigh
		case medPriorityRe.MatchString(lower):
			priority = PriorityMedium
		case lowPriorityRe.MatchString(lower):
			priority = PriorityLow
		}

		recs = append(recs, Recommendation{Text: cleaned, Priority: priority})
	}
	return recs
}

// DefaultMaxOutputLen bounds full-report narratives; stream tokens use a much
// smaller cap.
const DefaultMaxOutputLen = 10000

const truncationMarker = "... (truncated)"

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

// Sanitize strips HTML-like tags, collapses whitespace runs, and truncates at
// maxLen. Applied to every value shown to an end user, including individual
// stream fragments.
func Sanitize(text string, maxLen int) string {
	if text == "" {
		return ""
	}

	text = htmlTagRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = newlineRunRe.ReplaceAllString(text, "\n\n")

	if maxLen > 0 && len(text) > maxLen {
		text = text[:maxLen] + truncationMarker
	}

	return strings.TrimSpace(text)
}

// FormatForExport renders parsed sections back into a markdown report. It is
// the inverse of ParseAnalysis for well-formed input, which the tests use to
// check parse idempotence.
func FormatForExport(sections Sections) string {
	var b strings.Builder

	writeSection := func(title, content string) {
		if content == "" {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", title, content)
	}

	writeSection("Executive Summary", sections.ExecutiveSummary)
	writeSection("Vitals Analysis", sections.VitalsAnalysis)
	writeSection("Medication Review", sections.MedicationReview)
	writeSection("Risk Assessment", sections.RiskAssessment)

	if len(sections.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		for i, rec := range sections.Recommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, rec.Text)
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}
