package analysis

import "fmt"

// MedicalAssistantSystemPrompt frames the chat assistant. Kept in one place
// so clinical review of the wording has a single source.
const MedicalAssistantSystemPrompt = `You are an AI medical assistant integrated into MediTrack, a clinical patient management system.

Your capabilities:
- Answer questions about patient care, medications, diagnostics
- Provide evidence-based clinical guidance
- Explain lab results and vital signs
- Discuss drug interactions and contraindications

Guidelines:
1. Always cite evidence levels when making clinical recommendations
2. Emphasize the importance of clinical judgment and patient-specific factors
3. Never provide definitive diagnoses (use phrases like "consider", "may indicate")
4. Remind users to consult authoritative sources for prescribing information
5. Be concise but thorough (2-3 paragraphs max per response)

Tone: professional, empathetic, educational.`

// summaryPrompt builds the executive-summary request embedding the computed
// vitals, medication and risk summaries.
func summaryPrompt(patient PatientSummary, vitalsNarrative, medsNarrative, riskLevel string) string {
	return fmt.Sprintf(`Generate a concise executive summary (2-3 sentences) for patient %s (%dyo %s).

Vitals: %s
Medications: %s
Risk Level: %s

Focus on clinical significance and actionable insights. Use professional medical terminology.`,
		patient.Name, patient.Age, patient.Sex, vitalsNarrative, medsNarrative, riskLevel)
}

// templatedSummary is the deterministic fallback used when the LLM call
// fails; report generation never fails solely because synthesis did.
func templatedSummary(patient PatientSummary, vitalsNarrative, medsNarrative string) string {
	return fmt.Sprintf("Patient %s requires continued monitoring. %s %s",
		patient.Name, vitalsNarrative, medsNarrative)
}
