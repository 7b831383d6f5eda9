package prompt

import (
	"fmt"
	"strings"

	"Glupulse_Assistant/internal/models"
)

/* =================================================================================
						PROMPT ENGINEERING & GUARDRAILS
=================================================================================*/

/*
SystemPrompt defines the persona of the assistant and its safety directive.
It is sent verbatim at the top of every composed prompt.
*/
const SystemPrompt = `You are a personal health-management assistant for people living with diabetes.
Answer in friendly, easy-to-understand language while staying medically accurate.
If the situation appears dangerous, advise seeing a doctor immediately.
Base your answers on professional knowledge of hyperglycemia and hypoglycemia symptoms, medications, diet and exercise.`

// Sentinels substituted for optional profile fields the user left empty.
const (
	DefaultName   = "user"
	DefaultGender = "unspecified"
	DefaultNone   = "none"
)

/*
PromptTemplate is the four-section layout of the final prompt.
It uses fmt.Sprintf placeholders for the system text, profile block,
chat transcript and query.
*/
const PromptTemplate = `<system>
%s
</system>

<user_profile>
%s
</user_profile>

<chat_history>
%s
</chat_history>

<query>
%s
</query>`

// Compose builds the prompt for one turn. history must not include the
// in-flight query; it only ever appears in the query section.
func Compose(profile models.UserProfile, history []models.ChatMessage, query string) string {
	return fmt.Sprintf(
		PromptTemplate,
		SystemPrompt,
		FormatProfile(profile),
		FormatHistory(history),
		query,
	)
}

// FormatProfile serializes the profile, one "label: value" per line.
func FormatProfile(p models.UserProfile) string {
	name := p.Name
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}

	gender := string(p.Gender)
	if gender == "" {
		gender = DefaultGender
	}

	meds := DefaultNone
	if len(p.Medications) > 0 {
		meds = strings.Join(p.Medications, ", ")
	}

	notes := p.SpecialNotes
	if strings.TrimSpace(notes) == "" {
		notes = DefaultNone
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", name)
	fmt.Fprintf(&b, "Age: %d\n", p.Age)
	fmt.Fprintf(&b, "Gender: %s\n", gender)
	fmt.Fprintf(&b, "Height: %dcm\n", p.HeightCm)
	fmt.Fprintf(&b, "Weight: %dkg\n", p.WeightKg)
	fmt.Fprintf(&b, "Diabetes type: %s\n", p.DiabetesType)
	fmt.Fprintf(&b, "Diagnosis year: %d\n", p.DiagnosisYear)
	fmt.Fprintf(&b, "Recent glucose: %d mg/dL\n", p.RecentGlucoseMgdl)
	fmt.Fprintf(&b, "Target glucose range: %s mg/dL\n", p.TargetGlucoseRange)
	fmt.Fprintf(&b, "Current medications: %s\n", meds)
	fmt.Fprintf(&b, "Special notes: %s", notes)
	return b.String()
}

// FormatHistory renders the transcript as "role: content" lines in order.
func FormatHistory(history []models.ChatMessage) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}
