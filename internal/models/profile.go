package models

import (
	"fmt"
	"strings"
)

// Gender is optional; the empty value means the user did not pick one.
type Gender string

const (
	GenderUnspecified Gender = ""
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
)

// DiabetesType mirrors the four options offered by the profile form.
type DiabetesType string

const (
	DiabetesType1           DiabetesType = "type1"
	DiabetesType2           DiabetesType = "type2"
	DiabetesTypeGestational DiabetesType = "gestational"
	DiabetesTypeOther       DiabetesType = "other"
)

// Valid reports whether t is one of the known diabetes types.
func (t DiabetesType) Valid() bool {
	switch t {
	case DiabetesType1, DiabetesType2, DiabetesTypeGestational, DiabetesTypeOther:
		return true
	}
	return false
}

// Valid reports whether g is male, female or unspecified.
func (g Gender) Valid() bool {
	switch g {
	case GenderUnspecified, GenderMale, GenderFemale:
		return true
	}
	return false
}

/* =================================================================================
							PROFILE FIELD BOUNDS
	The input layer enforces these; the prompt and keyword modules trust them.
=================================================================================*/

const (
	MinAge           = 1
	MaxAge           = 120
	MinHeightCm      = 100
	MaxHeightCm      = 250
	MinWeightKg      = 30
	MaxWeightKg      = 200
	MinDiagnosisYear = 1950
	MaxDiagnosisYear = 2025
	MinGlucoseMgdl   = 40
	MaxGlucoseMgdl   = 500
)

// UserProfile is the self-reported health profile of the current session.
type UserProfile struct {
	Name               string       `json:"name"`
	Age                int          `json:"age"`
	Gender             Gender       `json:"gender"`
	HeightCm           int          `json:"height_cm"`
	WeightKg           int          `json:"weight_kg"`
	DiabetesType       DiabetesType `json:"diabetes_type"`
	DiagnosisYear      int          `json:"diagnosis_year"`
	RecentGlucoseMgdl  int          `json:"recent_glucose_mgdl"`
	TargetGlucoseRange string       `json:"target_glucose_range"`
	Medications        []string     `json:"medications"`
	SpecialNotes       string       `json:"special_notes"`
}

// DefaultProfile returns the values a new session starts with.
func DefaultProfile() UserProfile {
	return UserProfile{
		Age:                50,
		HeightCm:           170,
		WeightKg:           70,
		DiabetesType:       DiabetesType2,
		DiagnosisYear:      2020,
		RecentGlucoseMgdl:  120,
		TargetGlucoseRange: "80-140",
		Medications:        []string{},
	}
}

// ParseMedications splits a one-medication-per-line block and drops blank lines.
func ParseMedications(text string) []string {
	meds := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		meds = append(meds, line)
	}
	return meds
}

// SetMedications replaces the medication list, dropping blank entries.
func (p *UserProfile) SetMedications(meds []string) {
	p.Medications = ParseMedications(strings.Join(meds, "\n"))
}

// Validate checks every bounded field. The first violation is returned.
func (p UserProfile) Validate() error {
	checks := []struct {
		field    string
		val      int
		min, max int
	}{
		{"age", p.Age, MinAge, MaxAge},
		{"height_cm", p.HeightCm, MinHeightCm, MaxHeightCm},
		{"weight_kg", p.WeightKg, MinWeightKg, MaxWeightKg},
		{"diagnosis_year", p.DiagnosisYear, MinDiagnosisYear, MaxDiagnosisYear},
		{"recent_glucose_mgdl", p.RecentGlucoseMgdl, MinGlucoseMgdl, MaxGlucoseMgdl},
	}
	for _, c := range checks {
		if c.val < c.min || c.val > c.max {
			return fmt.Errorf("%s must be between %d and %d, got %d", c.field, c.min, c.max, c.val)
		}
	}

	if !p.Gender.Valid() {
		return fmt.Errorf("gender must be 'male', 'female' or empty, got %q", p.Gender)
	}
	if !p.DiabetesType.Valid() {
		return fmt.Errorf("diabetes_type must be one of type1, type2, gestational, other; got %q", p.DiabetesType)
	}
	for _, m := range p.Medications {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("medications must not contain blank entries")
		}
	}
	return nil
}

// Summary renders the short profile overview shown above the chat.
func (p UserProfile) Summary() []string {
	var lines []string
	if p.Name != "" {
		lines = append(lines, "Name: "+p.Name)
	}
	lines = append(lines, fmt.Sprintf("Age: %d", p.Age))
	if p.Gender != GenderUnspecified {
		lines = append(lines, "Gender: "+string(p.Gender))
	}
	lines = append(lines,
		"Diabetes type: "+string(p.DiabetesType),
		fmt.Sprintf("Diagnosed: %d", p.DiagnosisYear),
		fmt.Sprintf("Recent glucose: %d mg/dL", p.RecentGlucoseMgdl),
		fmt.Sprintf("Target range: %s mg/dL", p.TargetGlucoseRange),
	)
	if len(p.Medications) > 0 {
		lines = append(lines, "Medications:")
		for _, m := range p.Medications {
			lines = append(lines, "- "+m)
		}
	}
	return lines
}

// Clone returns a deep copy so callers can read a profile outside the session lock.
func (p UserProfile) Clone() UserProfile {
	out := p
	out.Medications = append([]string{}, p.Medications...)
	return out
}
