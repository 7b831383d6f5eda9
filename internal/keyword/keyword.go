// Package keyword answers questions with canned advice picked by keyword
// matching. Keyword sets and advice text live in locale YAML files.
package keyword

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"Glupulse_Assistant/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

const DefaultLocale = "en"

// Category is the advice bucket a query resolves to.
type Category string

const (
	CategoryDiet     Category = "diet"
	CategoryExercise Category = "exercise"
	CategoryGlucose  Category = "glucose"
	CategoryGeneral  Category = "general"
)

// priority is the order categories are tested in. A query matching several
// categories resolves to the earliest one.
var priority = []Category{CategoryDiet, CategoryExercise, CategoryGlucose}

type yamlLocale struct {
	Locale      string                 `yaml:"locale"`
	Categories  map[Category]yamlEntry `yaml:"categories"`
	GlucoseLine string                 `yaml:"glucose_line"`
}

type yamlEntry struct {
	Keywords []string `yaml:"keywords"`
	Advice   string   `yaml:"advice"`
}

// Responder classifies queries and returns the matching advice.
// It holds no mutable state after construction.
type Responder struct {
	locale      string
	keywords    map[Category][]string
	advice      map[Category]string
	glucoseLine *template.Template
}

// LoadLocale builds a Responder from one of the embedded locale files.
func LoadLocale(name string) (*Responder, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultLocale
	}
	data, err := localeFS.ReadFile("locales/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown keyword locale %q: %w", name, err)
	}
	return Load(data)
}

// LoadFile builds a Responder from a locale file on disk.
func LoadFile(path string) (*Responder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword file: %w", err)
	}
	return Load(data)
}

// Load parses locale YAML and validates that every category is present.
func Load(data []byte) (*Responder, error) {
	var doc yamlLocale
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse keyword locale: %w", err)
	}

	r := &Responder{
		locale:   doc.Locale,
		keywords: make(map[Category][]string, len(priority)),
		advice:   make(map[Category]string, len(priority)+1),
	}

	for _, cat := range priority {
		entry, ok := doc.Categories[cat]
		if !ok {
			return nil, fmt.Errorf("keyword locale %q: missing category %q", doc.Locale, cat)
		}
		var kws []string
		for _, kw := range entry.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) == 0 {
			return nil, fmt.Errorf("keyword locale %q: category %q has no keywords", doc.Locale, cat)
		}
		if strings.TrimSpace(entry.Advice) == "" {
			return nil, fmt.Errorf("keyword locale %q: category %q has no advice", doc.Locale, cat)
		}
		r.keywords[cat] = kws
		r.advice[cat] = strings.TrimRight(entry.Advice, "\n")
	}

	general, ok := doc.Categories[CategoryGeneral]
	if !ok || strings.TrimSpace(general.Advice) == "" {
		return nil, fmt.Errorf("keyword locale %q: missing general advice", doc.Locale)
	}
	r.advice[CategoryGeneral] = strings.TrimRight(general.Advice, "\n")

	tmpl, err := template.New("glucose_line").Option("missingkey=error").Parse(doc.GlucoseLine)
	if err != nil {
		return nil, fmt.Errorf("keyword locale %q: bad glucose_line: %w", doc.Locale, err)
	}
	r.glucoseLine = tmpl

	return r, nil
}

// Locale returns the locale name declared in the loaded file.
func (r *Responder) Locale() string {
	return r.locale
}

// Classify lowercases the query and tests each category's keywords by
// substring membership in fixed priority order.
func (r *Responder) Classify(query string) Category {
	q := strings.ToLower(query)
	for _, cat := range priority {
		for _, kw := range r.keywords[cat] {
			if strings.Contains(q, kw) {
				return cat
			}
		}
	}
	return CategoryGeneral
}

// Respond returns the advice for the query's category. General advice ends
// with a line comparing the profile's recent glucose with its target range.
func (r *Responder) Respond(query string, profile models.UserProfile) string {
	cat := r.Classify(query)
	text := r.advice[cat]
	if cat != CategoryGeneral {
		return text
	}

	var line bytes.Buffer
	data := struct {
		Current int
		Target  string
	}{profile.RecentGlucoseMgdl, profile.TargetGlucoseRange}
	if err := r.glucoseLine.Execute(&line, data); err != nil {
		fmt.Fprintf(&line, "%d mg/dL / %s mg/dL", data.Current, data.Target)
	}
	return text + "\n" + line.String()
}
