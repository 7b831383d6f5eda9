package main

import (
	"os"
	"path/filepath"
	"testing"

	"Glupulse_Assistant/internal/config"
	"Glupulse_Assistant/internal/responder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProviderModes(t *testing.T) {
	for _, mode := range []string{"api", "keyword", "fallback"} {
		cfg := &config.Config{ResponseMode: mode, Keyword: config.Keyword{Locale: "en"}}
		p, err := buildProvider(cfg)
		require.NoError(t, err, mode)
		assert.Equal(t, mode, p.Name())
	}
}

func TestLoadKeywordsByLocale(t *testing.T) {
	kw, err := loadKeywords(&config.Config{Keyword: config.Keyword{Locale: "ko"}})
	require.NoError(t, err)
	assert.Equal(t, "ko", kw.Locale())
}

func TestBuildProviderRejectsUnknownMode(t *testing.T) {
	_, err := buildProvider(&config.Config{ResponseMode: "oracle", Keyword: config.Keyword{Locale: "en"}})
	assert.Error(t, err)
}

func TestBuildProviderKeywordFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
locale: custom
categories:
  diet: {keywords: [carbs], advice: "custom diet"}
  exercise: {keywords: [run], advice: "custom exercise"}
  glucose: {keywords: [sugar], advice: "custom glucose"}
  general: {advice: "custom general"}
glucose_line: "{{.Current}}"
`), 0o600))

	kw, err := loadKeywords(&config.Config{Keyword: config.Keyword{File: path}})
	require.NoError(t, err)
	assert.Equal(t, "custom", kw.Locale())

	p, err := buildProvider(&config.Config{ResponseMode: "keyword", Keyword: config.Keyword{File: path}})
	require.NoError(t, err)
	reply := p.Respond(t.Context(), responder.Turn{Query: "carbs?"})
	assert.Equal(t, "custom diet", reply.Text)
}
