package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"Glupulse_Assistant/internal/inference"
	"Glupulse_Assistant/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every lookup at an empty temp dir and clears the env keys
// a developer machine might carry.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, key := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "RESPONSE_MODE", "SESSION_SECRET",
		"INFERENCE_URL", "INFERENCE_MAX_ATTEMPTS", "INFERENCE_INITIAL_DELAY",
		"KEYWORD_LOCALE", "CHAT_GREETING", "ALLOWED_ORIGINS", apiKeyEnv,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv(secretsFileEnv, filepath.Join(dir, "missing.toml"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "fallback", cfg.ResponseMode)
	assert.Equal(t, inference.DefaultAPIURL, cfg.Inference.URL)
	assert.Equal(t, inference.DefaultMaxAttempts, cfg.Inference.MaxAttempts)
	assert.Equal(t, inference.DefaultInitialDelay, cfg.Inference.InitialDelay)
	assert.Equal(t, inference.DefaultAttemptTimeout, cfg.Inference.AttemptTimeout)
	assert.Equal(t, inference.DefaultParameters(), cfg.Parameters())
	assert.Equal(t, "en", cfg.Keyword.Locale)
	assert.Equal(t, session.DefaultTTL, cfg.Session.TTL)
	assert.Equal(t, session.DefaultGreeting, cfg.Chat.Greeting)
	assert.Empty(t, cfg.APIKey)
	assert.Len(t, cfg.Session.Secret, 64)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := isolate(t)
	yaml := []byte(`
port: 9090
response_mode: keyword
inference:
  max_attempts: 5
  initial_delay: 500ms
keyword:
  locale: ko
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assistant.yaml"), yaml, 0o600))
	t.Setenv("INFERENCE_MAX_ATTEMPTS", "4")
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "keyword", cfg.ResponseMode)
	assert.Equal(t, 4, cfg.Inference.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Inference.InitialDelay)
	assert.Equal(t, "ko", cfg.Keyword.Locale)
	assert.Equal(t, "s3cret", cfg.Session.Secret)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := isolate(t)
	t.Setenv("INFERENCE_MAX_ATTEMPTS", "0")

	_, err := Load(dir)
	assert.ErrorContains(t, err, "max_attempts")
}

func TestLoadRejectsZeroInitialDelay(t *testing.T) {
	dir := isolate(t)
	t.Setenv("INFERENCE_INITIAL_DELAY", "0s")

	_, err := Load(dir)
	assert.ErrorContains(t, err, "initial_delay")
}

func TestLoadAllowedOrigins(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assistant.yaml"), []byte(`
allowed_origins:
  - https://clinic.example.org
`), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://clinic.example.org"}, cfg.AllowedOrigins)
}

func TestLoadRejectsWildcardOrigin(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assistant.yaml"), []byte("allowed_origins: [\"*\"]\n"), 0o600))

	_, err := Load(dir)
	assert.ErrorContains(t, err, "allowed_origins")
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assistant.yaml"), []byte("port: [oops"), 0o600))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestAPIKeyFromEnv(t *testing.T) {
	dir := isolate(t)
	t.Setenv(apiKeyEnv, " hf_env ")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "hf_env", cfg.APIKey)
}

func TestAPIKeyFromSecretsFile(t *testing.T) {
	dir := isolate(t)
	secrets := filepath.Join(dir, "secrets.toml")
	require.NoError(t, os.WriteFile(secrets, []byte(`HUGGINGFACE_API_KEY = "hf_file"`+"\n"), 0o600))
	t.Setenv(secretsFileEnv, secrets)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "hf_file", cfg.APIKey)
}

func TestSetupLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	SetupLogger("local", "debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	SetupLogger("production", "nonsense")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
