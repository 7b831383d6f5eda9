// Package config loads service settings from .env, an optional YAML file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"Glupulse_Assistant/internal/inference"
	"Glupulse_Assistant/internal/session"
	"Glupulse_Assistant/internal/utility"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DefaultConfigDir   = "./config"
	DefaultConfigName  = "assistant"
	DefaultSecretsFile = "secrets.toml"

	apiKeyEnv      = "HUGGINGFACE_API_KEY"
	secretsFileEnv = "SECRETS_FILE"
)

type Config struct {
	Port         int       `mapstructure:"port"`
	AppEnv       string    `mapstructure:"app_env"`
	LogLevel     string    `mapstructure:"log_level"`
	ResponseMode string    `mapstructure:"response_mode"`
	Inference    Inference `mapstructure:"inference"`
	Keyword      Keyword   `mapstructure:"keyword"`
	Session      Session   `mapstructure:"session"`
	Chat         Chat      `mapstructure:"chat"`

	// AllowedOrigins are cross-origin hosts allowed to call the API and open
	// sockets. Empty means same-origin only.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// APIKey never comes from the YAML file.
	APIKey string `mapstructure:"-"`
}

type Inference struct {
	URL            string        `mapstructure:"url"`
	MaxNewTokens   int           `mapstructure:"max_new_tokens"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialDelay   time.Duration `mapstructure:"initial_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	RawInput       bool          `mapstructure:"raw_input"`
}

type Keyword struct {
	Locale string `mapstructure:"locale"`
	File   string `mapstructure:"file"`
}

type Session struct {
	Secret   string        `mapstructure:"secret"`
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity int           `mapstructure:"capacity"`
}

type Chat struct {
	Greeting string `mapstructure:"greeting"`
	Apology  string `mapstructure:"apology"`
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Parameters returns the generation settings sent with each prompt.
func (c *Config) Parameters() *inference.Parameters {
	return &inference.Parameters{MaxNewTokens: c.Inference.MaxNewTokens, Temperature: c.Inference.Temperature}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("response_mode", "fallback")
	v.SetDefault("allowed_origins", []string{})

	v.SetDefault("inference.url", inference.DefaultAPIURL)
	v.SetDefault("inference.max_new_tokens", inference.DefaultMaxNewTokens)
	v.SetDefault("inference.temperature", inference.DefaultTemperature)
	v.SetDefault("inference.max_attempts", inference.DefaultMaxAttempts)
	v.SetDefault("inference.initial_delay", inference.DefaultInitialDelay)
	v.SetDefault("inference.attempt_timeout", inference.DefaultAttemptTimeout)
	v.SetDefault("inference.raw_input", false)

	v.SetDefault("keyword.locale", "en")
	v.SetDefault("keyword.file", "")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", session.DefaultTTL)
	v.SetDefault("session.capacity", session.DefaultCapacity)

	v.SetDefault("chat.greeting", session.DefaultGreeting)
	v.SetDefault("chat.apology", "")
}

// Load reads <dir>/assistant.yaml when present and applies environment
// overrides, e.g. INFERENCE_MAX_ATTEMPTS for inference.max_attempts.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(DefaultConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config load error: %w", err)
		}
		log.Debug().Str("dir", dir).Msg("no config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.APIKey = loadAPIKey()

	if cfg.Session.Secret == "" {
		secret, err := utility.GenerateSecureToken(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		cfg.Session.Secret = secret
		log.Warn().Msg("SESSION_SECRET is not set, using a random secret; sessions reset on restart")
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Inference.MaxAttempts < 1 {
		return fmt.Errorf("inference.max_attempts must be at least 1, got %d", c.Inference.MaxAttempts)
	}
	if c.Inference.InitialDelay <= 0 || c.Inference.AttemptTimeout <= 0 {
		return errors.New("inference.initial_delay and inference.attempt_timeout must be positive")
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" || !strings.Contains(origin, "://") {
			return fmt.Errorf("allowed_origins entry %q must be a full scheme://host origin", origin)
		}
	}
	if c.Inference.MaxNewTokens <= 0 {
		return fmt.Errorf("inference.max_new_tokens must be positive, got %d", c.Inference.MaxNewTokens)
	}
	return nil
}

// loadAPIKey prefers the environment, then the secrets file. A missing key
// is not an error; the inference client reports it on use.
func loadAPIKey() string {
	if key := strings.TrimSpace(os.Getenv(apiKeyEnv)); key != "" {
		return key
	}

	path := os.Getenv(secretsFileEnv)
	if path == "" {
		path = DefaultSecretsFile
	}
	if _, err := os.Stat(path); err != nil {
		log.Warn().Msg(apiKeyEnv + " is not set and no secrets file was found")
		return ""
	}

	sv := viper.New()
	sv.SetConfigFile(path)
	sv.SetConfigType("toml")
	if err := sv.ReadInConfig(); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to read secrets file")
		return ""
	}
	return strings.TrimSpace(sv.GetString(apiKeyEnv))
}
