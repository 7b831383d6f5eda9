package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// --- Inference API Configuration ---
const (
	DefaultAPIURL         = "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.2"
	DefaultMaxAttempts    = 3
	DefaultInitialDelay   = 2 * time.Second
	DefaultAttemptTimeout = 60 * time.Second
	DefaultMaxNewTokens   = 512
	DefaultTemperature    = 0.7

	// bodySnippetLimit caps how much of an error body ends up in messages.
	bodySnippetLimit = 100
)

// --- Structs for the text-generation request/response ---

// Parameters are the generation settings sent alongside the prompt.
type Parameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
}

// DefaultParameters returns max_new_tokens=512, temperature=0.7.
func DefaultParameters() *Parameters {
	return &Parameters{MaxNewTokens: DefaultMaxNewTokens, Temperature: DefaultTemperature}
}

// Payload is the JSON body of every request. Parameters are omitted when nil.
type Payload struct {
	Inputs     string      `json:"inputs"`
	Parameters *Parameters `json:"parameters,omitempty"`
}

type generation struct {
	GeneratedText *string `json:"generated_text"`
}

// HTTPDoer is the subset of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Client calls a hosted text-generation endpoint with bounded retry.
type Client struct {
	url            string
	apiKey         string
	httpClient     HTTPDoer
	sleep          Sleeper
	logger         *zerolog.Logger
	maxAttempts    int
	initialDelay   time.Duration
	attemptTimeout time.Duration
}

type Option func(*Client)

func WithHTTPClient(h HTTPDoer) Option { return func(c *Client) { c.httpClient = h } }

func WithSleeper(s Sleeper) Option { return func(c *Client) { c.sleep = s } }

func WithLogger(l *zerolog.Logger) Option { return func(c *Client) { c.logger = l } }

// WithRetryPolicy overrides the attempt budget and timing. Non-positive values keep the defaults.
func WithRetryPolicy(maxAttempts int, initialDelay, attemptTimeout time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			c.initialDelay = initialDelay
		}
		if attemptTimeout > 0 {
			c.attemptTimeout = attemptTimeout
		}
	}
}

// New returns a Client for url authenticated with apiKey. An empty apiKey is
// accepted; every call then fails with KindNotConfigured.
func New(url, apiKey string, opts ...Option) *Client {
	if strings.TrimSpace(url) == "" {
		url = DefaultAPIURL
	}
	c := &Client{
		url:            url,
		apiKey:         strings.TrimSpace(apiKey),
		sleep:          sleepContext,
		logger:         &log.Logger,
		maxAttempts:    DefaultMaxAttempts,
		initialDelay:   DefaultInitialDelay,
		attemptTimeout: DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.attemptTimeout}
	}
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

/* =================================================================================
							RETRY STATE MACHINE
	Attempting -> Succeeded | Failed | Backoff
	Backoff    -> Attempting | Failed (context done)
=================================================================================*/

type state int

const (
	stateAttempting state = iota
	stateBackoff
	stateSucceeded
	stateFailed
)

// run carries the mutable bookkeeping of a single Generate call.
type run struct {
	input   string
	body    []byte
	attempt int
	delay   time.Duration
	wait    time.Duration
	text    string
	err     error
}

// Generate sends input to the endpoint and returns the generated text with
// any verbatim echo of input removed. params may be nil to send only inputs.
func (c *Client) Generate(ctx context.Context, input string, params *Parameters) (string, error) {
	logger := c.loggerFor(ctx)

	if !c.Configured() {
		logger.Error().Msg("inference API key is not set")
		return "", &Error{Kind: KindNotConfigured, Err: errors.New("missing API key")}
	}

	body, err := json.Marshal(Payload{Inputs: input, Parameters: params})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	r := &run{input: input, body: body, delay: c.initialDelay}
	st := stateAttempting
	for {
		switch st {
		case stateAttempting:
			r.attempt++
			logger.Info().Int("attempt", r.attempt).Msg("calling inference API")
			st = c.attempt(ctx, logger, r)

		case stateBackoff:
			logger.Warn().Int("attempt", r.attempt).Dur("sleep", r.wait).Msg("inference attempt failed, backing off")
			if err := c.sleep(ctx, r.wait); err != nil {
				r.err = &Error{Kind: KindCanceled, Attempts: r.attempt, Err: err}
				st = stateFailed
				continue
			}
			st = stateAttempting

		case stateSucceeded:
			return r.text, nil

		case stateFailed:
			logger.Warn().Err(r.err).Int("attempts", r.attempt).Msg("inference call failed")
			return "", r.err
		}
	}
}

// attempt performs one HTTP exchange and decides the next state.
func (c *Client) attempt(ctx context.Context, logger *zerolog.Logger, r *run) state {
	final := r.attempt >= c.maxAttempts

	status, raw, err := c.doOnce(ctx, r.body)
	if err != nil {
		if ctx.Err() != nil {
			r.err = &Error{Kind: KindCanceled, Attempts: r.attempt, Err: ctx.Err()}
			return stateFailed
		}
		if final {
			r.err = &Error{Kind: KindTransport, Attempts: r.attempt, Err: err}
			return stateFailed
		}
		logger.Warn().Err(err).Int("attempt", r.attempt).Msg("inference transport error")
		r.wait = r.delay
		return stateBackoff
	}

	switch status {
	case http.StatusOK:
		logger.Debug().RawJSON("payload", jsonOrQuoted(raw)).Msg("inference response decoded")
		text, err := extractText(raw, r.input)
		if err != nil {
			err.Attempts = r.attempt
			r.err = err
			return stateFailed
		}
		r.text = text
		return stateSucceeded

	case http.StatusServiceUnavailable:
		if final {
			r.err = &Error{
				Kind:       KindExhaustedRetries,
				StatusCode: status,
				Attempts:   r.attempt,
				Err:        &Error{Kind: KindTransientService, StatusCode: status, Body: snippet(raw)},
			}
			return stateFailed
		}
		r.wait = r.delay
		r.delay *= 2
		return stateBackoff

	case http.StatusInternalServerError:
		if final {
			r.err = &Error{Kind: KindServerFault, StatusCode: status, Attempts: r.attempt, Body: snippet(raw)}
			return stateFailed
		}
		r.wait = r.delay
		return stateBackoff

	default:
		r.err = &Error{Kind: KindClientRequest, StatusCode: status, Attempts: r.attempt, Body: snippet(raw)}
		return stateFailed
	}
}

// doOnce issues a single POST bounded by the per-attempt timeout.
func (c *Client) doOnce(ctx context.Context, body []byte) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// extractText pulls generated_text out of a 200 payload.
func extractText(raw []byte, input string) (string, *Error) {
	var gens []generation
	if err := json.Unmarshal(raw, &gens); err == nil {
		for _, g := range gens {
			if g.GeneratedText == nil {
				continue
			}
			text := strings.TrimPrefix(*g.GeneratedText, input)
			return strings.TrimSpace(text), nil
		}
	}

	malformed := &Error{Kind: KindMalformedResponse, StatusCode: http.StatusOK, Body: string(raw)}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		if msg, ok := obj["error"]; ok {
			malformed.ModelError = fmt.Sprint(msg)
		}
	}
	return "", malformed
}

func (c *Client) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return c.logger
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// snippet returns at most bodySnippetLimit characters of body.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if utf8.RuneCountInString(s) <= bodySnippetLimit {
		return s
	}
	return string([]rune(s)[:bodySnippetLimit])
}

func jsonOrQuoted(raw []byte) []byte {
	if json.Valid(raw) {
		return raw
	}
	q, _ := json.Marshal(string(raw))
	return q
}
