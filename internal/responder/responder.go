// Package responder turns a user's question into a displayable reply.
// A Provider either asks the hosted model, answers from canned keyword
// advice, or tries the model first and falls back to keywords.
package responder

import (
	"context"
	"fmt"
	"strings"

	"Glupulse_Assistant/internal/inference"
	"Glupulse_Assistant/internal/keyword"
	"Glupulse_Assistant/internal/models"
	"Glupulse_Assistant/internal/prompt"
	"github.com/rs/zerolog"
)

const DefaultApology = "Sorry, I could not prepare an answer right now. Please try again in a moment."

// Mode selects which Provider New builds.
type Mode string

const (
	ModeAPI      Mode = "api"
	ModeKeyword  Mode = "keyword"
	ModeFallback Mode = "fallback"
)

// Source records which provider produced a Reply.
type Source string

const (
	SourceAPI     Source = "api"
	SourceKeyword Source = "keyword"
)

// Turn is one question in the context of a conversation. History excludes
// the question itself.
type Turn struct {
	Profile models.UserProfile
	History []models.ChatMessage
	Query   string
}

// Reply is always safe to show. When Failed is set, Text is the apology and
// Diagnostic carries the underlying error message.
type Reply struct {
	Text       string `json:"reply"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Source     Source `json:"source"`
	Failed     bool   `json:"failed"`
}

// Provider answers a Turn. Implementations never return an error; failures
// are folded into the Reply.
type Provider interface {
	Respond(ctx context.Context, turn Turn) Reply
	Name() string
}

// Generator is the inference call the API provider depends on.
type Generator interface {
	Generate(ctx context.Context, input string, params *inference.Parameters) (string, error)
}

/* ====================================================================
                   		API provider
==================================================================== */

// API composes a prompt from the turn and sends it to the model.
type API struct {
	gen     Generator
	params  *inference.Parameters
	apology string
	// rawInput sends the bare query with no generation parameters.
	rawInput bool
}

type APIOption func(*API)

func WithParameters(p *inference.Parameters) APIOption { return func(a *API) { a.params = p } }

func WithApology(text string) APIOption {
	return func(a *API) {
		if strings.TrimSpace(text) != "" {
			a.apology = text
		}
	}
}

// WithRawInput makes the provider send only the query text as inputs.
func WithRawInput() APIOption { return func(a *API) { a.rawInput = true } }

func NewAPI(gen Generator, opts ...APIOption) *API {
	a := &API{gen: gen, params: inference.DefaultParameters(), apology: DefaultApology}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) Name() string { return string(ModeAPI) }

func (a *API) Respond(ctx context.Context, turn Turn) Reply {
	logger := zerolog.Ctx(ctx)

	input, params := prompt.Compose(turn.Profile, turn.History, turn.Query), a.params
	if a.rawInput {
		input, params = turn.Query, nil
	}

	text, err := a.gen.Generate(ctx, input, params)
	if err != nil {
		logger.Warn().Err(err).Msg("api provider failed to answer")
		return Reply{Text: a.apology, Diagnostic: err.Error(), Source: SourceAPI, Failed: true}
	}
	return Reply{Text: text, Source: SourceAPI}
}

/* ====================================================================
                   		Keyword provider
==================================================================== */

// Keyword answers from canned advice. It never fails.
type Keyword struct {
	kw *keyword.Responder
}

func NewKeyword(kw *keyword.Responder) *Keyword {
	return &Keyword{kw: kw}
}

func (k *Keyword) Name() string { return string(ModeKeyword) }

func (k *Keyword) Respond(_ context.Context, turn Turn) Reply {
	return Reply{Text: k.kw.Respond(turn.Query, turn.Profile), Source: SourceKeyword}
}

/* ====================================================================
                   		Fallback provider
==================================================================== */

// Fallback tries Primary first; if its reply failed, Secondary answers and
// the primary diagnostic is kept on the reply.
type Fallback struct {
	Primary   Provider
	Secondary Provider
}

func (f *Fallback) Name() string { return string(ModeFallback) }

func (f *Fallback) Respond(ctx context.Context, turn Turn) Reply {
	first := f.Primary.Respond(ctx, turn)
	if !first.Failed || f.Secondary == nil {
		return first
	}

	zerolog.Ctx(ctx).Info().
		Str("primary", f.Primary.Name()).
		Str("secondary", f.Secondary.Name()).
		Msg("falling back to secondary provider")

	second := f.Secondary.Respond(ctx, turn)
	if second.Diagnostic == "" {
		second.Diagnostic = first.Diagnostic
	}
	return second
}

// Deps are the collaborators New may need for a given mode.
type Deps struct {
	Generator  Generator
	Keywords   *keyword.Responder
	APIOptions []APIOption
}

// New builds the Provider for mode.
func New(mode Mode, deps Deps) (Provider, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case ModeAPI:
		if deps.Generator == nil {
			return nil, fmt.Errorf("response mode %q needs an inference client", mode)
		}
		return NewAPI(deps.Generator, deps.APIOptions...), nil

	case ModeKeyword:
		if deps.Keywords == nil {
			return nil, fmt.Errorf("response mode %q needs a keyword responder", mode)
		}
		return NewKeyword(deps.Keywords), nil

	case ModeFallback:
		if deps.Generator == nil || deps.Keywords == nil {
			return nil, fmt.Errorf("response mode %q needs an inference client and a keyword responder", mode)
		}
		return &Fallback{
			Primary:   NewAPI(deps.Generator, deps.APIOptions...),
			Secondary: NewKeyword(deps.Keywords),
		}, nil
	}
	return nil, fmt.Errorf("unknown response mode %q (want api, keyword or fallback)", mode)
}
