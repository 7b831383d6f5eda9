package responder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"Glupulse_Assistant/internal/inference"
	"Glupulse_Assistant/internal/keyword"
	"Glupulse_Assistant/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	text   string
	err    error
	inputs []string
	params []*inference.Parameters
}

func (s *stubGenerator) Generate(_ context.Context, input string, params *inference.Parameters) (string, error) {
	s.inputs = append(s.inputs, input)
	s.params = append(s.params, params)
	return s.text, s.err
}

func testTurn(query string) Turn {
	return Turn{
		Profile: models.DefaultProfile(),
		History: []models.ChatMessage{
			{Role: models.RoleAssistant, Content: "Hello!"},
			{Role: models.RoleUser, Content: "earlier question"},
		},
		Query: query,
	}
}

func keywords(t *testing.T) *keyword.Responder {
	t.Helper()
	kw, err := keyword.LoadLocale("en")
	require.NoError(t, err)
	return kw
}

func TestAPISendsComposedPrompt(t *testing.T) {
	gen := &stubGenerator{text: "Keep a log."}
	p := NewAPI(gen)

	reply := p.Respond(context.Background(), testTurn("what now?"))
	assert.Equal(t, Reply{Text: "Keep a log.", Source: SourceAPI}, reply)

	require.Len(t, gen.inputs, 1)
	assert.True(t, strings.HasPrefix(gen.inputs[0], "<system>"))
	assert.Contains(t, gen.inputs[0], "user: earlier question")
	assert.Contains(t, gen.inputs[0], "<query>\nwhat now?\n</query>")
	assert.Equal(t, inference.DefaultParameters(), gen.params[0])
}

func TestAPIRawInput(t *testing.T) {
	gen := &stubGenerator{text: "ok"}
	p := NewAPI(gen, WithRawInput())

	p.Respond(context.Background(), testTurn("just this"))
	assert.Equal(t, []string{"just this"}, gen.inputs)
	assert.Nil(t, gen.params[0])
}

func TestAPIFailureIsDisplayable(t *testing.T) {
	gen := &stubGenerator{err: &inference.Error{Kind: inference.KindServerFault, StatusCode: 500, Attempts: 3, Body: "boom"}}
	p := NewAPI(gen, WithApology("try later"))

	reply := p.Respond(context.Background(), testTurn("hi"))
	assert.True(t, reply.Failed)
	assert.Equal(t, "try later", reply.Text)
	assert.Contains(t, reply.Diagnostic, "boom")
	assert.Equal(t, SourceAPI, reply.Source)
}

func TestAPIBlankApologyKeepsDefault(t *testing.T) {
	p := NewAPI(&stubGenerator{err: errors.New("x")}, WithApology("  "))
	assert.Equal(t, DefaultApology, p.Respond(context.Background(), testTurn("hi")).Text)
}

func TestKeywordProvider(t *testing.T) {
	p := NewKeyword(keywords(t))

	reply := p.Respond(context.Background(), testTurn("what should I eat"))
	assert.Equal(t, SourceKeyword, reply.Source)
	assert.False(t, reply.Failed)
	assert.True(t, strings.HasPrefix(reply.Text, "Diet tips"))
}

func TestFallbackUsesPrimaryWhenItSucceeds(t *testing.T) {
	f := &Fallback{Primary: NewAPI(&stubGenerator{text: "model answer"}), Secondary: NewKeyword(keywords(t))}

	reply := f.Respond(context.Background(), testTurn("what should I eat"))
	assert.Equal(t, "model answer", reply.Text)
	assert.Equal(t, SourceAPI, reply.Source)
}

func TestFallbackKeepsPrimaryDiagnostic(t *testing.T) {
	gen := &stubGenerator{err: &inference.Error{Kind: inference.KindNotConfigured, Err: errors.New("missing API key")}}
	f := &Fallback{Primary: NewAPI(gen), Secondary: NewKeyword(keywords(t))}

	reply := f.Respond(context.Background(), testTurn("how much should I walk"))
	assert.False(t, reply.Failed)
	assert.Equal(t, SourceKeyword, reply.Source)
	assert.True(t, strings.HasPrefix(reply.Text, "Exercise tips"))
	assert.Contains(t, reply.Diagnostic, "missing API key")
}

func TestNew(t *testing.T) {
	kw := keywords(t)
	gen := &stubGenerator{}

	p, err := New(ModeAPI, Deps{Generator: gen})
	require.NoError(t, err)
	assert.Equal(t, "api", p.Name())

	p, err = New("Keyword", Deps{Keywords: kw})
	require.NoError(t, err)
	assert.Equal(t, "keyword", p.Name())

	p, err = New(ModeFallback, Deps{Generator: gen, Keywords: kw})
	require.NoError(t, err)
	assert.IsType(t, &Fallback{}, p)

	_, err = New(ModeFallback, Deps{Keywords: kw})
	assert.Error(t, err)

	_, err = New("magic", Deps{Generator: gen, Keywords: kw})
	assert.ErrorContains(t, err, "unknown response mode")
}
