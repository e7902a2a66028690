package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/agenthands/ontograph/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyClient struct {
	failures int
	calls    int
}

func (f *flakyClient) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("temporarily unavailable")
	}
	return "ok: " + prompt, nil
}

func (f *flakyClient) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("temporarily unavailable")
	}
	return []float32{1, 0}, nil
}

func TestRetryingRecoversFromTransientErrors(t *testing.T) {
	f := &flakyClient{failures: 2}
	r := &Retrying{LLM: f, Embedder: f, MaxTries: 3}

	out, err := r.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok: hi", out)
	assert.Equal(t, 3, f.calls)
}

func TestRetryingGivesUp(t *testing.T) {
	f := &flakyClient{failures: 10}
	r := &Retrying{LLM: f, Embedder: f, MaxTries: 2}

	_, err := r.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestNewClientProviders(t *testing.T) {
	ctx := context.Background()

	gen, emb, err := NewClient(ctx, config.LLMConfig{})
	require.NoError(t, err)
	assert.Nil(t, gen)
	assert.Nil(t, emb)

	gen, emb, err = NewClient(ctx, config.LLMConfig{Provider: "OpenAI", Model: "gpt-4o", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, gen)
	assert.NotNil(t, emb)

	gen, emb, err = NewClient(ctx, config.LLMConfig{Provider: "claude", Model: "claude-3-5-sonnet-latest", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &ClaudeClient{}, gen)
	assert.Nil(t, emb)

	gen, _, err = NewClient(ctx, config.LLMConfig{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, gen)

	_, _, err = NewClient(ctx, config.LLMConfig{Provider: "watson"})
	assert.Error(t, err)
}
