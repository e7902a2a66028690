package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Retrying wraps a provider with exponential backoff on transient errors.
type Retrying struct {
	LLM      LLMClient
	Embedder EmbedderClient
	MaxTries uint
}

func (r *Retrying) policy() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	tries := r.MaxTries
	if tries == 0 {
		tries = 3
	}
	return []backoff.RetryOption{backoff.WithBackOff(b), backoff.WithMaxTries(tries)}
}

func (r *Retrying) Generate(ctx context.Context, prompt string) (string, error) {
	return backoff.Retry(ctx, func() (string, error) {
		return r.LLM.Generate(ctx, prompt)
	}, r.policy()...)
}

func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	return backoff.Retry(ctx, func() ([]float32, error) {
		return r.Embedder.Embed(ctx, text)
	}, r.policy()...)
}
