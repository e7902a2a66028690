package dedupe

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/agenthands/ontograph/internal/llm"
)

// Embedding matches strings whose embeddings have a cosine similarity above
// Threshold. Vectors are cached per string.
type Embedding struct {
	Embedder  llm.EmbedderClient
	Threshold float64

	mu    sync.Mutex
	cache map[string][]float32
}

func NewEmbedding(e llm.EmbedderClient, threshold float64) *Embedding {
	return &Embedding{Embedder: e, Threshold: threshold, cache: make(map[string][]float32)}
}

func (e *Embedding) Equivalent(ctx context.Context, a, b string) (bool, error) {
	if a == "" || b == "" {
		return false, nil
	}
	if a == b {
		return true, nil
	}
	va, err := e.vector(ctx, a)
	if err != nil {
		return false, err
	}
	vb, err := e.vector(ctx, b)
	if err != nil {
		return false, err
	}
	return Cosine(va, vb) > e.Threshold, nil
}

func (e *Embedding) vector(ctx context.Context, s string) ([]float32, error) {
	e.mu.Lock()
	if e.cache == nil {
		e.cache = make(map[string][]float32)
	}
	v, ok := e.cache[s]
	e.mu.Unlock()
	if ok {
		return v, nil
	}
	v, err := e.Embedder.Embed(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", s, err)
	}
	e.mu.Lock()
	e.cache[s] = v
	e.mu.Unlock()
	return v, nil
}

// Cosine similarity of two vectors; 0 when either is zero or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
