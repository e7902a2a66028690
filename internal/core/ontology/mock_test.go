package ontology

import (
	"context"
	"errors"
	"strings"
)

// MockEmbedder maps known strings to fixed vectors; unknown strings get a
// vector orthogonal to all of them.
type MockEmbedder struct {
	Vectors map[string][]float32
	Err     error
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Vectors[strings.ToLower(text)]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

type failingEquivalence struct{}

func (failingEquivalence) Equivalent(context.Context, string, string) (bool, error) {
	return false, errors.New("embedding service down")
}
