package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/agenthands/ontograph/internal/core/model"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type MockDriver struct {
	Queries []string
	Err     error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return neo4j.EagerResult{}, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

// RecordingObserver keeps the stages it was told about, in order.
type RecordingObserver struct {
	mu     sync.Mutex
	Stages []string
	Diags  map[string]int
}

func (r *RecordingObserver) ObserveStage(stage string, _ time.Duration, diags model.Diagnostics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Diags == nil {
		r.Diags = make(map[string]int)
	}
	r.Stages = append(r.Stages, stage)
	r.Diags[stage] += len(diags)
}
