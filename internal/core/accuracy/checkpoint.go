package accuracy

import (
	"context"
	"sync"
)

// Checkpointer persists per-node results so an interrupted run can resume.
type Checkpointer interface {
	Load(ctx context.Context, runID string) ([]NodeResult, error)
	Save(ctx context.Context, runID string, batch int, results []NodeResult) error
}

// MemoryCheckpoints keeps checkpoints for the life of the process. Re-saving
// a node replaces its earlier result.
type MemoryCheckpoints struct {
	mu   sync.Mutex
	runs map[string][]NodeResult
}

func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{runs: make(map[string][]NodeResult)}
}

func (m *MemoryCheckpoints) Load(_ context.Context, runID string) ([]NodeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NodeResult(nil), m.runs[runID]...), nil
}

func (m *MemoryCheckpoints) Save(_ context.Context, runID string, _ int, results []NodeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := m.runs[runID]
	for _, r := range results {
		replaced := false
		for i := range run {
			if run[i].ID == r.ID {
				run[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			run = append(run, r)
		}
	}
	m.runs[runID] = run
	return nil
}
