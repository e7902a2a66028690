package accuracy

import (
	"context"
	"errors"
	"sync"
)

// MockKB wraps a MemoryKB with failure injection and call counting.
type MockKB struct {
	KB *MemoryKB
	// Failures is the number of leading calls that fail.
	Failures int
	Err      error
	// Block makes every call wait until the channel is closed.
	Block chan struct{}
	// OnLookup runs before each lookup.
	OnLookup func(name string)

	mu    sync.Mutex
	calls map[string]int
}

var errUnavailable = errors.New("kb unavailable")

func (m *MockKB) record(name string) error {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
	fail := m.Failures > 0 || m.Err != nil
	if m.Failures > 0 {
		m.Failures--
	}
	m.mu.Unlock()
	if m.Block != nil {
		<-m.Block
	}
	if fail {
		if m.Err != nil {
			return m.Err
		}
		return errUnavailable
	}
	return nil
}

func (m *MockKB) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockKB) Lookup(ctx context.Context, name string) (bool, error) {
	if m.OnLookup != nil {
		m.OnLookup(name)
	}
	if err := m.record(name); err != nil {
		return false, err
	}
	return m.KB.Lookup(ctx, name)
}

func (m *MockKB) Candidates(ctx context.Context, name string, limit int) ([]string, error) {
	if err := m.record("candidates:" + name); err != nil {
		return nil, err
	}
	return m.KB.Candidates(ctx, name, limit)
}
