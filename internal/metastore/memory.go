package metastore

import (
	"context"
	"sort"
	"sync"
)

// Memory implements Store in process memory. Intended for tests and dry runs.
type Memory struct {
	mu      sync.RWMutex
	columns map[string]map[string]Column // dataset -> column name -> column
}

// NewMemory returns an empty in-memory metastore.
func NewMemory() *Memory {
	return &Memory{columns: make(map[string]map[string]Column)}
}

func (m *Memory) PushColumn(_ context.Context, dataset string, col Column) error {
	if err := col.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byName, ok := m.columns[dataset]
	if !ok {
		byName = make(map[string]Column)
		m.columns[dataset] = byName
	}
	col.Values = sortedValues(col.Values)
	byName[col.Name] = col
	return nil
}

func (m *Memory) GetColumn(_ context.Context, dataset, name string) (Column, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.columns[dataset][name]
	if !ok {
		return Column{}, ErrColumnNotFound{Dataset: dataset, Name: name}
	}
	col.Values = append([]Value(nil), col.Values...)
	return col, nil
}

func (m *Memory) Columns(_ context.Context, dataset string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.columns[dataset]))
	for name := range m.columns[dataset] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) Close() error { return nil }
