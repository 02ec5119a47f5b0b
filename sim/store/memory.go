package store

import "sync"

// MemorySink accumulates rows in memory.
type MemorySink struct {
	mu      sync.Mutex
	rows    []Row
	batches int
}

// WriteBatch appends a copy of rows.
func (m *MemorySink) WriteBatch(rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	m.batches++
	return nil
}

// Close is a no-op.
func (m *MemorySink) Close() error { return nil }

// Rows returns a copy of everything written so far.
func (m *MemorySink) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}

// Batches returns the number of WriteBatch calls.
func (m *MemorySink) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}
