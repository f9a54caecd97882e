package landmask

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
)

var (
	// ErrRowNotFound is returned by stores for rows that were never written.
	ErrRowNotFound = errors.New("land mask row not found")
	// ErrStepTooFine is returned for steps whose cells would share microdegree keys.
	ErrStepTooFine = errors.New("step is not a whole number of microdegrees")
)

// CheckStep accepts steps of at least one microdegree that are a whole
// number of microdegrees, the only ones whose cells get distinct keys.
func CheckStep(step float64) error {
	micro := step * 1e6
	if math.IsNaN(micro) || math.Round(micro) < 1 || math.Abs(micro-math.Round(micro)) > 1e-6 {
		return fmt.Errorf("%w: %v", ErrStepTooFine, step)
	}
	return nil
}

// Store persists land mask rows. A row is the set of classified cells of one
// latitude at one step, keyed by longitude in microdegrees. SaveRow replaces
// the whole row atomically. Implementations must allow concurrent calls for
// different rows.
type Store interface {
	LoadRow(ctx context.Context, step float64, lat int32) (map[int32]bool, error)
	SaveRow(ctx context.Context, step float64, lat int32, cells map[int32]bool) error
}

// StepTag formats a step size for file and key names, e.g. "0.1" or "5".
func StepTag(step float64) string {
	return strconv.FormatFloat(step, 'f', -1, 64)
}

// MemoryStore keeps rows in process memory.
type MemoryStore struct {
	rows map[string]map[int32]bool
	mu   sync.RWMutex
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]map[int32]bool)}
}

func memoryKey(step float64, lat int32) string {
	return StepTag(step) + "/" + strconv.FormatInt(int64(lat), 10)
}

// LoadRow returns a copy of the stored row.
func (m *MemoryStore) LoadRow(_ context.Context, step float64, lat int32) (map[int32]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[memoryKey(step, lat)]
	if !ok {
		return nil, ErrRowNotFound
	}

	return copyCells(row), nil
}

// SaveRow stores a copy of cells, replacing any previous row.
func (m *MemoryStore) SaveRow(_ context.Context, step float64, lat int32, cells map[int32]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows[memoryKey(step, lat)] = copyCells(cells)
	return nil
}

// Rows returns the number of stored rows.
func (m *MemoryStore) Rows() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func copyCells(src map[int32]bool) map[int32]bool {
	dst := make(map[int32]bool, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
