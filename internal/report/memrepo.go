package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/park285/pgn-report/pkg/reportdto"
)

// memrepo keeps reports in process memory; used when no database is
// configured. Stored values are deep copies.
type memrepo struct {
	mu      sync.RWMutex
	reports map[string][]byte
}

func NewMemoryRepository() Repository {
	return &memrepo{reports: make(map[string][]byte)}
}

func (m *memrepo) Save(_ context.Context, rep *reportdto.Report) error {
	if rep == nil {
		return fmt.Errorf("nil report payload")
	}
	raw, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reports[rep.ID]; exists {
		return ErrDuplicateReport
	}
	m.reports[rep.ID] = raw
	return nil
}

func (m *memrepo) Get(_ context.Context, id string) (*reportdto.Report, error) {
	m.mu.RLock()
	raw, ok := m.reports[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrReportNotFound
	}
	var rep reportdto.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rep, nil
}
