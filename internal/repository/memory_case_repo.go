package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/mavuno/agrolink/internal/domain"
)

// MemoryCaseRepository is an in-memory CaseRepository.
type MemoryCaseRepository struct {
	mu       sync.RWMutex
	cases    map[string]*domain.DiagnosisCase
	byClient map[string]string

	CreateErr error
}

func NewMemoryCaseRepository() *MemoryCaseRepository {
	return &MemoryCaseRepository{
		cases:    make(map[string]*domain.DiagnosisCase),
		byClient: make(map[string]string),
	}
}

func (m *MemoryCaseRepository) Create(_ context.Context, c *domain.DiagnosisCase) (*domain.DiagnosisCase, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ClientID != "" {
		if id, ok := m.byClient[c.ClientID]; ok {
			clone := *m.cases[id]
			return &clone, nil
		}
		m.byClient[c.ClientID] = c.ID
	}
	clone := *c
	m.cases[c.ID] = &clone
	out := clone
	return &out, nil
}

func (m *MemoryCaseRepository) GetByID(_ context.Context, id string) (*domain.DiagnosisCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (m *MemoryCaseRepository) List(_ context.Context) ([]*domain.DiagnosisCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.DiagnosisCase, 0, len(m.cases))
	for _, c := range m.cases {
		clone := *c
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

var _ CaseRepository = (*MemoryCaseRepository)(nil)
