package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mavuno/agrolink/internal/domain"
)

// MemoryDealerRepository is an in-memory DealerRepository. Every read returns
// deep copies so callers can never mutate the directory through a result.
type MemoryDealerRepository struct {
	mu           sync.RWMutex
	dealers      []domain.AgroDealer
	catalog      []domain.CatalogProduct
	reservations map[string]domain.Reservation
	searches     map[string]domain.DemandHeatItem

	// Optional error override, set in tests to simulate a failing backend.
	ListDealersErr error
}

// NewMemoryDealerRepository builds a repository over the given snapshot.
func NewMemoryDealerRepository(dealers []domain.AgroDealer, catalog []domain.CatalogProduct) *MemoryDealerRepository {
	r := &MemoryDealerRepository{
		dealers:      make([]domain.AgroDealer, len(dealers)),
		catalog:      append([]domain.CatalogProduct(nil), catalog...),
		reservations: make(map[string]domain.Reservation),
		searches:     make(map[string]domain.DemandHeatItem),
	}
	for i, d := range dealers {
		r.dealers[i] = d.Clone()
	}
	return r
}

// NewSeededDealerRepository returns a repository loaded with the built-in
// catalog, dealers and demand baseline.
func NewSeededDealerRepository() *MemoryDealerRepository {
	r := NewMemoryDealerRepository(SeedDealers(), SeedCatalog())
	for _, h := range SeedDemandHeat() {
		r.searches[domain.SearchKey(h.PestName)] = h
	}
	return r
}

func (r *MemoryDealerRepository) ListDealers(_ context.Context) ([]domain.AgroDealer, error) {
	if r.ListDealersErr != nil {
		return nil, r.ListDealersErr
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AgroDealer, len(r.dealers))
	for i, d := range r.dealers {
		out[i] = d.Clone()
	}
	return out, nil
}

func (r *MemoryDealerRepository) GetDealer(_ context.Context, id string) (*domain.AgroDealer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.dealers {
		if d.ID == id {
			clone := d.Clone()
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryDealerRepository) ListCatalog(_ context.Context) ([]domain.CatalogProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.CatalogProduct(nil), r.catalog...), nil
}

func (r *MemoryDealerRepository) SaveReservation(_ context.Context, res *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[res.Code] = *res
	return nil
}

// Reservation looks up a saved reservation by code.
func (r *MemoryDealerRepository) Reservation(code string) (domain.Reservation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.reservations[code]
	return res, ok
}

func (r *MemoryDealerRepository) IncrementGroupBuy(_ context.Context, dealerID, productID string) (*domain.GroupBuy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.dealers {
		if r.dealers[i].ID != dealerID {
			continue
		}
		for j := range r.dealers[i].Inventory {
			p := &r.dealers[i].Inventory[j]
			if p.ID != productID {
				continue
			}
			if p.GroupBuy == nil || !p.GroupBuy.IsActive {
				return nil, domain.ErrNoGroupBuy
			}
			p.GroupBuy.Current++
			gb := *p.GroupBuy
			return &gb, nil
		}
	}
	return nil, domain.ErrNotFound
}

// RecordSearch counts term case-insensitively. The first spelling seen is
// the one reported.
func (r *MemoryDealerRepository) RecordSearch(_ context.Context, term string) error {
	key := domain.SearchKey(term)
	if key == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.searches[key]
	if !ok {
		h.PestName = strings.Join(strings.Fields(term), " ")
	}
	h.SearchCount++
	r.searches[key] = h
	return nil
}

func (r *MemoryDealerRepository) DemandHeat(_ context.Context, limit int) ([]domain.DemandHeatItem, error) {
	r.mu.RLock()
	out := make([]domain.DemandHeatItem, 0, len(r.searches))
	for _, h := range r.searches {
		out = append(out, h)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SearchCount != out[j].SearchCount {
			return out[i].SearchCount > out[j].SearchCount
		}
		return domain.SearchKey(out[i].PestName) < domain.SearchKey(out[j].PestName)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// compile-time check
var _ DealerRepository = (*MemoryDealerRepository)(nil)
