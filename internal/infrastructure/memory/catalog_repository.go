package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	domain "github.com/mkvend/vendbot/internal/domain/catalog"
)

type CatalogRepository struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
	nextID   int64

	// claimMu serializes claims per product; claims on different products
	// proceed independently.
	claimMu sync.Mutex
	claims  map[int64]*sync.Mutex
}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		products: make(map[int64]*domain.Product),
		claims:   make(map[int64]*sync.Mutex),
	}
}

func (r *CatalogRepository) Create(ctx context.Context, p *domain.Product) (int64, error) {
	_ = ctx
	if p == nil {
		return 0, domain.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	clone := p.Clone()
	clone.ID = r.nextID
	r.products[clone.ID] = clone
	p.ID = clone.ID
	return clone.ID, nil
}

func (r *CatalogRepository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *CatalogRepository) List(ctx context.Context) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *CatalogRepository) Update(ctx context.Context, id int64, patch domain.Patch) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		if patch.Price.LessThanOrEqual(decimal.Zero) {
			return domain.ErrInvalidPrice
		}
		p.Price = *patch.Price
	}
	return nil
}

func (r *CatalogRepository) Delete(ctx context.Context, id int64) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *CatalogRepository) AppendUnits(ctx context.Context, id int64, units []string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Units = append(p.Units, domain.NormalizeUnits(units)...)
	return nil
}

func (r *CatalogRepository) ReplaceUnits(ctx context.Context, id int64, units []string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Units = domain.NormalizeUnits(units)
	return nil
}

func (r *CatalogRepository) ClaimUnit(ctx context.Context, id int64) (string, error) {
	lock := r.claimLock(id)
	lock.Lock()
	defer lock.Unlock()
	return r.claimUnitLocked(ctx, id)
}

// claimLock returns the per-product claim mutex, creating it on first use.
func (r *CatalogRepository) claimLock(id int64) *sync.Mutex {
	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	lock, ok := r.claims[id]
	if !ok {
		lock = &sync.Mutex{}
		r.claims[id] = lock
	}
	return lock
}

// claimUnitLocked performs the FIFO claim. The caller must hold the product's
// claim mutex.
func (r *CatalogRepository) claimUnitLocked(ctx context.Context, id int64) (string, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	if len(p.Units) == 0 {
		return "", domain.ErrOutOfStock
	}

	unit := p.Units[0]
	if p.Kind != domain.KindFile {
		p.Units = append([]string(nil), p.Units[1:]...)
	}
	return unit, nil
}
