package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	domain "github.com/mkvend/vendbot/internal/domain/order"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
	byRef  map[string]int64
	nextID int64
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[int64]*domain.Order),
		byRef:  make(map[string]int64),
	}
}

func (r *OrderRepository) Open(ctx context.Context, o *domain.Order) (int64, error) {
	_ = ctx
	if o == nil || o.PaymentRef == "" {
		return 0, domain.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byRef[o.PaymentRef]; exists {
		return 0, domain.ErrDuplicateRef
	}

	r.nextID++
	clone := o.Clone()
	clone.ID = r.nextID
	r.orders[clone.ID] = clone
	r.byRef[clone.PaymentRef] = clone.ID
	o.ID = clone.ID
	return clone.ID, nil
}

func (r *OrderRepository) FindByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byRef[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.orders[id].Clone(), nil
}

func (r *OrderRepository) MarkPaid(ctx context.Context, ref string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byRef[ref]
	if !ok {
		return domain.ErrNotFound
	}
	r.orders[id].Status = domain.StatusPaid
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o.Clone())
	}
	// Newest first; ids are monotonic so they double as creation order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *OrderRepository) Stats(ctx context.Context) (*domain.SalesStats, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.SalesStats{TotalRevenue: decimal.Zero}
	byProduct := make(map[int64]*domain.ProductSales)
	for _, o := range r.orders {
		if o.Status != domain.StatusPaid {
			continue
		}
		stats.PaidCount++
		stats.TotalRevenue = stats.TotalRevenue.Add(o.Price)

		ps, ok := byProduct[o.ProductID]
		if !ok {
			ps = &domain.ProductSales{
				ProductID:   o.ProductID,
				ProductName: o.ProductName,
				Revenue:     decimal.Zero,
			}
			byProduct[o.ProductID] = ps
		}
		ps.Count++
		ps.Revenue = ps.Revenue.Add(o.Price)
	}

	top := make([]domain.ProductSales, 0, len(byProduct))
	for _, ps := range byProduct {
		top = append(top, *ps)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].ProductID < top[j].ProductID
	})
	if len(top) > domain.TopProductsLimit {
		top = top[:domain.TopProductsLimit]
	}
	stats.TopProducts = top
	return stats, nil
}
