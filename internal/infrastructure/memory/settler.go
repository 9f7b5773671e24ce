package memory

import (
	"context"

	"github.com/mkvend/vendbot/internal/domain/catalog"
	"github.com/mkvend/vendbot/internal/domain/order"
)

// Settler converts a confirmed payment into a consumed unit plus a paid
// order. The claim and the status update happen under the product's claim
// mutex, so concurrent settlements and claims observe the pair as one
// operation: no unit is handed out twice, and no order becomes paid without
// a claimed unit.
type Settler struct {
	catalog *CatalogRepository
	orders  *OrderRepository
}

func NewSettler(catalog *CatalogRepository, orders *OrderRepository) *Settler {
	return &Settler{catalog: catalog, orders: orders}
}

func (s *Settler) SettleOrder(ctx context.Context, paymentRef string) (string, catalog.Kind, error) {
	o, err := s.orders.FindByPaymentRef(ctx, paymentRef)
	if err != nil {
		return "", "", err
	}

	lock := s.catalog.claimLock(o.ProductID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent settlement of the same order may
	// have won the race between the lookup above and acquiring the lock.
	o, err = s.orders.FindByPaymentRef(ctx, paymentRef)
	if err != nil {
		return "", "", err
	}
	if o.Status == order.StatusPaid {
		return "", "", order.ErrAlreadySettled
	}

	p, err := s.catalog.Get(ctx, o.ProductID)
	if err != nil {
		return "", "", err
	}

	unit, err := s.catalog.claimUnitLocked(ctx, o.ProductID)
	if err != nil {
		return "", "", err
	}
	if err := s.orders.MarkPaid(ctx, paymentRef); err != nil {
		return "", "", err
	}
	return unit, p.Kind, nil
}
