package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/mkvend/vendbot/internal/domain/buyer"
)

type BuyerRepository struct {
	mu     sync.Mutex
	buyers map[int64]*domain.Buyer
}

func NewBuyerRepository() *BuyerRepository {
	return &BuyerRepository{buyers: make(map[int64]*domain.Buyer)}
}

func (r *BuyerRepository) Upsert(ctx context.Context, b *domain.Buyer) error {
	_ = ctx
	if b == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.buyers[b.ID]; seen {
		return nil
	}
	clone := *b
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now().UTC()
	}
	r.buyers[b.ID] = &clone
	return nil
}

func (r *BuyerRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buyers)
}
