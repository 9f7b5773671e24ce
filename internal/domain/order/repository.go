package order

import "context"

type Repository interface {
	// Open persists a new pending order. A duplicate payment reference is
	// rejected atomically with ErrDuplicateRef.
	Open(ctx context.Context, o *Order) (int64, error)
	FindByPaymentRef(ctx context.Context, ref string) (*Order, error)
	// MarkPaid advances the order to paid. Calling it for an already-paid
	// order is a no-op; a missing order yields ErrNotFound.
	MarkPaid(ctx context.Context, ref string) error
	// List returns all orders, newest first.
	List(ctx context.Context) ([]*Order, error)
	Stats(ctx context.Context) (*SalesStats, error)
}
